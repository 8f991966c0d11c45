package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/matcher"
	"github.com/ignite/filterplane/internal/rules"
)

func newEngine(seed ...domain.FilterRule) *Engine {
	cache := rules.NewCache()
	for _, r := range seed {
		cache.Put(r)
	}
	return New(cache, matcher.New())
}

func TestEvaluateDefaultForward(t *testing.T) {
	e := newEngine()
	d := e.Evaluate(Event{From: "a@b.com", To: "c@d.com", Subject: "hello", Timestamp: time.Now()})
	assert.Equal(t, ActionForward, d.Action)
	assert.Empty(t, d.MatchedCategory)
	assert.Nil(t, d.MatchedRule)
}

func TestEvaluateWhitelistWinsOverBlacklist(t *testing.T) {
	now := time.Now()
	e := newEngine(
		domain.FilterRule{ID: "w1", Category: domain.CategoryWhitelist, MatchType: domain.MatchTypeSender,
			MatchMode: domain.ModeExact, Pattern: "trusted@partner.com", Enabled: true, CreatedAt: now},
		domain.FilterRule{ID: "b1", Category: domain.CategoryBlacklist, MatchType: domain.MatchTypeSender,
			MatchMode: domain.ModeContains, Pattern: "partner", Enabled: true, CreatedAt: now},
	)

	d := e.Evaluate(Event{From: "trusted@partner.com", To: "x@y.com", Subject: "hi", Timestamp: now})
	require.NotNil(t, d.MatchedRule)
	assert.Equal(t, ActionForward, d.Action)
	assert.Equal(t, domain.CategoryWhitelist, d.MatchedCategory)
}

func TestEvaluateBlacklistDrop(t *testing.T) {
	now := time.Now()
	e := newEngine(domain.FilterRule{
		ID: "b1", Category: domain.CategoryBlacklist, MatchType: domain.MatchTypeSubject,
		MatchMode: domain.ModeContains, Pattern: "viagra", Enabled: true, CreatedAt: now,
	})

	d := e.Evaluate(Event{From: "a@b.com", To: "c@d.com", Subject: "Cheap VIAGRA now", Timestamp: now})
	assert.Equal(t, ActionDrop, d.Action)
	assert.Equal(t, domain.CategoryBlacklist, d.MatchedCategory)
}

func TestEvaluateDisabledRuleSkipped(t *testing.T) {
	now := time.Now()
	e := newEngine(domain.FilterRule{
		ID: "b1", Category: domain.CategoryBlacklist, MatchType: domain.MatchTypeSubject,
		MatchMode: domain.ModeContains, Pattern: "spam", Enabled: false, CreatedAt: now,
	})

	d := e.Evaluate(Event{From: "a@b.com", To: "c@d.com", Subject: "spam spam spam", Timestamp: now})
	assert.Equal(t, ActionForward, d.Action)
}

func TestEvaluateDeterministicOrderingWithinCategory(t *testing.T) {
	base := time.Now()
	e := newEngine(
		domain.FilterRule{ID: "second", Category: domain.CategoryBlacklist, MatchType: domain.MatchTypeSubject,
			MatchMode: domain.ModeContains, Pattern: "x", Enabled: true, CreatedAt: base.Add(time.Minute)},
		domain.FilterRule{ID: "first", Category: domain.CategoryBlacklist, MatchType: domain.MatchTypeSubject,
			MatchMode: domain.ModeContains, Pattern: "x", Enabled: true, CreatedAt: base},
	)

	d := e.Evaluate(Event{From: "a@b.com", To: "c@d.com", Subject: "has x in it", Timestamp: base})
	require.NotNil(t, d.MatchedRule)
	assert.Equal(t, "first", d.MatchedRule.ID)
}

func TestEvaluateDomainMatchType(t *testing.T) {
	now := time.Now()
	e := newEngine(domain.FilterRule{
		ID: "b1", Category: domain.CategoryBlacklist, MatchType: domain.MatchTypeDomain,
		MatchMode: domain.ModeExact, Pattern: "spammer.ru", Enabled: true, CreatedAt: now,
	})

	d := e.Evaluate(Event{From: "x@mail.spammer.ru", To: "c@d.com", Subject: "hi", Timestamp: now})
	assert.Equal(t, ActionDrop, d.Action)
}

func TestEvaluateUncompilableRegexSkippedNotFatal(t *testing.T) {
	now := time.Now()
	e := newEngine(domain.FilterRule{
		ID: "b1", Category: domain.CategoryBlacklist, MatchType: domain.MatchTypeSubject,
		MatchMode: domain.ModeRegex, Pattern: "([", Enabled: true, CreatedAt: now,
	})

	d := e.Evaluate(Event{From: "a@b.com", To: "c@d.com", Subject: "anything", Timestamp: now})
	assert.Equal(t, ActionForward, d.Action)
	assert.Nil(t, d.MatchedRule)
}
