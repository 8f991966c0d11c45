// Package filter implements the synchronous filter-decision path (C3):
// given a candidate email, it returns forward-or-drop plus the matched
// rule and category, in fixed whitelist/blacklist/dynamic/default-
// forward precedence.
package filter

import (
	"strings"
	"time"

	"github.com/ignite/filterplane/internal/campaign"
	"github.com/ignite/filterplane/internal/domain"
	"github.com/ignite/filterplane/internal/matcher"
	"github.com/ignite/filterplane/internal/rules"
)

// Event is the inbound decision event submitted by a worker node.
type Event struct {
	From       string
	To         string
	Subject    string
	Timestamp  time.Time
	WorkerName string
}

// Action is the closed set of filter outcomes.
type Action string

const (
	ActionForward Action = "forward"
	ActionDrop    Action = "drop"
)

// Decision is the synchronous result of evaluating an Event.
type Decision struct {
	Action          Action
	ForwardTo       string
	Reason          string
	MatchedCategory domain.RuleCategory
	MatchedRule     *domain.FilterRule
}

// evalOrder is the fixed category precedence; the loop below must
// preserve this order exactly.
var evalOrder = []struct {
	category domain.RuleCategory
	action   Action
}{
	{domain.CategoryWhitelist, ActionForward},
	{domain.CategoryBlacklist, ActionDrop},
	{domain.CategoryDynamic, ActionDrop},
}

// Engine evaluates events against the cached rule set. It never
// mutates last_hit_at or counters; that is the task processor's job
// (C10), driven off the envelope this evaluation enqueues.
type Engine struct {
	cache   *rules.Cache
	matcher *matcher.Matcher
}

// New wires an Engine from its cache and matcher collaborators.
func New(cache *rules.Cache, m *matcher.Matcher) *Engine {
	return &Engine{cache: cache, matcher: m}
}

// Evaluate returns the filter decision for ev, trying whitelist, then
// blacklist, then dynamic rules in deterministic per-category order,
// and defaulting to forward with no matched category.
func (e *Engine) Evaluate(ev Event) Decision {
	for _, step := range evalOrder {
		ruleList := e.cache.ByCategory(step.category)
		for i := range ruleList {
			rule := ruleList[i]
			if !rule.Enabled {
				continue
			}
			subject := e.subjectFor(ev, rule.MatchType)
			matched, err := e.matcher.Match(rule.Pattern, subject, rule.MatchMode)
			if err != nil {
				// Uncompilable regex: the rule stays enabled, this
				// match attempt is silently skipped.
				continue
			}
			if !matched {
				continue
			}
			d := Decision{
				Action:          step.action,
				Reason:          string(step.category) + " rule matched",
				MatchedCategory: step.category,
				MatchedRule:     &rule,
			}
			if step.action == ActionForward {
				d.ForwardTo = ev.To
			}
			return d
		}
	}

	return Decision{
		Action:    ActionForward,
		ForwardTo: ev.To,
		Reason:    "default forward, no rule matched",
	}
}

// subjectFor derives the value a rule's match_type field compares
// against: sender and subject compare as-is; domain extracts the root
// registrable domain from the sender address.
func (e *Engine) subjectFor(ev Event, matchType domain.MatchType) string {
	switch matchType {
	case domain.MatchTypeSender:
		return ev.From
	case domain.MatchTypeSubject:
		return ev.Subject
	case domain.MatchTypeDomain:
		d, ok := campaign.ExtractDomain(ev.From)
		if !ok {
			return ""
		}
		return d
	default:
		return strings.ToLower(ev.Subject)
	}
}
