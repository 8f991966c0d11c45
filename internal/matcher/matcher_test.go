package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/filterplane/internal/domain"
)

func TestMatchExact(t *testing.T) {
	m := New()
	matched, err := m.Match("Example.com", "example.com", domain.ModeExact)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = m.Match("example.com", "sub.example.com", domain.ModeExact)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestMatchContains(t *testing.T) {
	m := New()
	matched, err := m.Match("promo", "Big PROMO sale today", domain.ModeContains)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestMatchStartsEndsWith(t *testing.T) {
	m := New()
	matched, err := m.Match("re:", "RE: your invoice", domain.ModeStartsWith)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = m.Match(".ru", "spammer.ru", domain.ModeEndsWith)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestMatchRegex(t *testing.T) {
	m := New()
	matched, err := m.Match(`^invoice-\d+$`, "invoice-4821", domain.ModeRegex)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestMatchRegexPreservesCharacterClasses(t *testing.T) {
	m := New()
	matched, err := m.Match(`^\D+$`, "invoice", domain.ModeRegex)
	require.NoError(t, err)
	assert.True(t, matched, "\\D must still mean non-digit, not be corrupted into \\d by lowercasing")

	matched, err = m.Match(`^[A-Z]+$`, "invoice", domain.ModeRegex)
	require.NoError(t, err)
	assert.True(t, matched, "[A-Z] must match case-insensitively via (?i), not be rewritten into [a-z]")
}

func TestMatchRegexInvalidDoesNotPanic(t *testing.T) {
	m := New()
	matched, err := m.Match(`([`, "anything", domain.ModeRegex)
	assert.False(t, matched)
	assert.Error(t, err)
}

func TestMatchUnknownMode(t *testing.T) {
	m := New()
	_, err := m.Match("x", "y", domain.MatchMode("bogus"))
	assert.Error(t, err)
}

func TestValidateRegex(t *testing.T) {
	m := New()
	assert.NoError(t, m.Validate(`^[a-z]+$`, domain.ModeRegex))
	assert.Error(t, m.Validate(`([`, domain.ModeRegex))
	assert.NoError(t, m.Validate("anything goes", domain.ModeContains))
}

func TestFindFirst(t *testing.T) {
	m := New()
	patterns := []string{"alpha", "beta", "gamma"}
	idx, err := m.FindFirst(patterns, "this has beta in it", domain.ModeContains)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = m.FindFirst(patterns, "no match here", domain.ModeContains)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}

func TestCompileCacheReused(t *testing.T) {
	m := New()
	_, err := m.Match(`^a+$`, "aaa", domain.ModeRegex)
	require.NoError(t, err)
	m.mu.RLock()
	_, cached := m.cache["^a+$"]
	m.mu.RUnlock()
	assert.True(t, cached)
}
