// Package matcher implements the pattern-matching core shared by the
// filter engine (C3), the dynamic-rule detector (C4), and the
// monitoring hit processor (C7/C8). It holds no persisted state beyond
// a bounded regex compile cache.
package matcher

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ignite/filterplane/internal/domain"
)

// regexCacheLimit bounds the compiled-regex cache so a stream of
// distinct one-off patterns cannot grow it without limit.
const regexCacheLimit = 2048

// Matcher evaluates a pattern against a subject string under one of
// the five match modes. It is safe for concurrent use.
type Matcher struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

// New returns a ready-to-use Matcher.
func New() *Matcher {
	return &Matcher{cache: make(map[string]*regexp.Regexp)}
}

// Match reports whether subject matches pattern under mode. A regex
// compile failure never panics or bubbles up as a caller error that
// would disable the rule: it returns matched=false with a descriptive
// error so the caller can log a one-time warning and leave the rule
// enabled. Regex case-insensitivity is applied via an `(?i)` prefix at
// compile time rather than by lowercasing the pattern, so character
// classes and escapes that are case-sensitive-significant (`\D`,
// `[A-Z]`, ...) behave exactly as Validate validated them.
func (m *Matcher) Match(pattern, subject string, mode domain.MatchMode) (bool, error) {
	switch mode {
	case domain.ModeExact:
		return strings.ToLower(subject) == strings.ToLower(pattern), nil
	case domain.ModeContains:
		return strings.Contains(strings.ToLower(subject), strings.ToLower(pattern)), nil
	case domain.ModeStartsWith:
		return strings.HasPrefix(strings.ToLower(subject), strings.ToLower(pattern)), nil
	case domain.ModeEndsWith:
		return strings.HasSuffix(strings.ToLower(subject), strings.ToLower(pattern)), nil
	case domain.ModeRegex:
		re, err := m.compile(pattern)
		if err != nil {
			return false, fmt.Errorf("matcher: regex compile failed: %w", err)
		}
		return re.MatchString(subject), nil
	default:
		return false, fmt.Errorf("matcher: unknown match mode %q", mode)
	}
}

// Validate reports whether pattern is well-formed for mode. Only the
// regex mode can fail validation; the other modes accept any string,
// including the empty one (empty is rejected at the rule-creation
// boundary, not here).
func (m *Matcher) Validate(pattern string, mode domain.MatchMode) error {
	if mode != domain.ModeRegex {
		return nil
	}
	_, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("matcher: invalid regex pattern: %w", err)
	}
	return nil
}

// FindFirst returns the index of the first rule whose pattern matches
// subject under mode, or -1 if none match. Rules are tried in the
// order given, so callers own precedence and ordering.
func (m *Matcher) FindFirst(patterns []string, subject string, mode domain.MatchMode) (int, error) {
	for i, p := range patterns {
		matched, err := m.Match(p, subject, mode)
		if err != nil {
			continue
		}
		if matched {
			return i, nil
		}
	}
	return -1, nil
}

func (m *Matcher) compile(pattern string) (*regexp.Regexp, error) {
	m.mu.RLock()
	if re, ok := m.cache[pattern]; ok {
		m.mu.RUnlock()
		return re, nil
	}
	m.mu.RUnlock()

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if len(m.cache) >= regexCacheLimit {
		m.cache = make(map[string]*regexp.Regexp)
	}
	m.cache[pattern] = re
	m.mu.Unlock()

	return re, nil
}
