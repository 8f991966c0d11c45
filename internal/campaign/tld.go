package campaign

// TLDSet is a loadable, closed set of well-known second-level TLDs
// (e.g. "co.uk", "com.cn") used to decide whether a root registrable
// domain needs three labels instead of two. It is never consulted via
// inline if/else chains in the extraction logic; callers load it once
// and pass it in.
type TLDSet struct {
	entries map[string]struct{}
}

// NewTLDSet builds a TLDSet from a list of two-label second-level TLDs.
func NewTLDSet(entries []string) *TLDSet {
	set := &TLDSet{entries: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		set.entries[e] = struct{}{}
	}
	return set
}

// Contains reports whether the last-two-labels string (e.g. "co.uk")
// is a recognized second-level TLD.
func (s *TLDSet) Contains(lastTwoLabels string) bool {
	_, ok := s.entries[lastTwoLabels]
	return ok
}

// DefaultTLDSet returns the built-in second-level TLD list. It is a
// data table, not extraction logic: operators replace it with a
// larger/updated set (e.g. from the public suffix list) by constructing
// their own TLDSet and wiring it into NewExtractor instead.
func DefaultTLDSet() *TLDSet {
	return NewTLDSet([]string{
		"co.uk", "org.uk", "ac.uk", "gov.uk", "me.uk",
		"com.cn", "net.cn", "org.cn", "gov.cn",
		"co.jp", "ne.jp", "or.jp", "ac.jp", "go.jp",
		"com.au", "net.au", "org.au", "gov.au",
		"co.nz", "net.nz", "org.nz",
		"co.za", "org.za",
		"com.br", "net.br", "org.br",
		"co.in", "net.in", "org.in", "gov.in",
		"com.mx", "com.ar", "com.sg", "com.hk", "com.tw",
	})
}
