package campaign

import "strings"

// Extractor derives sender domains and root registrable domains using a
// configurable TLDSet.
type Extractor struct {
	tlds *TLDSet
}

// NewExtractor wires an Extractor against the given TLDSet.
func NewExtractor(tlds *TLDSet) *Extractor {
	if tlds == nil {
		tlds = DefaultTLDSet()
	}
	return &Extractor{tlds: tlds}
}

// defaultExtractor backs the package-level convenience functions used
// by callers (e.g. the filter engine's domain match_type) that don't
// need a custom TLDSet.
var defaultExtractor = NewExtractor(DefaultTLDSet())

// ExtractDomain is the package-level convenience form of
// Extractor.ExtractDomain using the default TLD set.
func ExtractDomain(senderEmail string) (string, bool) {
	return defaultExtractor.ExtractDomain(senderEmail)
}

// ExtractRootDomain is the package-level convenience form of
// Extractor.ExtractRootDomain using the default TLD set.
func ExtractRootDomain(fullDomain string) string {
	return defaultExtractor.ExtractRootDomain(fullDomain)
}

// ExtractDomain lowercases and trims senderEmail, splits on "@", and
// returns the domain part. It returns ok=false for malformed input: no
// "@", empty local or domain part, missing dot in the domain, or any
// embedded whitespace.
func (e *Extractor) ExtractDomain(senderEmail string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(senderEmail))
	if strings.ContainsAny(s, " \t\n\r") {
		return "", false
	}

	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return "", false
	}

	local, domainPart := s[:at], s[at+1:]
	if local == "" || domainPart == "" {
		return "", false
	}
	if !strings.Contains(domainPart, ".") {
		return "", false
	}

	return e.ExtractRootDomain(domainPart), true
}

// ExtractRootDomain collapses a full domain to its registrable root: if
// the last two labels form a recognized second-level TLD, the last
// three labels are returned; otherwise the last two. Idempotent:
// ExtractRootDomain(ExtractRootDomain(d)) == ExtractRootDomain(d).
func (e *Extractor) ExtractRootDomain(fullDomain string) string {
	labels := strings.Split(strings.ToLower(strings.TrimSpace(fullDomain)), ".")
	if len(labels) <= 2 {
		return strings.Join(labels, ".")
	}

	lastTwo := strings.Join(labels[len(labels)-2:], ".")
	if e.tlds.Contains(lastTwo) && len(labels) >= 3 {
		return strings.Join(labels[len(labels)-3:], ".")
	}
	return lastTwo
}
