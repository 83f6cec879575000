package ror

import "strings"

// idPrefix is the URI prefix every full identifier is expected to carry.
const idPrefix = "https://ror.org/"

// ExtractID returns the canonical short identifier for a full URI-form
// identifier: the trailing path segment.
//
// The function is pure and total. Inputs that do not match the expected URI
// shape still yield the best-effort trailing token (callers may report a
// data-quality warning via HasCanonicalForm); the result is empty only for an
// empty or all-separator input.
func ExtractID(fullID string) string {
	s := strings.TrimRight(fullID, "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// HasCanonicalForm reports whether fullID has the expected registry URI shape:
// the canonical prefix followed by a non-empty single path segment.
func HasCanonicalForm(fullID string) bool {
	rest, ok := strings.CutPrefix(fullID, idPrefix)
	if !ok || rest == "" {
		return false
	}
	return !strings.Contains(rest, "/")
}
