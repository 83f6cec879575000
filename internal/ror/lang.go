package ror

import "golang.org/x/text/language"

// ValidLangTag reports whether s parses as a BCP 47 language tag.
//
// The registry records two-letter ISO codes; anything language.Parse rejects
// is a data-quality anomaly the caller may log. An empty code means "no
// language recorded" and is considered valid.
func ValidLangTag(s string) bool {
	if s == "" {
		return true
	}
	_, err := language.Parse(s)
	return err == nil
}
