package competency

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a category or skill token for comparison: surrounding
// whitespace trimmed, diacritics stripped, lower-cased. "ÉLECTRICITÉ" and
// "electricite" normalize to the same key.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		// Invalid UTF-8 cannot be folded; fall back to plain lower-casing.
		folded = s
	}
	return strings.ToLower(folded)
}
