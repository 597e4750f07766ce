package attendance

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// searchSeparators become spaces so "novak-dvorak", "novak.dvorak" and
// "novak dvorak" fold to the same key.
var searchSeparators = strings.NewReplacer("-", " ", "_", " ", ".", " ", ",", " ")

// foldSearchText reduces a name, email or query to a key for substring
// search: diacritics stripped, case folded, separators turned into single
// spaces and the ends trimmed. "  Jiří  DVOŘÁK " becomes "jiri dvorak".
func foldSearchText(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(searchSeparators.Replace(folded)), " ")
}
