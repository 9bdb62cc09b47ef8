package geo

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// stripSpace is stateless and safe to share.
var stripSpace = runes.Remove(runes.Predicate(isSpace))

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}

// NormalizeCode upper-cases s with full Unicode case mapping and removes every
// whitespace rune. "k1a 0b1" and "K1A0B1" normalize to the same key.
// The result is stable: NormalizeCode(NormalizeCode(s)) == NormalizeCode(s).
func NormalizeCode(s string) string {
	// A Caser carries state, one per call.
	upper := cases.Upper(language.Und).String(s)
	out, _, err := transform.String(stripSpace, upper)
	if err != nil {
		return upper
	}
	return out
}
