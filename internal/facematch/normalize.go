package facematch

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizePersonName prepares a display name for storage: NFC composition
// (decomposed Hangul jamo from some keyboards become syllables), trimmed,
// inner whitespace collapsed to single spaces.
func NormalizePersonName(name string) string {
	name = norm.NFC.String(name)
	return strings.Join(strings.Fields(name), " ")
}
