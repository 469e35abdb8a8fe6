// Package turkish provides locale-invariant text folding for comparing
// Turkish strings scraped from listing pages and live form markup.
package turkish

import "strings"

var replacer = strings.NewReplacer(
	"ı", "i",
	"ğ", "g",
	"ü", "u",
	"ş", "s",
	"ö", "o",
	"ç", "c",
)

// Fold lowercases s and maps Turkish letters to their ASCII base forms.
// The dotted capital İ is mapped to I before lowercasing so that
// Fold("İ") and Fold("I") agree; the result is stable under repeated
// application.
func Fold(s string) string {
	s = strings.ReplaceAll(s, "İ", "I")
	s = strings.ToLower(s)
	return replacer.Replace(s)
}

// FoldEqual reports whether two strings compare equal after folding.
func FoldEqual(a, b string) bool {
	return Fold(a) == Fold(b)
}
