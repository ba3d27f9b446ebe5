package detect

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC normalization and lower-cases the text.
// NFKC folds mathematical/stylistic Unicode variants to their ASCII
// equivalents, so keyword and pattern matching sees "𝐕𝐞𝐫𝐢𝐟𝐲" as "verify".
func Normalize(text string) string {
	return strings.ToLower(norm.NFKC.String(text))
}

// tokenize splits normalized text into lowercase word tokens,
// dropping punctuation.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
