// Package email derives name guesses from email addresses.
package email

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// DeriveName guesses a display name from the local part of an address, so
// "jane.doe@example.com" becomes "Jane Doe". Tokens without letters are
// skipped. Returns "" when nothing usable remains.
func DeriveName(address string) string {
	local := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		local = address[:at]
	}

	tokens := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !strings.ContainsFunc(t, unicode.IsLetter) {
			continue
		}
		words = append(words, titleCaser.String(t))
	}
	return strings.Join(words, " ")
}
