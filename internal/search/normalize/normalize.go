// Package normalize turns raw search input into a canonical query. It
// guarantees no field survives as an empty or invalid string: bad emails and
// unparseable phones are dropped to absent rather than passed through.
package normalize

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"deepsearch/internal/search/models"
)

var titleCaser = cases.Title(language.Und)

// Normalize applies the deterministic field normalizers.
func Normalize(input models.SearchInput) models.Query {
	return models.Query{
		FullName:    Name(input.Name),
		Email:       Email(input.Email),
		Phone:       Phone(input.Phone),
		Username:    strings.TrimSpace(input.Username),
		Location:    strings.TrimSpace(input.Location),
		ContextText: strings.TrimSpace(input.ContextText),
	}
}

// Email lowercases and trims, and drops values without a plausible domain.
func Email(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	if !strings.Contains(email[at+1:], ".") {
		return ""
	}
	return email
}

// Phone canonicalizes to E.164 when the number parses as a valid
// international number, and falls back to bare digits otherwise.
func Phone(phone string) string {
	s := strings.TrimSpace(phone)
	if s == "" {
		return ""
	}
	if num, err := phonenumbers.Parse(s, ""); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

// Name collapses separators and whitespace and title-cases the result.
func Name(name string) string {
	cleaned := strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), " ")
	if cleaned == "" {
		return ""
	}
	return titleCaser.String(cleaned)
}
