package normalize

import (
	"regexp"
	"strings"
)

// Lightweight heuristics for pulling a name and location out of free text,
// used when the caller gave context but no structured fields.
var (
	namedRe       = regexp.MustCompile(`(?i)named\s+([A-Z][a-z]+\s+[A-Z][a-z]+)`)
	personNamedRe = regexp.MustCompile(`(?i)person\s+named\s+([A-Z][a-z]+\s+[A-Z][a-z]+)`)
	nameWhoRe     = regexp.MustCompile(`(?i)\b([A-Z][a-z]+\s+[A-Z][a-z]+)\b\s+who\b`)
	locationRe    = regexp.MustCompile(`(?i)\b(lives\s+in|in|from)\s+([A-Za-z][A-Za-z\s,&-]{2,})`)
)

// ContextGuess holds fields extracted from free-text context.
type ContextGuess struct {
	FullName string
	Location string
}

// FromContext extracts a probable name and location from free text. Both
// fields may come back empty; callers only use them to fill gaps, never to
// overwrite fields the user supplied.
func FromContext(context string) ContextGuess {
	var guess ContextGuess
	if context == "" {
		return guess
	}

	for _, re := range []*regexp.Regexp{namedRe, personNamedRe, nameWhoRe} {
		if m := re.FindStringSubmatch(context); m != nil {
			guess.FullName = titleCaser.String(m[1])
			break
		}
	}
	if m := locationRe.FindStringSubmatch(context); m != nil {
		guess.Location = titleCaser.String(strings.TrimSpace(m[2]))
	}
	return guess
}
