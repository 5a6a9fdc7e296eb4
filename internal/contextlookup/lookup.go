// Package contextlookup retrieves site content relevant to a visitor's
// behavioral query, for grounding generated UI.
package contextlookup

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

var ErrNoContext = errors.New("no matching context")

type Lookup interface {
	Fetch(ctx context.Context, siteID, query, pageURL string) (string, error)
}

type Config struct {
	// MaxChunks bounds how many fragments are concatenated.
	MaxChunks int
	// MaxChars bounds the returned text.
	MaxChars int
	// MaxTerms bounds how many query terms are searched.
	MaxTerms int
}

func DefaultConfig() Config {
	return Config{MaxChunks: 3, MaxChars: 2000, MaxTerms: 12}
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true, "that": true,
	"are": true, "was": true, "you": true, "your": true, "our": true, "from": true,
	"user": true, "visitor": true, "interested": true, "looking": true, "about": true,
	"they": true, "have": true, "has": true, "into": true, "like": true,
}

// Terms splits query into distinct lower-case search terms, dropping short
// words and filler.
func Terms(query string, max int) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if len([]rune(w)) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
