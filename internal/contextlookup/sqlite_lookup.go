package contextlookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/raysh454/intent/internal/model"
)

type contentSearcher interface {
	SearchContent(ctx context.Context, siteID string, terms []string, pageURL string, limit int) ([]model.ContentChunk, error)
}

// SQLiteLookup ranks stored content chunks by term overlap.
type SQLiteLookup struct {
	store contentSearcher
	cfg   Config
}

func NewSQLiteLookup(store contentSearcher, cfg Config) *SQLiteLookup {
	return &SQLiteLookup{store: store, cfg: cfg}
}

func (l *SQLiteLookup) Fetch(ctx context.Context, siteID, query, pageURL string) (string, error) {
	terms := Terms(query, l.cfg.MaxTerms)
	if len(terms) == 0 {
		return "", ErrNoContext
	}
	chunks, err := l.store.SearchContent(ctx, siteID, terms, pageURL, l.cfg.MaxChunks)
	if err != nil {
		return "", fmt.Errorf("search content: %w", err)
	}
	if len(chunks) == 0 {
		return "", ErrNoContext
	}

	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if c.Title != "" {
			b.WriteString(c.Title)
			if c.URL != "" {
				b.WriteString(" (" + c.URL + ")")
			}
			b.WriteString(": ")
		}
		b.WriteString(strings.TrimSpace(c.Text))
	}
	return truncate(b.String(), l.cfg.MaxChars), nil
}
