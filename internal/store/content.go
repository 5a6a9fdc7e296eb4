package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/raysh454/intent/internal/model"
)

// PutContentChunk inserts or replaces one indexed content fragment.
func (s *Store) PutContentChunk(ctx context.Context, c model.ContentChunk) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO content_chunks (id, site_id, url, title, text) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET site_id = excluded.site_id, url = excluded.url,
             title = excluded.title, text = excluded.text`,
		c.ID, c.SiteID, c.URL, c.Title, c.Text)
	if err != nil {
		return fmt.Errorf("upsert content chunk: %w", err)
	}
	return nil
}

// SearchContent ranks a site's chunks by how many distinct terms they
// contain (case-insensitive). Chunks from pageURL win ties. Chunks that match
// nothing are omitted.
func (s *Store) SearchContent(ctx context.Context, siteID string, terms []string, pageURL string, limit int) ([]model.ContentChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_id, url, title, text FROM content_chunks WHERE site_id = ? ORDER BY id`, siteID)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	type scored struct {
		chunk model.ContentChunk
		hits  int
		same  bool
	}
	var all []scored
	for rows.Next() {
		var c model.ContentChunk
		if err := rows.Scan(&c.ID, &c.SiteID, &c.URL, &c.Title, &c.Text); err != nil {
			return nil, err
		}
		hay := strings.ToLower(c.Title + " " + c.Text)
		hits := 0
		for _, t := range terms {
			if t != "" && strings.Contains(hay, strings.ToLower(t)) {
				hits++
			}
		}
		if hits > 0 {
			all = append(all, scored{chunk: c, hits: hits, same: pageURL != "" && c.URL == pageURL})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].hits != all[j].hits {
			return all[i].hits > all[j].hits
		}
		return all[i].same && !all[j].same
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]model.ContentChunk, len(all))
	for i, sc := range all {
		out[i] = sc.chunk
	}
	return out, nil
}
