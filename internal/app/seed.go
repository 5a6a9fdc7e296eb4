package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
)

// SeedFile is the operator fixture format loaded by `intentd seed`.
type SeedFile struct {
	Sites     []model.Site         `json:"sites"`
	Templates []model.Template     `json:"templates"`
	Prompts   []model.Prompt       `json:"prompts"`
	Content   []model.ContentChunk `json:"content"`
}

// SeedStats counts rows written by Seed.
type SeedStats struct {
	Sites     int `json:"sites"`
	Templates int `json:"templates"`
	Prompts   int `json:"prompts"`
	Content   int `json:"content"`
}

// ParseSeed decodes and validates a seed document. Unknown fields are rejected
// so a typo in a key does not silently drop configuration.
func ParseSeed(r io.Reader) (*SeedFile, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var f SeedFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	for i, s := range f.Sites {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("sites[%d]: missing id", i)
		}
		if strings.TrimSpace(s.AccessKey) == "" {
			return nil, fmt.Errorf("site %q: missing access_key", s.ID)
		}
	}
	for i, t := range f.Templates {
		if t.SiteID == "" || t.IntentKey == "" {
			return nil, fmt.Errorf("templates[%d]: site_id and intent_key are required", i)
		}
	}
	for i, p := range f.Prompts {
		if p.SiteID == "" || p.IntentKey == "" || strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("prompts[%d]: site_id, intent_key and text are required", i)
		}
	}
	for i, c := range f.Content {
		if c.SiteID == "" || strings.TrimSpace(c.Text) == "" {
			return nil, fmt.Errorf("content[%d]: site_id and text are required", i)
		}
	}
	return &f, nil
}

// Seed writes every record in f. Writes are upserts, so seeding the same file
// twice is harmless.
func (a *Application) Seed(ctx context.Context, f *SeedFile) (SeedStats, error) {
	var st SeedStats
	if f == nil {
		return st, nil
	}
	for _, s := range f.Sites {
		if err := a.Store.PutSite(ctx, s); err != nil {
			return st, fmt.Errorf("seed site %q: %w", s.ID, err)
		}
		st.Sites++
	}
	for _, t := range f.Templates {
		if err := a.Store.PutTemplate(ctx, t); err != nil {
			return st, fmt.Errorf("seed template %s/%s: %w", t.SiteID, t.IntentKey, err)
		}
		st.Templates++
	}
	for _, p := range f.Prompts {
		if err := a.Store.PutPrompt(ctx, p); err != nil {
			return st, fmt.Errorf("seed prompt %s/%s: %w", p.SiteID, p.IntentKey, err)
		}
		st.Prompts++
	}
	for _, c := range f.Content {
		if err := a.Store.PutContentChunk(ctx, c); err != nil {
			return st, fmt.Errorf("seed content for %s: %w", c.SiteID, err)
		}
		st.Content++
	}
	a.Logger.Info("seed loaded",
		logging.Field{Key: "sites", Value: st.Sites},
		logging.Field{Key: "templates", Value: st.Templates},
		logging.Field{Key: "prompts", Value: st.Prompts},
		logging.Field{Key: "content", Value: st.Content})
	return st, nil
}
