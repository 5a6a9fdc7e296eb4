package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/intent/internal/model"
)

// PutSite inserts or replaces a site.
func (s *Store) PutSite(ctx context.Context, site model.Site) error {
	if site.ID == "" {
		return errors.New("site id is required")
	}
	domains, err := json.Marshal(nonNilStrings(site.AllowedDomains))
	if err != nil {
		return fmt.Errorf("encode allowed domains: %w", err)
	}
	settings, err := json.Marshal(site.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tokens := site.DesignTokens
	if tokens == nil {
		tokens = map[string]string{}
	}
	tokenJSON, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode design tokens: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sites (id, access_key, active, allowed_domains, settings, style_context, design_tokens, home_url, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             access_key = excluded.access_key,
             active = excluded.active,
             allowed_domains = excluded.allowed_domains,
             settings = excluded.settings,
             style_context = excluded.style_context,
             design_tokens = excluded.design_tokens,
             home_url = excluded.home_url`,
		site.ID, site.AccessKey, boolInt(site.Active), string(domains), string(settings),
		site.StyleContext, string(tokenJSON), site.HomeURL, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert site: %w", err)
	}
	return nil
}

// GetSite returns the site with id or ErrNotFound.
func (s *Store) GetSite(ctx context.Context, id string) (*model.Site, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, access_key, active, allowed_domains, settings, style_context, design_tokens, home_url
         FROM sites WHERE id = ? LIMIT 1`, id)

	var (
		site     model.Site
		active   int
		domains  string
		settings string
		tokens   string
	)
	if err := row.Scan(&site.ID, &site.AccessKey, &active, &domains, &settings, &site.StyleContext, &tokens, &site.HomeURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("site %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query site: %w", err)
	}
	site.Active = active != 0
	if err := json.Unmarshal([]byte(domains), &site.AllowedDomains); err != nil {
		return nil, fmt.Errorf("decode allowed domains: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &site.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := json.Unmarshal([]byte(tokens), &site.DesignTokens); err != nil {
		return nil, fmt.Errorf("decode design tokens: %w", err)
	}
	return &site, nil
}

// PutTemplate inserts or replaces the pre-generated payload for an intent key.
func (s *Store) PutTemplate(ctx context.Context, t model.Template) error {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return fmt.Errorf("encode template payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (site_id, intent_key, payload, active) VALUES (?, ?, ?, ?)
         ON CONFLICT(site_id, intent_key) DO UPDATE SET payload = excluded.payload, active = excluded.active`,
		t.SiteID, t.IntentKey, string(payload), boolInt(t.Active))
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}

// ActiveTemplate returns the active template for (siteID, intentKey) or ErrNotFound.
func (s *Store) ActiveTemplate(ctx context.Context, siteID, intentKey string) (*model.Template, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM templates WHERE site_id = ? AND intent_key = ? AND active = 1 LIMIT 1`,
		siteID, intentKey).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %s/%s: %w", siteID, intentKey, ErrNotFound)
		}
		return nil, fmt.Errorf("query template: %w", err)
	}
	t := &model.Template{SiteID: siteID, IntentKey: intentKey, Active: true}
	if err := json.Unmarshal([]byte(payload), &t.Payload); err != nil {
		return nil, fmt.Errorf("decode template payload: %w", err)
	}
	return t, nil
}

// PutPrompt inserts or replaces the operator prompt for an intent key.
func (s *Store) PutPrompt(ctx context.Context, p model.Prompt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompts (site_id, intent_key, text, active) VALUES (?, ?, ?, ?)
         ON CONFLICT(site_id, intent_key) DO UPDATE SET text = excluded.text, active = excluded.active`,
		p.SiteID, p.IntentKey, p.Text, boolInt(p.Active))
	if err != nil {
		return fmt.Errorf("upsert prompt: %w", err)
	}
	return nil
}

// ActivePrompt returns the active prompt text or ErrNotFound.
func (s *Store) ActivePrompt(ctx context.Context, siteID, intentKey string) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT text FROM prompts WHERE site_id = ? AND intent_key = ? AND active = 1 LIMIT 1`,
		siteID, intentKey).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("prompt %s/%s: %w", siteID, intentKey, ErrNotFound)
		}
		return "", fmt.Errorf("query prompt: %w", err)
	}
	return text, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
