package contextlookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/raysh454/intent/internal/webclient"
	"github.com/tidwall/gjson"
)

type HTTPConfig struct {
	URL    string
	APIKey string
	Config
}

// HTTPLookup asks an external semantic search service. The service answers
// either {"context": "..."} or {"results": [{"text": "..."}]}.
type HTTPLookup struct {
	cfg    HTTPConfig
	client webclient.WebClient
}

func NewHTTPLookup(cfg HTTPConfig, client webclient.WebClient) (*HTTPLookup, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("context lookup url is required")
	}
	if client == nil {
		return nil, errors.New("context lookup web client is required")
	}
	return &HTTPLookup{cfg: cfg, client: client}, nil
}

func (l *HTTPLookup) Fetch(ctx context.Context, siteID, query, pageURL string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"site_id":  siteID,
		"query":    query,
		"page_url": pageURL,
		"limit":    l.cfg.MaxChunks,
	})
	if err != nil {
		return "", fmt.Errorf("encode lookup request: %w", err)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	if l.cfg.APIKey != "" {
		headers.Set("Authorization", "Bearer "+l.cfg.APIKey)
	}

	resp, err := l.client.Do(ctx, &webclient.Request{
		Method:  http.MethodPost,
		URL:     l.cfg.URL,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return "", fmt.Errorf("context lookup: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("context lookup: status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(resp.Body) {
		return "", errors.New("context lookup: invalid JSON response")
	}

	root := gjson.ParseBytes(resp.Body)
	if c := strings.TrimSpace(root.Get("context").String()); c != "" {
		return truncate(c, l.cfg.MaxChars), nil
	}
	var parts []string
	root.Get("results").ForEach(func(_, v gjson.Result) bool {
		if t := strings.TrimSpace(v.Get("text").String()); t != "" {
			parts = append(parts, t)
		}
		return l.cfg.MaxChunks <= 0 || len(parts) < l.cfg.MaxChunks
	})
	if len(parts) == 0 {
		return "", ErrNoContext
	}
	return truncate(strings.Join(parts, "\n\n"), l.cfg.MaxChars), nil
}
