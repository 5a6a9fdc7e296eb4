// Package styleprobe derives design tokens from a site's home page so
// generated UI can match the host site when no style is configured.
package styleprobe

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/webclient"
)

const maxCustomProps = 24

var (
	customPropRe = regexp.MustCompile(`(--[A-Za-z0-9_-]+)\s*:\s*([^;{}]+)`)
	fontFamilyRe = regexp.MustCompile(`font-family\s*:\s*([^;{}]+)`)
)

// Probe fetches and caches tokens per site. Failed probes are not cached.
type Probe struct {
	client webclient.WebClient
	logger logging.Logger

	mu    sync.Mutex
	cache map[string]map[string]string
}

func New(client webclient.WebClient, logger logging.Logger) *Probe {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Probe{
		client: client,
		logger: logger.With(logging.Field{Key: "component", Value: "styleprobe"}),
		cache:  make(map[string]map[string]string),
	}
}

// Tokens returns the site's configured tokens if it has any, otherwise the
// tokens probed from its home page.
func (p *Probe) Tokens(ctx context.Context, site *model.Site) (map[string]string, error) {
	if site == nil {
		return nil, nil
	}
	if len(site.DesignTokens) > 0 {
		return site.DesignTokens, nil
	}
	if site.HomeURL == "" || p.client == nil {
		return nil, nil
	}

	p.mu.Lock()
	cached, ok := p.cache[site.ID]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	resp, err := p.client.Do(ctx, &webclient.Request{Method: "GET", URL: site.HomeURL})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", site.HomeURL, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("probe %s: status %d", site.HomeURL, resp.StatusCode)
	}
	tokens, err := Extract(resp.Body)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[site.ID] = tokens
	p.mu.Unlock()
	p.logger.Debug("design tokens probed",
		logging.Field{Key: "site_id", Value: site.ID},
		logging.Field{Key: "tokens", Value: len(tokens)})
	return tokens, nil
}

// Extract reads theme color, font family and CSS custom properties from a page.
func Extract(html []byte) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	tokens := make(map[string]string)

	if c, ok := doc.Find(`meta[name="theme-color"]`).First().Attr("content"); ok && strings.TrimSpace(c) != "" {
		tokens["theme-color"] = strings.TrimSpace(c)
	}

	var css strings.Builder
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		css.WriteString(s.Text())
		css.WriteString("\n")
	})
	doc.Find("html[style], body[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		css.WriteString(style)
		css.WriteString(";\n")
	})
	text := css.String()

	if m := fontFamilyRe.FindStringSubmatch(text); m != nil {
		tokens["font-family"] = strings.TrimSpace(m[1])
	}

	var props []string
	for _, m := range customPropRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, seen := tokens[name]; seen {
			continue
		}
		tokens[name] = strings.TrimSpace(m[2])
		props = append(props, name)
		if len(props) == maxCustomProps {
			break
		}
	}
	return tokens, nil
}

// Describe renders tokens as a short, stable style description.
func Describe(tokens map[string]string) string {
	if len(tokens) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tokens))
	for k := range tokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+tokens[k])
	}
	return strings.Join(parts, "; ")
}
