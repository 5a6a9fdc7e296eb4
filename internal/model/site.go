package model

import "strings"

// Site is a tracked website and its operator configuration.
type Site struct {
	ID             string            `json:"id"`
	AccessKey      string            `json:"access_key"`
	Active         bool              `json:"active"`
	AllowedDomains []string          `json:"allowed_domains"`
	Settings       SiteSettings      `json:"settings"`
	StyleContext   string            `json:"style_context,omitempty"`
	DesignTokens   map[string]string `json:"design_tokens,omitempty"`
	HomeURL        string            `json:"home_url,omitempty"`
}

// SiteSettings is the settings blob returned by the configuration handshake.
type SiteSettings struct {
	StartDelayMS    int  `json:"start_delay_ms"`
	UsePregenerated bool `json:"use_pregenerated"`
	FlushIntervalMS int  `json:"flush_interval_ms,omitempty"`
}

// SiteConfig is what a collector fetches once at start-up.
type SiteConfig struct {
	Active         bool         `json:"active"`
	AllowedDomains []string     `json:"allowed_domains"`
	Settings       SiteSettings `json:"settings"`
}

// Config projects a Site onto its public handshake shape.
func (s *Site) Config() SiteConfig {
	return SiteConfig{
		Active:         s.Active,
		AllowedDomains: append([]string(nil), s.AllowedDomains...),
		Settings:       s.Settings,
	}
}

// DomainAllowed does a case-insensitive substring match of host against the
// allowed list. An empty list allows every host.
func (c SiteConfig) DomainAllowed(host string) bool {
	if len(c.AllowedDomains) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, d := range c.AllowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// Template is an operator-authored, pre-generated payload for one intent key.
type Template struct {
	SiteID    string          `json:"site_id"`
	IntentKey string          `json:"intent_key"`
	Payload   AdaptivePayload `json:"payload"`
	Active    bool            `json:"active"`
}

// Prompt is an operator-authored generation instruction for one intent key.
type Prompt struct {
	SiteID    string `json:"site_id"`
	IntentKey string `json:"intent_key"`
	Text      string `json:"text"`
	Active    bool   `json:"active"`
}

// ContentChunk is one indexed fragment of site content.
type ContentChunk struct {
	ID     string `json:"id"`
	SiteID string `json:"site_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}
