package server

// CollectRequest documents the ingestion envelope. Nested signal structures
// (dwell_time, dead_clicks, events, ...) may be sent as JSON-encoded strings.
type CollectRequest struct {
	SiteID          string         `json:"site_id" example:"shop"`
	AccessKey       string         `json:"access_key" example:"pk_live_123"`
	SessionID       string         `json:"session_id" example:"3f1c9a2e-6b8d-4c1e-9f7a-2d5e8b0c4a11"`
	Signals         map[string]any `json:"signals"`
	URL             string         `json:"url" example:"https://shop.example/pricing?utm_source=newsletter"`
	Referrer        string         `json:"referrer" example:"https://www.linkedin.com/"`
	UserAgent       string         `json:"user_agent" example:"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X)"`
	ClientTimestamp int64          `json:"client_timestamp" example:"1767225600000"`
}

// AdaptiveUIResponse is the payload a collector injects into the page.
type AdaptiveUIResponse struct {
	Selector string `json:"selector" example:"#pricing"`
	HTML     string `json:"html" example:"<div class=\"offer\"><button class=\"adaptive-ui-close\">x</button></div>"`
	CSS      string `json:"css" example:".offer{padding:16px}"`
	JS       string `json:"js" example:""`
}

// DecisionResponse is returned for every accepted batch.
type DecisionResponse struct {
	SessionID       string              `json:"session_id" example:"3f1c9a2e-6b8d-4c1e-9f7a-2d5e8b0c4a11"`
	Category        string              `json:"category" example:"Researcher"`
	Score           int                 `json:"score" example:"65"`
	SuggestedAction *string             `json:"suggested_action"`
	AdaptiveUI      *AdaptiveUIResponse `json:"adaptive_ui"`
}

// SiteSettingsResponse is the settings blob of the configuration handshake.
type SiteSettingsResponse struct {
	StartDelayMS    int  `json:"start_delay_ms" example:"1500"`
	UsePregenerated bool `json:"use_pregenerated" example:"true"`
	FlushIntervalMS int  `json:"flush_interval_ms,omitempty" example:"5000"`
}

// SiteConfigResponse is what a collector fetches once at start-up.
type SiteConfigResponse struct {
	Active         bool                 `json:"active" example:"true"`
	AllowedDomains []string             `json:"allowed_domains" example:"shop.example"`
	Settings       SiteSettingsResponse `json:"settings"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid access key"`
}
