package model

import (
	"encoding/json"
	"time"
)

// RawLogEntry is a write-once audit copy of an inbound bundle.
type RawLogEntry struct {
	ID              string          `json:"id"`
	SiteID          string          `json:"site_id"`
	SessionID       string          `json:"session_id"`
	IPHash          string          `json:"ip_hash"`
	URL             string          `json:"url"`
	Referrer        string          `json:"referrer"`
	UserAgent       string          `json:"user_agent"`
	ClientTimestamp int64           `json:"client_timestamp"`
	ReceivedAt      time.Time       `json:"received_at"`
	Bundle          json.RawMessage `json:"bundle"`
}

// EventRow is a standardized event persisted for reporting.
type EventRow struct {
	ID         string         `json:"id"`
	SiteID     string         `json:"site_id"`
	SessionID  string         `json:"session_id"`
	Type       string         `json:"type"`
	URL        string         `json:"url"`
	Selector   string         `json:"selector,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
