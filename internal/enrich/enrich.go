// Package enrich hands new sessions off for asynchronous geo and organization
// enrichment. The enrichment worker itself lives outside this process.
package enrich

import (
	"context"
	"time"
)

// Job describes one session to enrich.
type Job struct {
	SiteID       string    `json:"site_id"`
	SessionID    string    `json:"session_id"`
	ClientIP     string    `json:"client_ip"`
	IPHash       string    `json:"ip_hash"`
	UserAgent    string    `json:"user_agent"`
	DeviceClass  string    `json:"device_class"`
	BrowserClass string    `json:"browser_class"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
	Close() error
}

// Noop drops every job. Used when no broker is configured.
type Noop struct{}

func (Noop) Dispatch(context.Context, Job) error { return nil }
func (Noop) Close() error                        { return nil }
