package webclient

import "time"

type Client string

const (
	ClientNetHTTP  Client = "nethttp"
	ClientChromedp Client = "chromedp"
)

type Config struct {
	Client Client

	// Timeout bounds a single nethttp round trip.
	Timeout time.Duration

	// IdleAfter is how long chromedp waits with no in-flight requests
	// before it considers a page rendered.
	IdleAfter time.Duration

	// MaxBodyBytes caps how much of a response body is read. Zero means no cap.
	MaxBodyBytes int64

	UserAgent string
}

func DefaultConfig() Config {
	return Config{
		Client:       ClientNetHTTP,
		Timeout:      30 * time.Second,
		IdleAfter:    2 * time.Second,
		MaxBodyBytes: 8 << 20,
		UserAgent:    "intentd/1.0",
	}
}
