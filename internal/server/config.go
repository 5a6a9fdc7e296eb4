package server

import (
	"time"

	"github.com/raysh454/intent/internal/app"
	"github.com/raysh454/intent/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address. When empty, App.ListenAddr is used.
	ListenAddr string

	// AppConfig builds the runtime when the server owns it (NewServer).
	AppConfig *app.Config

	// RequestTimeout bounds one ingest call, including routing.
	RequestTimeout time.Duration

	// MaxBodyBytes caps a collect request body or websocket frame.
	MaxBodyBytes int64

	Logger logging.Logger
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:     ":8080",
		RequestTimeout: 8 * time.Second,
		MaxBodyBytes:   1 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ListenAddr == "" {
		if c.AppConfig != nil && c.AppConfig.ListenAddr != "" {
			c.ListenAddr = c.AppConfig.ListenAddr
		} else {
			c.ListenAddr = d.ListenAddr
		}
	}
	if c.RequestTimeout <= 0 {
		if c.AppConfig != nil && c.AppConfig.RequestTimeout > 0 {
			c.RequestTimeout = c.AppConfig.RequestTimeout
		} else {
			c.RequestTimeout = d.RequestTimeout
		}
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.Logger == nil {
		c.Logger = logging.NewStdoutLogger("server")
	}
	return c
}
