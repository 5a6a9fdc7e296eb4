package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raysh454/intent/internal/config"
	"github.com/raysh454/intent/internal/rawlog"
	"github.com/raysh454/intent/internal/webclient"
)

// Config is the process configuration for intentd. Every field can be set
// from the environment; DefaultConfig matches the envDefault tags.
type Config struct {
	ListenAddr     string        `env:"INTENT_LISTEN_ADDR" envDefault:":8080"`
	DBPath         string        `env:"INTENT_DB_PATH" envDefault:"~/.config/intent/intent.db"`
	RequestTimeout time.Duration `env:"INTENT_REQUEST_TIMEOUT" envDefault:"8s"`
	RouteTimeout   time.Duration `env:"INTENT_ROUTE_TIMEOUT" envDefault:"5s"`
	IPSalt         string        `env:"INTENT_IP_SALT"`
	LogLevel       string        `env:"INTENT_LOG_LEVEL" envDefault:"info"`

	RawLogSink   rawlog.Kind `env:"INTENT_RAWLOG_SINK" envDefault:"sqlite"`
	KafkaBrokers []string    `env:"INTENT_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string      `env:"INTENT_KAFKA_TOPIC" envDefault:"intent.raw_logs"`

	// RedisAddr empty disables enrichment hand-off.
	RedisAddr     string `env:"INTENT_REDIS_ADDR"`
	RedisPassword string `env:"INTENT_REDIS_PASSWORD"`
	RedisStream   string `env:"INTENT_REDIS_STREAM" envDefault:"intent:enrich"`

	// SynthURL empty serves the built-in notice instead of calling a model.
	SynthURL    string `env:"INTENT_SYNTH_URL"`
	SynthAPIKey string `env:"INTENT_SYNTH_API_KEY"`
	SynthModel  string `env:"INTENT_SYNTH_MODEL" envDefault:"gpt-4.1-mini"`

	// ContextURL empty uses keyword search over stored content chunks.
	ContextURL    string `env:"INTENT_CONTEXT_URL"`
	ContextAPIKey string `env:"INTENT_CONTEXT_API_KEY"`

	WebClient webclient.Client `env:"INTENT_WEBCLIENT" envDefault:"nethttp"`

	// StyleProbe enables home-page design token probing for sites without
	// configured tokens.
	StyleProbe bool `env:"INTENT_STYLE_PROBE" envDefault:"true"`
}

// DefaultConfig returns a Config populated with the same defaults the
// environment loader applies.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:     ":8080",
		DBPath:         "~/.config/intent/intent.db",
		RequestTimeout: 8 * time.Second,
		RouteTimeout:   5 * time.Second,
		LogLevel:       "info",
		RawLogSink:     rawlog.KindSQLite,
		KafkaTopic:     "intent.raw_logs",
		RedisStream:    "intent:enrich",
		SynthModel:     "gpt-4.1-mini",
		WebClient:      webclient.ClientNetHTTP,
		StyleProbe:     true,
	}
}

// LoadConfig reads Config from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	switch c.RawLogSink {
	case rawlog.KindSQLite, "":
	case rawlog.KindKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("INTENT_RAWLOG_SINK=kafka requires INTENT_KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown raw log sink %q", c.RawLogSink)
	}
	switch c.WebClient {
	case webclient.ClientNetHTTP, webclient.ClientChromedp, "":
	default:
		return fmt.Errorf("unknown web client %q", c.WebClient)
	}
	if c.RequestTimeout < 0 || c.RouteTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
