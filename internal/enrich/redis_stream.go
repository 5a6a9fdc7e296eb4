package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/raysh454/intent/internal/logging"
)

type StreamConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen trims the stream approximately; zero disables trimming.
	MaxLen int64
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Addr:   "localhost:6379",
		Stream: "intent:enrich",
		MaxLen: 100_000,
	}
}

type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisStreamDispatcher appends jobs to a Redis stream with XADD.
type RedisStreamDispatcher struct {
	client streamClient
	stream string
	maxLen int64
	logger logging.Logger
}

func NewRedisStreamDispatcher(cfg StreamConfig, logger logging.Logger) (*RedisStreamDispatcher, error) {
	if cfg.Addr == "" {
		return nil, errors.New("enrich: redis address is required")
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultStreamConfig().Stream
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisStreamDispatcher(client, cfg, logger), nil
}

func newRedisStreamDispatcher(c streamClient, cfg StreamConfig, logger logging.Logger) *RedisStreamDispatcher {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &RedisStreamDispatcher{
		client: c,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
		logger: logger.With(logging.Field{Key: "component", Value: "enrich.redis"}),
	}
}

func (d *RedisStreamDispatcher) Dispatch(ctx context.Context, job Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	args := &redis.XAddArgs{
		Stream: d.stream,
		Values: map[string]interface{}{
			"site_id":       job.SiteID,
			"session_id":    job.SessionID,
			"client_ip":     job.ClientIP,
			"ip_hash":       job.IPHash,
			"user_agent":    job.UserAgent,
			"device_class":  job.DeviceClass,
			"browser_class": job.BrowserClass,
			"url":           job.URL,
			"created_at":    job.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if d.maxLen > 0 {
		args.MaxLen = d.maxLen
		args.Approx = true
	}
	id, err := d.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", d.stream, err)
	}
	d.logger.Debug("enrichment job queued",
		logging.Field{Key: "stream_id", Value: id},
		logging.Field{Key: "session_id", Value: job.SessionID})
	return nil
}

func (d *RedisStreamDispatcher) Close() error {
	return d.client.Close()
}
