package rawlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Topic:        "intent.raw_logs",
		BatchTimeout: 50 * time.Millisecond,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes entries as JSON, keyed by session so one session's
// bundles stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
	logger logging.Logger
}

func NewKafkaSink(cfg KafkaConfig, logger logging.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka sink: brokers list is empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka sink: topic is required")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultKafkaConfig().BatchTimeout
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaSink(w, cfg.Topic, logger), nil
}

func newKafkaSink(w messageWriter, topic string, logger logging.Logger) *KafkaSink {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &KafkaSink{
		writer: w,
		topic:  topic,
		logger: logger.With(logging.Field{Key: "component", Value: "rawlog.kafka"}),
	}
}

func (k *KafkaSink) Append(ctx context.Context, e model.RawLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode raw log: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.SiteID + "/" + e.SessionID),
		Value: value,
		Time:  e.ReceivedAt,
		Headers: []kafka.Header{
			{Key: "site_id", Value: []byte(e.SiteID)},
			{Key: "entry_id", Value: []byte(e.ID)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", k.topic, err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
