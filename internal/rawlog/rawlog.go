// Package rawlog keeps a write-once audit copy of every inbound bundle.
package rawlog

import (
	"context"

	"github.com/raysh454/intent/internal/model"
)

type Sink interface {
	Append(ctx context.Context, e model.RawLogEntry) error
	Close() error
}

type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindKafka  Kind = "kafka"
)
