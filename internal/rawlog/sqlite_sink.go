package rawlog

import (
	"context"

	"github.com/raysh454/intent/internal/model"
)

// rawLogAppender is the slice of store.Store the SQLite sink needs.
type rawLogAppender interface {
	AppendRawLog(ctx context.Context, e model.RawLogEntry) error
}

// SQLiteSink writes entries into the shared application database.
type SQLiteSink struct {
	store rawLogAppender
}

func NewSQLiteSink(store rawLogAppender) *SQLiteSink {
	return &SQLiteSink{store: store}
}

func (s *SQLiteSink) Append(ctx context.Context, e model.RawLogEntry) error {
	return s.store.AppendRawLog(ctx, e)
}

// Close is a no-op; the store owns the database handle.
func (s *SQLiteSink) Close() error { return nil }
