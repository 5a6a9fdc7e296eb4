// Package testutil holds in-memory doubles for the logger, outbound web
// client, raw log sink and context lookup.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger records messages by level. Loggers derived through With share
// the parent's record.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) record(dst *[]string, msg string) {
	l.mu.Lock()
	*dst = append(*dst, msg)
	l.mu.Unlock()
}

func (l *DummyLogger) Debug(msg string, _ ...logging.Field) { l.record(&l.Debugs, msg) }
func (l *DummyLogger) Info(msg string, _ ...logging.Field)  { l.record(&l.Infos, msg) }
func (l *DummyLogger) Warn(msg string, _ ...logging.Field)  { l.record(&l.Warns, msg) }
func (l *DummyLogger) Error(msg string, _ ...logging.Field) { l.record(&l.Errors, msg) }

func (l *DummyLogger) With(...logging.Field) logging.Logger { return l }

// WarnCount returns how many warnings contain substr.
func (l *DummyLogger) WarnCount(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, w := range l.Warns {
		if strings.Contains(w, substr) {
			n++
		}
	}
	return n
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient.
// By default it returns body "ok:<url>" with status 200. Responses[url]
// overrides the body; set FailURLs[url] = true to force an error.
type DummyWebClient struct {
	ResponseDelay time.Duration
	FailURLs      map[string]bool
	Responses     map[string]string
	Status        int

	mu       sync.Mutex
	Requests []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if d.FailURLs != nil && d.FailURLs[req.URL] {
		return nil, errors.New("dummy fetch fail for " + req.URL)
	}

	body := "ok:" + req.URL
	if b, ok := d.Responses[req.URL]; ok {
		body = b
	}
	status := d.Status
	if status == 0 {
		status = 200
	}
	return &webclient.Response{
		Request:    req,
		Body:       []byte(body),
		StatusCode: status,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Close() error { return nil }

// RequestCount returns the number of requests seen so far.
func (d *DummyWebClient) RequestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── Raw log sink ──────────────────────────────────────────────────────

// DummySink records raw log entries. Err, when set, is returned from Append.
type DummySink struct {
	mu      sync.Mutex
	Entries []model.RawLogEntry
	Err     error
}

func (s *DummySink) Append(_ context.Context, e model.RawLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Entries = append(s.Entries, e)
	return nil
}

func (s *DummySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Entries)
}

func (s *DummySink) Close() error { return nil }

// ─── Context lookup ────────────────────────────────────────────────────

// DummyLookup returns a fixed context string and records queries.
type DummyLookup struct {
	Context string
	Err     error

	mu      sync.Mutex
	Queries []string
}

func (d *DummyLookup) Fetch(_ context.Context, _ string, query, _ string) (string, error) {
	d.mu.Lock()
	d.Queries = append(d.Queries, query)
	d.mu.Unlock()
	if d.Err != nil {
		return "", d.Err
	}
	return d.Context, nil
}

func (d *DummyLookup) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Queries)
}
