package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/raysh454/intent/internal/model"
)

// InsertEvents writes rows in one transaction. Rows without an id get one.
func (s *Store) InsertEvents(ctx context.Context, rows []model.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (id, site_id, session_id, type, url, selector, payload, occurred_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert event: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		payload := []byte("{}")
		if len(r.Payload) > 0 {
			if payload, err = json.Marshal(r.Payload); err != nil {
				return fmt.Errorf("encode event payload: %w", err)
			}
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.SiteID, r.SessionID, r.Type, r.URL, r.Selector,
			string(payload), r.OccurredAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListEvents returns a session's events oldest first.
func (s *Store) ListEvents(ctx context.Context, siteID, sessionID string) ([]model.EventRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_id, session_id, type, url, selector, payload, occurred_at
         FROM events WHERE site_id = ? AND session_id = ?
         ORDER BY occurred_at, rowid`, siteID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.EventRow
	for rows.Next() {
		var (
			r       model.EventRow
			payload string
			at      int64
		)
		if err := rows.Scan(&r.ID, &r.SiteID, &r.SessionID, &r.Type, &r.URL, &r.Selector, &payload, &at); err != nil {
			return nil, err
		}
		if payload != "" && payload != "{}" {
			if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
				return nil, fmt.Errorf("decode event payload: %w", err)
			}
		}
		r.OccurredAt = fromMillis(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendRawLog stores a write-once audit copy of an inbound bundle.
func (s *Store) AppendRawLog(ctx context.Context, e model.RawLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	bundle := string(e.Bundle)
	if bundle == "" {
		bundle = "{}"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO raw_logs (id, site_id, session_id, ip_hash, url, referrer, user_agent, client_timestamp, received_at, bundle)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SiteID, e.SessionID, e.IPHash, e.URL, e.Referrer, e.UserAgent,
		e.ClientTimestamp, e.ReceivedAt.UnixMilli(), bundle)
	if err != nil {
		return fmt.Errorf("insert raw log: %w", err)
	}
	return nil
}

// CountRawLogs returns how many raw entries a session has.
func (s *Store) CountRawLogs(ctx context.Context, siteID, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM raw_logs WHERE site_id = ? AND session_id = ?`, siteID, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count raw logs: %w", err)
	}
	return n, nil
}
