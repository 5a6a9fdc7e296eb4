package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/raysh454/intent/internal/model"
)

// MergeFunc mutates sess in place. isNew is true when no row existed yet;
// sess then only carries its ids.
type MergeFunc func(sess *model.Session, isNew bool) error

const sessionColumns = `site_id, session_id, started_at, last_activity_at, ended_at, page_views, time_spent,
         max_scroll_depth, pages_visited, intent_score, category, active, referrer, utm,
         user_agent, device_class, browser_class`

// GetSession returns a session or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, siteID, sessionID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE site_id = ? AND session_id = ? LIMIT 1`,
		siteID, sessionID)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s/%s: %w", siteID, sessionID, ErrNotFound)
		}
		return nil, err
	}
	return sess, nil
}

// UpsertSession loads the session, applies fn and writes the result back in
// a single transaction, so concurrent batches for one session never lose an
// update. The merged session is returned with whether it was created.
func (s *Store) UpsertSession(ctx context.Context, siteID, sessionID string, fn MergeFunc) (*model.Session, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE site_id = ? AND session_id = ? LIMIT 1`,
		siteID, sessionID)
	sess, err := scanSession(row)
	isNew := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		isNew = true
		sess = &model.Session{SiteID: siteID, SessionID: sessionID, Active: true}
	case err != nil:
		return nil, false, err
	}

	if err := fn(sess, isNew); err != nil {
		return nil, false, err
	}

	pages, err := json.Marshal(nonNilStrings(sess.PagesVisited))
	if err != nil {
		return nil, false, fmt.Errorf("encode pages: %w", err)
	}
	utm, err := json.Marshal(sess.UTM)
	if err != nil {
		return nil, false, fmt.Errorf("encode utm: %w", err)
	}
	var endedAt sql.NullInt64
	if sess.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: sess.EndedAt.UnixMilli(), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(site_id, session_id) DO UPDATE SET
             started_at = excluded.started_at,
             last_activity_at = excluded.last_activity_at,
             ended_at = excluded.ended_at,
             page_views = excluded.page_views,
             time_spent = excluded.time_spent,
             max_scroll_depth = excluded.max_scroll_depth,
             pages_visited = excluded.pages_visited,
             intent_score = excluded.intent_score,
             category = excluded.category,
             active = excluded.active,
             referrer = excluded.referrer,
             utm = excluded.utm,
             user_agent = excluded.user_agent,
             device_class = excluded.device_class,
             browser_class = excluded.browser_class`,
		sess.SiteID, sess.SessionID, sess.StartedAt.UnixMilli(), sess.LastActivityAt.UnixMilli(), endedAt,
		sess.PageViews, sess.TimeSpentSeconds, sess.MaxScrollDepth, string(pages),
		sess.IntentScore, string(sess.Category), boolInt(sess.Active), sess.Referrer, string(utm),
		sess.UserAgent, sess.DeviceClass, sess.BrowserClass,
	)
	if err != nil {
		return nil, false, fmt.Errorf("write session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return sess, isNew, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		sess                 model.Session
		started, last        int64
		ended                sql.NullInt64
		pages, utm, category string
		active               int
	)
	err := row.Scan(&sess.SiteID, &sess.SessionID, &started, &last, &ended, &sess.PageViews,
		&sess.TimeSpentSeconds, &sess.MaxScrollDepth, &pages, &sess.IntentScore, &category,
		&active, &sess.Referrer, &utm, &sess.UserAgent, &sess.DeviceClass, &sess.BrowserClass)
	if err != nil {
		return nil, err
	}
	sess.StartedAt = fromMillis(started)
	sess.LastActivityAt = fromMillis(last)
	if ended.Valid {
		t := fromMillis(ended.Int64)
		sess.EndedAt = &t
	}
	sess.Category = model.Category(category)
	sess.Active = active != 0
	if err := json.Unmarshal([]byte(pages), &sess.PagesVisited); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}
	if err := json.Unmarshal([]byte(utm), &sess.UTM); err != nil {
		return nil, fmt.Errorf("decode utm: %w", err)
	}
	return &sess, nil
}
