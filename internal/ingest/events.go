package ingest

import (
	"sort"
	"time"

	"github.com/raysh454/intent/internal/model"
)

// EventRows standardizes the reportable events of one batch: one row per
// explicit event plus a synthetic click row per clicked interaction.
func EventRows(siteID, sessionID string, batch *model.SignalBatch, now time.Time) []model.EventRow {
	if batch == nil {
		return nil
	}
	rows := make([]model.EventRow, 0, len(batch.Events)+len(batch.Interactions))
	for _, e := range batch.Events {
		if e.Type == "" {
			continue
		}
		rows = append(rows, model.EventRow{
			SiteID:     siteID,
			SessionID:  sessionID,
			Type:       e.Type,
			URL:        batch.URL,
			Payload:    e.Payload,
			OccurredAt: millisOr(e.Timestamp, now),
		})
	}

	selectors := make([]string, 0, len(batch.Interactions))
	for sel, in := range batch.Interactions {
		if in.Clicks > 0 {
			selectors = append(selectors, sel)
		}
	}
	sort.Strings(selectors)
	for _, sel := range selectors {
		in := batch.Interactions[sel]
		rows = append(rows, model.EventRow{
			SiteID:     siteID,
			SessionID:  sessionID,
			Type:       model.EventClick,
			URL:        batch.URL,
			Selector:   sel,
			Payload:    map[string]any{"clicks": in.Clicks},
			OccurredAt: millisOr(in.LastSeen, now),
		})
	}
	return rows
}

func millisOr(ms int64, fallback time.Time) time.Time {
	if ms <= 0 {
		return fallback
	}
	return time.UnixMilli(ms).UTC()
}
