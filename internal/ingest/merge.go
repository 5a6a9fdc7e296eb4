package ingest

import (
	"time"

	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/utils"
)

// MergeBatch folds batch into sess. It is pure apart from mutating sess.
func MergeBatch(sess *model.Session, batch *model.SignalBatch, isNew bool, now time.Time) {
	if sess == nil || batch == nil {
		return
	}

	if batch.URL != "" {
		page, err := utils.Canonicalize(batch.URL, utils.PageOptions)
		if err != nil {
			page = batch.URL
		}
		if !sess.HasPage(page) {
			sess.PagesVisited = append(sess.PagesVisited, page)
		}
	}

	views := batch.CountEvents(model.EventPageView)
	if views == 0 && isNew && batch.URL != "" {
		views = 1
	}
	sess.PageViews += views

	sess.TimeSpentSeconds += batch.TotalDwellSeconds()
	if batch.ScrollDepth > sess.MaxScrollDepth {
		sess.MaxScrollDepth = batch.ScrollDepth
	}

	if sess.Referrer == "" && batch.Referrer != "" {
		sess.Referrer = batch.Referrer
	}
	if sess.UTM.IsZero() && batch.URL != "" {
		sess.UTM = utils.ExtractUTM(batch.URL)
	}

	if sess.StartedAt.IsZero() {
		sess.StartedAt = now
	}
	sess.LastActivityAt = now

	if batch.HasEvent(model.EventSessionEnd) {
		ended := now
		sess.EndedAt = &ended
		sess.Active = false
	}
}
