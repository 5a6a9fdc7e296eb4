// Package ingest is the ingestion gateway: it authenticates a batch, merges it
// into the session aggregate, scores it and asks the router for a payload,
// all within one request.
package ingest

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/intent/internal/enrich"
	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/rawlog"
	"github.com/raysh454/intent/internal/router"
	"github.com/raysh454/intent/internal/scoring"
	"github.com/raysh454/intent/internal/store"
	"github.com/raysh454/intent/internal/telemetry"
	"github.com/raysh454/intent/internal/useragent"
	"github.com/raysh454/intent/internal/utils"
	"github.com/raysh454/intent/internal/wire"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnauthorized     = errors.New("invalid access key")
	ErrSiteNotFound     = errors.New("site not found")
	ErrSiteInactive     = errors.New("site inactive")
	ErrDomainNotAllowed = errors.New("domain not allowed")
)

type SiteStore interface {
	GetSite(ctx context.Context, id string) (*model.Site, error)
}

type SessionStore interface {
	UpsertSession(ctx context.Context, siteID, sessionID string, fn store.MergeFunc) (*model.Session, bool, error)
}

type EventStore interface {
	InsertEvents(ctx context.Context, rows []model.EventRow) error
}

type Scorer interface {
	Score(previous int, batch *model.SignalBatch) scoring.Result
}

type Router interface {
	Route(ctx context.Context, in router.Input) router.Outcome
}

type Deps struct {
	Sites    SiteStore
	Sessions SessionStore
	Events   EventStore
	RawLog   rawlog.Sink
	Enrich   enrich.Dispatcher
	Scorer   Scorer
	Router   Router
	Logger   logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Config struct {
	// IPSalt is mixed into the client address hash. An empty salt still hashes.
	IPSalt        string
	EnrichTimeout time.Duration
	// Baseline seeds a new session's score.
	Baseline int
}

func DefaultConfig() Config {
	return Config{
		EnrichTimeout: 10 * time.Second,
		Baseline:      scoring.DefaultRules().Baseline,
	}
}

type Gateway struct {
	deps   Deps
	cfg    Config
	logger logging.Logger

	pending sync.WaitGroup
}

func NewGateway(deps Deps, cfg Config) *Gateway {
	if deps.Logger == nil {
		deps.Logger = logging.Nop{}
	}
	if deps.RawLog == nil {
		deps.RawLog = nopSink{}
	}
	if deps.Enrich == nil {
		deps.Enrich = enrich.Noop{}
	}
	if deps.Scorer == nil {
		deps.Scorer = scoring.NewEngine(scoring.DefaultRules())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.EnrichTimeout <= 0 {
		cfg.EnrichTimeout = DefaultConfig().EnrichTimeout
	}
	if cfg.Baseline <= 0 {
		cfg.Baseline = DefaultConfig().Baseline
	}
	return &Gateway{
		deps:   deps,
		cfg:    cfg,
		logger: deps.Logger.With(logging.Field{Key: "component", Value: "ingest"}),
	}
}

// Ingest processes one decoded envelope and returns the decision for it.
// Only validation, authorization and session persistence errors are returned;
// everything else degrades.
func (g *Gateway) Ingest(ctx context.Context, env *wire.Envelope, batch *model.SignalBatch, clientIP string) (*model.Decision, error) {
	if env == nil || env.SiteID == "" || env.SessionID == "" {
		return nil, ErrInvalidRequest
	}
	if batch == nil {
		batch = &model.SignalBatch{URL: env.URL, Referrer: env.Referrer}
	}

	ctx, span := telemetry.Tracer("ingest").Start(ctx, "ingest.Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("intent.site_id", env.SiteID),
		attribute.String("intent.session_id", env.SessionID),
	)

	site, err := g.authorize(ctx, env.SiteID, env.AccessKey)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !site.Active {
		return nil, ErrSiteInactive
	}
	if host := utils.Hostname(env.URL); host != "" && !site.Config().DomainAllowed(host) {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotAllowed, host)
	}

	now := g.deps.Now().UTC()
	log := g.logger.With(
		logging.Field{Key: "site_id", Value: env.SiteID},
		logging.Field{Key: "session_id", Value: env.SessionID})
	ipHash := HashIP(g.cfg.IPSalt, clientIP)

	g.appendRawLog(ctx, env, ipHash, now, log)

	var result scoring.Result
	ua := useragent.Parse(env.UserAgent)
	sess, created, err := g.deps.Sessions.UpsertSession(ctx, env.SiteID, env.SessionID,
		func(sess *model.Session, isNew bool) error {
			if isNew {
				sess.StartedAt = now
				sess.IntentScore = g.cfg.Baseline
				sess.Category = model.CategoryBouncer
				sess.Active = true
			}
			if sess.UserAgent == "" && env.UserAgent != "" {
				sess.UserAgent = env.UserAgent
				sess.DeviceClass = ua.Device
				sess.BrowserClass = ua.Browser
			}
			MergeBatch(sess, batch, isNew, now)

			result = g.deps.Scorer.Score(sess.IntentScore, batch)
			sess.IntentScore = result.Score
			sess.Category = result.Category
			return nil
		})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session upsert failed")
		return nil, fmt.Errorf("upsert session: %w", err)
	}

	if created {
		g.dispatchEnrichment(enrich.Job{
			SiteID:       env.SiteID,
			SessionID:    env.SessionID,
			ClientIP:     clientIP,
			IPHash:       ipHash,
			UserAgent:    env.UserAgent,
			DeviceClass:  sess.DeviceClass,
			BrowserClass: sess.BrowserClass,
			URL:          env.URL,
			CreatedAt:    now,
		}, log)
	}

	g.insertEvents(ctx, env.SiteID, env.SessionID, batch, now, log)

	decision := &model.Decision{
		SessionID:       env.SessionID,
		Category:        result.Category,
		Score:           result.Score,
		SuggestedAction: result.SuggestedAction,
	}
	if g.deps.Router != nil {
		out := g.deps.Router.Route(ctx, router.Input{Site: site, Session: sess, Batch: batch, Result: result})
		decision.AdaptiveUI = out.Payload
		span.SetAttributes(attribute.String("intent.key", out.IntentKey))
	}

	span.SetAttributes(
		attribute.Int("intent.score", result.Score),
		attribute.String("intent.category", string(result.Category)),
		attribute.Bool("intent.adaptive_ui", decision.AdaptiveUI != nil),
	)
	log.Debug("batch ingested",
		logging.Field{Key: "score", Value: result.Score},
		logging.Field{Key: "category", Value: result.Category},
		logging.Field{Key: "matched", Value: result.Matched},
		logging.Field{Key: "new_session", Value: created})
	return decision, nil
}

// SiteConfig answers the collector's start-up handshake. origin, when set, is
// checked against the allowed domains.
func (g *Gateway) SiteConfig(ctx context.Context, siteID, accessKey, origin string) (*model.SiteConfig, error) {
	if siteID == "" {
		return nil, ErrInvalidRequest
	}
	site, err := g.authorize(ctx, siteID, accessKey)
	if err != nil {
		return nil, err
	}
	cfg := site.Config()
	if host := utils.Hostname(origin); host != "" && !cfg.DomainAllowed(host) {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotAllowed, host)
	}
	return &cfg, nil
}

// Close waits for in-flight enrichment dispatches.
func (g *Gateway) Close() {
	g.pending.Wait()
}

func (g *Gateway) authorize(ctx context.Context, siteID, accessKey string) (*model.Site, error) {
	site, err := g.deps.Sites.GetSite(ctx, siteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("load site: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(site.AccessKey), []byte(accessKey)) != 1 {
		return nil, ErrUnauthorized
	}
	return site, nil
}

func (g *Gateway) appendRawLog(ctx context.Context, env *wire.Envelope, ipHash string, now time.Time, log logging.Logger) {
	entry := model.RawLogEntry{
		ID:              uuid.NewString(),
		SiteID:          env.SiteID,
		SessionID:       env.SessionID,
		IPHash:          ipHash,
		URL:             env.URL,
		Referrer:        env.Referrer,
		UserAgent:       env.UserAgent,
		ClientTimestamp: env.ClientTimestamp,
		ReceivedAt:      now,
		Bundle:          env.Signals,
	}
	if err := g.deps.RawLog.Append(ctx, entry); err != nil {
		log.Warn("raw log append failed", logging.Err(err))
	}
}

// dispatchEnrichment never blocks the request; the job runs on its own
// context so it outlives the request.
func (g *Gateway) dispatchEnrichment(job enrich.Job, log logging.Logger) {
	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), g.cfg.EnrichTimeout)
		defer cancel()
		if err := g.deps.Enrich.Dispatch(ctx, job); err != nil {
			log.Warn("enrichment dispatch failed", logging.Err(err))
		}
	}()
}

func (g *Gateway) insertEvents(ctx context.Context, siteID, sessionID string, batch *model.SignalBatch, now time.Time, log logging.Logger) {
	if g.deps.Events == nil {
		return
	}
	rows := EventRows(siteID, sessionID, batch, now)
	if len(rows) == 0 {
		return
	}
	if err := g.deps.Events.InsertEvents(ctx, rows); err != nil {
		log.Warn("event rows not persisted", logging.Err(err))
	}
}

// HashIP returns hex(sha256(salt + ip)), or "" for an empty address.
func HashIP(salt, ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(salt + ip))
	return hex.EncodeToString(sum[:])
}

type nopSink struct{}

func (nopSink) Append(context.Context, model.RawLogEntry) error { return nil }
func (nopSink) Close() error                                    { return nil }
