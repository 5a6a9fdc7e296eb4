// Package router decides whether a scored batch gets an adaptive UI and
// produces it, either from a stored template or by on-demand synthesis.
package router

import (
	"context"
	"errors"
	"time"

	"github.com/raysh454/intent/internal/contextlookup"
	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/scoring"
	"github.com/raysh454/intent/internal/store"
	"github.com/raysh454/intent/internal/synthesis"
	"github.com/raysh454/intent/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type TemplateStore interface {
	ActiveTemplate(ctx context.Context, siteID, intentKey string) (*model.Template, error)
}

type PromptStore interface {
	ActivePrompt(ctx context.Context, siteID, intentKey string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, req synthesis.Request) (model.AdaptivePayload, error)
}

type TokenSource interface {
	Tokens(ctx context.Context, site *model.Site) (map[string]string, error)
}

type Deps struct {
	Templates TemplateStore
	Prompts   PromptStore
	Lookup    contextlookup.Lookup
	Synth     Synthesizer
	// Tokens is optional.
	Tokens TokenSource
	Logger logging.Logger
}

type Config struct {
	Timeout            time.Duration
	QueryMaxChars      int
	DefaultInstruction string
}

func DefaultConfig() Config {
	return Config{
		Timeout:            5 * time.Second,
		QueryMaxChars:      500,
		DefaultInstruction: "Offer the visitor a helpful, relevant next step.",
	}
}

type Source string

const (
	SourceNone         Source = ""
	SourcePregenerated Source = "pregenerated"
	SourceOnDemand     Source = "on_demand"
)

type Input struct {
	Site    *model.Site
	Session *model.Session
	Batch   *model.SignalBatch
	Result  scoring.Result
}

type Outcome struct {
	IntentKey string
	Payload   *model.AdaptivePayload
	Source    Source
}

type Router struct {
	deps   Deps
	cfg    Config
	logger logging.Logger
}

func New(deps Deps, cfg Config) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.DefaultInstruction == "" {
		cfg.DefaultInstruction = DefaultConfig().DefaultInstruction
	}
	return &Router{deps: deps, cfg: cfg, logger: logger.With(logging.Field{Key: "component", Value: "router"})}
}

// Route never fails. Every error on the way degrades to an outcome without
// a payload and is logged.
func (r *Router) Route(ctx context.Context, in Input) Outcome {
	key := ResolveIntentKey(in.Batch, in.Result.Category)
	out := Outcome{IntentKey: key}
	if in.Site == nil || !ShouldTrigger(key, in.Result.Category, in.Result.SuggestedAction) {
		return out
	}

	ctx, span := telemetry.Tracer("router").Start(ctx, "router.Route")
	defer span.End()
	span.SetAttributes(
		attribute.String("intent.site_id", in.Site.ID),
		attribute.String("intent.key", key),
		attribute.String("intent.category", string(in.Result.Category)),
	)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	log := r.logger.With(
		logging.Field{Key: "site_id", Value: in.Site.ID},
		logging.Field{Key: "intent_key", Value: key})

	if in.Site.Settings.UsePregenerated && key != "" && r.deps.Templates != nil {
		tpl, err := r.deps.Templates.ActiveTemplate(ctx, in.Site.ID, key)
		switch {
		case err == nil && !tpl.Payload.IsEmpty():
			p := tpl.Payload
			out.Payload, out.Source = &p, SourcePregenerated
			span.SetAttributes(attribute.String("intent.source", string(out.Source)))
			return out
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Warn("template lookup failed, falling back to on-demand", logging.Err(err))
		}
	}

	p, err := r.onDemand(ctx, in, key, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "on-demand generation failed")
		log.Warn("no adaptive payload", logging.Err(err))
		return out
	}
	if p.IsEmpty() {
		return out
	}
	out.Payload, out.Source = &p, SourceOnDemand
	span.SetAttributes(attribute.String("intent.source", string(out.Source)))
	return out
}

func (r *Router) onDemand(ctx context.Context, in Input, key string, log logging.Logger) (model.AdaptivePayload, error) {
	if r.deps.Synth == nil {
		return model.AdaptivePayload{}, errors.New("no synthesizer configured")
	}
	batch := in.Batch
	if batch == nil {
		batch = &model.SignalBatch{}
	}

	var fragment string
	if r.deps.Lookup != nil {
		query := BuildQuery(batch, r.cfg.QueryMaxChars)
		text, err := r.deps.Lookup.Fetch(ctx, in.Site.ID, query, batch.URL)
		switch {
		case err == nil:
			fragment = text
		case errors.Is(err, contextlookup.ErrNoContext):
			log.Debug("no content matched query", logging.Field{Key: "query", Value: query})
		default:
			return model.AdaptivePayload{}, err
		}
	}

	base, err := r.baseInstruction(ctx, in, key)
	if err != nil {
		return model.AdaptivePayload{}, err
	}

	narrative := Narrative{
		ScrollDepth: batch.ScrollDepth,
		Selections:  batch.TextSelections,
		DeadClicks:  len(batch.DeadClicks),
		Referrer:    batch.Referrer,
		CurrentURL:  batch.URL,
	}
	if in.Session != nil {
		if in.Session.MaxScrollDepth > narrative.ScrollDepth {
			narrative.ScrollDepth = in.Session.MaxScrollDepth
		}
		if narrative.Referrer == "" {
			narrative.Referrer = in.Session.Referrer
		}
	}

	req := synthesis.Request{
		Instruction:  BuildInstruction(base, narrative),
		HTMLContext:  fragment,
		StyleContext: in.Site.StyleContext,
		DesignTokens: in.Site.DesignTokens,
	}
	if len(req.DesignTokens) == 0 && r.deps.Tokens != nil {
		tokens, err := r.deps.Tokens.Tokens(ctx, in.Site)
		if err != nil {
			log.Debug("design token probe failed", logging.Err(err))
		}
		req.DesignTokens = tokens
	}

	return r.deps.Synth.Synthesize(ctx, req)
}

// baseInstruction prefers the operator prompt for key, then the suggested
// action, then the configured default.
func (r *Router) baseInstruction(ctx context.Context, in Input, key string) (string, error) {
	if key != "" && r.deps.Prompts != nil {
		text, err := r.deps.Prompts.ActivePrompt(ctx, in.Site.ID, key)
		switch {
		case err == nil && text != "":
			return text, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return "", err
		}
	}
	if in.Result.SuggestedAction != nil && *in.Result.SuggestedAction != "" {
		return *in.Result.SuggestedAction, nil
	}
	return r.cfg.DefaultInstruction, nil
}
