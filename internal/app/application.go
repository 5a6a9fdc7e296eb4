// Package app builds the intentd runtime from Config: storage, sinks,
// the decision router and the ingestion gateway.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/raysh454/intent/internal/contextlookup"
	"github.com/raysh454/intent/internal/enrich"
	"github.com/raysh454/intent/internal/ingest"
	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/rawlog"
	"github.com/raysh454/intent/internal/router"
	"github.com/raysh454/intent/internal/scoring"
	"github.com/raysh454/intent/internal/store"
	"github.com/raysh454/intent/internal/styleprobe"
	"github.com/raysh454/intent/internal/synthesis"
	"github.com/raysh454/intent/internal/webclient"
)

// Application is the runtime state container shared by the server and the
// CLI subcommands. Close releases everything New opened, in reverse order.
type Application struct {
	Config *Config
	Logger logging.Logger

	Store   *store.Store
	Gateway *ingest.Gateway
	Router  *router.Router

	sink      rawlog.Sink
	enricher  enrich.Dispatcher
	webClient webclient.WebClient
}

// New opens the database and wires every component described by cfg.
func New(cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("intentd")
	}

	dbPath, err := expandPath(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("expanding database path: %w", err)
	}

	a := &Application{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	a.Store, err = store.Open(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	wcCfg := webclient.DefaultConfig()
	wcCfg.Client = cfg.WebClient
	a.webClient, err = webclient.NewWebClient(wcCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("new webclient: %w", err)
	}

	a.sink, err = newSink(cfg, a.Store, logger)
	if err != nil {
		return nil, err
	}

	a.enricher, err = newEnricher(cfg, logger)
	if err != nil {
		return nil, err
	}

	lookup, err := newLookup(cfg, a.Store, a.webClient)
	if err != nil {
		return nil, err
	}

	gen, err := newGenerator(cfg, a.webClient)
	if err != nil {
		return nil, err
	}

	deps := router.Deps{
		Templates: a.Store,
		Prompts:   a.Store,
		Lookup:    lookup,
		Synth:     synthesis.NewAdapter(gen, logger),
		Logger:    logger,
	}
	if cfg.StyleProbe {
		deps.Tokens = styleprobe.New(a.webClient, logger)
	}
	routeCfg := router.DefaultConfig()
	if cfg.RouteTimeout > 0 {
		routeCfg.Timeout = cfg.RouteTimeout
	}
	a.Router = router.New(deps, routeCfg)

	ingestCfg := ingest.DefaultConfig()
	ingestCfg.IPSalt = cfg.IPSalt
	a.Gateway = ingest.NewGateway(ingest.Deps{
		Sites:    a.Store,
		Sessions: a.Store,
		Events:   a.Store,
		RawLog:   a.sink,
		Enrich:   a.enricher,
		Scorer:   scoring.NewEngine(scoring.DefaultRules()),
		Router:   a.Router,
		Logger:   logger,
	}, ingestCfg)

	logger.Info("application ready",
		logging.Field{Key: "db", Value: dbPath},
		logging.Field{Key: "rawlog_sink", Value: string(sinkKind(cfg))},
		logging.Field{Key: "enrichment", Value: cfg.RedisAddr != ""},
		logging.Field{Key: "synthesis", Value: generatorName(cfg)})
	ok = true
	return a, nil
}

// Close waits for pending enrichment hand-offs, then closes sinks, the web
// client and the store. The first error is returned.
func (a *Application) Close() error {
	if a == nil {
		return errors.New("application is nil")
	}
	if a.Gateway != nil {
		a.Gateway.Close()
	}
	var firstErr error
	keep := func(what string, err error) {
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", what, err)
		}
	}
	if a.enricher != nil {
		keep("enrichment dispatcher", a.enricher.Close())
	}
	if a.sink != nil {
		keep("raw log sink", a.sink.Close())
	}
	if a.webClient != nil {
		keep("webclient", a.webClient.Close())
	}
	if a.Store != nil {
		keep("store", a.Store.Close())
	}
	return firstErr
}

func sinkKind(cfg *Config) rawlog.Kind {
	if cfg.RawLogSink == "" {
		return rawlog.KindSQLite
	}
	return cfg.RawLogSink
}

func newSink(cfg *Config, st *store.Store, logger logging.Logger) (rawlog.Sink, error) {
	if sinkKind(cfg) == rawlog.KindKafka {
		kc := rawlog.DefaultKafkaConfig()
		kc.Brokers = cfg.KafkaBrokers
		if cfg.KafkaTopic != "" {
			kc.Topic = cfg.KafkaTopic
		}
		sink, err := rawlog.NewKafkaSink(kc, logger)
		if err != nil {
			return nil, fmt.Errorf("new kafka sink: %w", err)
		}
		return sink, nil
	}
	return rawlog.NewSQLiteSink(st), nil
}

func newEnricher(cfg *Config, logger logging.Logger) (enrich.Dispatcher, error) {
	if cfg.RedisAddr == "" {
		return enrich.Noop{}, nil
	}
	sc := enrich.DefaultStreamConfig()
	sc.Addr = cfg.RedisAddr
	sc.Password = cfg.RedisPassword
	if cfg.RedisStream != "" {
		sc.Stream = cfg.RedisStream
	}
	d, err := enrich.NewRedisStreamDispatcher(sc, logger)
	if err != nil {
		return nil, fmt.Errorf("new enrichment dispatcher: %w", err)
	}
	return d, nil
}

func newLookup(cfg *Config, st *store.Store, wc webclient.WebClient) (contextlookup.Lookup, error) {
	if cfg.ContextURL == "" {
		return contextlookup.NewSQLiteLookup(st, contextlookup.DefaultConfig()), nil
	}
	l, err := contextlookup.NewHTTPLookup(contextlookup.HTTPConfig{
		URL:    cfg.ContextURL,
		APIKey: cfg.ContextAPIKey,
		Config: contextlookup.DefaultConfig(),
	}, wc)
	if err != nil {
		return nil, fmt.Errorf("new context lookup: %w", err)
	}
	return l, nil
}

func generatorName(cfg *Config) string {
	if cfg.SynthURL == "" {
		return "static"
	}
	return cfg.SynthModel
}

func newGenerator(cfg *Config, wc webclient.WebClient) (synthesis.Generator, error) {
	if cfg.SynthURL == "" {
		return staticGenerator(), nil
	}
	g, err := synthesis.NewHTTPGenerator(synthesis.HTTPConfig{
		URL:    cfg.SynthURL,
		APIKey: cfg.SynthAPIKey,
		Model:  cfg.SynthModel,
	}, wc)
	if err != nil {
		return nil, fmt.Errorf("new generator: %w", err)
	}
	return g, nil
}

// staticGenerator answers every request with an empty result, which the
// adapter normalizes into the default pinned notice.
func staticGenerator() synthesis.Generator {
	return synthesis.GeneratorFunc(func(ctx context.Context, _ synthesis.Request) (synthesis.Raw, error) {
		return synthesis.Raw{}, ctx.Err()
	})
}
