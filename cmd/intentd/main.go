// Command intentd runs the ingestion gateway and manages operator data.
//
//	intentd serve [-addr :8080] [-db path] [-log-level info]
//	intentd seed -file seed.json [-db path]
//	intentd crawl -site shop -root https://shop.example [-depth 2] [-max-pages 200] [-db path]
//
// Everything else is read from INTENT_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raysh454/intent/internal/app"
	"github.com/raysh454/intent/internal/cli"
	"github.com/raysh454/intent/internal/crawl"
	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/server"
	"github.com/raysh454/intent/internal/telemetry"
	"github.com/raysh454/intent/internal/webclient"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "intentd:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd, rest, err := cli.SplitCommand(args)
	if err != nil {
		return err
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case cli.CommandSeed:
		a, err := cli.ParseSeedArgs(rest)
		if err != nil {
			return err
		}
		if a.DBPath != "" {
			cfg.DBPath = a.DBPath
		}
		return seed(ctx, cfg, a.File)
	case cli.CommandCrawl:
		a, err := cli.ParseCrawlArgs(rest)
		if err != nil {
			return err
		}
		if a.DBPath != "" {
			cfg.DBPath = a.DBPath
		}
		return crawlSite(ctx, cfg, a)
	default:
		a, err := cli.ParseServeArgs(rest)
		if err != nil {
			return err
		}
		if a.Addr != "" {
			cfg.ListenAddr = a.Addr
		}
		if a.DBPath != "" {
			cfg.DBPath = a.DBPath
		}
		if a.LogLevel != "" {
			cfg.LogLevel = a.LogLevel
		}
		return serve(ctx, cfg)
	}
}

func serve(ctx context.Context, cfg *app.Config) error {
	logger := logging.NewLogger(os.Stdout, "intentd", logging.ParseLevel(cfg.LogLevel))

	shutdownTracing, err := telemetry.Setup(ctx, "intentd")
	if err != nil {
		logger.Warn("tracing disabled", logging.Err(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	srv, err := server.NewServer(server.Config{AppConfig: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer srv.Close()

	hs := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.Field{Key: "addr", Value: hs.Addr})
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func seed(ctx context.Context, cfg *app.Config, path string) error {
	logger := logging.NewLogger(os.Stdout, "intentd", logging.ParseLevel(cfg.LogLevel))

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sf, err := app.ParseSeed(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Seed(ctx, sf)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d sites, %d templates, %d prompts, %d content chunks\n",
		st.Sites, st.Templates, st.Prompts, st.Content)
	return nil
}

func crawlSite(ctx context.Context, cfg *app.Config, a *cli.CrawlArgs) error {
	logger := logging.NewLogger(os.Stdout, "intentd", logging.ParseLevel(cfg.LogLevel))

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	if _, err := application.Store.GetSite(ctx, a.SiteID); err != nil {
		return fmt.Errorf("site %q: %w", a.SiteID, err)
	}

	wcCfg := webclient.DefaultConfig()
	wcCfg.Client = cfg.WebClient
	wc, err := webclient.NewWebClient(wcCfg, logger)
	if err != nil {
		return err
	}
	defer wc.Close()

	spider, err := crawl.NewSpider(crawl.Config{MaxDepth: a.MaxDepth, MaxPages: a.MaxPages}, wc, logger)
	if err != nil {
		return err
	}
	st, err := spider.Index(ctx, a.SiteID, a.Root, application.Store)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d pages (%d failed) into %d content chunks\n", st.Pages, st.Failed, st.Chunks)
	return nil
}
