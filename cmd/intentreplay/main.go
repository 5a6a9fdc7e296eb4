// Command intentreplay replays a recorded page view against a running
// gateway and prints every decision it receives.
//
//	intentreplay -file visit.jsonl -site shop -key k -url https://shop.test/pricing [-ws] [-page pricing.html]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/raysh454/intent/internal/cli"
	"github.com/raysh454/intent/internal/collector"
	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/replay"
	"github.com/raysh454/intent/internal/webclient"
)

// report is what intentreplay prints on stdout.
type report struct {
	SessionID  string           `json:"session_id"`
	Batches    int              `json:"batches"`
	Decisions  []model.Decision `json:"decisions"`
	Terminated bool             `json:"terminated"`
	Skipped    int              `json:"skipped_records"`
	HTML       string           `json:"html,omitempty"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "intentreplay:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	a, err := cli.ParseReplayArgs(args)
	if err != nil {
		return err
	}
	if a.SessionID == "" {
		a.SessionID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogger(os.Stderr, "intentreplay", logging.ParseLevel(os.Getenv("INTENT_LOG_LEVEL")))

	f, err := os.Open(a.File)
	if err != nil {
		return err
	}
	defer f.Close()
	records, err := replay.ParseRecords(f)
	if err != nil {
		return fmt.Errorf("%s: %w", a.File, err)
	}

	var doc *goquery.Document
	if a.Page != "" {
		pf, err := os.Open(a.Page)
		if err != nil {
			return err
		}
		doc, err = goquery.NewDocumentFromReader(pf)
		pf.Close()
		if err != nil {
			return fmt.Errorf("parse %s: %w", a.Page, err)
		}
	}

	wcCfg := webclient.DefaultConfig()
	wcCfg.UserAgent = a.UserAgent
	wc, err := webclient.NewWebClient(wcCfg, logger)
	if err != nil {
		return err
	}
	defer wc.Close()

	var tr collector.Transport
	if a.WS {
		ws, err := collector.DialWS(ctx, a.Gateway, wc)
		if err != nil {
			return err
		}
		defer ws.Close()
		tr = ws
	} else {
		tr, err = collector.NewHTTPTransport(a.Gateway, wc)
		if err != nil {
			return err
		}
	}

	res, err := replay.Run(ctx, records, replay.Options{
		Collector:  collector.Config{SiteID: a.SiteID, AccessKey: a.AccessKey, SessionID: a.SessionID},
		Transport:  tr,
		Page:       collector.Page{URL: a.URL, Referrer: a.Referrer, UserAgent: a.UserAgent},
		Document:   doc,
		EndSession: a.End,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report{
		SessionID:  a.SessionID,
		Batches:    res.Batches,
		Decisions:  res.Decisions,
		Terminated: res.Terminated,
		Skipped:    res.Skipped,
		HTML:       res.HTML,
	})
}
