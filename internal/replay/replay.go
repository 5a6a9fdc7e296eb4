// Package replay drives a Collector from a recorded DOM-event trace. Each
// line of a recording is one JSON Record; records are applied in order on a
// manual clock, so flush timers, hesitation timers and the start-up delay
// fire exactly as they would have during the original page view.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/intent/internal/clock"
	"github.com/raysh454/intent/internal/collector"
	"github.com/raysh454/intent/internal/inject"
	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/wire"
)

// Record types.
const (
	TypeObserve      = "observe"
	TypeInserted     = "inserted"
	TypeIntersect    = "intersect"
	TypeVisibility   = "visibility"
	TypeScroll       = "scroll"
	TypeClick        = "click"
	TypePointerEnter = "pointer_enter"
	TypePointerLeave = "pointer_leave"
	TypePointerOut   = "pointer_out"
	TypeCopy         = "copy"
	TypeSelect       = "select"
	TypeFormInput    = "form_input"
	TypeFormSubmit   = "form_submit"
	TypePerf         = "perf"
	TypeError        = "error"
	TypeMouse        = "mouse"
	TypeInteraction  = "interaction"
	TypeEvent        = "event"
	TypeFlush        = "flush"
	TypeEnd          = "end"
)

var ErrOutOfOrder = errors.New("replay: records are not in time order")

// Record is one recorded DOM observation. Only the fields its Type uses
// are read.
type Record struct {
	AtMS int64  `json:"at_ms"`
	Type string `json:"type"`

	ID      string   `json:"id,omitempty"`
	IDs     []string `json:"ids,omitempty"`
	Visible bool     `json:"visible,omitempty"`
	Hidden  bool     `json:"hidden,omitempty"`

	Y              float64 `json:"y,omitempty"`
	DocHeight      float64 `json:"doc_height,omitempty"`
	ViewportHeight float64 `json:"viewport_height,omitempty"`

	// Selector names the target element. It is resolved against Markup
	// when present, otherwise against the replayed page document.
	Selector string  `json:"selector,omitempty"`
	Markup   string  `json:"markup,omitempty"`
	X        float64 `json:"x,omitempty"`
	ClientY  float64 `json:"client_y,omitempty"`
	ToNull   bool    `json:"to_null,omitempty"`

	Text  string  `json:"text,omitempty"`
	Form  string  `json:"form,omitempty"`
	Field string  `json:"field,omitempty"`
	Name  string  `json:"name,omitempty"`
	Value float64 `json:"value,omitempty"`
	Kind  string  `json:"kind,omitempty"`

	Payload map[string]any `json:"payload,omitempty"`
}

// ParseRecords reads a JSONL recording. Blank lines and lines starting
// with '#' are skipped.
func ParseRecords(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	var out []Record
	line := 0
	var last int64
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Type == "" {
			return nil, fmt.Errorf("line %d: missing type", line)
		}
		if rec.AtMS < last {
			return nil, fmt.Errorf("line %d: %w", line, ErrOutOfOrder)
		}
		last = rec.AtMS
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return out, nil
}

// Options configures one replay.
type Options struct {
	Collector collector.Config
	Transport collector.Transport
	Page      collector.Page

	// Document is the page markup. Click targets resolve against it and an
	// adaptive payload is injected into it. Optional.
	Document *goquery.Document

	// EndSession sends a session_end event after the last record instead
	// of a plain final flush.
	EndSession bool

	// Start is the wall time of the first record. Zero means time.Now.
	Start  time.Time
	Logger logging.Logger
}

// Result summarizes a replay.
type Result struct {
	Batches    int
	Decisions  []model.Decision
	Injected   *model.AdaptivePayload
	Terminated bool
	// Skipped counts records left unapplied after termination.
	Skipped int
	// HTML is the page after injection when a Document was given.
	HTML string
}

// Run replays records through a fresh Collector.
func Run(ctx context.Context, records []Record, opts Options) (*Result, error) {
	if opts.Transport == nil {
		return nil, errors.New("replay: transport is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop{}
	}
	start := opts.Start
	if start.IsZero() {
		start = time.Now()
	}

	clk := clock.NewManual(start)
	rt := &recordingTransport{next: opts.Transport}
	ri := &recordingInjector{}
	if opts.Document != nil {
		ri.next = inject.NewDocumentInjector(opts.Document)
	}

	col, err := collector.New(opts.Collector, collector.Deps{
		Clock:     clk,
		Transport: rt,
		Injector:  ri,
		Logger:    opts.Logger,
		Page:      opts.Page,
	})
	if err != nil {
		return nil, err
	}
	if err := col.Start(ctx); err != nil {
		return nil, err
	}

	res := &Result{}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			col.Stop()
			return nil, err
		}
		clk.AdvanceTo(start.Add(time.Duration(rec.AtMS) * time.Millisecond))
		if col.Terminated() {
			res.Skipped = len(records) - i
			break
		}
		if err := apply(ctx, col, rec, opts.Document); err != nil {
			col.Stop()
			return nil, fmt.Errorf("record %d (%s): %w", i, rec.Type, err)
		}
	}

	if !col.Terminated() {
		if opts.EndSession {
			col.End(ctx)
		} else {
			col.Flush(ctx)
		}
	}
	col.Stop()

	res.Batches, res.Decisions = rt.snapshot()
	res.Injected = ri.payload
	res.Terminated = col.Terminated()
	if opts.Document != nil {
		html, err := goquery.OuterHtml(opts.Document.Selection)
		if err != nil {
			return nil, fmt.Errorf("render page: %w", err)
		}
		res.HTML = html
	}
	return res, nil
}

func apply(ctx context.Context, col *collector.Collector, rec Record, doc *goquery.Document) error {
	switch rec.Type {
	case TypeObserve:
		col.ObserveElement(rec.ID)
	case TypeInserted:
		col.ElementsInserted(rec.IDs...)
	case TypeIntersect:
		col.Intersection(rec.ID, rec.Visible)
	case TypeVisibility:
		col.VisibilityChange(rec.Hidden)
	case TypeScroll:
		col.Scroll(rec.Y, rec.DocHeight, rec.ViewportHeight)
	case TypeClick:
		t, err := resolveTarget(rec, doc)
		if err != nil {
			return err
		}
		col.Click(t)
	case TypePointerEnter:
		t, err := resolveTarget(rec, doc)
		if err != nil {
			return err
		}
		col.PointerEnter(t)
	case TypePointerLeave:
		col.PointerLeave(rec.Selector)
	case TypePointerOut:
		col.PointerOut(rec.ClientY, rec.ToNull)
	case TypeCopy:
		col.Copy(rec.Text)
	case TypeSelect:
		col.SelectionChange(rec.Text)
	case TypeFormInput:
		col.FormInput(rec.Form, rec.Field)
	case TypeFormSubmit:
		col.FormSubmit(rec.Form)
	case TypePerf:
		col.Perf(rec.Name, rec.Value)
	case TypeError:
		col.JSError(rec.Text)
	case TypeMouse:
		col.MouseMove(rec.X, rec.Y)
	case TypeInteraction:
		col.Interaction(rec.Selector, rec.Kind)
	case TypeEvent:
		col.Event(rec.Name, rec.Payload)
	case TypeFlush:
		col.Flush(ctx)
	case TypeEnd:
		col.End(ctx)
	default:
		return fmt.Errorf("unknown record type %q", rec.Type)
	}
	return nil
}

// resolveTarget looks the selector up in the record's markup, or in the page.
// A selector that matches nothing yields a bare target, which the collector
// treats as non-interactive.
func resolveTarget(rec Record, doc *goquery.Document) (collector.ClickTarget, error) {
	if rec.Selector == "" {
		return collector.ClickTarget{}, errors.New("selector is required")
	}
	src := doc
	if rec.Markup != "" {
		d, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Markup))
		if err != nil {
			return collector.ClickTarget{}, fmt.Errorf("parse markup: %w", err)
		}
		src = d
	}
	if src == nil {
		return collector.ClickTarget{Selector: rec.Selector, X: rec.X, Y: rec.Y}, nil
	}
	return collector.TargetFromSelection(src.Find(rec.Selector), rec.Selector, rec.X, rec.Y), nil
}

type recordingTransport struct {
	next collector.Transport

	mu        sync.Mutex
	batches   int
	decisions []model.Decision
}

func (t *recordingTransport) FetchConfig(ctx context.Context, siteID, accessKey, origin string) (*model.SiteConfig, error) {
	return t.next.FetchConfig(ctx, siteID, accessKey, origin)
}

func (t *recordingTransport) Send(ctx context.Context, meta wire.Meta, batch *model.SignalBatch) (*model.Decision, error) {
	t.mu.Lock()
	t.batches++
	t.mu.Unlock()

	d, err := t.next.Send(ctx, meta, batch)
	if err != nil {
		return nil, err
	}
	if d != nil {
		t.mu.Lock()
		t.decisions = append(t.decisions, *d)
		t.mu.Unlock()
	}
	return d, nil
}

func (t *recordingTransport) snapshot() (int, []model.Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.batches, append([]model.Decision(nil), t.decisions...)
}

type recordingInjector struct {
	next    collector.Injector
	payload *model.AdaptivePayload
}

func (i *recordingInjector) Inject(p model.AdaptivePayload) error {
	i.payload = &p
	if i.next == nil {
		return nil
	}
	return i.next.Inject(p)
}
