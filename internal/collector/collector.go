// Package collector observes one page view's interactions and periodically
// flushes them as signal batches. A Collector is a single instance per page
// load: it owns every accumulator, timer and observer it uses and holds no
// package-level state.
//
// DOM observations arrive through the exported input methods (Intersection,
// Click, Scroll, ...). Whatever drives the page, a headless browser or a
// recorded trace, calls them in event order.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/utils"
	"github.com/raysh454/intent/internal/wire"
)

var (
	ErrSiteInactive     = errors.New("collector: site inactive")
	ErrDomainNotAllowed = errors.New("collector: domain not allowed")
	ErrAlreadyStarted   = errors.New("collector: already started")
	ErrTerminated       = errors.New("collector: terminated")
)

// Clock abstracts time so the state machine can be driven deterministically.
// AfterFunc returns a stop function reporting whether it prevented the call.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// Transport carries batches to the gateway.
type Transport interface {
	FetchConfig(ctx context.Context, siteID, accessKey, origin string) (*model.SiteConfig, error)
	Send(ctx context.Context, meta wire.Meta, batch *model.SignalBatch) (*model.Decision, error)
}

// Injector renders an adaptive payload into the page.
type Injector interface {
	Inject(p model.AdaptivePayload) error
}

// Page describes the document the collector is attached to.
type Page struct {
	URL       string
	Referrer  string
	UserAgent string
}

type Deps struct {
	Clock     Clock
	Transport Transport
	Injector  Injector
	Logger    logging.Logger
	Page      Page
}

type state int

const (
	stateIdle state = iota
	stateWaiting
	stateRunning
	stateStopped
	stateTerminated
)

type Collector struct {
	cfg    Config
	clock  Clock
	tr     Transport
	inj    Injector
	page   Page
	logger logging.Logger

	mu    sync.Mutex
	state state
	acc   *accumulator

	elements   map[string]*element
	docHidden  bool
	scroll     scrollSampler
	bursts     map[string]*clickBurst
	hesitating map[string]func() bool

	// seenSelections spans the page view, not one batch.
	seenSelections map[string]bool

	selectionStop func() bool
	startStop     func() bool
	flushStop     func() bool
}

func New(cfg Config, deps Deps) (*Collector, error) {
	if cfg.SiteID == "" || cfg.SessionID == "" {
		return nil, errors.New("collector: site id and session id are required")
	}
	if deps.Transport == nil {
		return nil, errors.New("collector: transport is required")
	}
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop{}
	}
	cfg = cfg.withDefaults()
	return &Collector{
		cfg:    cfg,
		clock:  deps.Clock,
		tr:     deps.Transport,
		inj:    deps.Injector,
		page:   deps.Page,
		logger: deps.Logger.With(logging.Field{Key: "component", Value: "collector"}, logging.Field{Key: "session_id", Value: cfg.SessionID}),

		acc:            newAccumulator(),
		elements:       make(map[string]*element),
		bursts:         make(map[string]*clickBurst),
		hesitating:     make(map[string]func() bool),
		seenSelections: make(map[string]bool),
	}, nil
}

// Start performs the configuration handshake and, if the site is active and
// the page host allowed, begins observing after the configured delay.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case stateTerminated:
		c.mu.Unlock()
		return ErrTerminated
	case stateIdle:
	default:
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.mu.Unlock()

	sc, err := c.tr.FetchConfig(ctx, c.cfg.SiteID, c.cfg.AccessKey, c.page.URL)
	if err != nil {
		return fmt.Errorf("fetch site config: %w", err)
	}
	if !sc.Active {
		return ErrSiteInactive
	}
	if !sc.DomainAllowed(utils.Hostname(c.page.URL)) {
		return ErrDomainNotAllowed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateIdle {
		return ErrAlreadyStarted
	}
	if sc.Settings.FlushIntervalMS > 0 {
		c.cfg.FlushInterval = time.Duration(sc.Settings.FlushIntervalMS) * time.Millisecond
	}
	delay := time.Duration(sc.Settings.StartDelayMS) * time.Millisecond
	if delay <= 0 {
		c.beginLocked()
		return nil
	}
	c.state = stateWaiting
	c.startStop = c.clock.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == stateWaiting {
			c.beginLocked()
		}
	})
	return nil
}

func (c *Collector) beginLocked() {
	c.state = stateRunning
	now := c.clock.Now()
	c.resumeVisibleLocked(now)
	c.acc.addEvent(model.EventPageView, now, nil)
	c.scheduleFlushLocked()
	c.logger.Debug("collector started", logging.Field{Key: "flush_interval", Value: c.cfg.FlushInterval.String()})
}

func (c *Collector) scheduleFlushLocked() {
	c.flushStop = c.clock.AfterFunc(c.cfg.FlushInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SendTimeout)
		defer cancel()
		c.Flush(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == stateRunning {
			c.scheduleFlushLocked()
		}
	})
}

// Running reports whether the collector is actively observing.
func (c *Collector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRunning
}

// Terminated reports whether an adaptive UI was injected. It never reverts.
func (c *Collector) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateTerminated
}

// Stop tears down every timer without sending anything.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateTerminated || c.state == stateStopped {
		return
	}
	c.teardownLocked()
	c.state = stateStopped
}

// End records a session_end event, sends a final batch and stops.
func (c *Collector) End(ctx context.Context) {
	c.mu.Lock()
	if c.state != stateRunning {
		c.mu.Unlock()
		return
	}
	c.acc.addEvent(model.EventSessionEnd, c.clock.Now(), nil)
	c.mu.Unlock()

	c.Flush(ctx)
	c.Stop()
}

// Flush finalizes open dwell timers, and when the batch carries any signal,
// resets every accumulator and sends the batch. A failed send loses the batch.
func (c *Collector) Flush(ctx context.Context) {
	c.mu.Lock()
	if c.state != stateRunning {
		c.mu.Unlock()
		return
	}
	now := c.clock.Now()
	c.commitActiveLocked(now)
	batch := c.acc.batch()
	if batch.IsEmpty() {
		c.mu.Unlock()
		return
	}
	batch.URL = c.page.URL
	batch.Referrer = c.page.Referrer
	c.acc = newAccumulator()
	c.mu.Unlock()

	meta := wire.Meta{
		SiteID:          c.cfg.SiteID,
		AccessKey:       c.cfg.AccessKey,
		SessionID:       c.cfg.SessionID,
		UserAgent:       c.page.UserAgent,
		ClientTimestamp: now.UnixMilli(),
	}
	decision, err := c.tr.Send(ctx, meta, batch)
	if err != nil {
		c.logger.Warn("batch send failed, signals dropped", logging.Err(err))
		return
	}
	if decision == nil || decision.AdaptiveUI.IsEmpty() {
		return
	}
	c.terminate(*decision.AdaptiveUI)
}

// terminate is one-way: observation stops for the rest of the page view
// before the payload is rendered.
func (c *Collector) terminate(p model.AdaptivePayload) {
	c.mu.Lock()
	if c.state == stateTerminated || c.state == stateStopped {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	c.state = stateTerminated
	c.mu.Unlock()

	c.logger.Info("adaptive ui received, collector terminated",
		logging.Field{Key: "selector", Value: p.Selector})
	if c.inj == nil {
		return
	}
	if err := c.inj.Inject(p); err != nil {
		c.logger.Warn("adaptive ui injection failed", logging.Err(err))
	}
}

func (c *Collector) teardownLocked() {
	for _, stop := range []func() bool{c.startStop, c.flushStop, c.selectionStop} {
		if stop != nil {
			stop()
		}
	}
	c.startStop, c.flushStop, c.selectionStop = nil, nil, nil
	for sel, stop := range c.hesitating {
		stop()
		delete(c.hesitating, sel)
	}
	c.elements = make(map[string]*element)
	c.bursts = make(map[string]*clickBurst)
}

// active reports whether inputs should be recorded. Must hold c.mu.
func (c *Collector) activeLocked() bool {
	return c.state == stateRunning
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
