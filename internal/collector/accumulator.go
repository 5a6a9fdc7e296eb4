package collector

import (
	"time"

	"github.com/raysh454/intent/internal/model"
)

// accumulator holds one batch window's worth of signals.
type accumulator struct {
	dwell          map[string]float64
	scrollVelocity float64
	scrollDepth    float64
	hesitation     bool
	rageClicks     int
	copied         []string
	selections     []string
	deadClicks     []model.DeadClick
	events         []model.Event
	interactions   map[string]model.Interaction
	forms          map[string]model.FormActivity
	performance    map[string]float64
	errors         []model.ErrorEntry
	mouse          []model.MousePoint
}

func newAccumulator() *accumulator {
	return &accumulator{
		dwell:        make(map[string]float64),
		interactions: make(map[string]model.Interaction),
		forms:        make(map[string]model.FormActivity),
		performance:  make(map[string]float64),
	}
}

func (a *accumulator) addEvent(typ string, at time.Time, payload map[string]any) {
	a.events = append(a.events, model.Event{Type: typ, Timestamp: at.UnixMilli(), Payload: payload})
}

// batch snapshots the window. Empty maps and slices are left nil so an idle
// window reports IsEmpty.
func (a *accumulator) batch() *model.SignalBatch {
	b := &model.SignalBatch{
		ScrollVelocity: a.scrollVelocity,
		ScrollDepth:    a.scrollDepth,
		Hesitation:     a.hesitation,
		RageClicks:     a.rageClicks,
		CopiedText:     a.copied,
		TextSelections: a.selections,
		DeadClicks:     a.deadClicks,
		Events:         a.events,
		Errors:         a.errors,
		MouseTrace:     a.mouse,
	}
	if len(a.dwell) > 0 {
		b.DwellTime = a.dwell
	}
	if len(a.interactions) > 0 {
		b.Interactions = a.interactions
	}
	if len(a.forms) > 0 {
		b.Forms = a.forms
	}
	if len(a.performance) > 0 {
		b.Performance = a.performance
	}
	return b
}
