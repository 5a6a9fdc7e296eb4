package model

import "strings"

// Well-known event types carried in SignalBatch.Events.
const (
	EventPageView   = "page_view"
	EventExitIntent = "exit_intent"
	EventSessionEnd = "session_end"
	EventClick      = "click"
)

// SignalBatch is one periodic bundle of behavioral observations flushed by a
// collector. All counters are per-batch; nothing here is cumulative across flushes.
type SignalBatch struct {
	// DwellTime maps a stable element identifier to visible, foreground seconds.
	DwellTime map[string]float64 `json:"dwell_time,omitempty"`

	// ScrollVelocity is the highest sampled velocity in px/s during the window.
	ScrollVelocity float64 `json:"scroll_velocity,omitempty"`

	// ScrollDepth is the deepest scroll position reached, in percent (0..100).
	ScrollDepth float64 `json:"scroll_depth,omitempty"`

	Hesitation bool `json:"hesitation,omitempty"`
	RageClicks int  `json:"rage_clicks,omitempty"`

	CopiedText     []string    `json:"copied_text,omitempty"`
	TextSelections []string    `json:"text_selections,omitempty"`
	DeadClicks     []DeadClick `json:"dead_clicks,omitempty"`

	Events       []Event                 `json:"events,omitempty"`
	Interactions map[string]Interaction  `json:"interactions,omitempty"`
	Forms        map[string]FormActivity `json:"forms,omitempty"`
	Performance  map[string]float64      `json:"performance,omitempty"`
	Errors       []ErrorEntry            `json:"errors,omitempty"`
	MouseTrace   []MousePoint            `json:"mouse_trace,omitempty"`

	URL      string `json:"url,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

// DeadClick is a click on something that does not look interactive.
type DeadClick struct {
	Selector string  `json:"selector"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Time     int64   `json:"time"` // unix millis
}

// Event is a generic typed event with an optional payload.
type Event struct {
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp"` // unix millis
	Payload   map[string]any `json:"payload,omitempty"`
}

// Interaction aggregates activity on one selector during a batch window.
type Interaction struct {
	Clicks   int   `json:"clicks"`
	Hovers   int   `json:"hovers"`
	Inputs   int   `json:"inputs"`
	LastSeen int64 `json:"last_seen"`
}

// FormActivity summarizes engagement with one form.
type FormActivity struct {
	FieldsTouched []string `json:"fields_touched,omitempty"`
	Inputs        int      `json:"inputs"`
	Submitted     bool     `json:"submitted"`
}

type ErrorEntry struct {
	Message string `json:"message"`
	Time    int64  `json:"time"`
}

type MousePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

// IsEmpty reports whether the batch carries no behavioral signal at all.
// URL and Referrer are context, not signals, and are ignored.
func (b *SignalBatch) IsEmpty() bool {
	if b == nil {
		return true
	}
	return len(b.DwellTime) == 0 &&
		b.ScrollVelocity == 0 &&
		b.ScrollDepth == 0 &&
		!b.Hesitation &&
		b.RageClicks == 0 &&
		len(b.CopiedText) == 0 &&
		len(b.TextSelections) == 0 &&
		len(b.DeadClicks) == 0 &&
		len(b.Events) == 0 &&
		len(b.Interactions) == 0 &&
		len(b.Forms) == 0 &&
		len(b.Performance) == 0 &&
		len(b.Errors) == 0 &&
		len(b.MouseTrace) == 0
}

// HasEvent reports whether an event of the given type is present.
func (b *SignalBatch) HasEvent(eventType string) bool {
	return b.CountEvents(eventType) > 0
}

func (b *SignalBatch) CountEvents(eventType string) int {
	if b == nil {
		return 0
	}
	n := 0
	for _, e := range b.Events {
		if strings.EqualFold(e.Type, eventType) {
			n++
		}
	}
	return n
}

// TotalDwellSeconds sums the per-element dwell seconds.
func (b *SignalBatch) TotalDwellSeconds() float64 {
	if b == nil {
		return 0
	}
	total := 0.0
	for _, s := range b.DwellTime {
		total += s
	}
	return total
}
