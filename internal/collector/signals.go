package collector

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/raysh454/intent/internal/model"
)

// ─── Scroll ────────────────────────────────────────────────────────────

type scrollSampler struct {
	lastY  float64
	lastAt time.Time
}

// Scroll reports the current scroll offset. Depth and velocity are kept as
// high-water marks for the batch window.
func (c *Collector) Scroll(y, docHeight, viewportHeight float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() {
		return
	}
	now := c.clock.Now()

	if docHeight > 0 {
		depth := math.Min(100, math.Max(0, (y+viewportHeight)/docHeight*100))
		if depth > c.acc.scrollDepth {
			c.acc.scrollDepth = depth
		}
	}

	s := &c.scroll
	if s.lastAt.IsZero() {
		s.lastY, s.lastAt = y, now
		return
	}
	dt := now.Sub(s.lastAt)
	if dt <= c.cfg.ScrollSampleEvery {
		return
	}
	v := math.Abs(y-s.lastY) / dt.Seconds()
	if v > c.acc.scrollVelocity {
		c.acc.scrollVelocity = v
	}
	s.lastY, s.lastAt = y, now
}

// ─── Clicks ────────────────────────────────────────────────────────────

type clickBurst struct {
	first time.Time
	count int
}

// Click records a click on t: interaction count, rage-click bursts, dead
// clicks and cancellation of any pending hesitation on the same target.
func (c *Collector) Click(t ClickTarget) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || t.Selector == "" {
		return
	}
	now := c.clock.Now()

	c.cancelHesitationLocked(t.Selector)
	c.recordInteractionLocked(t.Selector, InteractionClick, now)

	b, ok := c.bursts[t.Selector]
	if !ok || now.Sub(b.first) >= c.cfg.RageWindow {
		b = &clickBurst{first: now}
		c.bursts[t.Selector] = b
	}
	b.count++
	if b.count == c.cfg.RageClickCount {
		c.acc.rageClicks++
	}

	if !t.Interactive() && len(c.acc.deadClicks) < c.cfg.MaxDeadClicks {
		c.acc.deadClicks = append(c.acc.deadClicks, model.DeadClick{
			Selector: t.Selector,
			X:        t.X,
			Y:        t.Y,
			Time:     now.UnixMilli(),
		})
	}
}

// ─── Hesitation & exit intent ──────────────────────────────────────────

// PointerEnter starts the hesitation timer when t looks like a call to action.
func (c *Collector) PointerEnter(t ClickTarget) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || t.Selector == "" {
		return
	}
	c.recordInteractionLocked(t.Selector, InteractionHover, c.clock.Now())
	if !t.CallToAction() || c.acc.hesitation {
		return
	}
	if _, pending := c.hesitating[t.Selector]; pending {
		return
	}
	sel := t.Selector
	c.hesitating[sel] = c.clock.AfterFunc(c.cfg.HesitationHold, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, pending := c.hesitating[sel]; !pending {
			return
		}
		delete(c.hesitating, sel)
		if c.activeLocked() {
			c.acc.hesitation = true
		}
	})
}

// PointerLeave cancels a pending hesitation for selector.
func (c *Collector) PointerLeave(selector string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelHesitationLocked(selector)
}

func (c *Collector) cancelHesitationLocked(selector string) {
	if stop, ok := c.hesitating[selector]; ok {
		stop()
		delete(c.hesitating, selector)
	}
}

// PointerOut reports the pointer leaving the document. Leaving across the
// top edge (clientY <= 0 with no related element) is exit intent.
func (c *Collector) PointerOut(clientY float64, toElementNull bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || !toElementNull || clientY > 0 {
		return
	}
	c.acc.addEvent(model.EventExitIntent, c.clock.Now(), nil)
}

// ─── Text ──────────────────────────────────────────────────────────────

// Copy captures the selection being copied.
func (c *Collector) Copy(selection string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() {
		return
	}
	text := truncateRunes(strings.TrimSpace(selection), c.cfg.CopyMaxChars)
	if text == "" {
		return
	}
	c.acc.copied = append(c.acc.copied, text)
}

// SelectionChange debounces selection updates; only the selection standing
// when the debounce expires is considered.
func (c *Collector) SelectionChange(selection string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() {
		return
	}
	if c.selectionStop != nil {
		c.selectionStop()
	}
	text := strings.TrimSpace(selection)
	c.selectionStop = c.clock.AfterFunc(c.cfg.SelectionDebounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.selectionStop = nil
		if !c.activeLocked() {
			return
		}
		n := utf8.RuneCountInString(text)
		if n < c.cfg.SelectionMinChars || n > c.cfg.SelectionMaxChars {
			return
		}
		if c.seenSelections[text] {
			return
		}
		c.seenSelections[text] = true
		c.acc.selections = append(c.acc.selections, text)
	})
}

// ─── Bounded collectors ────────────────────────────────────────────────

// FormInput records input into field of form.
func (c *Collector) FormInput(form, field string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || form == "" {
		return
	}
	f := c.acc.forms[form]
	f.Inputs++
	if field != "" && !contains(f.FieldsTouched, field) {
		f.FieldsTouched = append(f.FieldsTouched, field)
	}
	c.acc.forms[form] = f
}

func (c *Collector) FormSubmit(form string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || form == "" {
		return
	}
	f := c.acc.forms[form]
	f.Submitted = true
	c.acc.forms[form] = f
}

// Perf records a performance metric; later values overwrite earlier ones.
func (c *Collector) Perf(name string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || name == "" {
		return
	}
	c.acc.performance[name] = value
}

func (c *Collector) JSError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || len(c.acc.errors) >= c.cfg.MaxErrors {
		return
	}
	c.acc.errors = append(c.acc.errors, model.ErrorEntry{
		Message: truncateRunes(msg, 500),
		Time:    c.clock.Now().UnixMilli(),
	})
}

func (c *Collector) MouseMove(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || len(c.acc.mouse) >= c.cfg.MaxMouseTrace {
		return
	}
	c.acc.mouse = append(c.acc.mouse, model.MousePoint{X: x, Y: y, T: c.clock.Now().UnixMilli()})
}

// Interaction kinds.
const (
	InteractionClick = "click"
	InteractionHover = "hover"
	InteractionInput = "input"
)

// Interaction records a hover, click or input on selector.
func (c *Collector) Interaction(selector, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || selector == "" {
		return
	}
	c.recordInteractionLocked(selector, kind, c.clock.Now())
}

func (c *Collector) recordInteractionLocked(selector, kind string, now time.Time) {
	in := c.acc.interactions[selector]
	switch kind {
	case InteractionClick:
		in.Clicks++
	case InteractionHover:
		in.Hovers++
	case InteractionInput:
		in.Inputs++
	default:
		return
	}
	in.LastSeen = now.UnixMilli()
	c.acc.interactions[selector] = in
}

// Event records a custom event.
func (c *Collector) Event(typ string, payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() || typ == "" {
		return
	}
	c.acc.addEvent(typ, c.clock.Now(), payload)
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
