package collector

import "time"

type visibility int

const (
	notVisible visibility = iota
	visibleActive
	visiblePaused
)

type element struct {
	state visibility
	since time.Time
}

// ObserveElement starts tracking dwell time for id. Observing an id twice is a no-op.
func (c *Collector) ObserveElement(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observeLocked(id)
}

// ElementsInserted observes elements that appeared after start-up.
func (c *Collector) ElementsInserted(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.observeLocked(id)
	}
}

func (c *Collector) observeLocked(id string) {
	if id == "" || c.state == stateTerminated || c.state == stateStopped {
		return
	}
	if _, ok := c.elements[id]; !ok {
		c.elements[id] = &element{}
	}
}

// Intersection reports an observed element crossing the visibility threshold.
func (c *Collector) Intersection(id string, visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.elements[id]
	if !ok {
		return
	}
	if c.state == stateWaiting {
		// Timing starts when the collector does.
		if visible {
			el.state = visiblePaused
		} else {
			el.state = notVisible
		}
		return
	}
	if !c.activeLocked() {
		return
	}
	now := c.clock.Now()
	switch {
	case visible && el.state == notVisible:
		if c.docHidden {
			el.state = visiblePaused
			return
		}
		el.state, el.since = visibleActive, now
	case !visible && el.state == visibleActive:
		c.commitLocked(id, el, now)
		el.state = notVisible
	case !visible && el.state == visiblePaused:
		el.state = notVisible
	}
}

// VisibilityChange reports the document being hidden or shown.
func (c *Collector) VisibilityChange(hidden bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hidden == c.docHidden {
		return
	}
	c.docHidden = hidden
	if !c.activeLocked() {
		return
	}
	now := c.clock.Now()
	for id, el := range c.elements {
		switch {
		case hidden && el.state == visibleActive:
			c.commitLocked(id, el, now)
			el.state = visiblePaused
		case !hidden && el.state == visiblePaused:
			el.state, el.since = visibleActive, now
		}
	}
}

// resumeVisibleLocked starts timers for elements already visible when the
// collector begins running.
func (c *Collector) resumeVisibleLocked(now time.Time) {
	if c.docHidden {
		return
	}
	for _, el := range c.elements {
		if el.state == visiblePaused {
			el.state, el.since = visibleActive, now
		}
	}
}

// commitActiveLocked moves elapsed time of every running timer into the
// accumulator and restarts the timers at now.
func (c *Collector) commitActiveLocked(now time.Time) {
	for id, el := range c.elements {
		if el.state == visibleActive {
			c.commitLocked(id, el, now)
		}
	}
}

func (c *Collector) commitLocked(id string, el *element, now time.Time) {
	if elapsed := now.Sub(el.since).Seconds(); elapsed > 0 {
		c.acc.dwell[id] += elapsed
	}
	el.since = now
}
