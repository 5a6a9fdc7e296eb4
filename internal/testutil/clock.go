package testutil

import (
	"time"

	"github.com/raysh454/intent/internal/clock"
)

// FakeClock is a manually advanced clock for timer-driven tests.
type FakeClock = clock.Manual

func NewFakeClock(start time.Time) *FakeClock {
	return clock.NewManual(start)
}
