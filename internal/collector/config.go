package collector

import "time"

type Config struct {
	SiteID    string
	AccessKey string
	SessionID string

	FlushInterval time.Duration
	SendTimeout   time.Duration

	// Rage clicks: RageClickCount clicks on one selector within RageWindow
	// of the first click in the burst.
	RageWindow     time.Duration
	RageClickCount int

	MaxDeadClicks  int
	HesitationHold time.Duration

	// Velocity is sampled no more often than ScrollSampleEvery.
	ScrollSampleEvery time.Duration

	SelectionDebounce time.Duration
	SelectionMinChars int
	SelectionMaxChars int
	CopyMaxChars      int

	MaxErrors     int
	MaxMouseTrace int
}

func DefaultConfig() Config {
	return Config{
		FlushInterval:     5 * time.Second,
		SendTimeout:       10 * time.Second,
		RageWindow:        time.Second,
		RageClickCount:    4,
		MaxDeadClicks:     10,
		HesitationHold:    2 * time.Second,
		ScrollSampleEvery: 100 * time.Millisecond,
		SelectionDebounce: time.Second,
		SelectionMinChars: 5,
		SelectionMaxChars: 200,
		CopyMaxChars:      200,
		MaxErrors:         5,
		MaxMouseTrace:     50,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FlushInterval <= 0 {
		c.FlushInterval = d.FlushInterval
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.RageWindow <= 0 {
		c.RageWindow = d.RageWindow
	}
	if c.RageClickCount <= 0 {
		c.RageClickCount = d.RageClickCount
	}
	if c.MaxDeadClicks <= 0 {
		c.MaxDeadClicks = d.MaxDeadClicks
	}
	if c.HesitationHold <= 0 {
		c.HesitationHold = d.HesitationHold
	}
	if c.ScrollSampleEvery <= 0 {
		c.ScrollSampleEvery = d.ScrollSampleEvery
	}
	if c.SelectionDebounce <= 0 {
		c.SelectionDebounce = d.SelectionDebounce
	}
	if c.SelectionMinChars <= 0 {
		c.SelectionMinChars = d.SelectionMinChars
	}
	if c.SelectionMaxChars <= 0 {
		c.SelectionMaxChars = d.SelectionMaxChars
	}
	if c.CopyMaxChars <= 0 {
		c.CopyMaxChars = d.CopyMaxChars
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = d.MaxErrors
	}
	if c.MaxMouseTrace <= 0 {
		c.MaxMouseTrace = d.MaxMouseTrace
	}
	return c
}
