package model

import "time"

// Category is the coarse intent tier. It is a pure function of the score.
type Category string

const (
	CategoryBouncer    Category = "Bouncer"
	CategoryResearcher Category = "Researcher"
	CategoryLead       Category = "Lead"
)

// Session is one visitor's continuous browsing activity on one site.
type Session struct {
	SiteID    string `json:"site_id"`
	SessionID string `json:"session_id"`

	StartedAt      time.Time  `json:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`

	PageViews        int      `json:"page_views"`
	TimeSpentSeconds float64  `json:"time_spent_seconds"`
	MaxScrollDepth   float64  `json:"max_scroll_depth"`
	PagesVisited     []string `json:"pages_visited"`

	IntentScore int      `json:"intent_score"`
	Category    Category `json:"category"`
	Active      bool     `json:"active"`

	// First-write-wins attribution.
	Referrer string `json:"referrer,omitempty"`
	UTM      UTM    `json:"utm"`

	UserAgent    string `json:"user_agent,omitempty"`
	DeviceClass  string `json:"device_class,omitempty"`
	BrowserClass string `json:"browser_class,omitempty"`
}

type UTM struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

func (u UTM) IsZero() bool {
	return u == UTM{}
}

// HasPage reports whether url was already recorded as visited.
func (s *Session) HasPage(url string) bool {
	for _, p := range s.PagesVisited {
		if p == url {
			return true
		}
	}
	return false
}
