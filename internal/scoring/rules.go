package scoring

// KeywordRule adds Weight once per dwell-time element whose identifier contains
// any of Keywords (case-insensitive). Rules are checked in table order and the
// first matching family wins for a given element.
type KeywordRule struct {
	Family   string   `json:"family"`
	Keywords []string `json:"keywords"`
	Weight   int      `json:"weight"`
}

// Actions holds the suggested-action texts handed to the decision router.
type Actions struct {
	RetentionOffer  string `json:"retention_offer"`
	PriorityContact string `json:"priority_contact"`
	SoftContact     string `json:"soft_contact"`
}

// Rules is the full heuristic table. It is data, not code, so tests can pin
// a fixed table and operators can tune weights without touching the engine.
type Rules struct {
	// Baseline replaces a previous score of exactly zero before weighting.
	Baseline int `json:"baseline"`

	Keywords []KeywordRule `json:"keywords"`

	// Scanning penalty: velocity strictly above FastScrollVelocity px/s.
	FastScrollVelocity float64 `json:"fast_scroll_velocity"`
	FastScrollWeight   int     `json:"fast_scroll_weight"`

	CopyWeight       int `json:"copy_weight"`
	SelectionWeight  int `json:"selection_weight"`
	HesitationWeight int `json:"hesitation_weight"`

	// Depth strictly above DeepScrollAbove earns DeepScrollWeight; otherwise
	// depth at or above MidScrollFrom earns MidScrollWeight.
	DeepScrollAbove  float64 `json:"deep_scroll_above"`
	DeepScrollWeight int     `json:"deep_scroll_weight"`
	MidScrollFrom    float64 `json:"mid_scroll_from"`
	MidScrollWeight  int     `json:"mid_scroll_weight"`

	// Rage or dead clicks read as engaged-but-frustrated.
	FrustrationWeight int `json:"frustration_weight"`

	// Category thresholds: score < BouncerBelow is Bouncer, score > LeadAbove is Lead.
	BouncerBelow int `json:"bouncer_below"`
	LeadAbove    int `json:"lead_above"`

	// Suggested-action thresholds when no exit intent is present.
	PriorityContactAbove int `json:"priority_contact_above"`
	SoftContactAbove     int `json:"soft_contact_above"`

	Actions Actions `json:"actions"`
}

const (
	MinScore = 0
	MaxScore = 100
)

// DefaultRules returns the production heuristic table.
func DefaultRules() Rules {
	return Rules{
		Baseline: 40,
		Keywords: []KeywordRule{
			{Family: "pricing", Keywords: []string{"pricing", "price"}, Weight: 15},
			{Family: "features", Keywords: []string{"feature", "benefit"}, Weight: 5},
			{Family: "social_proof", Keywords: []string{"testimonial", "review"}, Weight: 10},
			{Family: "docs", Keywords: []string{"docs", "documentation", "tech"}, Weight: 5},
		},
		FastScrollVelocity: 2000,
		FastScrollWeight:   -10,

		CopyWeight:       15,
		SelectionWeight:  10,
		HesitationWeight: 10,

		DeepScrollAbove:  75,
		DeepScrollWeight: 10,
		MidScrollFrom:    50,
		MidScrollWeight:  5,

		FrustrationWeight: 5,

		BouncerBelow: 30,
		LeadAbove:    70,

		PriorityContactAbove: 80,
		SoftContactAbove:     50,

		Actions: Actions{
			RetentionOffer:  "The visitor is about to leave after showing strong buying intent. Present a time-limited retention offer with a single clear call to action.",
			PriorityContact: "The visitor shows strong buying intent. Invite them to talk to sales right away with a prominent booking call to action.",
			SoftContact:     "The visitor is actively researching. Offer a low-commitment way to stay in touch, such as a guide or newsletter signup.",
		},
	}
}
