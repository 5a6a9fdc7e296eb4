// Package scoring turns a signal batch into a bounded intent score.
//
// The engine is a pure function of (previous score, batch, rules): no clock,
// no I/O, no randomness. Map iteration order cannot affect the result because
// every contribution is additive and clamping happens once, at the end.
package scoring

import (
	"sort"
	"strings"

	"github.com/raysh454/intent/internal/model"
)

// Result is the output of one scoring pass.
type Result struct {
	Score           int            `json:"score"`
	Category        model.Category `json:"category"`
	SuggestedAction *string        `json:"suggested_action"`

	// Matched lists the rule ids that contributed, sorted, for logging.
	Matched []string `json:"matched,omitempty"`
}

type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

// Score applies the rule table to batch on top of previous.
func (e *Engine) Score(previous int, batch *model.SignalBatch) Result {
	r := e.rules
	score := previous
	if score == 0 {
		score = r.Baseline
	}

	var matched []string
	add := func(id string, w int) {
		if w == 0 {
			return
		}
		score += w
		matched = append(matched, id)
	}

	if batch != nil {
		for id := range batch.DwellTime {
			if rule, ok := matchKeyword(r.Keywords, id); ok {
				add("dwell:"+rule.Family+":"+id, rule.Weight)
			}
		}

		if batch.ScrollVelocity > r.FastScrollVelocity {
			add("fast_scroll", r.FastScrollWeight)
		}
		if len(batch.CopiedText) > 0 {
			add("copy", r.CopyWeight)
		}
		if len(batch.TextSelections) > 0 {
			add("selection", r.SelectionWeight)
		}
		if batch.Hesitation {
			add("hesitation", r.HesitationWeight)
		}

		switch {
		case batch.ScrollDepth > r.DeepScrollAbove:
			add("scroll_depth:deep", r.DeepScrollWeight)
		case batch.ScrollDepth >= r.MidScrollFrom:
			add("scroll_depth:mid", r.MidScrollWeight)
		}

		if batch.RageClicks > 0 || len(batch.DeadClicks) > 0 {
			add("frustration", r.FrustrationWeight)
		}
	}

	score = Clamp(score)
	category := CategoryFor(score, r)
	sort.Strings(matched)

	return Result{
		Score:           score,
		Category:        category,
		SuggestedAction: suggestAction(score, category, batch, r),
		Matched:         matched,
	}
}

// Clamp bounds s to [MinScore, MaxScore].
func Clamp(s int) int {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}

// CategoryFor maps a score to its tier. Both threshold ends are Researcher.
func CategoryFor(score int, r Rules) model.Category {
	switch {
	case score < r.BouncerBelow:
		return model.CategoryBouncer
	case score > r.LeadAbove:
		return model.CategoryLead
	default:
		return model.CategoryResearcher
	}
}

func suggestAction(score int, category model.Category, batch *model.SignalBatch, r Rules) *string {
	if batch.HasEvent(model.EventExitIntent) {
		if category == model.CategoryLead {
			return strPtr(r.Actions.RetentionOffer)
		}
		return nil
	}
	switch {
	case score > r.PriorityContactAbove:
		return strPtr(r.Actions.PriorityContact)
	case score > r.SoftContactAbove:
		return strPtr(r.Actions.SoftContact)
	default:
		return nil
	}
}

func matchKeyword(rules []KeywordRule, identifier string) (KeywordRule, bool) {
	id := strings.ToLower(identifier)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(id, strings.ToLower(kw)) {
				return rule, true
			}
		}
	}
	return KeywordRule{}, false
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
