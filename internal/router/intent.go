package router

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/utils"
)

// Intent keys, in resolution priority order.
const (
	KeyBounceRisk = "bounce_risk"
	KeyHesitation = "hesitation"
	KeyHighIntent = "high_intent"
	KeyResearcher = "researcher"
)

const (
	DefaultQuery       = "general product information and next steps"
	frustrationPhrase  = "trouble finding a working link or button"
	topDwellCount      = 3
	highlightCount     = 3
	fullPageDepthAbove = 80
)

// ResolveIntentKey returns the first matching key, or "" when none applies.
func ResolveIntentKey(batch *model.SignalBatch, category model.Category) string {
	switch {
	case batch.HasEvent(model.EventExitIntent):
		return KeyBounceRisk
	case batch != nil && batch.Hesitation:
		return KeyHesitation
	case category == model.CategoryLead:
		return KeyHighIntent
	case category == model.CategoryResearcher:
		return KeyResearcher
	default:
		return ""
	}
}

// ShouldTrigger reports whether a payload should be produced at all.
func ShouldTrigger(intentKey string, category model.Category, action *string) bool {
	return intentKey != "" || category == model.CategoryLead || action != nil
}

// BuildQuery assembles the content lookup query. Parts are ordered by
// priority so truncation drops the weakest evidence first.
func BuildQuery(batch *model.SignalBatch, maxChars int) string {
	var parts []string
	if batch != nil {
		for _, s := range batch.CopiedText {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		for _, s := range batch.TextSelections {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		for _, id := range TopDwell(batch.DwellTime, topDwellCount) {
			if h := Humanize(id); h != "" {
				parts = append(parts, h)
			}
		}
		if len(batch.DeadClicks) > 0 {
			parts = append(parts, frustrationPhrase)
		}
	}
	if len(parts) == 0 {
		return DefaultQuery
	}

	q := strings.Join(parts, "; ")
	if maxChars > 0 {
		if r := []rune(q); len(r) > maxChars {
			q = strings.TrimSpace(string(r[:maxChars]))
		}
	}
	return q
}

// TopDwell returns up to n identifiers with the longest dwell, ties broken by name.
func TopDwell(dwell map[string]float64, n int) []string {
	ids := make([]string, 0, len(dwell))
	for id := range dwell {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if dwell[ids[i]] != dwell[ids[j]] {
			return dwell[ids[i]] > dwell[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// Humanize turns "pricing-table", "pricing_table" or "pricingTable" into "pricing table".
func Humanize(id string) string {
	id = strings.TrimLeft(strings.TrimSpace(id), "#.")
	var b strings.Builder
	prevLower := false
	for _, r := range id {
		switch {
		case r == '-' || r == '_' || r == '.' || unicode.IsSpace(r):
			b.WriteRune(' ')
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteRune(' ')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Narrative carries the behavioral facts appended to an instruction.
type Narrative struct {
	ScrollDepth float64
	Selections  []string
	DeadClicks  int
	Referrer    string
	CurrentURL  string
}

// BuildInstruction appends the behavioral narrative to base.
func BuildInstruction(base string, n Narrative) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(base))

	add := func(s string) {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(s)
	}
	if n.ScrollDepth > fullPageDepthAbove {
		add("The visitor has read nearly the full page.")
	}
	if len(n.Selections) > 0 {
		sel := n.Selections
		if len(sel) > highlightCount {
			sel = sel[:highlightCount]
		}
		quoted := make([]string, len(sel))
		for i, s := range sel {
			quoted[i] = fmt.Sprintf("%q", strings.TrimSpace(s))
		}
		add("They highlighted " + strings.Join(quoted, ", ") + ".")
	}
	if n.DeadClicks > 0 {
		add("They clicked on elements that did not respond, so make the next step obvious.")
	}
	if utils.CrossSite(n.Referrer, n.CurrentURL) {
		add("They arrived from " + utils.RegistrableDomain(utils.Hostname(n.Referrer)) + ".")
	}
	return b.String()
}
