package scoring

import (
	"math/rand"
	"testing"

	"github.com/raysh454/intent/internal/model"
)

func newEngine() *Engine {
	return NewEngine(DefaultRules())
}

func TestScore_ScenarioA_PricingDwellDeepScroll(t *testing.T) {
	e := newEngine()
	batch := &model.SignalBatch{
		DwellTime:   map[string]float64{"pricing-table": 12},
		ScrollDepth: 80,
	}

	res := e.Score(40, batch)

	if res.Score != 65 {
		t.Fatalf("score = %d, want 65", res.Score)
	}
	if res.Category != model.CategoryResearcher {
		t.Errorf("category = %s, want Researcher", res.Category)
	}
	if res.SuggestedAction == nil || *res.SuggestedAction != DefaultRules().Actions.SoftContact {
		t.Errorf("suggested action = %v, want soft contact", res.SuggestedAction)
	}
}

func TestScore_ScenarioB_ExitIntentLead(t *testing.T) {
	e := newEngine()
	batch := &model.SignalBatch{Events: []model.Event{{Type: model.EventExitIntent}}}

	res := e.Score(90, batch)

	if res.Category != model.CategoryLead {
		t.Fatalf("category = %s, want Lead", res.Category)
	}
	if res.SuggestedAction == nil || *res.SuggestedAction != DefaultRules().Actions.RetentionOffer {
		t.Errorf("suggested action = %v, want retention offer", res.SuggestedAction)
	}
}

func TestScore_ExitIntentWithoutLeadHasNoAction(t *testing.T) {
	e := newEngine()
	for _, prev := range []int{10, 40, 60, 70} {
		batch := &model.SignalBatch{Events: []model.Event{{Type: model.EventExitIntent}}}
		res := e.Score(prev, batch)
		if res.Category == model.CategoryLead {
			t.Fatalf("prev %d unexpectedly Lead", prev)
		}
		if res.SuggestedAction != nil {
			t.Errorf("prev %d: expected nil action with exit intent, got %q", prev, *res.SuggestedAction)
		}
	}
}

func TestScore_ZeroIsReseeded(t *testing.T) {
	e := newEngine()

	if got := e.Score(0, &model.SignalBatch{}).Score; got != 40 {
		t.Errorf("empty batch on zero: score = %d, want 40", got)
	}
	if got := e.Score(0, nil).Score; got != 40 {
		t.Errorf("nil batch on zero: score = %d, want 40", got)
	}
	batch := &model.SignalBatch{CopiedText: []string{"enterprise plan"}}
	if got := e.Score(0, batch).Score; got != 55 {
		t.Errorf("copy on zero: score = %d, want 55", got)
	}
}

func TestScore_EmptyBatchKeepsScore(t *testing.T) {
	e := newEngine()
	for _, prev := range []int{1, 29, 40, 71, 100} {
		if got := e.Score(prev, &model.SignalBatch{URL: "https://x.test/"}).Score; got != prev {
			t.Errorf("prev %d: empty batch changed score to %d", prev, got)
		}
	}
}

func TestCategoryFor_Boundaries(t *testing.T) {
	r := DefaultRules()
	cases := []struct {
		score int
		want  model.Category
	}{
		{0, model.CategoryBouncer},
		{29, model.CategoryBouncer},
		{30, model.CategoryResearcher},
		{70, model.CategoryResearcher},
		{71, model.CategoryLead},
		{100, model.CategoryLead},
	}
	for _, tc := range cases {
		if got := CategoryFor(tc.score, r); got != tc.want {
			t.Errorf("CategoryFor(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestScore_KeywordFirstFamilyWins(t *testing.T) {
	e := newEngine()
	// "pricing-reviews" matches pricing (+15) and social proof (+10); only pricing counts.
	res := e.Score(40, &model.SignalBatch{DwellTime: map[string]float64{"Pricing-Reviews": 3}})
	if res.Score != 55 {
		t.Errorf("score = %d, want 55", res.Score)
	}

	// Weights apply once per element, summed across elements.
	res = e.Score(40, &model.SignalBatch{DwellTime: map[string]float64{
		"feature-grid":      1,
		"customer-review-1": 1,
		"api-docs":          1,
		"hero":              1,
	}})
	if res.Score != 60 {
		t.Errorf("score = %d, want 60", res.Score)
	}
}

func TestScore_SignalWeights(t *testing.T) {
	e := newEngine()
	cases := []struct {
		name  string
		batch model.SignalBatch
		want  int
	}{
		{"fast scroll", model.SignalBatch{ScrollVelocity: 2500}, 30},
		{"exactly threshold velocity", model.SignalBatch{ScrollVelocity: 2000}, 40},
		{"selection", model.SignalBatch{TextSelections: []string{"single sign-on"}}, 50},
		{"hesitation", model.SignalBatch{Hesitation: true}, 50},
		{"depth 75 is mid", model.SignalBatch{ScrollDepth: 75}, 45},
		{"depth 50 is mid", model.SignalBatch{ScrollDepth: 50}, 45},
		{"depth 49 nothing", model.SignalBatch{ScrollDepth: 49}, 40},
		{"rage", model.SignalBatch{RageClicks: 2}, 45},
		{"dead", model.SignalBatch{DeadClicks: []model.DeadClick{{Selector: "p"}}}, 45},
		{"rage and dead once", model.SignalBatch{RageClicks: 1, DeadClicks: []model.DeadClick{{Selector: "p"}}}, 45},
	}
	for _, tc := range cases {
		batch := tc.batch
		if got := e.Score(40, &batch).Score; got != tc.want {
			t.Errorf("%s: score = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestScore_SuggestedActionThresholds(t *testing.T) {
	e := newEngine()
	a := DefaultRules().Actions
	cases := []struct {
		prev int
		want string
	}{
		{81, a.PriorityContact},
		{80, a.SoftContact},
		{51, a.SoftContact},
		{50, ""},
		{20, ""},
	}
	for _, tc := range cases {
		res := e.Score(tc.prev, &model.SignalBatch{})
		got := ""
		if res.SuggestedAction != nil {
			got = *res.SuggestedAction
		}
		if got != tc.want {
			t.Errorf("prev %d: action = %q, want %q", tc.prev, got, tc.want)
		}
	}
}

func TestScore_AlwaysClamped(t *testing.T) {
	e := newEngine()
	rng := rand.New(rand.NewSource(7))
	ids := []string{"pricing", "features", "reviews", "docs", "hero", "price-calc", "tech-specs"}

	for i := 0; i < 2000; i++ {
		b := &model.SignalBatch{
			DwellTime:      map[string]float64{},
			ScrollVelocity: rng.Float64() * 5000,
			ScrollDepth:    rng.Float64() * 100,
			Hesitation:     rng.Intn(2) == 0,
			RageClicks:     rng.Intn(3),
		}
		for _, id := range ids {
			if rng.Intn(2) == 0 {
				b.DwellTime[id] = rng.Float64() * 30
			}
		}
		if rng.Intn(2) == 0 {
			b.CopiedText = []string{"x"}
		}
		if rng.Intn(2) == 0 {
			b.TextSelections = []string{"y"}
		}

		prev := rng.Intn(101)
		res := e.Score(prev, b)
		if res.Score < MinScore || res.Score > MaxScore {
			t.Fatalf("score %d out of range for prev %d", res.Score, prev)
		}
		if res.Category != CategoryFor(res.Score, DefaultRules()) {
			t.Fatalf("category %s inconsistent with score %d", res.Category, res.Score)
		}
	}

	if got := e.Score(100, &model.SignalBatch{CopiedText: []string{"a"}, Hesitation: true}).Score; got != 100 {
		t.Errorf("upper clamp: got %d", got)
	}
	if got := e.Score(5, &model.SignalBatch{ScrollVelocity: 9000}).Score; got != 0 {
		t.Errorf("lower clamp: got %d", got)
	}
}

func TestScore_Deterministic(t *testing.T) {
	e := newEngine()
	b := &model.SignalBatch{
		DwellTime:   map[string]float64{"pricing": 1, "reviews": 2, "docs": 3, "features": 4},
		ScrollDepth: 90,
	}
	first := e.Score(40, b)
	for i := 0; i < 50; i++ {
		again := e.Score(40, b)
		if again.Score != first.Score || len(again.Matched) != len(first.Matched) {
			t.Fatalf("non-deterministic result: %+v vs %+v", again, first)
		}
		for j := range again.Matched {
			if again.Matched[j] != first.Matched[j] {
				t.Fatalf("matched order differs: %v vs %v", again.Matched, first.Matched)
			}
		}
	}
}

func TestScore_CustomRuleTable(t *testing.T) {
	r := DefaultRules()
	r.Keywords = []KeywordRule{{Family: "demo", Keywords: []string{"demo"}, Weight: 30}}
	e := NewEngine(r)

	if got := e.Score(40, &model.SignalBatch{DwellTime: map[string]float64{"book-demo": 1, "pricing": 1}}).Score; got != 70 {
		t.Errorf("score = %d, want 70", got)
	}
}
