package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/intent/internal/contextlookup"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/scoring"
	"github.com/raysh454/intent/internal/store"
	"github.com/raysh454/intent/internal/synthesis"
	"github.com/raysh454/intent/internal/testutil"
)

// ─── Fakes ─────────────────────────────────────────────────────────────

type fakeTemplates struct {
	tpl   *model.Template
	err   error
	calls int
}

func (f *fakeTemplates) ActiveTemplate(_ context.Context, _, _ string) (*model.Template, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.tpl == nil {
		return nil, store.ErrNotFound
	}
	return f.tpl, nil
}

type fakePrompts struct {
	text string
	err  error
	keys []string
}

func (f *fakePrompts) ActivePrompt(_ context.Context, _, key string) (string, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return "", f.err
	}
	if f.text == "" {
		return "", store.ErrNotFound
	}
	return f.text, nil
}

type fakeTokens struct {
	tokens map[string]string
	err    error
}

func (f *fakeTokens) Tokens(context.Context, *model.Site) (map[string]string, error) {
	return f.tokens, f.err
}

type fixture struct {
	templates *fakeTemplates
	prompts   *fakePrompts
	lookup    *testutil.DummyLookup
	gen       *synthesis.FakeGenerator
	logger    *testutil.DummyLogger
	router    *Router
}

func newFixture() *fixture {
	f := &fixture{
		templates: &fakeTemplates{},
		prompts:   &fakePrompts{},
		lookup:    &testutil.DummyLookup{Context: "Pricing (https://shop.test/pricing): Plans start at $10."},
		gen: &synthesis.FakeGenerator{Raw: synthesis.Raw{
			Selector: "#pricing",
			HTML:     `<div class="offer"><button class="adaptive-ui-close">x</button></div>`,
		}},
		logger: &testutil.DummyLogger{},
	}
	f.router = New(Deps{
		Templates: f.templates,
		Prompts:   f.prompts,
		Lookup:    f.lookup,
		Synth:     synthesis.NewAdapter(f.gen, f.logger),
		Logger:    f.logger,
	}, DefaultConfig())
	return f
}

func site(pregenerated bool) *model.Site {
	return &model.Site{
		ID:           "site-1",
		Active:       true,
		Settings:     model.SiteSettings{UsePregenerated: pregenerated},
		StyleContext: "dark, rounded corners",
	}
}

func lead(action string) scoring.Result {
	return scoring.Result{Score: 85, Category: model.CategoryLead, SuggestedAction: &action}
}

// ─── Intent key & trigger ──────────────────────────────────────────────

func TestResolveIntentKey_Priority(t *testing.T) {
	exit := []model.Event{{Type: model.EventExitIntent}}
	cases := []struct {
		name     string
		batch    *model.SignalBatch
		category model.Category
		want     string
	}{
		{"exit beats everything", &model.SignalBatch{Events: exit, Hesitation: true}, model.CategoryLead, KeyBounceRisk},
		{"hesitation beats lead", &model.SignalBatch{Hesitation: true}, model.CategoryLead, KeyHesitation},
		{"lead", &model.SignalBatch{}, model.CategoryLead, KeyHighIntent},
		{"researcher", &model.SignalBatch{}, model.CategoryResearcher, KeyResearcher},
		{"bouncer", &model.SignalBatch{}, model.CategoryBouncer, ""},
		{"nil batch", nil, model.CategoryBouncer, ""},
	}
	for _, tc := range cases {
		if got := ResolveIntentKey(tc.batch, tc.category); got != tc.want {
			t.Errorf("%s: key = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestShouldTrigger(t *testing.T) {
	action := "x"
	if ShouldTrigger("", model.CategoryBouncer, nil) {
		t.Error("bouncer with no key and no action should not trigger")
	}
	if !ShouldTrigger("", model.CategoryBouncer, &action) {
		t.Error("suggested action should trigger")
	}
	if !ShouldTrigger("", model.CategoryLead, nil) {
		t.Error("lead should trigger")
	}
	if !ShouldTrigger(KeyResearcher, model.CategoryResearcher, nil) {
		t.Error("resolved key should trigger")
	}
}

// ─── Query & instruction ───────────────────────────────────────────────

func TestBuildQuery_PriorityOrder(t *testing.T) {
	batch := &model.SignalBatch{
		CopiedText:     []string{"enterprise plan"},
		TextSelections: []string{"single sign-on"},
		DwellTime: map[string]float64{
			"pricing-table": 12,
			"hero":          1,
			"faqSection":    5,
			"api_docs":      5,
		},
		DeadClicks: []model.DeadClick{{Selector: "p.note"}},
	}
	got := BuildQuery(batch, 0)
	want := "enterprise plan; single sign-on; pricing table; api docs; faq section; " + frustrationPhrase
	if got != want {
		t.Errorf("query =\n  %q\nwant\n  %q", got, want)
	}
}

func TestBuildQuery_DefaultAndTruncation(t *testing.T) {
	if got := BuildQuery(&model.SignalBatch{}, 0); got != DefaultQuery {
		t.Errorf("empty batch query = %q", got)
	}
	if got := BuildQuery(nil, 0); got != DefaultQuery {
		t.Errorf("nil batch query = %q", got)
	}
	long := &model.SignalBatch{CopiedText: []string{strings.Repeat("a", 100)}}
	if got := BuildQuery(long, 20); len(got) != 20 {
		t.Errorf("truncated len = %d, want 20", len(got))
	}
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"pricing-table": "pricing table",
		"api_docs":      "api docs",
		"faqSection":    "faq section",
		"#hero":         "hero",
		"plan2Details":  "plan2 details",
		"":              "",
	}
	for in, want := range cases {
		if got := Humanize(in); got != want {
			t.Errorf("Humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildInstruction_Narrative(t *testing.T) {
	got := BuildInstruction("Offer a demo.", Narrative{
		ScrollDepth: 92,
		Selections:  []string{"a", "b", "c", "d"},
		DeadClicks:  2,
		Referrer:    "https://news.google.co.uk/story",
		CurrentURL:  "https://shop.test/pricing",
	})
	for _, want := range []string{
		"Offer a demo.",
		"read nearly the full page",
		`"a", "b", "c".`,
		"did not respond",
		"arrived from google.co.uk",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("instruction missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, `"d"`) {
		t.Errorf("only the first three selections belong in the narrative: %s", got)
	}
}

func TestBuildInstruction_NoNarrative(t *testing.T) {
	got := BuildInstruction("Offer a demo.", Narrative{
		ScrollDepth: 80,
		Referrer:    "https://shop.test/",
		CurrentURL:  "https://shop.test/pricing",
	})
	if got != "Offer a demo." {
		t.Errorf("instruction = %q, want base only", got)
	}
}

// ─── Route ─────────────────────────────────────────────────────────────

func TestRoute_PregeneratedTemplateVerbatimWithoutLookup(t *testing.T) {
	f := newFixture()
	tpl := model.AdaptivePayload{
		Selector: "body",
		HTML:     `<aside>Stay! <span class="adaptive-ui-close">close</span></aside>`,
		CSS:      "aside{color:red}",
		JS:       "console.log(1)",
	}
	f.templates.tpl = &model.Template{SiteID: "site-1", IntentKey: KeyBounceRisk, Payload: tpl, Active: true}

	out := f.router.Route(context.Background(), Input{
		Site:   site(true),
		Batch:  &model.SignalBatch{Events: []model.Event{{Type: model.EventExitIntent}}},
		Result: lead("retain"),
	})

	if out.Source != SourcePregenerated || out.Payload == nil {
		t.Fatalf("outcome = %+v, want pregenerated payload", out)
	}
	if *out.Payload != tpl {
		t.Errorf("payload altered:\n got %+v\nwant %+v", *out.Payload, tpl)
	}
	if out.IntentKey != KeyBounceRisk {
		t.Errorf("intent key = %q", out.IntentKey)
	}
	if f.lookup.Calls() != 0 {
		t.Errorf("lookup called %d times, want 0", f.lookup.Calls())
	}
	if f.gen.CallCount() != 0 {
		t.Errorf("generator called %d times, want 0", f.gen.CallCount())
	}
}

func TestRoute_PregeneratedFallsThrough(t *testing.T) {
	cases := []struct {
		name string
		tpl  *model.Template
		err  error
	}{
		{"missing", nil, nil},
		{"empty html", &model.Template{Payload: model.AdaptivePayload{Selector: "body"}}, nil},
		{"store error", nil, errors.New("disk on fire")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.templates.tpl, f.templates.err = tc.tpl, tc.err

			out := f.router.Route(context.Background(), Input{
				Site:   site(true),
				Batch:  &model.SignalBatch{},
				Result: lead("Book a call."),
			})
			if out.Source != SourceOnDemand || out.Payload == nil {
				t.Fatalf("outcome = %+v, want on-demand payload", out)
			}
			if f.gen.CallCount() != 1 {
				t.Errorf("generator calls = %d, want 1", f.gen.CallCount())
			}
		})
	}
}

func TestRoute_OnDemandWhenPregeneratedDisabled(t *testing.T) {
	f := newFixture()
	f.templates.tpl = &model.Template{Payload: model.AdaptivePayload{HTML: "<p>x</p>"}}

	out := f.router.Route(context.Background(), Input{
		Site:   site(false),
		Batch:  &model.SignalBatch{CopiedText: []string{"enterprise plan"}, URL: "https://shop.test/pricing"},
		Result: lead("Book a call."),
	})

	if f.templates.calls != 0 {
		t.Errorf("template store consulted %d times with pregenerated off", f.templates.calls)
	}
	if out.Source != SourceOnDemand {
		t.Fatalf("source = %q", out.Source)
	}
	if out.Payload.Selector != "#pricing" {
		t.Errorf("selector = %q", out.Payload.Selector)
	}
	if n := synthesis.DismissCount(out.Payload.HTML); n != 1 {
		t.Errorf("dismiss controls = %d, want 1", n)
	}

	req := f.gen.LastCall()
	if req.HTMLContext != f.lookup.Context {
		t.Errorf("html context = %q", req.HTMLContext)
	}
	if req.StyleContext != "dark, rounded corners" {
		t.Errorf("style context = %q", req.StyleContext)
	}
	if !strings.HasPrefix(req.Instruction, "Book a call.") {
		t.Errorf("instruction = %q, want suggested action first", req.Instruction)
	}
	if got := f.lookup.Queries[0]; got != "enterprise plan" {
		t.Errorf("query = %q", got)
	}
}

func TestRoute_OperatorPromptWins(t *testing.T) {
	f := newFixture()
	f.prompts.text = "Show the enterprise tier comparison."

	f.router.Route(context.Background(), Input{
		Site:   site(false),
		Batch:  &model.SignalBatch{},
		Result: lead("Book a call."),
	})

	if got := f.gen.LastCall().Instruction; !strings.HasPrefix(got, "Show the enterprise tier comparison.") {
		t.Errorf("instruction = %q", got)
	}
	if len(f.prompts.keys) != 1 || f.prompts.keys[0] != KeyHighIntent {
		t.Errorf("prompt keys = %v", f.prompts.keys)
	}
}

func TestRoute_DefaultInstructionWithoutAction(t *testing.T) {
	f := newFixture()
	f.router.Route(context.Background(), Input{
		Site:   site(false),
		Batch:  &model.SignalBatch{},
		Result: scoring.Result{Score: 45, Category: model.CategoryResearcher},
	})
	if got := f.gen.LastCall().Instruction; got != DefaultConfig().DefaultInstruction {
		t.Errorf("instruction = %q", got)
	}
}

func TestRoute_SessionFillsNarrative(t *testing.T) {
	f := newFixture()
	f.router.Route(context.Background(), Input{
		Site: site(false),
		Session: &model.Session{
			MaxScrollDepth: 95,
			Referrer:       "https://www.linkedin.com/feed",
		},
		Batch:  &model.SignalBatch{ScrollDepth: 20, URL: "https://shop.test/"},
		Result: lead("Book a call."),
	})
	got := f.gen.LastCall().Instruction
	if !strings.Contains(got, "full page") {
		t.Errorf("session max depth not used: %q", got)
	}
	if !strings.Contains(got, "linkedin.com") {
		t.Errorf("session referrer not used: %q", got)
	}
}

func TestRoute_NoContextIsNotFatal(t *testing.T) {
	f := newFixture()
	f.lookup.Err = contextlookup.ErrNoContext

	out := f.router.Route(context.Background(), Input{Site: site(false), Batch: &model.SignalBatch{}, Result: lead("a")})
	if out.Payload == nil {
		t.Fatal("missing context should still produce a payload")
	}
	if got := f.gen.LastCall().HTMLContext; got != "" {
		t.Errorf("html context = %q, want empty", got)
	}
}

func TestRoute_DesignTokens(t *testing.T) {
	f := newFixture()
	tokens := &fakeTokens{tokens: map[string]string{"--brand": "#123456"}}
	f.router.deps.Tokens = tokens

	f.router.Route(context.Background(), Input{Site: site(false), Batch: &model.SignalBatch{}, Result: lead("a")})
	if got := f.gen.LastCall().DesignTokens["--brand"]; got != "#123456" {
		t.Errorf("probed token = %q", got)
	}

	s := site(false)
	s.DesignTokens = map[string]string{"--brand": "#abcdef"}
	f.router.Route(context.Background(), Input{Site: s, Batch: &model.SignalBatch{}, Result: lead("a")})
	if got := f.gen.LastCall().DesignTokens["--brand"]; got != "#abcdef" {
		t.Errorf("configured token = %q", got)
	}

	tokens.tokens, tokens.err = nil, errors.New("probe failed")
	out := f.router.Route(context.Background(), Input{Site: site(false), Batch: &model.SignalBatch{}, Result: lead("a")})
	if out.Payload == nil {
		t.Error("token probe failure should not drop the payload")
	}
}

func TestRoute_FailuresYieldNoPayload(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture)
	}{
		{"lookup error", func(f *fixture) { f.lookup.Err = errors.New("vector store down") }},
		{"prompt store error", func(f *fixture) { f.prompts.err = errors.New("locked") }},
		{"generator error", func(f *fixture) { f.gen.Err = errors.New("model timeout") }},
		{"malformed output", func(f *fixture) { f.gen.Err = synthesis.ErrMalformedOutput }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			tc.setup(f)

			out := f.router.Route(context.Background(), Input{Site: site(false), Batch: &model.SignalBatch{}, Result: lead("a")})
			if out.Payload != nil {
				t.Errorf("payload = %+v, want nil", out.Payload)
			}
			if out.IntentKey != KeyHighIntent {
				t.Errorf("intent key = %q, should survive failure", out.IntentKey)
			}
			if f.logger.WarnCount("no adaptive payload") != 1 {
				t.Errorf("warns = %v", f.logger.Warns)
			}
		})
	}
}

func TestRoute_NoTrigger(t *testing.T) {
	f := newFixture()
	out := f.router.Route(context.Background(), Input{
		Site:   site(false),
		Batch:  &model.SignalBatch{},
		Result: scoring.Result{Score: 10, Category: model.CategoryBouncer},
	})
	if out.Payload != nil || out.IntentKey != "" {
		t.Errorf("outcome = %+v, want empty", out)
	}
	if f.lookup.Calls() != 0 || f.gen.CallCount() != 0 {
		t.Error("untriggered route must not reach external collaborators")
	}
}

func TestRoute_Timeout(t *testing.T) {
	f := newFixture()
	r := New(Deps{
		Lookup: lookupFunc(func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}),
		Synth:  synthesis.NewAdapter(f.gen, f.logger),
		Logger: f.logger,
	}, Config{Timeout: 20 * time.Millisecond})

	start := time.Now()
	out := r.Route(context.Background(), Input{Site: site(false), Batch: &model.SignalBatch{}, Result: lead("a")})
	if out.Payload != nil {
		t.Error("timed-out route should carry no payload")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("route took %v, timeout not applied", elapsed)
	}
}

type lookupFunc func(ctx context.Context) (string, error)

func (f lookupFunc) Fetch(ctx context.Context, _, _, _ string) (string, error) { return f(ctx) }
