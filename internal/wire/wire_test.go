package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/raysh454/intent/internal/model"
)

func TestEncodeDecode_RoundTripsSignals(t *testing.T) {
	batch := &model.SignalBatch{
		DwellTime:      map[string]float64{"pricing-table": 12.5},
		ScrollVelocity: 2400,
		ScrollDepth:    81,
		Hesitation:     true,
		RageClicks:     1,
		CopiedText:     []string{"SOC 2 report"},
		TextSelections: []string{"single sign-on"},
		DeadClicks:     []model.DeadClick{{Selector: "div.hero > img", X: 10, Y: 20, Time: 1700000000000}},
		Events:         []model.Event{{Type: model.EventPageView, Timestamp: 1700000000000}},
		Interactions:   map[string]model.Interaction{"#buy": {Clicks: 2, LastSeen: 1700000000000}},
		Forms:          map[string]model.FormActivity{"signup": {Inputs: 3, FieldsTouched: []string{"email"}}},
		Performance:    map[string]float64{"lcp": 1200},
		Errors:         []model.ErrorEntry{{Message: "TypeError", Time: 1}},
		MouseTrace:     []model.MousePoint{{X: 1, Y: 2, T: 3}},
		URL:            "https://acme.io/pricing",
		Referrer:       "https://google.com/",
	}
	data, err := Encode(Meta{SiteID: "acme", AccessKey: "k", SessionID: "s1", UserAgent: "ua", ClientTimestamp: 42}, batch)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// nested structures travel as strings
	var probe map[string]map[string]any
	if err := json.Unmarshal(data, &probe); err != nil {
		t.Fatal(err)
	}
	if _, ok := probe["signals"]["dwell_time"].(string); !ok {
		t.Errorf("expected dwell_time to be a JSON string, got %T", probe["signals"]["dwell_time"])
	}

	env, got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.SiteID != "acme" || env.SessionID != "s1" || env.AccessKey != "k" || env.ClientTimestamp != 42 {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if got.DwellTime["pricing-table"] != 12.5 || got.ScrollDepth != 81 || !got.Hesitation || got.RageClicks != 1 {
		t.Errorf("unexpected scalar signals: %+v", got)
	}
	if len(got.DeadClicks) != 1 || got.DeadClicks[0].Selector != "div.hero > img" {
		t.Errorf("dead clicks = %+v", got.DeadClicks)
	}
	if got.Interactions["#buy"].Clicks != 2 || got.Forms["signup"].Inputs != 3 {
		t.Errorf("interactions/forms not decoded: %+v %+v", got.Interactions, got.Forms)
	}
	if got.URL != batch.URL || got.Referrer != batch.Referrer {
		t.Errorf("url/referrer = %q %q", got.URL, got.Referrer)
	}
	if !got.HasEvent(model.EventPageView) {
		t.Error("expected page_view event")
	}
}

func TestDecode_AcceptsPlainNestedJSON(t *testing.T) {
	data := []byte(`{
		"site_id": "acme", "session_id": "s1",
		"signals": {
			"dwell_time": {"docs": 3},
			"events": [{"type": "exit_intent", "timestamp": 5}],
			"copied_text": "[\"a\",\"b\"]"
		}
	}`)
	_, b, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b.DwellTime["docs"] != 3 || !b.HasEvent(model.EventExitIntent) {
		t.Errorf("unexpected batch: %+v", b)
	}
	if len(b.CopiedText) != 2 {
		t.Errorf("copied text = %v", b.CopiedText)
	}
}

func TestDecode_EmptyBatch(t *testing.T) {
	env, b, err := Decode([]byte(`{"site_id":"acme","session_id":"s1","url":"https://acme.io/"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !b.IsEmpty() {
		t.Errorf("expected empty batch, got %+v", b)
	}
	if string(env.Signals) != "{}" {
		t.Errorf("signals = %s, want {}", env.Signals)
	}
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":           `{nope`,
		"array":              `[]`,
		"missing site":       `{"session_id":"s"}`,
		"missing session":    `{"site_id":"a"}`,
		"bad nested":         `{"site_id":"a","session_id":"s","signals":{"events":"[{oops"}}`,
		"wrong nested type":  `{"site_id":"a","session_id":"s","signals":{"dwell_time":7}}`,
		"negative dwell":     `{"site_id":"a","session_id":"s","signals":{"dwell_time":{"x":-1}}}`,
		"depth out of range": `{"site_id":"a","session_id":"s","signals":{"scroll_depth":140}}`,
		"signals not object": `{"site_id":"a","session_id":"s","signals":[1]}`,
	}
	for name, body := range cases {
		if _, _, err := Decode([]byte(body)); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}
