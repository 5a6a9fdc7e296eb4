package model

import "testing"

func TestSignalBatch_IsEmpty(t *testing.T) {
	var nilBatch *SignalBatch
	if !nilBatch.IsEmpty() {
		t.Error("nil batch should be empty")
	}

	b := &SignalBatch{URL: "https://example.com/", Referrer: "https://google.com/"}
	if !b.IsEmpty() {
		t.Error("URL and referrer alone are not signals")
	}

	cases := []struct {
		name  string
		batch SignalBatch
	}{
		{"dwell", SignalBatch{DwellTime: map[string]float64{"a": 1}}},
		{"depth", SignalBatch{ScrollDepth: 10}},
		{"hesitation", SignalBatch{Hesitation: true}},
		{"copy", SignalBatch{CopiedText: []string{"x"}}},
		{"event", SignalBatch{Events: []Event{{Type: EventPageView}}}},
		{"trace", SignalBatch{MouseTrace: []MousePoint{{X: 1}}}},
	}
	for _, tc := range cases {
		if tc.batch.IsEmpty() {
			t.Errorf("%s: expected non-empty", tc.name)
		}
	}
}

func TestSignalBatch_EventsAndDwell(t *testing.T) {
	b := &SignalBatch{
		DwellTime: map[string]float64{"pricing": 2.5, "hero": 1.5},
		Events: []Event{
			{Type: EventPageView},
			{Type: "PAGE_VIEW"},
			{Type: EventExitIntent},
		},
	}
	if got := b.CountEvents(EventPageView); got != 2 {
		t.Errorf("CountEvents(page_view) = %d, want 2", got)
	}
	if !b.HasEvent(EventExitIntent) {
		t.Error("expected exit intent")
	}
	if got := b.TotalDwellSeconds(); got != 4 {
		t.Errorf("TotalDwellSeconds = %v, want 4", got)
	}
}

func TestSiteConfig_DomainAllowed(t *testing.T) {
	c := SiteConfig{AllowedDomains: []string{"example.com", " Shop.Acme.io "}}

	cases := map[string]bool{
		"example.com":      true,
		"www.example.com":  true,
		"shop.acme.io":     true,
		"acme.io":          false,
		"evil-example.org": false,
		"EXAMPLE.COM:8443": true,
	}
	for host, want := range cases {
		if got := c.DomainAllowed(host); got != want {
			t.Errorf("DomainAllowed(%q) = %v, want %v", host, got, want)
		}
	}

	if !(SiteConfig{}).DomainAllowed("anything.test") {
		t.Error("empty allow list should allow every host")
	}
}

func TestAdaptivePayload_Targets(t *testing.T) {
	var p *AdaptivePayload
	if !p.IsEmpty() || !p.IsGenericTarget() {
		t.Error("nil payload is empty and generic")
	}
	anchored := &AdaptivePayload{Selector: "#pricing", HTML: "<p>x</p>"}
	if anchored.IsEmpty() || anchored.IsGenericTarget() {
		t.Error("anchored payload misclassified")
	}
}
