package styleprobe

import (
	"context"
	"testing"

	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/testutil"
)

const homePage = `<!doctype html>
<html><head>
<meta name="theme-color" content="#0a84ff">
<style>
:root { --brand-primary: #0a84ff; --radius: 8px; }
body { font-family: "Inter", sans-serif; }
.btn { --radius: 2px; }
</style>
</head><body><h1>Acme</h1></body></html>`

func TestExtract(t *testing.T) {
	tokens, err := Extract([]byte(homePage))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := map[string]string{
		"theme-color":     "#0a84ff",
		"font-family":     `"Inter", sans-serif`,
		"--brand-primary": "#0a84ff",
		"--radius":        "8px",
	}
	for k, v := range want {
		if tokens[k] != v {
			t.Errorf("%s = %q, want %q", k, tokens[k], v)
		}
	}
}

func TestProbe_CachesPerSite(t *testing.T) {
	wc := &testutil.DummyWebClient{Responses: map[string]string{"https://acme.io/": homePage}}
	p := New(wc, nil)
	site := &model.Site{ID: "acme", HomeURL: "https://acme.io/"}

	for i := 0; i < 3; i++ {
		tokens, err := p.Tokens(context.Background(), site)
		if err != nil {
			t.Fatalf("Tokens: %v", err)
		}
		if tokens["theme-color"] != "#0a84ff" {
			t.Fatalf("tokens = %v", tokens)
		}
	}
	if n := wc.RequestCount(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestProbe_ConfiguredTokensWin(t *testing.T) {
	wc := &testutil.DummyWebClient{}
	p := New(wc, nil)
	site := &model.Site{ID: "acme", HomeURL: "https://acme.io/", DesignTokens: map[string]string{"accent": "red"}}

	tokens, _ := p.Tokens(context.Background(), site)
	if tokens["accent"] != "red" || wc.RequestCount() != 0 {
		t.Errorf("tokens=%v requests=%d", tokens, wc.RequestCount())
	}
}

func TestProbe_FailureNotCached(t *testing.T) {
	wc := &testutil.DummyWebClient{FailURLs: map[string]bool{"https://acme.io/": true}}
	p := New(wc, nil)
	site := &model.Site{ID: "acme", HomeURL: "https://acme.io/"}

	if _, err := p.Tokens(context.Background(), site); err == nil {
		t.Fatal("expected error")
	}
	wc.FailURLs = nil
	wc.Responses = map[string]string{"https://acme.io/": homePage}
	if tokens, err := p.Tokens(context.Background(), site); err != nil || tokens["--radius"] != "8px" {
		t.Errorf("retry after failure: %v %v", tokens, err)
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(map[string]string{"b": "2", "a": "1"}); got != "a: 1; b: 2" {
		t.Errorf("Describe = %q", got)
	}
	if Describe(nil) != "" {
		t.Error("empty tokens should describe as empty")
	}
}
