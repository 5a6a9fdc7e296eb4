package webclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/webclient"
)

func newClient(t *testing.T, cfg webclient.Config, hc *http.Client) *webclient.NetHTTPClient {
	t.Helper()
	c, err := webclient.NewNetHTTPClient(cfg, logging.Nop{}, hc)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// ─── Outbound calls made by the generator and lookup adapters ─────────

func TestNetHTTPClient_PostJSONWithBearer(t *testing.T) {
	t.Parallel()
	var gotMethod, gotAuth, gotType, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"context":"pricing tiers"}`)
	}))
	defer ts.Close()

	c := newClient(t, webclient.Config{}, ts.Client())
	h := http.Header{}
	h.Set("Authorization", "Bearer sk-test")
	h.Set("Content-Type", "application/json")

	resp, err := c.Do(context.Background(), &webclient.Request{
		Method:  "post",
		URL:     ts.URL + "/search",
		Headers: h,
		Body:    []byte(`{"query":"pricing"}`),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotMethod != http.MethodPost || gotAuth != "Bearer sk-test" || gotType != "application/json" {
		t.Errorf("request = %s auth=%q type=%q", gotMethod, gotAuth, gotType)
	}
	if gotBody != `{"query":"pricing"}` {
		t.Errorf("body = %q", gotBody)
	}
	if !resp.OK() || resp.Headers.Get("Content-Type") != "application/json" || string(resp.Body) != `{"context":"pricing tiers"}` {
		t.Errorf("response = %d %q", resp.StatusCode, resp.Body)
	}
}

func TestNetHTTPClient_StatusIsReturnedNotErrored(t *testing.T) {
	t.Parallel()
	cases := []struct {
		code int
		ok   bool
	}{
		{http.StatusOK, true},
		{http.StatusNoContent, true},
		{http.StatusFound, false},
		{http.StatusTooManyRequests, false},
		{http.StatusBadGateway, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.code)
			}))
			defer ts.Close()
			hc := ts.Client()
			hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

			resp, err := newClient(t, webclient.Config{}, hc).Get(context.Background(), ts.URL)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if resp.StatusCode != tc.code || resp.OK() != tc.ok {
				t.Errorf("status = %d ok = %v", resp.StatusCode, resp.OK())
			}
		})
	}
}

// ─── Page fetches made by the crawler and style probe ─────────────────

func TestNetHTTPClient_CapsBodyAndSetsUserAgent(t *testing.T) {
	t.Parallel()
	var ua string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, "<html>"+strings.Repeat("x", 4096)+"</html>")
	}))
	defer ts.Close()

	c := newClient(t, webclient.Config{MaxBodyBytes: 100, UserAgent: "intentd/test"}, ts.Client())
	resp, err := c.Do(context.Background(), &webclient.Request{URL: ts.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(resp.Body) != 100 {
		t.Errorf("body = %d bytes, want 100", len(resp.Body))
	}
	if ua != "intentd/test" {
		t.Errorf("User-Agent = %q", ua)
	}
	if resp.FetchedAt.IsZero() || resp.Request == nil {
		t.Error("response should carry its request and fetch time")
	}
}

func TestNetHTTPClient_CallerUserAgentWins(t *testing.T) {
	t.Parallel()
	var ua string
	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	h := http.Header{}
	h.Set("User-Agent", "Mozilla/5.0 visitor")
	c := newClient(t, webclient.Config{UserAgent: "intentd/test"}, ts.Client())
	if _, err := c.Do(context.Background(), &webclient.Request{URL: ts.URL, Headers: h}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if ua != "Mozilla/5.0 visitor" {
		t.Errorf("User-Agent = %q", ua)
	}
}

// ─── Failures ─────────────────────────────────────────────────────────

func TestNetHTTPClient_Errors(t *testing.T) {
	t.Parallel()
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
	}))
	defer slow.Close()

	c := newClient(t, webclient.Config{}, &http.Client{Timeout: time.Second})
	if _, err := c.Do(context.Background(), nil); err == nil {
		t.Error("nil request: expected error")
	}
	if _, err := c.Do(context.Background(), &webclient.Request{URL: "http://127.0.0.1:1"}); err == nil {
		t.Error("connection refused: expected error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Do(ctx, &webclient.Request{URL: slow.URL}); err == nil {
		t.Error("canceled context: expected error")
	}
}
