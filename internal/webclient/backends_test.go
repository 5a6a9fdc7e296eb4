package webclient_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/webclient"
)

type stubClient struct{}

func (stubClient) Do(context.Context, *webclient.Request) (*webclient.Response, error) {
	return &webclient.Response{StatusCode: 204}, nil
}
func (stubClient) Close() error { return nil }

func TestNewWebClient_Backends(t *testing.T) {
	cases := []struct {
		name    string
		client  webclient.Client
		want    string
		wantErr bool
	}{
		{"unset defaults to nethttp", "", "*webclient.NetHTTPClient", false},
		{"case insensitive", " NetHTTP ", "*webclient.NetHTTPClient", false},
		{"chromedp does not launch a browser", webclient.ClientChromedp, "*webclient.ChromedpClient", false},
		{"unknown", "gopher", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wc, err := webclient.NewWebClient(webclient.Config{Client: tc.client}, nil)
			if tc.wantErr {
				if err == nil || wc != nil {
					t.Fatalf("got %T, %v; want error", wc, err)
				}
				if !strings.Contains(err.Error(), "nethttp") {
					t.Errorf("error should list known backends: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewWebClient: %v", err)
			}
			defer wc.Close()
			if got := fmt.Sprintf("%T", wc); got != tc.want {
				t.Errorf("backend = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRegisterBackend(t *testing.T) {
	webclient.RegisterBackend("Stub", func(webclient.Config, logging.Logger) (webclient.WebClient, error) {
		return stubClient{}, nil
	})
	webclient.RegisterBackend("broken", func(webclient.Config, logging.Logger) (webclient.WebClient, error) {
		return nil, errors.New("no display")
	})

	wc, err := webclient.NewWebClient(webclient.Config{Client: "stub"}, logging.Nop{})
	if err != nil {
		t.Fatalf("NewWebClient: %v", err)
	}
	if resp, _ := wc.Do(context.Background(), &webclient.Request{}); resp.StatusCode != 204 {
		t.Errorf("stub not used: %+v", resp)
	}

	if _, err := webclient.NewWebClient(webclient.Config{Client: "broken"}, nil); err == nil || !strings.Contains(err.Error(), "no display") {
		t.Errorf("constructor error not wrapped: %v", err)
	}

	seen := map[webclient.Client]bool{}
	for _, b := range webclient.Backends() {
		seen[b] = true
	}
	for _, b := range []webclient.Client{"broken", "chromedp", "nethttp", "stub"} {
		if !seen[b] {
			t.Errorf("Backends() missing %q", b)
		}
	}
}

// ─── chromedp without a browser ───────────────────────────────────────

func TestChromedpClient_RejectsBeforeOpeningTab(t *testing.T) {
	c, err := webclient.NewChromedpClient(webclient.Config{}, nil)
	if err != nil {
		t.Fatalf("NewChromedpClient: %v", err)
	}
	defer c.Close()

	if _, err := c.Do(context.Background(), nil); err == nil {
		t.Error("nil request: expected error")
	}
	_, err = c.Do(context.Background(), &webclient.Request{Method: "POST", URL: "https://shop.test/cart"})
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Errorf("POST: err = %v", err)
	}
}
