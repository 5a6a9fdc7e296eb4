package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitCommand(t *testing.T) {
	cmd, rest, err := SplitCommand([]string{"seed", "-file", "s.json"})
	if err != nil || cmd != CommandSeed || len(rest) != 2 {
		t.Fatalf("SplitCommand = %q %v %v", cmd, rest, err)
	}
	if cmd, _, _ := SplitCommand([]string{"SERVE"}); cmd != CommandServe {
		t.Errorf("command should be case-insensitive, got %q", cmd)
	}
	for _, args := range [][]string{nil, {"scan"}} {
		if _, _, err := SplitCommand(args); !errors.Is(err, ErrUsage) {
			t.Errorf("SplitCommand(%v) err = %v, want ErrUsage", args, err)
		}
	}
}

func TestParseServeArgs(t *testing.T) {
	a, err := ParseServeArgs([]string{"-addr", ":9000", "-db", "/tmp/x.db", "-log-level", "debug"})
	if err != nil {
		t.Fatalf("ParseServeArgs: %v", err)
	}
	if a.Addr != ":9000" || a.DBPath != "/tmp/x.db" || a.LogLevel != "debug" {
		t.Errorf("args = %+v", a)
	}

	empty, err := ParseServeArgs(nil)
	if err != nil || empty.Addr != "" || empty.DBPath != "" {
		t.Errorf("no flags should keep configured values: %+v %v", empty, err)
	}

	if _, err := ParseServeArgs([]string{"extra"}); err == nil {
		t.Error("expected error for positional argument")
	}
	if _, err := ParseServeArgs([]string{"-port", "1"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestParseSeedArgs(t *testing.T) {
	a, err := ParseSeedArgs([]string{"-file", "seed.json", "-db", "x.db"})
	if err != nil {
		t.Fatalf("ParseSeedArgs: %v", err)
	}
	if a.File != "seed.json" || a.DBPath != "x.db" {
		t.Errorf("args = %+v", a)
	}
	if _, err := ParseSeedArgs(nil); err == nil || !strings.Contains(err.Error(), "-file") {
		t.Errorf("missing file: err = %v", err)
	}
}

func TestParseCrawlArgs(t *testing.T) {
	a, err := ParseCrawlArgs([]string{"-site", "shop", "-root", "https://shop.test", "-depth", "1"})
	if err != nil {
		t.Fatalf("ParseCrawlArgs: %v", err)
	}
	if a.SiteID != "shop" || a.Root != "https://shop.test" || a.MaxDepth != 1 || a.MaxPages != 200 {
		t.Errorf("args = %+v", a)
	}

	bad := [][]string{
		{"-site", "shop"},
		{"-root", "https://shop.test"},
		{"-site", "shop", "-root", "https://shop.test", "-depth", "-1"},
		{"-site", "shop", "-root", "https://shop.test", "-max-pages", "0"},
	}
	for _, args := range bad {
		if _, err := ParseCrawlArgs(args); err == nil {
			t.Errorf("ParseCrawlArgs(%v) should fail", args)
		}
	}
}

func TestParseReplayArgs(t *testing.T) {
	a, err := ParseReplayArgs([]string{
		"-file", "visit.jsonl", "-gateway", "http://gw:8080/", "-site", "shop", "-key", "k",
		"-url", "https://shop.test/pricing", "-ws", "-page", "pricing.html", "-end=false",
	})
	if err != nil {
		t.Fatalf("ParseReplayArgs: %v", err)
	}
	if a.Gateway != "http://gw:8080" {
		t.Errorf("Gateway = %q, want trailing slash trimmed", a.Gateway)
	}
	if !a.WS || a.End || a.Page != "pricing.html" || a.SessionID != "" {
		t.Errorf("args = %+v", a)
	}
	if a.UserAgent == "" {
		t.Error("user agent should default")
	}
}

func TestParseReplayArgs_MissingRequired(t *testing.T) {
	_, err := ParseReplayArgs([]string{"-file", "visit.jsonl"})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, flag := range []string{"-site", "-key", "-url"} {
		if !strings.Contains(err.Error(), flag) {
			t.Errorf("error %q should name %s", err, flag)
		}
	}
}
