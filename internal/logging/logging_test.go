package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("line is not JSON: %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "gateway", LevelDebug)

	l.Info("merged batch", Field{Key: "session_id", Value: "s1"})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["level"] != "info" || lines[0]["msg"] != "merged batch" || lines[0]["component"] != "gateway" {
		t.Errorf("unexpected entry: %v", lines[0])
	}
	fields, _ := lines[0]["fields"].(map[string]any)
	if fields["session_id"] != "s1" {
		t.Errorf("expected session_id field, got %v", fields)
	}
}

func TestLogger_DropsBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "", LevelWarn)

	l.Debug("nope")
	l.Info("nope")
	l.Warn("yes")
	l.Error("yes", Err(errors.New("boom")))

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
}

func TestLogger_WithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger(&buf, "root", LevelInfo)
	child := root.With(Field{Key: "component", Value: "router"}, Field{Key: "site_id", Value: "acme"})

	child.Info("routed")

	lines := decodeLines(t, &buf)
	if lines[0]["component"] != "router" {
		t.Errorf("expected component router, got %v", lines[0]["component"])
	}
	fields, _ := lines[0]["fields"].(map[string]any)
	if fields["site_id"] != "acme" {
		t.Errorf("expected persistent site_id field, got %v", fields)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
