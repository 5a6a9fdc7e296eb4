// Package wire defines the ingestion envelope exchanged between a collector
// and the gateway. Nested signal structures travel as JSON-encoded strings so
// a collector can serialize each accumulator independently; the decoder also
// accepts them as plain JSON values.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raysh454/intent/internal/model"
	"github.com/tidwall/gjson"
)

var ErrMalformed = errors.New("malformed envelope")

const maxIDLength = 128

// Envelope is one ingestion request.
type Envelope struct {
	SiteID          string          `json:"site_id"`
	AccessKey       string          `json:"access_key"`
	SessionID       string          `json:"session_id"`
	Signals         json.RawMessage `json:"signals"`
	URL             string          `json:"url"`
	Referrer        string          `json:"referrer"`
	UserAgent       string          `json:"user_agent"`
	ClientTimestamp int64           `json:"client_timestamp"`
}

// Meta is the per-request identity a collector attaches to every batch.
type Meta struct {
	SiteID          string
	AccessKey       string
	SessionID       string
	UserAgent       string
	ClientTimestamp int64
}

// serialized sub-structure names inside "signals"
const (
	fieldDwellTime    = "dwell_time"
	fieldDeadClicks   = "dead_clicks"
	fieldEvents       = "events"
	fieldInteractions = "interactions"
	fieldForms        = "forms"
	fieldPerformance  = "performance"
	fieldErrors       = "errors"
	fieldMouseTrace   = "mouse_trace"
)

// Encode builds the wire form of batch.
func Encode(meta Meta, batch *model.SignalBatch) ([]byte, error) {
	if batch == nil {
		batch = &model.SignalBatch{}
	}
	signals := map[string]any{
		"scroll_velocity": batch.ScrollVelocity,
		"scroll_depth":    batch.ScrollDepth,
		"hesitation":      batch.Hesitation,
		"rage_clicks":     batch.RageClicks,
		"copied_text":     nonNil(batch.CopiedText),
		"text_selections": nonNil(batch.TextSelections),
	}
	nested := []struct {
		name string
		v    any
	}{
		{fieldDwellTime, batch.DwellTime},
		{fieldDeadClicks, batch.DeadClicks},
		{fieldEvents, batch.Events},
		{fieldInteractions, batch.Interactions},
		{fieldForms, batch.Forms},
		{fieldPerformance, batch.Performance},
		{fieldErrors, batch.Errors},
		{fieldMouseTrace, batch.MouseTrace},
	}
	for _, n := range nested {
		b, err := json.Marshal(n.v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", n.name, err)
		}
		signals[n.name] = string(b)
	}
	rawSignals, err := json.Marshal(signals)
	if err != nil {
		return nil, fmt.Errorf("encode signals: %w", err)
	}
	return json.Marshal(Envelope{
		SiteID:          meta.SiteID,
		AccessKey:       meta.AccessKey,
		SessionID:       meta.SessionID,
		Signals:         rawSignals,
		URL:             batch.URL,
		Referrer:        batch.Referrer,
		UserAgent:       meta.UserAgent,
		ClientTimestamp: meta.ClientTimestamp,
	})
}

// Decode parses and validates an envelope, returning it alongside the decoded batch.
func Decode(data []byte) (*Envelope, *model.SignalBatch, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, nil, fmt.Errorf("%w: expected object", ErrMalformed)
	}

	env := &Envelope{
		SiteID:          strings.TrimSpace(root.Get("site_id").String()),
		AccessKey:       root.Get("access_key").String(),
		SessionID:       strings.TrimSpace(root.Get("session_id").String()),
		URL:             root.Get("url").String(),
		Referrer:        root.Get("referrer").String(),
		UserAgent:       root.Get("user_agent").String(),
		ClientTimestamp: root.Get("client_timestamp").Int(),
	}
	if err := validateID("site_id", env.SiteID); err != nil {
		return nil, nil, err
	}
	if err := validateID("session_id", env.SessionID); err != nil {
		return nil, nil, err
	}

	sig := root.Get("signals")
	// Some clients double-encode the whole bundle.
	if sig.Type == gjson.String {
		if !gjson.Valid(sig.Str) {
			return nil, nil, fmt.Errorf("%w: signals is not valid JSON", ErrMalformed)
		}
		sig = gjson.Parse(sig.Str)
	}
	if sig.Exists() && !sig.IsObject() && sig.Type != gjson.Null {
		return nil, nil, fmt.Errorf("%w: signals must be an object", ErrMalformed)
	}
	env.Signals = json.RawMessage(sig.Raw)
	if len(env.Signals) == 0 {
		env.Signals = json.RawMessage("{}")
	}

	batch := &model.SignalBatch{
		ScrollVelocity: sig.Get("scroll_velocity").Float(),
		ScrollDepth:    sig.Get("scroll_depth").Float(),
		Hesitation:     sig.Get("hesitation").Bool(),
		RageClicks:     int(sig.Get("rage_clicks").Int()),
		CopiedText:     stringList(sig.Get("copied_text")),
		TextSelections: stringList(sig.Get("text_selections")),
		URL:            env.URL,
		Referrer:       env.Referrer,
	}

	targets := []struct {
		name string
		dst  any
	}{
		{fieldDwellTime, &batch.DwellTime},
		{fieldDeadClicks, &batch.DeadClicks},
		{fieldEvents, &batch.Events},
		{fieldInteractions, &batch.Interactions},
		{fieldForms, &batch.Forms},
		{fieldPerformance, &batch.Performance},
		{fieldErrors, &batch.Errors},
		{fieldMouseTrace, &batch.MouseTrace},
	}
	for _, t := range targets {
		if err := decodeNested(sig.Get(t.name), t.dst); err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrMalformed, t.name, err)
		}
	}
	for id, secs := range batch.DwellTime {
		if secs < 0 {
			return nil, nil, fmt.Errorf("%w: dwell_time[%q] is negative", ErrMalformed, id)
		}
	}
	if batch.ScrollDepth < 0 || batch.ScrollDepth > 100 {
		return nil, nil, fmt.Errorf("%w: scroll_depth out of range", ErrMalformed)
	}

	return env, batch, nil
}

func decodeNested(res gjson.Result, dst any) error {
	var raw string
	switch {
	case !res.Exists(), res.Type == gjson.Null:
		return nil
	case res.Type == gjson.String:
		raw = strings.TrimSpace(res.Str)
		if raw == "" || raw == "null" {
			return nil
		}
		if !gjson.Valid(raw) {
			return errors.New("not valid JSON")
		}
	case res.IsObject(), res.IsArray():
		raw = res.Raw
	default:
		return fmt.Errorf("unexpected %s", res.Type)
	}
	return json.Unmarshal([]byte(raw), dst)
}

// stringList accepts either a JSON array of strings or a JSON-encoded one.
func stringList(res gjson.Result) []string {
	if res.Type == gjson.String && gjson.Valid(res.Str) {
		res = gjson.Parse(res.Str)
	}
	if !res.IsArray() {
		return nil
	}
	var out []string
	for _, v := range res.Array() {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validateID(name, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is required", ErrMalformed, name)
	}
	if len(v) > maxIDLength {
		return fmt.Errorf("%w: %s is too long", ErrMalformed, name)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
