package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/webclient"
	"github.com/tidwall/gjson"
)

const maxErrorBody = 4096

type HTTPConfig struct {
	// URL is a responses-style endpoint accepting {"model","input"}.
	URL    string
	APIKey string
	Model  string
}

// HTTPGenerator calls a hosted model through a responses-style API and
// expects a JSON object with selector, html, css and js in the output text.
type HTTPGenerator struct {
	cfg    HTTPConfig
	client webclient.WebClient
}

func NewHTTPGenerator(cfg HTTPConfig, client webclient.WebClient) (*HTTPGenerator, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("responses url is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model is required")
	}
	if client == nil {
		return nil, errors.New("web client is required")
	}
	return &HTTPGenerator{cfg: cfg, client: client}, nil
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (Raw, error) {
	body, err := json.Marshal(map[string]any{
		"model": g.cfg.Model,
		"input": BuildPrompt(req),
	})
	if err != nil {
		return Raw{}, fmt.Errorf("marshal generate request: %w", err)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		headers.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(ctx, &webclient.Request{
		Method:  http.MethodPost,
		URL:     g.cfg.URL,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return Raw{}, fmt.Errorf("generate request failed: %w", err)
	}
	if !resp.OK() {
		msg := resp.Body
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return Raw{}, fmt.Errorf("generate request status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	text, err := outputText(resp.Body)
	if err != nil {
		return Raw{}, err
	}
	return ParseOutput(text)
}

// outputText reads output_text, falling back to the first non-empty
// output[].content[].text.
func outputText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: response is not JSON", ErrMalformedOutput)
	}
	root := gjson.ParseBytes(body)
	if t := strings.TrimSpace(root.Get("output_text").String()); t != "" {
		return t, nil
	}
	var text string
	root.Get("output").ForEach(func(_, item gjson.Result) bool {
		item.Get("content").ForEach(func(_, c gjson.Result) bool {
			text = strings.TrimSpace(c.Get("text").String())
			return text == ""
		})
		return text == ""
	})
	if text == "" {
		return "", fmt.Errorf("%w: missing output text", ErrMalformedOutput)
	}
	return text, nil
}

// ParseOutput extracts a Raw from model text, tolerating a surrounding code fence.
func ParseOutput(text string) (Raw, error) {
	text = stripFence(strings.TrimSpace(text))
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}
	if !gjson.Valid(text) {
		return Raw{}, fmt.Errorf("%w: output is not a JSON object", ErrMalformedOutput)
	}
	obj := gjson.Parse(text)
	if !obj.IsObject() {
		return Raw{}, fmt.Errorf("%w: output is not a JSON object", ErrMalformedOutput)
	}
	return Raw{
		Selector: obj.Get("selector").String(),
		HTML:     obj.Get("html").String(),
		CSS:      obj.Get("css").String(),
		JS:       obj.Get("js").String(),
	}, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// BuildPrompt renders req into the model input text.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You design a small, on-brand UI element for a website visitor.\n\n")
	b.WriteString("Instruction:\n")
	b.WriteString(strings.TrimSpace(req.Instruction))
	b.WriteString("\n")
	if c := strings.TrimSpace(req.HTMLContext); c != "" {
		b.WriteString("\nRelevant site content:\n")
		b.WriteString(c)
		b.WriteString("\n")
	}
	if s := strings.TrimSpace(req.StyleContext); s != "" {
		b.WriteString("\nSite style:\n")
		b.WriteString(s)
		b.WriteString("\n")
	}
	if len(req.DesignTokens) > 0 {
		keys := make([]string, 0, len(req.DesignTokens))
		for k := range req.DesignTokens {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nDesign tokens:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, req.DesignTokens[k])
		}
	}
	fmt.Fprintf(&b, "\nRespond with only a JSON object with string keys \"selector\", \"html\", \"css\" and \"js\". "+
		"\"selector\" is a CSS selector for where the element goes, or \"%s\" for a floating notice. "+
		"The html must contain exactly one element with class \"%s\" that dismisses it. "+
		"Do not put <script> tags in html.\n", model.GenericTarget, model.DismissClass)
	return b.String()
}
