// Package synthesis turns an instruction into an adaptive UI payload. The
// generator behind it is a black box; the adapter enforces the payload
// contract on whatever comes back.
package synthesis

import (
	"context"
	"errors"
	"fmt"

	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
)

var (
	ErrEmptyInstruction = errors.New("synthesis: empty instruction")
	ErrMalformedOutput  = errors.New("synthesis: malformed generator output")
)

// Request is the generator input.
type Request struct {
	Instruction  string
	HTMLContext  string
	StyleContext string
	DesignTokens map[string]string
}

// Raw is generator output before normalization. Any field may be empty.
type Raw struct {
	Selector string `json:"selector"`
	HTML     string `json:"html"`
	CSS      string `json:"css"`
	JS       string `json:"js"`
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Raw, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (Raw, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Raw, error) {
	return f(ctx, req)
}

type Adapter struct {
	gen    Generator
	logger logging.Logger
}

func NewAdapter(gen Generator, logger logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Adapter{gen: gen, logger: logger.With(logging.Field{Key: "component", Value: "synthesis"})}
}

// Synthesize calls the generator and normalizes its output. Generator errors
// are returned unchanged so the caller decides how to degrade.
func (a *Adapter) Synthesize(ctx context.Context, req Request) (model.AdaptivePayload, error) {
	if req.Instruction == "" {
		return model.AdaptivePayload{}, ErrEmptyInstruction
	}
	if a.gen == nil {
		return model.AdaptivePayload{}, errors.New("synthesis: no generator configured")
	}
	raw, err := a.gen.Generate(ctx, req)
	if err != nil {
		return model.AdaptivePayload{}, fmt.Errorf("generate: %w", err)
	}
	p := Normalize(raw)
	a.logger.Debug("payload synthesized",
		logging.Field{Key: "selector", Value: p.Selector},
		logging.Field{Key: "html_bytes", Value: len(p.HTML)})
	return p, nil
}
