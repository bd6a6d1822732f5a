package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

var (
	// ErrNoCandidates is returned when the gateway has no models configured.
	ErrNoCandidates = errors.New("llm: no model candidates configured")
	// ErrEmptyResponse marks a reply with no text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Candidate is one model to try, in gateway order.
type Candidate struct {
	Name   string // label used in logs and metrics, e.g. "gemini"
	Client Client
	Model  string
}

func (c Candidate) label() string {
	if c.Name == "" {
		return c.Model
	}
	return c.Name + ":" + c.Model
}

// Observer receives one call per model attempt.
type Observer interface {
	ObserveLLMRequest(model, kind, status string, elapsed time.Duration)
}

// Gateway sends each prompt to its candidates in order and returns the first
// usable answer.
type Gateway struct {
	candidates  []Candidate
	logger      *logging.Logger
	observer    Observer
	maxTokens   int32
	temperature float32
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

func WithObserver(o Observer) GatewayOption {
	return func(g *Gateway) { g.observer = o }
}

func WithMaxTokens(n int32) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

func WithTemperature(t float32) GatewayOption {
	return func(g *Gateway) { g.temperature = t }
}

func NewGateway(candidates []Candidate, logger *logging.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = logging.Default()
	}
	g := &Gateway{
		logger:      logger,
		maxTokens:   1024,
		temperature: 0.2,
	}
	for _, c := range candidates {
		if c.Client != nil {
			g.candidates = append(g.candidates, c)
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Models lists candidate labels in order.
func (g *Gateway) Models() []string {
	out := make([]string, 0, len(g.candidates))
	for _, c := range g.candidates {
		out = append(out, c.label())
	}
	return out
}

// GenerateText returns trimmed prose from the first model that answers.
func (g *Gateway) GenerateText(ctx context.Context, prompt string) (string, error) {
	var text string
	_, err := g.run(ctx, "text", prompt, false, func(reply string) error {
		text = reply
		return nil
	})
	return text, err
}

// GenerateJSON decodes the first recoverable JSON reply into out. A model
// whose reply cannot be decoded counts as failed and the next one is tried.
func (g *Gateway) GenerateJSON(ctx context.Context, prompt string, out any) error {
	_, err := g.run(ctx, "json", prompt, true, func(reply string) error {
		return DecodeJSON(reply, out)
	})
	return err
}

// GenerateTextWithModel is GenerateText that also reports which candidate answered.
func (g *Gateway) GenerateTextWithModel(ctx context.Context, prompt string) (string, string, error) {
	var text string
	model, err := g.run(ctx, "text", prompt, false, func(reply string) error {
		text = reply
		return nil
	})
	return text, model, err
}

func (g *Gateway) run(ctx context.Context, kind, prompt string, jsonMode bool, accept func(string) error) (string, error) {
	if g == nil || len(g.candidates) == 0 {
		return "", ErrNoCandidates
	}
	req := Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		JSON:        jsonMode,
	}

	var lastErr error
	for _, cand := range g.candidates {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("llm: %s generation cancelled: %w", kind, err)
		}
		req.Model = cand.Model
		start := time.Now()
		resp, err := cand.Client.Complete(ctx, req)
		if err == nil {
			text := strings.TrimSpace(resp.Text)
			if text == "" {
				err = ErrEmptyResponse
			} else {
				err = accept(text)
			}
		}
		g.observe(cand.label(), kind, err, time.Since(start))
		if err == nil {
			return cand.label(), nil
		}
		g.logger.Warn("llm candidate failed", "model", cand.label(), "kind", kind, "error", err)
		lastErr = err
	}
	return "", fmt.Errorf("llm: all %d models failed for %s generation: %w", len(g.candidates), kind, lastErr)
}

func (g *Gateway) observe(model, kind string, err error, elapsed time.Duration) {
	if g.observer == nil {
		return
	}
	status := "success"
	switch {
	case errors.Is(err, ErrNoJSON):
		status = "invalid_json"
	case err != nil:
		status = "error"
	}
	g.observer.ObserveLLMRequest(model, kind, status, elapsed)
}
