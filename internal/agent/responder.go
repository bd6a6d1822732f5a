package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt describes one reply to be phrased by the model.
type Prompt struct {
	Purpose      string
	Input        string
	Context      any
	Instructions string
}

// Renderer turns a Prompt into user-facing text.
type Renderer interface {
	Render(ctx context.Context, p Prompt) (string, error)
}

// TextGenerator is the language-model call used for rendering.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

const assistantPersona = `You are the virtual assistant of a pathology lab. You help patients book tests, read their reports and track appointments.
Reply in plain conversational text. Do not use markdown, bullet points, numbered lists with symbols, or headings.
Keep replies short and never invent prices, dates, results or appointment details that are not in the context.`

// Responder renders prompts with a text generator.
type Responder struct {
	gen TextGenerator
}

func NewResponder(gen TextGenerator) *Responder {
	return &Responder{gen: gen}
}

func (r *Responder) Render(ctx context.Context, p Prompt) (string, error) {
	if r == nil || r.gen == nil {
		return "", fmt.Errorf("agent: responder has no text generator")
	}
	prompt, err := BuildPrompt(p)
	if err != nil {
		return "", err
	}
	text, err := r.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("agent: render %q: %w", p.Purpose, err)
	}
	return strings.TrimSpace(text), nil
}

// BuildPrompt lays out persona, purpose, latest input, JSON context and
// instructions in a fixed order.
func BuildPrompt(p Prompt) (string, error) {
	ctxJSON := []byte("{}")
	if p.Context != nil {
		var err error
		ctxJSON, err = json.MarshalIndent(p.Context, "", "  ")
		if err != nil {
			return "", fmt.Errorf("agent: marshal prompt context: %w", err)
		}
	}
	var b strings.Builder
	b.WriteString(assistantPersona)
	b.WriteString("\n\nPurpose: ")
	b.WriteString(p.Purpose)
	b.WriteString("\n\nLatest user message: ")
	b.WriteString(strings.TrimSpace(p.Input))
	b.WriteString("\n\nContext (JSON):\n")
	b.Write(ctxJSON)
	b.WriteString("\n\nInstructions: ")
	b.WriteString(p.Instructions)
	return b.String(), nil
}

// apology renders a backend failure. The raw error goes into the context so
// the model can phrase it, and the user is invited to retry.
func apology(ctx context.Context, r Renderer, input, action string, cause error) (string, error) {
	return r.Render(ctx, Prompt{
		Purpose: "apologize for a failed lab system request",
		Input:   input,
		Context: map[string]any{
			"failed_action": action,
			"error":         cause.Error(),
		},
		Instructions: "Apologize briefly, say the lab system could not " + action + " right now, and ask the patient to try again in a moment. Do not show the raw error text.",
	})
}
