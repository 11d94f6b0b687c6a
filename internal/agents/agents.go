// Package agents contains the typed, stateless agent calls the pipelines
// compose. Each agent pairs a prompt template with the LLM provider and
// parses the model output into a typed result; agents hold no request state.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucaproject/luca/internal/llm"
	"github.com/lucaproject/luca/internal/prompts"
)

// Base carries the collaborators every agent needs.
type Base struct {
	Provider llm.Provider
	Prompts  *prompts.Store
	Model    string
}

// NewBase creates the shared agent base.
func NewBase(provider llm.Provider, store *prompts.Store, model string) *Base {
	return &Base{Provider: provider, Prompts: store, Model: model}
}

// invoke fills the named template with args and calls the model.
func (b *Base) invoke(ctx context.Context, template string, args ...interface{}) (string, error) {
	prompt := b.Prompts.Get(template)
	if len(args) > 0 {
		prompt = fmt.Sprintf(prompt, args...)
	}
	resp, err := b.Provider.Invoke(ctx, &llm.Request{Model: b.Model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", template, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// Answer sends the query to the model as-is, with no template.
func (b *Base) Answer(ctx context.Context, query string) (string, error) {
	resp, err := b.Provider.Invoke(ctx, &llm.Request{Model: b.Model, Prompt: query})
	if err != nil {
		return "", fmt.Errorf("direct answer: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// InvokeModel sends a raw prompt to an explicit model, used by specialist
// and drafting calls.
func (b *Base) InvokeModel(ctx context.Context, model, prompt string) (string, error) {
	resp, err := b.Provider.Invoke(ctx, &llm.Request{Model: model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// extractJSON finds the outermost JSON value in model output. Small models
// habitually wrap JSON in prose or code fences. The earlier-opening bracket
// wins so an array of objects is not mistaken for its first element.
func extractJSON(text string) (string, bool) {
	best := ""
	bestStart := -1
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(text, pair[0])
		end := strings.LastIndexByte(text, pair[1])
		if start >= 0 && end > start {
			if bestStart < 0 || start < bestStart {
				bestStart = start
				best = text[start : end+1]
			}
		}
	}
	return best, bestStart >= 0
}

// unmarshalLoose parses the first JSON value found in text into out.
func unmarshalLoose(text string, out interface{}) error {
	raw, ok := extractJSON(text)
	if !ok {
		return fmt.Errorf("no JSON in model output")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parse model JSON: %w", err)
	}
	return nil
}

var numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseLevel extracts an integer level from model output, preferring a JSON
// {"level": n} field over the first bare number. Returns 0 when none found.
func ParseLevel(text string) int {
	var parsed struct {
		Level int `json:"level"`
	}
	if err := unmarshalLoose(text, &parsed); err == nil && parsed.Level != 0 {
		return parsed.Level
	}
	m := numberRe.FindString(text)
	if m == "" {
		return 0
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return v
}

// parseScore extracts the first number in text and scales it into [0,1].
// Values above 1 are treated as a 0-10 scale.
func parseScore(text string) (float64, error) {
	m := numberRe.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("no score in model output")
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("parse score: %w", err)
	}
	if v > 1 {
		v = v / 10
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v, nil
}
