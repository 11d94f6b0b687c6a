// Package tools provides the tool layer the cognitive loop calls into:
// web retrieval, search, simulation and dynamically registered specialist
// models. Tools take a single string input and return text, which keeps them
// directly drivable from model output.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SpecialistPrefix marks tools backed by a dedicated micro model. The
// orchestrator routes matching requests straight to these.
const SpecialistPrefix = "Specialist_"

// Tool is one callable capability.
type Tool interface {
	// Name returns the tool identifier, e.g. "web_browser".
	Name() string

	// Description explains the tool for inclusion in prompts.
	Description() string

	// Execute runs the tool with model-provided input.
	Execute(ctx context.Context, input string) (string, error)
}

// Registry is the thread-safe tool catalog.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the old tool, which
// is how specialist models are refreshed after re-creation.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Execute looks up and runs a tool in one step.
func (r *Registry) Execute(ctx context.Context, name, input string) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return t.Execute(ctx, input)
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Specialists returns the registered specialist tool names, sorted.
func (r *Registry) Specialists() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name := range r.tools {
		if strings.HasPrefix(name, SpecialistPrefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// FindSpecialist returns the specialist whose task name matches the query,
// e.g. FindSpecialist("summarization") matches "Specialist_Summarization_Expert".
func (r *Registry) FindSpecialist(task string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(task)
	for name, t := range r.tools {
		if !strings.HasPrefix(name, SpecialistPrefix) {
			continue
		}
		if strings.Contains(strings.ToLower(name), needle) {
			return t, true
		}
	}
	return nil, false
}

// Catalog renders a "name: description" listing for prompts.
func (r *Registry) Catalog() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var b strings.Builder
	for _, name := range r.order {
		fmt.Fprintf(&b, "%s: %s\n", name, r.tools[name].Description())
	}
	return b.String()
}
