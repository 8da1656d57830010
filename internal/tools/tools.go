package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Tool names.
const (
	NameSearch          = "search"
	NameListFileContent = "list_file_content"
)

// Registry errors
var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Spec describes one tool to the model: name, purpose, and a JSON-schema
// parameter object.
type Spec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Handler executes one tool call with raw JSON arguments.
type Handler func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

// Registry holds the tools available to an agent session.
type Registry struct {
	specs    []Spec
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a tool. Later registrations with the same name replace
// earlier ones.
func (r *Registry) Register(spec Spec, h Handler) {
	if _, exists := r.handlers[spec.Name]; !exists {
		r.specs = append(r.specs, spec)
	}
	r.handlers[spec.Name] = h
}

// Specs returns the registered tool descriptions in registration order.
func (r *Registry) Specs() []Spec {
	return r.specs
}

// Call dispatches one tool invocation. An unknown name is an
// invalid-argument error for the caller to observe, not a fault.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return h(ctx, input)
}
