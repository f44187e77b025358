// Package tools implements the tool-calling system: a name-keyed registry
// of caller-provided tools and the extractor that recognizes tool
// invocation requests inside generated text.
package tools

import (
	"context"
	"encoding/json"

	"github.com/gialup03/luup-agent/errors"
)

// Spec describes a tool as advertised to the model. Parameters is an
// opaque JSON schema blob; no attempt is made to statically type arbitrary
// tool parameter shapes.
type Spec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Callback executes a tool invocation. It receives the parameters as a raw
// JSON string and returns a result string, normally JSON.
type Callback func(ctx context.Context, paramsJSON string) (string, error)

type registeredTool struct {
	spec   Spec
	invoke Callback
}

// Registry holds the tools available to an agent. Names are unique at any
// instant; registering an existing name overwrites the previous entry.
type Registry struct {
	tools map[string]registeredTool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register inserts or overwrites a tool by name. Last write wins; the only
// failures are an empty name or a missing callback.
func (r *Registry) Register(spec Spec, invoke Callback) error {
	if spec.Name == "" {
		return errors.New("tool spec requires a name")
	}
	if invoke == nil {
		return errors.New("tool %q requires a callback", spec.Name)
	}
	if _, exists := r.tools[spec.Name]; !exists {
		r.order = append(r.order, spec.Name)
	}
	r.tools[spec.Name] = registeredTool{spec: spec, invoke: invoke}
	return nil
}

// Specs returns the registered tool specifications in registration order.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].spec)
	}
	return specs
}

func (r *Registry) Len() int {
	return len(r.tools)
}

// Execute invokes the named tool and always returns a result string. An
// unknown name, a failing callback, or an empty callback result all become
// a structured JSON error payload; tool failures are data the model can
// read, never control-flow errors.
func (r *Registry) Execute(ctx context.Context, name, paramsJSON string) string {
	tool, ok := r.tools[name]
	if !ok {
		return errorPayload("Tool not found", name)
	}
	result, err := invokeTool(ctx, tool.invoke, paramsJSON)
	if err != nil {
		return errorPayload(err.Error(), name)
	}
	if result == "" {
		return errorPayload("tool returned an empty result", name)
	}
	return result
}

// invokeTool shields the registry from misbehaving callbacks: a panic is
// converted into an ordinary error.
func invokeTool(ctx context.Context, fn Callback, paramsJSON string) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New("tool panicked: %v", rec)
		}
	}()
	return fn(ctx, paramsJSON)
}

func errorPayload(message, toolName string) string {
	payload, err := json.Marshal(map[string]string{
		"error":     message,
		"tool_name": toolName,
	})
	if err != nil {
		// Marshaling a map of strings cannot fail in practice.
		return `{"error": "internal error"}`
	}
	return string(payload)
}
