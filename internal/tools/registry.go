// Package tools implements the task tool registry exposed to the chat agent.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/soyeahso/taskdeck/internal/domain"
	"github.com/soyeahso/taskdeck/internal/llm"
)

// Tool is a capability the chat agent can invoke during a conversation.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns a human-readable description for the model.
	Description() string

	// InputSchema returns the JSON Schema for the tool's parameters.
	InputSchema() string

	// Execute runs the tool and returns a JSON-shaped result.
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Registry holds available tools keyed by name. Parameters are validated
// against each tool's compiled schema before execution.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	order   []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its schema. Registering the same name
// twice is an error.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	schema, err := compileSchema(name, t.InputSchema())
	if err != nil {
		return fmt.Errorf("tool %q: %w", name, err)
	}

	r.tools[name] = t
	r.schemas[name] = schema
	r.order = append(r.order, name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns model-ready tool definitions in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}

// Invoke validates params against the tool's schema and executes it.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &domain.ToolNotFoundError{Name: name}
	}

	if err := r.validate(name, params); err != nil {
		return nil, err
	}
	return t.Execute(ctx, params)
}

func (r *Registry) validate(name string, params map[string]any) error {
	// Round-trip through jsonschema's decoder for json.Number handling,
	// which the validator requires for integer checks.
	raw, err := json.Marshal(params)
	if err != nil {
		return domain.Validationf("invalid parameters for %s: %v", name, err)
	}
	decoded, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return domain.Validationf("invalid parameters for %s: %v", name, err)
	}

	if err := r.schemas[name].Validate(decoded); err != nil {
		return domain.Validationf("invalid parameters for %s: %v", name, err)
	}
	return nil
}

func compileSchema(name, schemaJSON string) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
