package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zlgo/testgen-agent/pkg/model"
)

// Registry keeps the mapping between tool names and implementations.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	validator Validator
}

// NewRegistry creates a registry backed by the default validator.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		validator: DefaultValidator{},
	}
}

// Register inserts a tool when its name is not in use.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is nil")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = t
	return nil
}

// Get fetches a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", name)
	}
	return t, nil
}

// List produces a snapshot of all registered tools in name order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Definitions renders every registered tool as a model-facing descriptor.
func (r *Registry) Definitions() []model.ToolDefinition {
	tools := r.List()
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		var schema map[string]interface{}
		if s := t.Schema(); s != nil {
			schema = map[string]interface{}{"type": s.Type}
			if len(s.Properties) > 0 {
				schema["properties"] = s.Properties
			}
			if len(s.Required) > 0 {
				schema["required"] = s.Required
			}
		} else {
			schema = map[string]interface{}{"type": "object"}
		}
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: schema,
		})
	}
	return defs
}

// SetValidator swaps the validator instance used before execution.
func (r *Registry) SetValidator(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validator = v
}

// Execute runs a registered tool after optional schema validation.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) (*ToolResult, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	if schema := t.Schema(); schema != nil {
		r.mu.RLock()
		validator := r.validator
		r.mu.RUnlock()

		if validator != nil {
			if err := validator.Validate(params, schema); err != nil {
				return nil, fmt.Errorf("tool %s validation failed: %w", name, err)
			}
		}
	}

	return t.Execute(ctx, params)
}
