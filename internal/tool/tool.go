// Package tool implements the invocation boundary the execution engine
// calls through. Tools are opaque callables with declared inputs and
// outputs, resolved through a registry keyed by kind and name.
package tool

import (
	"context"
	"fmt"
	"sync"
)

// Tool kinds. The kind string is free-form at skill authoring time and
// resolved here at invocation time.
const (
	KindBuiltin = "builtin"
	KindCustom  = "custom"
)

// Tool is one opaque callable.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, input map[string]interface{}) (interface{}, error)
}

// Registry holds tools by kind and name and dispatches invocations.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]map[string]Tool),
	}
}

// Register adds a tool under the given kind.
func (r *Registry) Register(kind string, t Tool) error {
	if t == nil {
		return fmt.Errorf("cannot register nil tool")
	}
	if t.Name() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tools[kind] == nil {
		r.tools[kind] = make(map[string]Tool)
	}
	r.tools[kind][t.Name()] = t
	return nil
}

// Get retrieves a tool by kind and name.
func (r *Registry) Get(kind, name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[kind][name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s/%s", kind, name)
	}
	return t, nil
}

// Names returns the registered tool names for a kind.
func (r *Registry) Names(kind string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools[kind]))
	for name := range r.tools[kind] {
		names = append(names, name)
	}
	return names
}

// Invoke looks up the tool and runs it with the resolved input. It
// satisfies the engine's ToolInvoker interface.
func (r *Registry) Invoke(ctx context.Context, kind, name string, input map[string]interface{}) (interface{}, error) {
	t, err := r.Get(kind, name)
	if err != nil {
		return nil, err
	}
	return t.Invoke(ctx, input)
}

// Func adapts a plain function into a Tool.
func Func(name, description string, fn func(ctx context.Context, input map[string]interface{}) (interface{}, error)) Tool {
	return &funcTool{name: name, description: description, fn: fn}
}

type funcTool struct {
	name        string
	description string
	fn          func(ctx context.Context, input map[string]interface{}) (interface{}, error)
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return t.description }
func (t *funcTool) Invoke(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	return t.fn(ctx, input)
}
