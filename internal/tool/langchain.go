package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/tools"
)

// FromLangchain wraps a langchaingo tool so it can be registered as a
// custom tool. The resolved input object is marshaled to JSON and handed to
// the tool's Call method; the raw string result is returned under the
// "text" key so downstream steps can reference it.
func FromLangchain(t tools.Tool) Tool {
	return &langchainTool{tool: t}
}

// RegisterLangchainTools registers langchaingo tools as custom tools.
func RegisterLangchainTools(r *Registry, lcTools ...tools.Tool) error {
	for _, t := range lcTools {
		if err := r.Register(KindCustom, FromLangchain(t)); err != nil {
			return fmt.Errorf("failed to register custom tool %s: %w", t.Name(), err)
		}
	}
	return nil
}

type langchainTool struct {
	tool tools.Tool
}

func (t *langchainTool) Name() string        { return t.tool.Name() }
func (t *langchainTool) Description() string { return t.tool.Description() }

func (t *langchainTool) Invoke(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool input: %w", err)
	}

	output, err := t.tool.Call(ctx, string(payload))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"text": output}, nil
}
