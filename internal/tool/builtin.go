package tool

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// RegisterBuiltins adds the built-in tool set to the registry. Builtins
// return map outputs so downstream steps can reference fields via path
// expressions, e.g. $.step1.output.text
func RegisterBuiltins(r *Registry) error {
	builtins := []Tool{
		Func("Echo", "Returns its input unchanged", echoTool),
		Func("TextReverser", "Reverses the text parameter", textReverserTool),
		Func("Uppercase", "Uppercases the text parameter", uppercaseTool),
		Func("Lowercase", "Lowercases the text parameter", lowercaseTool),
		Func("Template", "Renders the template parameter against the remaining input", templateTool),
		Func("Delay", "Waits for duration_ms before echoing its input", delayTool),
	}

	for _, t := range builtins {
		if err := r.Register(KindBuiltin, t); err != nil {
			return fmt.Errorf("failed to register builtin %s: %w", t.Name(), err)
		}
	}
	return nil
}

func echoTool(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	return input, nil
}

func textParam(input map[string]interface{}) (string, error) {
	v, ok := input["text"]
	if !ok || v == nil {
		return "", fmt.Errorf("text parameter is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("text parameter must be a string, got %T", v)
	}
	return s, nil
}

func textReverserTool(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	text, err := textParam(input)
	if err != nil {
		return nil, err
	}
	runes := []rune(text)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return map[string]interface{}{"text": string(runes)}, nil
}

func uppercaseTool(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	text, err := textParam(input)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"text": strings.ToUpper(text)}, nil
}

func lowercaseTool(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	text, err := textParam(input)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"text": strings.ToLower(text)}, nil
}

func templateTool(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	raw, ok := input["template"].(string)
	if !ok {
		return nil, fmt.Errorf("template parameter is required")
	}

	tmpl, err := template.New("step").Option("missingkey=zero").Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	data := make(map[string]interface{}, len(input))
	for k, v := range input {
		if k != "template" {
			data[k] = v
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return map[string]interface{}{"text": buf.String()}, nil
}

func delayTool(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	ms := 0
	switch v := input["duration_ms"].(type) {
	case float64:
		ms = int(v)
	case int:
		ms = v
	}

	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return input, nil
}
