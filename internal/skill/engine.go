package skill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/helix-works/skillflow/internal/pathexpr"
	"github.com/helix-works/skillflow/internal/tracer"
	"github.com/helix-works/skillflow/pkg/logger"
)

// ToolInvoker is the external boundary that performs a tool's work. The
// engine resolves step inputs and hands them over; it has no knowledge of
// sandboxing, capability checks, or tool source.
type ToolInvoker interface {
	Invoke(ctx context.Context, kind, name string, input map[string]interface{}) (interface{}, error)
}

// DefaultRetryCeiling caps per-step retry counts when no ceiling is configured.
const DefaultRetryCeiling = 5

// Engine drives one execution of a validated skill: it resolves step inputs
// from the running context, evaluates conditions, invokes tools, applies
// per-step error policies, and accumulates outputs for downstream steps.
// Steps run strictly in declared order; the engine never reorders.
type Engine struct {
	invoker      ToolInvoker
	tracer       tracer.ExecutionTracer
	retryCeiling int
}

// NewEngine creates an execution engine. The tracer may be nil.
func NewEngine(invoker ToolInvoker, tr tracer.ExecutionTracer, retryCeiling int) *Engine {
	if tr == nil {
		tr = tracer.Noop()
	}
	if retryCeiling < 1 {
		retryCeiling = DefaultRetryCeiling
	}
	return &Engine{
		invoker:      invoker,
		tracer:       tr,
		retryCeiling: retryCeiling,
	}
}

// Execute runs the skill against the caller-supplied input and returns the
// finalized execution record. The record is always returned, including for
// failed runs; run-level failure only occurs when a stop-policy step fails.
// Each call builds its own execution context, so concurrent runs of the
// same skill share no mutable state.
func (e *Engine) Execute(ctx context.Context, s *Skill, input map[string]interface{}) *ExecutionRecord {
	started := time.Now()
	record := &ExecutionRecord{
		ID:         uuid.New().String(),
		SkillID:    s.ID,
		Status:     ExecutionStatusRunning,
		Steps:      make([]*StepResult, 0, len(s.Steps)),
		TotalSteps: len(s.Steps),
		StartedAt:  started,
	}

	_ = e.tracer.TraceRunStart(ctx, record.ID, s.ID, len(s.Steps))

	if input == nil {
		input = map[string]interface{}{}
	}
	runCtx := map[string]interface{}{"input": input}

	var finalOutput interface{}
	stopped := false

	for _, step := range s.Steps {
		if step.Condition != nil && !e.conditionMet(step.Condition, runCtx) {
			record.Steps = append(record.Steps, &StepResult{
				StepID:   step.ID,
				ToolName: step.Tool.Name,
				Status:   StepStatusSkipped,
			})
			_ = e.tracer.TraceStepEnd(ctx, record.ID, step.ID, string(StepStatusSkipped), 0)
			continue
		}

		result := e.runStep(ctx, record.ID, step, runCtx)
		record.Steps = append(record.Steps, result)

		if result.Status == StepStatusCompleted {
			runCtx = publish(runCtx, step, result.Output)
			finalOutput = result.Output
			continue
		}

		if step.OnError.Policy == ErrorPolicyStop {
			stopped = true
			break
		}
		// continue and exhausted-retry policies both proceed with the
		// context unchanged for this step's would-be output.
	}

	record.FinishedAt = time.Now()
	record.ExecutionTimeMs = record.FinishedAt.Sub(started).Milliseconds()
	record.FinalOutput = finalOutput
	for _, sr := range record.Steps {
		if sr.Status == StepStatusCompleted {
			record.StepsCompleted++
		}
	}
	if stopped {
		record.Status = ExecutionStatusFailed
	} else {
		record.Status = ExecutionStatusCompleted
	}

	_ = e.tracer.TraceRunEnd(ctx, record.ID, string(record.Status), record.FinishedAt.Sub(started))
	return record
}

// runStep resolves the step's inputs and invokes its tool, applying the
// retry policy when configured.
func (e *Engine) runStep(ctx context.Context, executionID string, step *Step, runCtx map[string]interface{}) *StepResult {
	started := time.Now()
	result := &StepResult{
		StepID:   step.ID,
		ToolName: step.Tool.Name,
	}

	_ = e.tracer.TraceStepStart(ctx, executionID, step.ID, step.Tool.Name)

	resolved := e.resolveInput(step.Input, runCtx)

	kind := step.Tool.Kind
	if kind == "" {
		kind = ToolKindBuiltin
	}

	attempts := 1
	if step.OnError.Policy == ErrorPolicyRetry && step.OnError.MaxRetries > 1 {
		attempts = step.OnError.MaxRetries
		if attempts > e.retryCeiling {
			attempts = e.retryCeiling
		}
	}

	var output interface{}
	err := retry.Do(
		func() error {
			result.Attempts++
			var invokeErr error
			output, invokeErr = e.invoker.Invoke(ctx, kind, step.Tool.Name, resolved)
			return invokeErr
		},
		retry.Attempts(uint(attempts)),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnf("Step %s attempt %d failed: %v", step.ID, n+1, err)
		}),
	)

	result.DurationMs = time.Since(started).Milliseconds()

	if err != nil {
		result.Status = StepStatusError
		result.Error = err.Error()
		_ = e.tracer.TraceError(ctx, executionID, step.ID, err)
		_ = e.tracer.TraceStepEnd(ctx, executionID, step.ID, string(StepStatusError), time.Since(started))
		return result
	}

	result.Status = StepStatusCompleted
	result.Output = output
	_ = e.tracer.TraceStepEnd(ctx, executionID, step.ID, string(StepStatusCompleted), time.Since(started))
	return result
}

// resolveInput maps each input entry to its runtime value. String values
// that are path expressions are resolved against the execution context;
// everything else passes through as a literal. Unresolved expressions pass
// through as nil rather than failing the step, so tools must treat missing
// inputs defensively.
func (e *Engine) resolveInput(input map[string]interface{}, runCtx map[string]interface{}) map[string]interface{} {
	resolved := make(map[string]interface{}, len(input))
	for key, value := range input {
		expr, ok := value.(string)
		if !ok || !pathexpr.IsExpression(expr) {
			resolved[key] = value
			continue
		}
		if v, defined := pathexpr.Resolve(expr, runCtx); defined {
			resolved[key] = v
		} else {
			resolved[key] = nil
		}
	}
	return resolved
}

// conditionMet evaluates a step condition against the execution context.
// Operators outside the validator's allow-list never reach here for a
// validated skill; if one does, the step is skipped.
func (e *Engine) conditionMet(cond *Condition, runCtx map[string]interface{}) bool {
	value, defined := pathexpr.Resolve(cond.Field, runCtx)

	switch cond.Operator {
	case "exists":
		return defined
	case "equals":
		return defined && looseEqual(value, cond.Value)
	case "not_equals":
		return !defined || !looseEqual(value, cond.Value)
	case "contains":
		return defined && contains(value, cond.Value)
	case "gt", "lt", "gte", "lte":
		left, okL := toFloat(value)
		right, okR := toFloat(cond.Value)
		if !defined || !okL || !okR {
			return false
		}
		switch cond.Operator {
		case "gt":
			return left > right
		case "lt":
			return left < right
		case "gte":
			return left >= right
		default:
			return left <= right
		}
	default:
		logger.Warnf("Unknown condition operator %q, skipping step", cond.Operator)
		return false
	}
}

// looseEqual compares values the way step authors expect: numbers compare
// numerically regardless of concrete type (JSON decoding yields float64),
// everything else compares by string form.
func looseEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func contains(haystack, needle interface{}) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, fmt.Sprintf("%v", needle))
	case []interface{}:
		for _, item := range h {
			if looseEqual(item, needle) {
				return true
			}
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

// publish returns a new context value with the step's output merged in
// under the step's identifier (and its output key alias, when set). The
// prior context is never mutated, so each step sees an immutable snapshot.
func publish(runCtx map[string]interface{}, step *Step, output interface{}) map[string]interface{} {
	next := make(map[string]interface{}, len(runCtx)+2)
	for k, v := range runCtx {
		next[k] = v
	}
	entry := map[string]interface{}{"output": output}
	next[step.ID] = entry
	if step.OutputKey != "" && step.OutputKey != step.ID {
		next[step.OutputKey] = entry
	}
	return next
}
