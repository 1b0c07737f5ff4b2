package tracer

import (
	"context"
	"fmt"
	"time"

	"github.com/helix-works/skillflow/pkg/logger"
)

// ExecutionTracer receives lifecycle events from the execution engine.
type ExecutionTracer interface {
	// TraceRunStart records the start of a skill execution.
	TraceRunStart(ctx context.Context, executionID, skillID string, totalSteps int) error

	// TraceStepStart records when a step begins.
	TraceStepStart(ctx context.Context, executionID, stepID, toolName string) error

	// TraceStepEnd records a step outcome (completed, error, skipped).
	TraceStepEnd(ctx context.Context, executionID, stepID, status string, duration time.Duration) error

	// TraceRunEnd records the final status of a skill execution.
	TraceRunEnd(ctx context.Context, executionID, status string, duration time.Duration) error

	// TraceError records a step invocation error.
	TraceError(ctx context.Context, executionID, stepID string, err error) error

	// Close flushes any pending data.
	Close() error
}

// Noop returns a tracer that discards all events.
func Noop() ExecutionTracer {
	return noopTracer{}
}

type noopTracer struct{}

func (noopTracer) TraceRunStart(context.Context, string, string, int) error { return nil }
func (noopTracer) TraceStepStart(context.Context, string, string, string) error {
	return nil
}
func (noopTracer) TraceStepEnd(context.Context, string, string, string, time.Duration) error {
	return nil
}
func (noopTracer) TraceRunEnd(context.Context, string, string, time.Duration) error { return nil }
func (noopTracer) TraceError(context.Context, string, string, error) error          { return nil }
func (noopTracer) Close() error                                                     { return nil }

// MultiTracer fans events out to several tracers, best effort: a failing
// tracer is logged and skipped so the others still receive the event.
type MultiTracer struct {
	tracers []ExecutionTracer
}

// NewMultiTracer creates a tracer forwarding events to all given tracers.
func NewMultiTracer(tracers ...ExecutionTracer) *MultiTracer {
	return &MultiTracer{tracers: tracers}
}

func (m *MultiTracer) TraceRunStart(ctx context.Context, executionID, skillID string, totalSteps int) error {
	var lastErr error
	for _, t := range m.tracers {
		if err := t.TraceRunStart(ctx, executionID, skillID, totalSteps); err != nil {
			logger.Warnf("[MultiTracer] Failed to trace run start: tracer=%T, execution=%s, error=%v", t, executionID, err)
			lastErr = err
		}
	}
	return lastErr
}

func (m *MultiTracer) TraceStepStart(ctx context.Context, executionID, stepID, toolName string) error {
	var lastErr error
	for _, t := range m.tracers {
		if err := t.TraceStepStart(ctx, executionID, stepID, toolName); err != nil {
			logger.Warnf("[MultiTracer] Failed to trace step start: tracer=%T, execution=%s, step=%s, error=%v", t, executionID, stepID, err)
			lastErr = err
		}
	}
	return lastErr
}

func (m *MultiTracer) TraceStepEnd(ctx context.Context, executionID, stepID, status string, duration time.Duration) error {
	var lastErr error
	for _, t := range m.tracers {
		if err := t.TraceStepEnd(ctx, executionID, stepID, status, duration); err != nil {
			logger.Warnf("[MultiTracer] Failed to trace step end: tracer=%T, execution=%s, step=%s, error=%v", t, executionID, stepID, err)
			lastErr = err
		}
	}
	return lastErr
}

func (m *MultiTracer) TraceRunEnd(ctx context.Context, executionID, status string, duration time.Duration) error {
	var lastErr error
	for _, t := range m.tracers {
		if err := t.TraceRunEnd(ctx, executionID, status, duration); err != nil {
			logger.Warnf("[MultiTracer] Failed to trace run end: tracer=%T, execution=%s, error=%v", t, executionID, err)
			lastErr = err
		}
	}
	return lastErr
}

func (m *MultiTracer) TraceError(ctx context.Context, executionID, stepID string, err error) error {
	var lastErr error
	for _, t := range m.tracers {
		if traceErr := t.TraceError(ctx, executionID, stepID, err); traceErr != nil {
			logger.Warnf("[MultiTracer] Failed to trace error: tracer=%T, execution=%s, step=%s, error=%v", t, executionID, stepID, traceErr)
			lastErr = traceErr
		}
	}
	return lastErr
}

func (m *MultiTracer) Close() error {
	var errs []error
	for _, t := range m.tracers {
		if err := t.Close(); err != nil {
			logger.Warnf("[MultiTracer] Failed to close tracer: tracer=%T, error=%v", t, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close %d tracer(s): %v", len(errs), errs)
	}
	return nil
}
