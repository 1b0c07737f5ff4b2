package tracer

import (
	"context"
	"time"

	"github.com/helix-works/skillflow/pkg/logger"
)

// LogTracer implements ExecutionTracer using structured logging.
type LogTracer struct {
	level string // minimal, standard, detailed
}

// NewLogTracer creates a log tracer at the given verbosity level.
func NewLogTracer(level string) *LogTracer {
	return &LogTracer{level: level}
}

func (l *LogTracer) TraceRunStart(ctx context.Context, executionID, skillID string, totalSteps int) error {
	logger.Infof("[Tracer] Run started: execution=%s, skill=%s, steps=%d", executionID, skillID, totalSteps)
	return nil
}

func (l *LogTracer) TraceStepStart(ctx context.Context, executionID, stepID, toolName string) error {
	if l.level == "minimal" {
		return nil
	}
	logger.Infof("[Tracer] Step started: execution=%s, step=%s, tool=%s", executionID, stepID, toolName)
	return nil
}

func (l *LogTracer) TraceStepEnd(ctx context.Context, executionID, stepID, status string, duration time.Duration) error {
	if l.level == "minimal" {
		return nil
	}
	logger.Infof("[Tracer] Step finished: execution=%s, step=%s, status=%s, duration=%v", executionID, stepID, status, duration)
	return nil
}

func (l *LogTracer) TraceRunEnd(ctx context.Context, executionID, status string, duration time.Duration) error {
	logger.Infof("[Tracer] Run finished: execution=%s, status=%s, duration=%v", executionID, status, duration)
	return nil
}

func (l *LogTracer) TraceError(ctx context.Context, executionID, stepID string, err error) error {
	// Errors are always logged regardless of level.
	logger.Errorf("[Tracer] Step error: execution=%s, step=%s, error=%v", executionID, stepID, err)
	return nil
}

func (l *LogTracer) Close() error {
	return nil
}
