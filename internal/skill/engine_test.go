package skill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInvoker records invocations and dispatches to per-tool behaviors.
type fakeInvoker struct {
	mu       sync.Mutex
	calls    []string
	inputs   map[string][]map[string]interface{}
	behavior map[string]func(input map[string]interface{}) (interface{}, error)
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		inputs:   make(map[string][]map[string]interface{}),
		behavior: make(map[string]func(input map[string]interface{}) (interface{}, error)),
	}
}

func (f *fakeInvoker) on(name string, fn func(input map[string]interface{}) (interface{}, error)) {
	f.behavior[name] = fn
}

func (f *fakeInvoker) Invoke(ctx context.Context, kind, name string, input map[string]interface{}) (interface{}, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.inputs[name] = append(f.inputs[name], input)
	f.mu.Unlock()

	fn, ok := f.behavior[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s/%s", kind, name)
	}
	return fn(input)
}

func (f *fakeInvoker) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call == name {
			n++
		}
	}
	return n
}

func testSkill(steps ...*Step) *Skill {
	return &Skill{ID: "skill-1", Name: "test", Steps: steps, Enabled: true}
}

func TestExecute_SingleStepCompletes(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("TextReverser", func(input map[string]interface{}) (interface{}, error) {
		text := input["text"].(string)
		runes := []rune(text)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return map[string]interface{}{"text": string(runes)}, nil
	})

	s := testSkill(&Step{
		ID:      "step1",
		Tool:    ToolRef{Name: "TextReverser"},
		Input:   map[string]interface{}{"text": "$.input.text"},
		OnError: ErrorHandling{Policy: ErrorPolicyStop},
	})

	engine := NewEngine(invoker, nil, 0)
	record := engine.Execute(context.Background(), s, map[string]interface{}{"text": "hello"})

	assert.Equal(t, ExecutionStatusCompleted, record.Status)
	require.Len(t, record.Steps, 1)
	assert.Equal(t, StepStatusCompleted, record.Steps[0].Status)
	assert.Equal(t, 1, record.StepsCompleted)
	assert.Equal(t, 1, record.TotalSteps)
	assert.Equal(t, map[string]interface{}{"text": "olleh"}, record.FinalOutput)
}

func TestExecute_ContinuePolicyProceedsPastFailure(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Failing", func(input map[string]interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})
	invoker.on("Echo", func(input map[string]interface{}) (interface{}, error) {
		return input, nil
	})

	s := testSkill(
		&Step{ID: "step1", Tool: ToolRef{Name: "Failing"}, OnError: ErrorHandling{Policy: ErrorPolicyContinue}},
		&Step{ID: "step2", Tool: ToolRef{Name: "Echo"}, Input: map[string]interface{}{"v": "literal"}},
	)

	engine := NewEngine(invoker, nil, 0)
	record := engine.Execute(context.Background(), s, nil)

	assert.Equal(t, ExecutionStatusCompleted, record.Status)
	require.Len(t, record.Steps, 2)
	assert.Equal(t, StepStatusError, record.Steps[0].Status)
	assert.Equal(t, "boom", record.Steps[0].Error)
	assert.Equal(t, StepStatusCompleted, record.Steps[1].Status)
	assert.Equal(t, 1, record.StepsCompleted)
	assert.Equal(t, 2, record.TotalSteps)
}

func TestExecute_StopPolicyHaltsRun(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Failing", func(input map[string]interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})
	invoker.on("Echo", func(input map[string]interface{}) (interface{}, error) {
		return input, nil
	})

	s := testSkill(
		&Step{ID: "step1", Tool: ToolRef{Name: "Failing"}, OnError: ErrorHandling{Policy: ErrorPolicyStop}},
		&Step{ID: "step2", Tool: ToolRef{Name: "Echo"}, Input: map[string]interface{}{"v": "$.step1.output"}},
	)

	engine := NewEngine(invoker, nil, 0)
	record := engine.Execute(context.Background(), s, nil)

	assert.Equal(t, ExecutionStatusFailed, record.Status)
	require.Len(t, record.Steps, 1)
	assert.Equal(t, StepStatusError, record.Steps[0].Status)
	assert.Equal(t, 0, invoker.callCount("Echo"))
	assert.Less(t, record.StepsCompleted, record.TotalSteps)
}

func TestExecute_ConditionFalseSkipsStep(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Probe", func(input map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"isValid": false}, nil
	})
	invoker.on("Guarded", func(input map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{}, nil
	})

	s := testSkill(
		&Step{ID: "step1", Tool: ToolRef{Name: "Probe"}},
		&Step{
			ID:        "step2",
			Tool:      ToolRef{Name: "Guarded"},
			Condition: &Condition{Field: "$.step1.output.isValid", Operator: "equals", Value: true},
		},
	)

	engine := NewEngine(invoker, nil, 0)
	record := engine.Execute(context.Background(), s, nil)

	assert.Equal(t, ExecutionStatusCompleted, record.Status)
	require.Len(t, record.Steps, 2)
	assert.Equal(t, StepStatusSkipped, record.Steps[1].Status)
	assert.Equal(t, 0, invoker.callCount("Guarded"))
}

func TestExecute_ConditionTrueRunsStep(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Probe", func(input map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"isValid": true}, nil
	})
	invoker.on("Guarded", func(input map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{}, nil
	})

	s := testSkill(
		&Step{ID: "step1", Tool: ToolRef{Name: "Probe"}},
		&Step{
			ID:        "step2",
			Tool:      ToolRef{Name: "Guarded"},
			Condition: &Condition{Field: "$.step1.output.isValid", Operator: "equals", Value: true},
		},
	)

	engine := NewEngine(invoker, nil, 0)
	record := engine.Execute(context.Background(), s, nil)

	assert.Equal(t, 1, invoker.callCount("Guarded"))
	assert.Equal(t, 2, record.StepsCompleted)
}

func TestExecute_RetryExhaustionDegradesToContinue(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Flaky", func(input map[string]interface{}) (interface{}, error) {
		return nil, errors.New("still failing")
	})
	invoker.on("Echo", func(input map[string]interface{}) (interface{}, error) {
		return input, nil
	})

	s := testSkill(
		&Step{ID: "step1", Tool: ToolRef{Name: "Flaky"}, OnError: ErrorHandling{Policy: ErrorPolicyRetry, MaxRetries: 3}},
		&Step{ID: "step2", Tool: ToolRef{Name: "Echo"}},
	)

	engine := NewEngine(invoker, nil, 0)
	record := engine.Execute(context.Background(), s, nil)

	// All attempts failed, but the run still completes: retry exhaustion
	// proceeds like continue, it never blocks the whole run.
	assert.Equal(t, ExecutionStatusCompleted, record.Status)
	assert.Equal(t, 3, invoker.callCount("Flaky"))
	assert.Equal(t, 3, record.Steps[0].Attempts)
	assert.Equal(t, StepStatusError, record.Steps[0].Status)
	assert.Equal(t, StepStatusCompleted, record.Steps[1].Status)
}

func TestExecute_RetrySucceedsMidway(t *testing.T) {
	attempts := 0
	invoker := newFakeInvoker()
	invoker.on("Flaky", func(input map[string]interface{}) (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient")
		}
		return map[string]interface{}{"ok": true}, nil
	})

	s := testSkill(&Step{
		ID:      "step1",
		Tool:    ToolRef{Name: "Flaky"},
		OnError: ErrorHandling{Policy: ErrorPolicyRetry, MaxRetries: 3},
	})

	engine := NewEngine(invoker, nil, 0)
	record := engine.Execute(context.Background(), s, nil)

	assert.Equal(t, ExecutionStatusCompleted, record.Status)
	assert.Equal(t, StepStatusCompleted, record.Steps[0].Status)
	assert.Equal(t, 2, record.Steps[0].Attempts)
}

func TestExecute_RetryCeilingCapsAttempts(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Flaky", func(input map[string]interface{}) (interface{}, error) {
		return nil, errors.New("still failing")
	})

	s := testSkill(&Step{
		ID:      "step1",
		Tool:    ToolRef{Name: "Flaky"},
		OnError: ErrorHandling{Policy: ErrorPolicyRetry, MaxRetries: 100},
	})

	engine := NewEngine(invoker, nil, 2)
	engine.Execute(context.Background(), s, nil)

	assert.Equal(t, 2, invoker.callCount("Flaky"))
}

func TestExecute_OutputPublishedForDownstreamSteps(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Producer", func(input map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"text": "from-producer"}, nil
	})
	invoker.on("Consumer", func(input map[string]interface{}) (interface{}, error) {
		return input, nil
	})

	s := testSkill(
		&Step{ID: "step1", Tool: ToolRef{Name: "Producer"}},
		&Step{ID: "step2", Tool: ToolRef{Name: "Consumer"}, Input: map[string]interface{}{"text": "$.step1.output.text"}},
	)

	engine := NewEngine(invoker, nil, 0)
	record := engine.Execute(context.Background(), s, nil)

	require.Equal(t, ExecutionStatusCompleted, record.Status)
	require.Len(t, invoker.inputs["Consumer"], 1)
	assert.Equal(t, "from-producer", invoker.inputs["Consumer"][0]["text"])
}

func TestExecute_OutputKeyAliasPublished(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Producer", func(input map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"text": "aliased"}, nil
	})
	invoker.on("Consumer", func(input map[string]interface{}) (interface{}, error) {
		return input, nil
	})

	s := testSkill(
		&Step{ID: "step1", Tool: ToolRef{Name: "Producer"}, OutputKey: "reversed"},
		&Step{ID: "step2", Tool: ToolRef{Name: "Consumer"}, Input: map[string]interface{}{"text": "$.reversed.output.text"}},
	)

	engine := NewEngine(invoker, nil, 0)
	engine.Execute(context.Background(), s, nil)

	require.Len(t, invoker.inputs["Consumer"], 1)
	assert.Equal(t, "aliased", invoker.inputs["Consumer"][0]["text"])
}

func TestExecute_UndefinedInputPassesThroughAsNil(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Echo", func(input map[string]interface{}) (interface{}, error) {
		return input, nil
	})

	s := testSkill(&Step{
		ID:    "step1",
		Tool:  ToolRef{Name: "Echo"},
		Input: map[string]interface{}{"missing": "$.nowhere.at.all", "literal": 42},
	})

	engine := NewEngine(invoker, nil, 0)
	record := engine.Execute(context.Background(), s, nil)

	assert.Equal(t, ExecutionStatusCompleted, record.Status)
	require.Len(t, invoker.inputs["Echo"], 1)
	got := invoker.inputs["Echo"][0]
	assert.Contains(t, got, "missing")
	assert.Nil(t, got["missing"])
	assert.Equal(t, 42, got["literal"])
}

func TestExecute_FailedStepOutputNotPublished(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Failing", func(input map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"text": "partial"}, errors.New("boom")
	})
	invoker.on("Echo", func(input map[string]interface{}) (interface{}, error) {
		return input, nil
	})

	s := testSkill(
		&Step{ID: "step1", Tool: ToolRef{Name: "Failing"}, OnError: ErrorHandling{Policy: ErrorPolicyContinue}},
		&Step{ID: "step2", Tool: ToolRef{Name: "Echo"}, Input: map[string]interface{}{"v": "$.step1.output.text"}},
	)

	engine := NewEngine(invoker, nil, 0)
	engine.Execute(context.Background(), s, nil)

	require.Len(t, invoker.inputs["Echo"], 1)
	assert.Nil(t, invoker.inputs["Echo"][0]["v"])
}

func TestExecute_FinalOutputFromLastProducingStep(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Producer", func(input map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"text": "final"}, nil
	})
	invoker.on("Failing", func(input map[string]interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})

	s := testSkill(
		&Step{ID: "step1", Tool: ToolRef{Name: "Producer"}},
		&Step{ID: "step2", Tool: ToolRef{Name: "Failing"}, OnError: ErrorHandling{Policy: ErrorPolicyContinue}},
	)

	engine := NewEngine(invoker, nil, 0)
	record := engine.Execute(context.Background(), s, nil)

	assert.Equal(t, ExecutionStatusCompleted, record.Status)
	assert.Equal(t, map[string]interface{}{"text": "final"}, record.FinalOutput)
}

func TestExecute_ConcurrentRunsAreIndependent(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.on("Echo", func(input map[string]interface{}) (interface{}, error) {
		return input, nil
	})

	s := testSkill(&Step{
		ID:    "step1",
		Tool:  ToolRef{Name: "Echo"},
		Input: map[string]interface{}{"v": "$.input.v"},
	})

	engine := NewEngine(invoker, nil, 0)

	var wg sync.WaitGroup
	records := make([]*ExecutionRecord, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i] = engine.Execute(context.Background(), s, map[string]interface{}{"v": i})
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, record := range records {
		require.NotNil(t, record)
		assert.Equal(t, ExecutionStatusCompleted, record.Status)
		assert.False(t, seen[record.ID], "execution ids must be unique")
		seen[record.ID] = true
		output := record.FinalOutput.(map[string]interface{})
		assert.Equal(t, i, output["v"])
	}
}
