package skill

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryHistory is a minimal HistoryStore for service tests.
type memoryHistory struct {
	mu      sync.Mutex
	records map[string][]*ExecutionRecord
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{records: make(map[string][]*ExecutionRecord)}
}

func (m *memoryHistory) Append(record *ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.SkillID] = append(m.records[record.SkillID], record)
	return nil
}

func (m *memoryHistory) List(skillID string, limit int) ([]*ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.records[skillID]
	out := make([]*ExecutionRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func newTestService() (*Service, *fakeInvoker) {
	invoker := newFakeInvoker()
	invoker.on("Echo", func(input map[string]interface{}) (interface{}, error) {
		return input, nil
	})
	engine := NewEngine(invoker, nil, 0)
	return NewService(NewRegistry(), engine, newMemoryHistory()), invoker
}

func validSkill() *Skill {
	return &Skill{
		Name: "echo skill",
		Steps: []*Step{
			{ID: "step1", Tool: ToolRef{Name: "Echo"}, Input: map[string]interface{}{"v": "$.input.v"}},
		},
	}
}

func TestCreateSkill_AssignsIDAndDefaults(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.CreateSkill(validSkill())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Enabled)
	assert.Equal(t, VisibilityPrivate, created.Visibility)
	assert.Equal(t, 1, created.Version)
}

func TestCreateSkill_InvalidDefinitionRejected(t *testing.T) {
	svc, _ := newTestService()

	sk := &Skill{
		Name: "broken",
		Steps: []*Step{
			{ID: "a", Tool: ToolRef{Name: "Echo"}, Input: map[string]interface{}{"v": "$.b.output"}},
			{ID: "b", Tool: ToolRef{Name: "Echo"}, Input: map[string]interface{}{"v": "$.a.output"}},
		},
	}

	_, err := svc.CreateSkill(sk)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.NotEmpty(t, vErr.Result.Errors)

	// Nothing was persisted.
	assert.Empty(t, svc.ListSkills())
}

func TestUpdateSkill_RevalidatesAndBumpsVersion(t *testing.T) {
	svc, _ := newTestService()
	created, err := svc.CreateSkill(validSkill())
	require.NoError(t, err)

	update := validSkill()
	update.Name = "renamed"
	updated, err := svc.UpdateSkill(created.ID, update)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, 2, updated.Version)

	bad := validSkill()
	bad.Steps[0].Tool.Name = ""
	_, err = svc.UpdateSkill(created.ID, bad)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestUpdateSkill_UnknownID(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.UpdateSkill("missing", validSkill())
	assert.ErrorIs(t, err, ErrSkillNotFound)
}

func TestExecute_DisabledSkillRejected(t *testing.T) {
	svc, invoker := newTestService()
	created, err := svc.CreateSkill(validSkill())
	require.NoError(t, err)

	require.NoError(t, svc.DisableSkill(created.ID))

	_, err = svc.Execute(context.Background(), created.ID, "user-1", nil)
	assert.ErrorIs(t, err, ErrSkillDisabled)
	assert.Equal(t, 0, invoker.callCount("Echo"))

	// Disabled skills stay readable.
	got, err := svc.GetSkill(created.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	// And can be re-enabled.
	require.NoError(t, svc.EnableSkill(created.ID))
	_, err = svc.Execute(context.Background(), created.ID, "user-1", nil)
	assert.NoError(t, err)
}

func TestExecute_RecordsHistoryAndUsage(t *testing.T) {
	svc, _ := newTestService()
	created, err := svc.CreateSkill(validSkill())
	require.NoError(t, err)

	result, err := svc.Execute(context.Background(), created.ID, "user-1", map[string]interface{}{"v": "x"})
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, result.Status)
	assert.Equal(t, 1, result.StepsCompleted)
	assert.Equal(t, 1, result.TotalSteps)
	assert.NotEmpty(t, result.ExecutionID)

	records, err := svc.History(created.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.ExecutionID, records[0].ID)
	assert.Equal(t, "user-1", records[0].UserID)

	got, err := svc.GetSkill(created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsageCount)
}

func TestExecute_UnknownSkill(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Execute(context.Background(), "missing", "", nil)
	assert.ErrorIs(t, err, ErrSkillNotFound)
}

func TestCloneSkill_KeepsLineage(t *testing.T) {
	svc, _ := newTestService()
	created, err := svc.CreateSkill(validSkill())
	require.NoError(t, err)

	clone, err := svc.CloneSkill(created.ID, "user-2")
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, clone.ID)
	assert.Equal(t, created.ID, clone.ClonedFrom)
	assert.Equal(t, "user-2", clone.OwnerID)
	assert.Equal(t, VisibilityPrivate, clone.Visibility)
	assert.Len(t, clone.Steps, len(created.Steps))

	// The clone executes independently of the source.
	_, err = svc.Execute(context.Background(), clone.ID, "user-2", nil)
	require.NoError(t, err)

	source, err := svc.GetSkill(created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), source.UsageCount)
}

func TestCloneSkill_StepsAreIndependent(t *testing.T) {
	svc, _ := newTestService()
	created, err := svc.CreateSkill(validSkill())
	require.NoError(t, err)

	clone, err := svc.CloneSkill(created.ID, "user-2")
	require.NoError(t, err)

	clone.Steps[0].Tool.Name = "Uppercase"
	clone.Steps[0].Input["v"] = "overwritten"

	source, err := svc.GetSkill(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Echo", source.Steps[0].Tool.Name)
	assert.Equal(t, "$.input.v", source.Steps[0].Input["v"])
}

func TestGetSkill_ReturnsSnapshot(t *testing.T) {
	svc, _ := newTestService()
	created, err := svc.CreateSkill(validSkill())
	require.NoError(t, err)

	got, err := svc.GetSkill(created.ID)
	require.NoError(t, err)
	got.Name = "scribbled"
	got.Enabled = false

	again, err := svc.GetSkill(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "echo skill", again.Name)
	assert.True(t, again.Enabled)
}

func TestExecute_ConcurrentWithReads(t *testing.T) {
	svc, _ := newTestService()
	created, err := svc.CreateSkill(validSkill())
	require.NoError(t, err)

	const runs = 20
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Execute(context.Background(), created.ID, "user-1", nil)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			got, err := svc.GetSkill(created.ID)
			assert.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			svc.ListSkills()
		}()
	}
	wg.Wait()

	got, err := svc.GetSkill(created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(runs), got.UsageCount)
}

func TestHistory_UnknownSkill(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.History("missing", 5)
	assert.ErrorIs(t, err, ErrSkillNotFound)
}

func TestValidationError_MessageCarriesDetails(t *testing.T) {
	err := &ValidationError{Result: &ValidationResult{
		Errors: []string{"first problem", "second problem"},
	}}
	assert.Contains(t, err.Error(), "first problem")
	assert.Contains(t, err.Error(), "second problem")
	assert.True(t, errors.Is(err, ErrInvalidDefinition))
}
