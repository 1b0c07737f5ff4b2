package skill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helix-works/skillflow/pkg/logger"
)

// ErrInvalidDefinition marks a create/update rejected by validation. The
// full error list travels alongside in ValidationError.
var ErrInvalidDefinition = errors.New("invalid skill definition")

// ValidationError carries the validator's complete error list so callers
// can show every problem at once.
type ValidationError struct {
	Result *ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidDefinition, strings.Join(e.Result.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDefinition }

// HistoryStore is the append-only execution record sink. Implementations
// must keep per-skill recency ordering stable under concurrent appends.
type HistoryStore interface {
	Append(record *ExecutionRecord) error
	List(skillID string, limit int) ([]*ExecutionRecord, error)
}

// Service is the engine's caller-facing facade: skill lifecycle with
// validation gates, execution, and history retrieval.
type Service struct {
	registry *Registry
	engine   *Engine
	history  HistoryStore
}

// NewService creates a skill service.
func NewService(registry *Registry, engine *Engine, history HistoryStore) *Service {
	return &Service{
		registry: registry,
		engine:   engine,
		history:  history,
	}
}

// ValidateSkillSteps statically checks a step list. It is callable
// independently of execution, at definition-submission time.
func (s *Service) ValidateSkillSteps(steps []*Step) *ValidationResult {
	return ValidateSteps(steps)
}

// CreateSkill validates and registers a new skill. An invalid definition is
// rejected with the full error list and nothing is persisted.
func (s *Service) CreateSkill(sk *Skill) (*Skill, error) {
	result := ValidateSteps(sk.Steps)
	if !result.Valid {
		return nil, &ValidationError{Result: result}
	}

	if sk.ID == "" {
		sk.ID = uuid.New().String()
	}
	if sk.Visibility == "" {
		sk.Visibility = VisibilityPrivate
	}
	now := time.Now()
	sk.Enabled = true
	sk.Version = 1
	sk.CreatedAt = now
	sk.UpdatedAt = now

	if err := s.registry.Register(sk); err != nil {
		return nil, err
	}

	logger.Infof("Skill created: id=%s, name=%s, steps=%d", sk.ID, sk.Name, len(sk.Steps))
	for _, warning := range result.Warnings {
		logger.Warnf("Skill %s: %s", sk.ID, warning)
	}
	return sk, nil
}

// UpdateSkill re-validates and replaces an existing skill definition.
func (s *Service) UpdateSkill(id string, update *Skill) (*Skill, error) {
	existing, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	result := ValidateSteps(update.Steps)
	if !result.Valid {
		return nil, &ValidationError{Result: result}
	}

	update.ID = existing.ID
	update.OwnerID = existing.OwnerID
	update.Enabled = existing.Enabled
	update.UsageCount = existing.UsageCount
	update.ClonedFrom = existing.ClonedFrom
	update.CreatedAt = existing.CreatedAt
	update.Version = existing.Version + 1
	update.UpdatedAt = time.Now()
	if update.Visibility == "" {
		update.Visibility = existing.Visibility
	}

	if err := s.registry.Register(update); err != nil {
		return nil, err
	}

	logger.Infof("Skill updated: id=%s, version=%d", update.ID, update.Version)
	return update, nil
}

// GetSkill returns a skill by id, disabled ones included.
func (s *Service) GetSkill(id string) (*Skill, error) {
	return s.registry.Get(id)
}

// ListSkills returns all registered skills.
func (s *Service) ListSkills() []*Skill {
	return s.registry.List()
}

// CloneSkill copies an existing skill for a new owner, keeping a lineage
// pointer to the source.
func (s *Service) CloneSkill(id, ownerID string) (*Skill, error) {
	source, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	steps := copySteps(source.Steps)

	now := time.Now()
	clone := &Skill{
		ID:          uuid.New().String(),
		Name:        source.Name + " (copy)",
		Description: source.Description,
		OwnerID:     ownerID,
		Steps:       steps,
		Tags:        append([]string{}, source.Tags...),
		Icon:        source.Icon,
		Visibility:  VisibilityPrivate,
		Enabled:     true,
		ClonedFrom:  source.ID,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.registry.Register(clone); err != nil {
		return nil, err
	}

	logger.Infof("Skill cloned: source=%s, clone=%s, owner=%s", source.ID, clone.ID, ownerID)
	return clone, nil
}

// copySteps deep-copies a step list so a clone never aliases its source's
// step structs.
func copySteps(steps []*Step) []*Step {
	out := make([]*Step, len(steps))
	for i, src := range steps {
		step := *src
		if src.Input != nil {
			step.Input = make(map[string]interface{}, len(src.Input))
			for k, v := range src.Input {
				step.Input[k] = v
			}
		}
		if src.Condition != nil {
			cond := *src.Condition
			step.Condition = &cond
		}
		out[i] = &step
	}
	return out
}

// DisableSkill soft-deletes a skill. The definition and its execution
// history remain readable.
func (s *Service) DisableSkill(id string) error {
	return s.registry.SetEnabled(id, false)
}

// EnableSkill re-enables a disabled skill.
func (s *Service) EnableSkill(id string) error {
	return s.registry.SetEnabled(id, true)
}

// Execute runs a skill and appends the finalized record to history. A
// disabled skill is rejected before any step runs.
func (s *Service) Execute(ctx context.Context, skillID, userID string, input map[string]interface{}) (*ExecutionResult, error) {
	sk, err := s.registry.Get(skillID)
	if err != nil {
		return nil, err
	}
	if !sk.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrSkillDisabled, skillID)
	}

	record := s.engine.Execute(ctx, sk, input)
	record.UserID = userID

	s.registry.IncrementUsage(skillID)

	if err := s.history.Append(record); err != nil {
		// The run already happened; a sink failure must not turn a
		// completed execution into a caller-visible error.
		logger.Errorf("Failed to append execution record %s: %v", record.ID, err)
	}

	return &ExecutionResult{
		ExecutionID:     record.ID,
		Status:          record.Status,
		StepsExecuted:   record.Steps,
		FinalOutput:     record.FinalOutput,
		ExecutionTimeMs: record.ExecutionTimeMs,
		StepsCompleted:  record.StepsCompleted,
		TotalSteps:      record.TotalSteps,
	}, nil
}

// History returns the skill's most recent execution records.
func (s *Service) History(skillID string, limit int) ([]*ExecutionRecord, error) {
	if _, err := s.registry.Get(skillID); err != nil {
		return nil, err
	}
	return s.history.List(skillID, limit)
}
