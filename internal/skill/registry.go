package skill

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Sentinel errors callers branch on.
var (
	ErrSkillNotFound = errors.New("skill not found")
	ErrSkillDisabled = errors.New("skill is disabled")
)

// Registry holds materialized skill definitions. It is the in-process face
// of skill persistence; the engine itself never reads or writes it.
type Registry struct {
	skills map[string]*Skill
	mu     sync.RWMutex
}

// NewRegistry creates a new skill registry.
func NewRegistry() *Registry {
	return &Registry{
		skills: make(map[string]*Skill),
	}
}

// Register stores a skill by its identifier.
func (r *Registry) Register(s *Skill) error {
	if s == nil {
		return fmt.Errorf("cannot register nil skill")
	}
	if s.ID == "" {
		return fmt.Errorf("skill id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.skills[s.ID] = s
	return nil
}

// Get retrieves a skill by id. Disabled skills are still returned; callers
// that execute must check Enabled. The returned struct is a snapshot taken
// under the lock, so readers never observe SetEnabled or IncrementUsage
// updates mid-read.
func (r *Registry) Get(id string) (*Skill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.skills[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSkillNotFound, id)
	}
	snapshot := *s
	return &snapshot, nil
}

// List returns snapshots of all registered skills ordered by creation time.
func (r *Registry) List() []*Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skills := make([]*Skill, 0, len(r.skills))
	for _, s := range r.skills {
		snapshot := *s
		skills = append(skills, &snapshot)
	}
	sort.Slice(skills, func(i, j int) bool {
		return skills[i].CreatedAt.Before(skills[j].CreatedAt)
	})
	return skills
}

// Exists checks whether a skill is registered.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.skills[id]
	return exists
}

// Count returns the number of registered skills.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.skills)
}

// SetEnabled flips a skill's enabled flag. Disabling is the only form of
// deletion; the definition stays readable and its history stays intact.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.skills[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrSkillNotFound, id)
	}
	s.Enabled = enabled
	return nil
}

// IncrementUsage bumps a skill's usage counter.
func (r *Registry) IncrementUsage(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, exists := r.skills[id]; exists {
		s.UsageCount++
	}
}
