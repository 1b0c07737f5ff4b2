// Package history implements the append-only execution record store.
// Records are immutable once appended; there is no update or delete, which
// keeps audit behavior race-free under concurrent executions.
package history

import (
	"sync"

	"github.com/helix-works/skillflow/internal/skill"
)

// MemoryStore keeps execution records in memory, newest first per skill.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]*skill.ExecutionRecord
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]*skill.ExecutionRecord),
	}
}

// Append adds a finalized record to the skill's history.
func (s *MemoryStore) Append(record *skill.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.SkillID] = append(s.records[record.SkillID], record)
	return nil
}

// List returns up to limit records for the skill, most recent first.
// A limit <= 0 returns the full history.
func (s *MemoryStore) List(skillID string, limit int) ([]*skill.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.records[skillID]
	n := len(all)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]*skill.ExecutionRecord, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
