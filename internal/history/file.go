package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/helix-works/skillflow/internal/skill"
	"github.com/helix-works/skillflow/pkg/logger"
)

// FileStore persists execution records as one JSON line per record in a
// per-skill file under dir. Appends are serialized per store; files are
// only ever appended to.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates a file-backed history store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(skillID string) string {
	return filepath.Join(s.dir, skillID+".jsonl")
}

// Append writes the record to the skill's history file.
func (s *FileStore) Append(record *skill.ExecutionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode execution record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(record.SkillID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append execution record: %w", err)
	}
	return nil
}

// List reads the skill's history file and returns up to limit records,
// most recent first. A missing file means an empty history, not an error.
func (s *FileStore) List(skillID string, limit int) ([]*skill.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path(skillID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*skill.ExecutionRecord{}, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	var all []*skill.ExecutionRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record skill.ExecutionRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			// A corrupt line should not hide the rest of the history.
			logger.Warnf("Skipping corrupt history line for skill %s: %v", skillID, err)
			continue
		}
		all = append(all, &record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

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
