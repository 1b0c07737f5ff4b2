package skill

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/helix-works/skillflow/pkg/logger"
)

// Loader reads skill definition files from a directory. Definitions are
// YAML documents carrying the skill metadata and step list; they are
// validated before registration like any other submission.
type Loader struct {
	skillsDir string
}

// NewLoader creates a loader rooted at skillsDir.
func NewLoader(skillsDir string) *Loader {
	return &Loader{skillsDir: skillsDir}
}

// ParseDefinition parses a single skill definition file.
func ParseDefinition(path string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill definition: %w", err)
	}

	var sk Skill
	if err := yaml.Unmarshal(data, &sk); err != nil {
		return nil, fmt.Errorf("failed to parse skill definition: %w", err)
	}

	if sk.Name == "" {
		return nil, fmt.Errorf("skill definition %s has no name", filepath.Base(path))
	}
	if len(sk.Steps) == 0 {
		return nil, fmt.Errorf("skill definition %s has no steps", filepath.Base(path))
	}

	return &sk, nil
}

// LoadAll parses every .yaml/.yml definition under the skills directory.
// A broken definition is logged and skipped so one bad file does not take
// down the rest of the catalog.
func (l *Loader) LoadAll() ([]*Skill, error) {
	if _, err := os.Stat(l.skillsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("skills directory does not exist: %s", l.skillsDir)
	}

	var skills []*Skill
	err := filepath.Walk(l.skillsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(info.Name())
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		sk, err := ParseDefinition(path)
		if err != nil {
			logger.Warnf("Failed to load skill from %s: %v", path, err)
			return nil
		}
		skills = append(skills, sk)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk skills directory: %w", err)
	}

	return skills, nil
}

// Bootstrap loads all definitions and registers the valid ones through the
// service so they pass the same validation gate as API submissions.
func (l *Loader) Bootstrap(svc *Service) int {
	skills, err := l.LoadAll()
	if err != nil {
		logger.Warnf("Skill bootstrap skipped: %v", err)
		return 0
	}

	loaded := 0
	for _, sk := range skills {
		if _, err := svc.CreateSkill(sk); err != nil {
			logger.Warnf("Failed to register skill %q: %v", sk.Name, err)
			continue
		}
		loaded++
	}
	return loaded
}
