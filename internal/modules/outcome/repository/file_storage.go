package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"tgrelay/internal/modules/outcome/domain"
)

// FileStorage implements outcome.Repository using file system
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based outcome repository
func NewFileStorage(basePath string) (Repository, error) {
	outcomePath := filepath.Join(basePath, "outcomes")
	if err := os.MkdirAll(outcomePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create outcomes directory").Wrap(err)
	}

	return &FileStorage{basePath: outcomePath}, nil
}

func (s *FileStorage) SaveOutcome(outcome *domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store outcomes in rule-specific directories
	dir := filepath.Join(s.basePath, outcome.RuleID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return oops.With("outcome_dir", dir, "context", "failed to create outcome directory").Wrap(err)
	}

	path := filepath.Join(dir, outcome.ID+".json")
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return oops.With("rule_id", outcome.RuleID, "outcome_id", outcome.ID, "context", "failed to marshal outcome").Wrap(err)
	}

	return os.WriteFile(path, data, 0644)
}

func (s *FileStorage) GetOutcomes(ruleID string, limit int) ([]*domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Join(s.basePath, ruleID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.Outcome{}, nil
		}
		return nil, oops.With("rule_id", ruleID, "outcome_dir", dir, "context", "failed to read outcomes directory").Wrap(err)
	}

	var outcomes []*domain.Outcome
	count := 0
	for i := len(entries) - 1; i >= 0 && count < limit; i-- {
		entry := entries[i]
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		outcome, err := s.readOutcome(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}

		outcomes = append(outcomes, outcome)
		count++
	}

	return outcomes, nil
}

func (s *FileStorage) GetRecentOutcomes(since time.Time) ([]*domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ruleDirs, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, oops.With("directory", s.basePath, "context", "failed to read outcomes directory").Wrap(err)
	}

	var outcomes []*domain.Outcome
	for _, ruleDir := range ruleDirs {
		if !ruleDir.IsDir() {
			continue
		}

		dir := filepath.Join(s.basePath, ruleDir.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}

			outcome, err := s.readOutcome(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}

			if outcome.RecordedAt.After(since) {
				outcomes = append(outcomes, outcome)
			}
		}
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].RecordedAt.After(outcomes[j].RecordedAt)
	})

	return outcomes, nil
}

func (s *FileStorage) readOutcome(path string) (*domain.Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var outcome domain.Outcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil, err
	}

	return &outcome, nil
}
