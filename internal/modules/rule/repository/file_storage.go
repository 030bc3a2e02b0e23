package repository

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/oops"

	"tgrelay/internal/modules/rule/domain"
	"tgrelay/internal/shared/errors"
)

// FileStorage implements rule.Repository using file system
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based rule repository
func NewFileStorage(basePath string) (Repository, error) {
	rulePath := filepath.Join(basePath, "rules")
	if err := os.MkdirAll(rulePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create rules directory").Wrap(err)
	}

	return &FileStorage{basePath: rulePath}, nil
}

func (s *FileStorage) SaveRule(rule *domain.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, rule.ID+".json")
	data, err := json.MarshalIndent(rule, "", "  ")
	if err != nil {
		return oops.With("rule_id", rule.ID, "context", "failed to marshal rule").Wrap(err)
	}

	return os.WriteFile(path, data, 0644)
}

func (s *FileStorage) GetRule(ruleID string) (*domain.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := filepath.Join(s.basePath, ruleID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrRuleNotFound
		}
		return nil, oops.With("rule_id", ruleID, "context", "failed to read rule").Wrap(err)
	}

	var rule domain.Rule
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, oops.With("rule_id", ruleID, "context", "failed to unmarshal rule").Wrap(err)
	}

	return &rule, nil
}

// GetAllRules returns every stored rule ordered by creation time, which is
// the evaluation order of the dispatcher.
func (s *FileStorage) GetAllRules() ([]*domain.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, oops.With("directory", s.basePath, "context", "failed to read rules directory").Wrap(err)
	}

	rules := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (*domain.Rule, bool) {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			return nil, false
		}

		path := filepath.Join(s.basePath, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, false
		}

		var rule domain.Rule
		if err := json.Unmarshal(data, &rule); err != nil {
			slog.Warn("Skipping unparseable rule file", "path", path, "error", err)
			return nil, false
		}

		return &rule, true
	})

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].AddedAt.Equal(rules[j].AddedAt) {
			return rules[i].ID < rules[j].ID
		}
		return rules[i].AddedAt.Before(rules[j].AddedAt)
	})

	return rules, nil
}

func (s *FileStorage) DeleteRule(ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, ruleID+".json")
	return os.Remove(path)
}
