package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/oops"

	"tgrelay/internal/modules/pending/domain"
	"tgrelay/internal/shared/errors"
)

// FileStorage implements pending.Repository using file system
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based pending send repository
func NewFileStorage(basePath string) (Repository, error) {
	pendingPath := filepath.Join(basePath, "pending")
	if err := os.MkdirAll(pendingPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create pending directory").Wrap(err)
	}

	return &FileStorage{basePath: pendingPath}, nil
}

func (s *FileStorage) SavePending(pending *domain.PendingSend) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, pending.ID+".json")
	data, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return oops.With("pending_id", pending.ID, "context", "failed to marshal pending send").Wrap(err)
	}

	return os.WriteFile(path, data, 0644)
}

func (s *FileStorage) GetPending(pendingID string) (*domain.PendingSend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := filepath.Join(s.basePath, pendingID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrPendingNotFound
		}
		return nil, oops.With("pending_id", pendingID, "context", "failed to read pending send").Wrap(err)
	}

	var pending domain.PendingSend
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, oops.With("pending_id", pendingID, "context", "failed to unmarshal pending send").Wrap(err)
	}

	return &pending, nil
}

func (s *FileStorage) GetAllPending() ([]*domain.PendingSend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, oops.With("directory", s.basePath, "context", "failed to read pending directory").Wrap(err)
	}

	pending := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (*domain.PendingSend, bool) {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			return nil, false
		}

		path := filepath.Join(s.basePath, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, false
		}

		var p domain.PendingSend
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, false
		}

		return &p, true
	})

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].At.Before(pending[j].At)
	})

	return pending, nil
}

func (s *FileStorage) DeletePending(pendingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, pendingID+".json")
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.ErrPendingNotFound
		}
		return oops.With("pending_id", pendingID, "context", "failed to delete pending send").Wrap(err)
	}
	return nil
}
