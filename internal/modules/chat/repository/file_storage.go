package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/oops"

	"tgrelay/internal/modules/chat/domain"
)

// FileStorage implements chat.Repository using file system
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based chat registry
func NewFileStorage(basePath string) (Repository, error) {
	chatPath := filepath.Join(basePath, "chats")
	if err := os.MkdirAll(chatPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create chats directory").Wrap(err)
	}

	return &FileStorage{basePath: chatPath}, nil
}

func (s *FileStorage) SaveChat(chat *domain.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, fmt.Sprintf("%d.json", chat.ID))
	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return oops.With("chat_id", chat.ID, "context", "failed to marshal chat").Wrap(err)
	}

	return os.WriteFile(path, data, 0644)
}

func (s *FileStorage) GetAllChats() ([]*domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, oops.With("directory", s.basePath, "context", "failed to read chats directory").Wrap(err)
	}

	chats := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (*domain.Chat, bool) {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			return nil, false
		}

		path := filepath.Join(s.basePath, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, false
		}

		var chat domain.Chat
		if err := json.Unmarshal(data, &chat); err != nil {
			return nil, false
		}

		return &chat, true
	})

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastSeen.After(chats[j].LastSeen)
	})

	return chats, nil
}
