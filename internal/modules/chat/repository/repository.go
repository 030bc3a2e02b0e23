package repository

import (
	"tgrelay/internal/modules/chat/domain"
)

// Repository defines the interface for the chat registry
type Repository interface {
	SaveChat(chat *domain.Chat) error
	GetAllChats() ([]*domain.Chat, error)
}
