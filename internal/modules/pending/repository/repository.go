package repository

import (
	"tgrelay/internal/modules/pending/domain"
)

// Repository defines the interface for pending send persistence
type Repository interface {
	SavePending(pending *domain.PendingSend) error
	GetPending(pendingID string) (*domain.PendingSend, error)
	GetAllPending() ([]*domain.PendingSend, error)
	DeletePending(pendingID string) error
}
