package repository

import (
	"time"

	"tgrelay/internal/modules/outcome/domain"
)

// Repository defines the interface for dispatch outcome persistence
type Repository interface {
	SaveOutcome(outcome *domain.Outcome) error
	GetOutcomes(ruleID string, limit int) ([]*domain.Outcome, error)
	GetRecentOutcomes(since time.Time) ([]*domain.Outcome, error)
}
