package repository

import (
	"tgrelay/internal/modules/rule/domain"
)

// Repository defines the interface for rule persistence
// This abstraction allows easy replacement of storage implementations
// (e.g., FileStorage -> PostgreSQL -> MongoDB)
type Repository interface {
	SaveRule(rule *domain.Rule) error
	GetRule(ruleID string) (*domain.Rule, error)
	GetAllRules() ([]*domain.Rule, error)
	DeleteRule(ruleID string) error
}
