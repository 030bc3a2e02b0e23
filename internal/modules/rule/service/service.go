package service

import (
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/oops"

	"tgrelay/internal/modules/rule/domain"
	"tgrelay/internal/modules/rule/repository"
	"tgrelay/internal/shared/errors"
	"tgrelay/internal/shared/ident"
)

// ActiveRule is a validated rule with its regex pattern compiled, ready
// for per-message evaluation.
type ActiveRule struct {
	domain.Rule
	Regex *regexp.Regexp
}

// Service holds the rule collection keyed by id, with a stable creation
// order. Operator commands address rules by 1-based position; positions
// are translated to ids here so a delete never shifts the meaning of a
// later command.
type Service struct {
	repo  repository.Repository
	mu    sync.RWMutex
	rules map[string]*domain.Rule
	order []string
}

// New creates a rule service and loads the persisted collection.
// Rules that fail validation are skipped with a warning and excluded
// from the active set; they are not deleted from storage.
func New(repo repository.Repository) (*Service, error) {
	s := &Service{
		repo:  repo,
		rules: make(map[string]*domain.Rule),
	}

	stored, err := repo.GetAllRules()
	if err != nil {
		return nil, oops.With("context", "failed to load rules").Wrap(err)
	}

	for _, r := range stored {
		if err := r.Validate(); err != nil {
			slog.Warn("Rejecting invalid rule", "rule_id", r.ID, "source_id", r.SourceID, "error", err)
			continue
		}
		s.rules[r.ID] = r
		s.order = append(s.order, r.ID)
	}

	return s, nil
}

// Add validates and persists a new rule. ID and AddedAt are assigned here.
func (s *Service) Add(rule *domain.Rule) error {
	if rule.ID == "" {
		rule.ID = ident.New()
	}
	if rule.AddedAt.IsZero() {
		rule.AddedAt = time.Now()
	}
	rule.IsActive = true

	if err := rule.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SaveRule(rule); err != nil {
		return err
	}
	if _, exists := s.rules[rule.ID]; !exists {
		s.order = append(s.order, rule.ID)
	}
	s.rules[rule.ID] = rule
	return nil
}

// Save validates and persists changes to an existing rule.
func (s *Service) Save(rule *domain.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; !exists {
		return errors.ErrRuleNotFound
	}
	if err := s.repo.SaveRule(rule); err != nil {
		return err
	}
	s.rules[rule.ID] = rule
	return nil
}

// Delete removes a rule by id.
func (s *Service) Delete(ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[ruleID]; !exists {
		return errors.ErrRuleNotFound
	}
	if err := s.repo.DeleteRule(ruleID); err != nil {
		return err
	}
	delete(s.rules, ruleID)
	s.order = lo.Without(s.order, ruleID)
	return nil
}

// RuleAt resolves a 1-based position to a copy of the rule.
func (s *Service) RuleAt(pos int) (*domain.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos < 1 || pos > len(s.order) {
		return nil, errors.ErrRuleNotFound
	}
	copied := *s.rules[s.order[pos-1]]
	return &copied, nil
}

// Get returns a copy of the rule with the given id.
func (s *Service) Get(ruleID string) (*domain.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.rules[ruleID]
	if !exists {
		return nil, errors.ErrRuleNotFound
	}
	copied := *r
	return &copied, nil
}

// List returns copies of all rules in creation order.
func (s *Service) List() []*domain.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.order, func(id string, _ int) *domain.Rule {
		copied := *s.rules[id]
		return &copied
	})
}

// Count returns the number of rules in the store.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns the active rules in store order with compiled regex
// patterns. The dispatcher captures a snapshot at relay session start;
// later edits do not affect a running session.
func (s *Service) Snapshot() []ActiveRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]ActiveRule, 0, len(s.order))
	for _, id := range s.order {
		r := s.rules[id]
		if !r.IsActive {
			continue
		}

		active := ActiveRule{Rule: *r}
		if r.RegexPattern != "" {
			re, err := regexp.Compile(r.RegexPattern)
			if err != nil {
				// Validate catches this at load and on save; a rule can
				// only get here if storage was edited out of band.
				slog.Warn("Rejecting rule with invalid regex", "rule_id", r.ID, "pattern", r.RegexPattern, "error", err)
				continue
			}
			active.Regex = re
		}
		snapshot = append(snapshot, active)
	}
	return snapshot
}
