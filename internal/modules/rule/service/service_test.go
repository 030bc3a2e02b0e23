package service

import (
	"errors"
	"testing"

	"tgrelay/internal/modules/rule/domain"
	"tgrelay/internal/modules/rule/repository"
	sharedErrors "tgrelay/internal/shared/errors"
)

func newService(t *testing.T) *Service {
	t.Helper()
	repo, err := repository.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	svc, err := New(repo)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestAddAssignsIdentity(t *testing.T) {
	svc := newService(t)

	rule := &domain.Rule{SourceID: -100, Destinations: []int64{1}}
	if err := svc.Add(rule); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if rule.ID == "" {
		t.Error("Add should assign an id")
	}
	if rule.AddedAt.IsZero() {
		t.Error("Add should stamp AddedAt")
	}
	if !rule.IsActive {
		t.Error("new rules start active")
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	svc := newService(t)

	if err := svc.Add(&domain.Rule{SourceID: -100}); err == nil {
		t.Error("rule without destinations should be rejected")
	}
	if err := svc.Add(&domain.Rule{SourceID: -100, Destinations: []int64{1}, RegexPattern: "[bad"}); err == nil {
		t.Error("rule with broken regex should be rejected")
	}
	if svc.Count() != 0 {
		t.Errorf("rejected rules must not be stored, count = %d", svc.Count())
	}
}

func TestRuleAtPositions(t *testing.T) {
	svc := newService(t)

	first := &domain.Rule{SourceID: -100, Destinations: []int64{1}}
	second := &domain.Rule{SourceID: -200, Destinations: []int64{2}}
	if err := svc.Add(first); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Add(second); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := svc.RuleAt(1)
	if err != nil || got.ID != first.ID {
		t.Errorf("RuleAt(1) = %v, %v; want first rule", got, err)
	}
	got, err = svc.RuleAt(2)
	if err != nil || got.ID != second.ID {
		t.Errorf("RuleAt(2) = %v, %v; want second rule", got, err)
	}

	if _, err := svc.RuleAt(0); !errors.Is(err, sharedErrors.ErrRuleNotFound) {
		t.Errorf("RuleAt(0) should fail, got %v", err)
	}
	if _, err := svc.RuleAt(3); !errors.Is(err, sharedErrors.ErrRuleNotFound) {
		t.Errorf("RuleAt(3) should fail, got %v", err)
	}
}

func TestDeleteShiftsPositions(t *testing.T) {
	svc := newService(t)

	for _, src := range []int64{-1, -2, -3} {
		if err := svc.Add(&domain.Rule{SourceID: src, Destinations: []int64{1}}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	first, err := svc.RuleAt(1)
	if err != nil {
		t.Fatalf("RuleAt: %v", err)
	}
	if err := svc.Delete(first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if svc.Count() != 2 {
		t.Fatalf("count = %d, want 2", svc.Count())
	}
	got, err := svc.RuleAt(1)
	if err != nil {
		t.Fatalf("RuleAt after delete: %v", err)
	}
	if got.SourceID != -2 {
		t.Errorf("position 1 after delete points at source %d, want -2", got.SourceID)
	}
}

func TestSnapshotActiveOnly(t *testing.T) {
	svc := newService(t)

	active := &domain.Rule{SourceID: -1, Destinations: []int64{1}, RegexPattern: `#\d+`}
	paused := &domain.Rule{SourceID: -2, Destinations: []int64{2}}
	if err := svc.Add(active); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Add(paused); err != nil {
		t.Fatalf("Add: %v", err)
	}

	paused.IsActive = false
	if err := svc.Save(paused); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snapshot := svc.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("snapshot has %d rules, want 1", len(snapshot))
	}
	if snapshot[0].ID != active.ID {
		t.Errorf("snapshot rule = %s, want %s", snapshot[0].ID, active.ID)
	}
	if snapshot[0].Regex == nil {
		t.Error("snapshot should carry the compiled regex")
	}
}

func TestLoadSkipsInvalidStoredRules(t *testing.T) {
	repo, err := repository.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}

	// Written behind the service's back, as an out-of-band edit would.
	if err := repo.SaveRule(&domain.Rule{ID: "valid", SourceID: -1, Destinations: []int64{1}, IsActive: true}); err != nil {
		t.Fatalf("SaveRule: %v", err)
	}
	if err := repo.SaveRule(&domain.Rule{ID: "no-dests", SourceID: -1}); err != nil {
		t.Fatalf("SaveRule: %v", err)
	}

	svc, err := New(repo)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if svc.Count() != 1 {
		t.Errorf("invalid stored rule should be skipped at load, count = %d", svc.Count())
	}
}
