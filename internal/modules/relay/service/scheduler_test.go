package service

import (
	"testing"
	"time"

	ruleDomain "tgrelay/internal/modules/rule/domain"
)

func TestResolveScheduleImmediate(t *testing.T) {
	rule := &ruleDomain.Rule{}
	if at := ResolveSchedule(rule, time.Now()); at != nil {
		t.Errorf("rule without schedule should send immediately, got %v", at)
	}
}

func TestResolveSchedule(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		schedule ruleDomain.TimeOfDay
		wantDay  int
	}{
		{ruleDomain.TimeOfDay{Hour: 11}, 10}, // later today
		{ruleDomain.TimeOfDay{Hour: 9}, 11},  // already passed, tomorrow
		{ruleDomain.TimeOfDay{Hour: 10}, 11}, // exactly now rolls forward
	}

	for _, tt := range tests {
		rule := &ruleDomain.Rule{Schedule: &tt.schedule}
		at := ResolveSchedule(rule, now)
		if at == nil {
			t.Fatalf("schedule %s: got nil", tt.schedule)
		}
		if at.Day() != tt.wantDay || at.Hour() != tt.schedule.Hour || at.Minute() != tt.schedule.Minute {
			t.Errorf("schedule %s: got %v, want day %d at %s", tt.schedule, at, tt.wantDay, tt.schedule)
		}
		if !at.After(now) {
			t.Errorf("schedule %s: resolved time %v is not strictly after now", tt.schedule, at)
		}
	}
}
