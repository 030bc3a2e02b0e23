package service

import (
	"time"

	ruleDomain "tgrelay/internal/modules/rule/domain"
)

// ResolveSchedule returns the next occurrence of the rule's daily delivery
// time, or nil when the rule sends immediately. The returned instant is
// always strictly after now: todays's slot that has already passed (or is
// exactly now) rolls forward to tomorrow.
func ResolveSchedule(rule *ruleDomain.Rule, now time.Time) *time.Time {
	if rule.Schedule == nil {
		return nil
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), rule.Schedule.Hour, rule.Schedule.Minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return &at
}
