package domain

import "time"

// Outcome records what happened to one (message, rule, destination)
// triple during dispatch.
type Outcome struct {
	ID          string        `json:"id"`
	MessageID   int64         `json:"message_id"`
	SourceID    int64         `json:"source_id"`
	RuleID      string        `json:"rule_id"`
	Destination int64         `json:"destination,omitempty"`
	Status      OutcomeStatus `json:"status"`
	Text        string        `json:"text,omitempty"`
	ScheduledAt *time.Time    `json:"scheduled_at,omitempty"`
	RetryAfter  int           `json:"retry_after,omitempty"`
	Error       string        `json:"error,omitempty"`
	RecordedAt  time.Time     `json:"recorded_at"`
}

// Delivered reports whether the message actually left for the destination.
func (o Outcome) Delivered() bool {
	return o.Status == OutcomeStatusSent || o.Status == OutcomeStatusSentScheduled
}
