package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	messageDomain "tgrelay/internal/modules/message/domain"
	outcomeDomain "tgrelay/internal/modules/outcome/domain"
	outcomeRepo "tgrelay/internal/modules/outcome/repository"
	ruleService "tgrelay/internal/modules/rule/service"
	"tgrelay/internal/platform"
	"tgrelay/internal/shared/ident"
)

// Dispatcher runs the relay pipeline for each incoming event: rule
// selection, classification, transformation, confirmation, scheduling and
// fan-out, with per-destination error isolation. A rule snapshot is
// captured at session start; rule edits only take effect for the next
// session.
type Dispatcher struct {
	rules       *ruleService.Service
	transformer *Transformer
	confirmer   Confirmer
	outcomes    outcomeRepo.Repository

	mu       sync.RWMutex
	sender   platform.Sender
	deferred platform.Deferred
	snapshot []ruleService.ActiveRule
	running  bool

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a dispatcher. The platform sender is attached
// late via SetSender because the telegram client is built after the core.
func NewDispatcher(rules *ruleService.Service, transformer *Transformer, confirmer Confirmer, deferred platform.Deferred, outcomes outcomeRepo.Repository) *Dispatcher {
	return &Dispatcher{
		rules:       rules,
		transformer: transformer,
		confirmer:   confirmer,
		deferred:    deferred,
		outcomes:    outcomes,
		now:         time.Now,
		wait:        waitFor,
	}
}

// SetSender attaches the platform sender.
func (d *Dispatcher) SetSender(sender platform.Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sender = sender
}

// StartSession captures the current rule snapshot and begins relaying.
func (d *Dispatcher) StartSession() int {
	snapshot := d.rules.Snapshot()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshot = snapshot
	d.running = true
	return len(snapshot)
}

// StopSession stops relaying. In-flight dispatches complete naturally.
func (d *Dispatcher) StopSession() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.snapshot = nil
}

// Running reports whether a relay session is active.
func (d *Dispatcher) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Dispatch processes one incoming event against the session's rules and
// returns one outcome per (rule, destination) attempt. No error from a
// single rule or destination ever escapes this call.
func (d *Dispatcher) Dispatch(ctx context.Context, msg messageDomain.IncomingMessage) []outcomeDomain.Outcome {
	d.mu.RLock()
	rules := d.snapshot
	sender := d.sender
	d.mu.RUnlock()

	var results []outcomeDomain.Outcome
	for _, rule := range rules {
		if rule.SourceID != msg.ConversationID {
			continue
		}
		if msg.IsEdit && !rule.ForwardEdits {
			continue
		}

		if !Matches(msg, rule) {
			slog.Debug("Rule did not match", "rule_id", rule.ID, "message_id", msg.ID)
			continue
		}

		res := d.transformer.Transform(msg.Text, &rule.Rule)
		preview := d.transformer.Preview(res, msg.Entities, msg.Media != nil)

		approved, err := d.confirmer.Confirm(ctx, ConfirmRequest{
			Rule:         rule.Rule,
			Message:      msg,
			Preview:      preview,
			Destinations: rule.Destinations,
		})
		if err != nil {
			slog.Error("Confirmation failed, skipping rule", "rule_id", rule.ID, "message_id", msg.ID, "error", err)
			approved = false
		}
		if !approved {
			results = append(results, d.record(outcomeDomain.Outcome{
				MessageID: msg.ID,
				SourceID:  msg.ConversationID,
				RuleID:    rule.ID,
				Status:    outcomeDomain.OutcomeStatusSkippedDeclined,
			}))
			continue
		}

		at := ResolveSchedule(&rule.Rule, d.now())

		var media *messageDomain.MediaRef
		if rule.MediaIncluded() {
			media = msg.Media
		}

		// Each destination send is isolated; a failure on one does not
		// abort the rest.
		for _, dest := range rule.Destinations {
			results = append(results, d.record(d.deliver(ctx, sender, msg, rule, dest, res.Text, media, at)))
		}
	}

	return results
}

func (d *Dispatcher) deliver(ctx context.Context, sender platform.Sender, msg messageDomain.IncomingMessage, rule ruleService.ActiveRule, dest int64, text string, media *messageDomain.MediaRef, at *time.Time) outcomeDomain.Outcome {
	outcome := outcomeDomain.Outcome{
		MessageID:   msg.ID,
		SourceID:    msg.ConversationID,
		RuleID:      rule.ID,
		Destination: dest,
		Text:        text,
	}

	if at != nil {
		if _, err := d.deferred.SendScheduled(ctx, dest, text, media, *at); err != nil {
			outcome.Status = outcomeDomain.OutcomeStatusFailed
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Status = outcomeDomain.OutcomeStatusSentScheduled
		outcome.ScheduledAt = at
		return outcome
	}

	err := sendOnce(ctx, sender, dest, text, media)
	if rl, ok := platform.AsRateLimited(err); ok {
		slog.Warn("Send rate limited, waiting", "message_id", msg.ID, "rule_id", rule.ID, "destination", dest, "retry_after", rl.RetryAfter)
		if werr := d.wait(ctx, rl.RetryAfter); werr != nil {
			outcome.Status = outcomeDomain.OutcomeStatusFailed
			outcome.Error = werr.Error()
			return outcome
		}
		// Retry the exact send once after the mandated wait.
		err = sendOnce(ctx, sender, dest, text, media)
		if rl, ok := platform.AsRateLimited(err); ok {
			outcome.Status = outcomeDomain.OutcomeStatusDeferredRateLimit
			outcome.RetryAfter = int(rl.RetryAfter / time.Second)
			outcome.Error = rl.Error()
			return outcome
		}
	}

	if err != nil {
		outcome.Status = outcomeDomain.OutcomeStatusFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = outcomeDomain.OutcomeStatusSent
	return outcome
}

func sendOnce(ctx context.Context, sender platform.Sender, dest int64, text string, media *messageDomain.MediaRef) error {
	if media != nil {
		_, err := sender.SendMedia(ctx, dest, *media, text)
		return err
	}
	_, err := sender.SendText(ctx, dest, text)
	return err
}

func (d *Dispatcher) record(outcome outcomeDomain.Outcome) outcomeDomain.Outcome {
	outcome.ID = ident.New()
	outcome.RecordedAt = d.now()

	switch outcome.Status {
	case outcomeDomain.OutcomeStatusFailed, outcomeDomain.OutcomeStatusDeferredRateLimit:
		slog.Error("Dispatch outcome", "status", outcome.Status, "message_id", outcome.MessageID, "rule_id", outcome.RuleID, "destination", outcome.Destination, "error", outcome.Error)
	default:
		slog.Info("Dispatch outcome", "status", outcome.Status, "message_id", outcome.MessageID, "rule_id", outcome.RuleID, "destination", outcome.Destination)
	}

	if d.outcomes != nil {
		if err := d.outcomes.SaveOutcome(&outcome); err != nil {
			slog.Error("Failed to persist outcome", "outcome_id", outcome.ID, "error", err)
		}
	}
	return outcome
}

func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
