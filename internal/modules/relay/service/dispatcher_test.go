package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	messageDomain "tgrelay/internal/modules/message/domain"
	outcomeDomain "tgrelay/internal/modules/outcome/domain"
	ruleDomain "tgrelay/internal/modules/rule/domain"
	ruleRepo "tgrelay/internal/modules/rule/repository"
	ruleService "tgrelay/internal/modules/rule/service"
	"tgrelay/internal/platform"
	"tgrelay/internal/shared/ident"
)

type sendCall struct {
	dest    int64
	text    string
	isMedia bool
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sendCall
	errs  map[int64][]error
}

func (f *fakeSender) SendText(_ context.Context, dest int64, text string) (int64, error) {
	return f.record(dest, text, false)
}

func (f *fakeSender) SendMedia(_ context.Context, dest int64, _ messageDomain.MediaRef, caption string) (int64, error) {
	return f.record(dest, caption, true)
}

func (f *fakeSender) record(dest int64, text string, isMedia bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sendCall{dest, text, isMedia})
	if q := f.errs[dest]; len(q) > 0 {
		err := q[0]
		f.errs[dest] = q[1:]
		if err != nil {
			return 0, err
		}
	}
	return int64(len(f.calls)), nil
}

type fakeDeferred struct {
	mu       sync.Mutex
	enqueued []platform.ScheduledSend
}

func (f *fakeDeferred) SendScheduled(_ context.Context, dest int64, text string, _ *messageDomain.MediaRef, at time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := ident.New()
	f.enqueued = append(f.enqueued, platform.ScheduledSend{ID: id, Destination: dest, At: at, TextPreview: text})
	return id, nil
}

func (f *fakeDeferred) ListScheduled(_ context.Context, _ int64) ([]platform.ScheduledSend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enqueued, nil
}

func (f *fakeDeferred) DeleteScheduled(_ context.Context, _ string) error {
	return nil
}

func newTestDispatcher(t *testing.T, confirmer Confirmer, rules ...*ruleDomain.Rule) (*Dispatcher, *fakeSender, *fakeDeferred) {
	t.Helper()

	repo, err := ruleRepo.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	svc, err := ruleService.New(repo)
	if err != nil {
		t.Fatalf("rule service: %v", err)
	}
	for _, r := range rules {
		if err := svc.Add(r); err != nil {
			t.Fatalf("Add rule: %v", err)
		}
	}

	sender := &fakeSender{errs: make(map[int64][]error)}
	deferred := &fakeDeferred{}

	d := NewDispatcher(svc, NewTransformer(nil), confirmer, deferred, nil)
	d.SetSender(sender)
	d.wait = func(ctx context.Context, dur time.Duration) error { return nil }
	d.StartSession()
	return d, sender, deferred
}

func statuses(outcomes []outcomeDomain.Outcome) []outcomeDomain.OutcomeStatus {
	out := make([]outcomeDomain.OutcomeStatus, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Status
	}
	return out
}

func TestDispatchFanOutIsolation(t *testing.T) {
	d, sender, _ := newTestDispatcher(t, AutoApprove,
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{1, 2, 3}})
	sender.errs[2] = []error{errors.New("chat not found")}

	outcomes := d.Dispatch(context.Background(), textMessage("hello"))

	want := []outcomeDomain.OutcomeStatus{
		outcomeDomain.OutcomeStatusSent,
		outcomeDomain.OutcomeStatusFailed,
		outcomeDomain.OutcomeStatusSent,
	}
	got := statuses(outcomes)
	if len(got) != len(want) {
		t.Fatalf("got %d outcomes (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("outcome[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if outcomes[1].Error == "" {
		t.Error("failed outcome should carry the error text")
	}
}

func TestDispatchRateLimitRetryOnce(t *testing.T) {
	d, sender, _ := newTestDispatcher(t, AutoApprove,
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{1}})
	sender.errs[1] = []error{&platform.RateLimitedError{RetryAfter: 5 * time.Second}}

	var waited time.Duration
	d.wait = func(ctx context.Context, dur time.Duration) error {
		waited = dur
		return nil
	}

	outcomes := d.Dispatch(context.Background(), textMessage("hello"))

	if len(outcomes) != 1 || outcomes[0].Status != outcomeDomain.OutcomeStatusSent {
		t.Fatalf("expected one sent outcome after retry, got %v", statuses(outcomes))
	}
	if waited != 5*time.Second {
		t.Errorf("waited %v, want 5s", waited)
	}
	if len(sender.calls) != 2 {
		t.Errorf("expected exactly one retry (2 sends), got %d", len(sender.calls))
	}
}

func TestDispatchSecondRateLimitDefers(t *testing.T) {
	d, sender, _ := newTestDispatcher(t, AutoApprove,
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{1}})
	sender.errs[1] = []error{
		&platform.RateLimitedError{RetryAfter: 5 * time.Second},
		&platform.RateLimitedError{RetryAfter: 30 * time.Second},
	}

	outcomes := d.Dispatch(context.Background(), textMessage("hello"))

	if len(outcomes) != 1 || outcomes[0].Status != outcomeDomain.OutcomeStatusDeferredRateLimit {
		t.Fatalf("expected deferred_rate_limit, got %v", statuses(outcomes))
	}
	if outcomes[0].RetryAfter != 30 {
		t.Errorf("RetryAfter = %d, want 30", outcomes[0].RetryAfter)
	}
	if len(sender.calls) != 2 {
		t.Errorf("expected no third attempt, got %d sends", len(sender.calls))
	}
}

func TestDispatchDeclined(t *testing.T) {
	d, sender, _ := newTestDispatcher(t, AutoDecline,
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{1, 2}})

	outcomes := d.Dispatch(context.Background(), textMessage("hello"))

	if len(outcomes) != 1 || outcomes[0].Status != outcomeDomain.OutcomeStatusSkippedDeclined {
		t.Fatalf("expected a single declined outcome, got %v", statuses(outcomes))
	}
	if len(sender.calls) != 0 {
		t.Errorf("declined message must not be sent, got %d sends", len(sender.calls))
	}
}

func TestDispatchDeclineIsolatedPerRule(t *testing.T) {
	declineFirst := true
	confirmer := ConfirmerFunc(func(_ context.Context, req ConfirmRequest) (bool, error) {
		if declineFirst {
			declineFirst = false
			return false, nil
		}
		return true, nil
	})

	d, sender, _ := newTestDispatcher(t, confirmer,
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{1}},
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{2}})

	outcomes := d.Dispatch(context.Background(), textMessage("hello"))

	got := statuses(outcomes)
	if len(got) != 2 || got[0] != outcomeDomain.OutcomeStatusSkippedDeclined || got[1] != outcomeDomain.OutcomeStatusSent {
		t.Fatalf("decline on one rule must not affect the other, got %v", got)
	}
	if len(sender.calls) != 1 || sender.calls[0].dest != 2 {
		t.Errorf("only the approved rule's destination should receive, got %v", sender.calls)
	}
}

func TestDispatchEditGating(t *testing.T) {
	d, _, _ := newTestDispatcher(t, AutoApprove,
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{1}},
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{2}, ForwardEdits: true})

	msg := textMessage("edited text")
	msg.IsEdit = true

	outcomes := d.Dispatch(context.Background(), msg)

	if len(outcomes) != 1 {
		t.Fatalf("only the forward_edits rule should fire, got %v", statuses(outcomes))
	}
	if outcomes[0].Destination != 2 {
		t.Errorf("outcome destination = %d, want 2", outcomes[0].Destination)
	}
}

func TestDispatchScheduled(t *testing.T) {
	d, sender, deferred := newTestDispatcher(t, AutoApprove,
		&ruleDomain.Rule{
			SourceID:     -100,
			Destinations: []int64{1},
			Schedule:     &ruleDomain.TimeOfDay{Hour: 9},
		})
	d.now = func() time.Time { return time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC) }

	outcomes := d.Dispatch(context.Background(), textMessage("morning digest"))

	if len(outcomes) != 1 || outcomes[0].Status != outcomeDomain.OutcomeStatusSentScheduled {
		t.Fatalf("expected sent_scheduled, got %v", statuses(outcomes))
	}
	if outcomes[0].ScheduledAt == nil {
		t.Fatal("scheduled outcome should carry the delivery instant")
	}
	if day := outcomes[0].ScheduledAt.Day(); day != 11 {
		t.Errorf("09:00 slot at 10:00 should roll to tomorrow, got day %d", day)
	}
	if len(sender.calls) != 0 {
		t.Error("scheduled rule must not send immediately")
	}
	if len(deferred.enqueued) != 1 {
		t.Errorf("expected one enqueued scheduled send, got %d", len(deferred.enqueued))
	}
}

func TestDispatchMediaExcluded(t *testing.T) {
	off := false
	d, sender, _ := newTestDispatcher(t, AutoApprove,
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{1}, IncludeMedia: &off})

	msg := textMessage("caption")
	msg.Media = &messageDomain.MediaRef{Type: messageDomain.MediaTypePhoto, FileID: "f"}

	outcomes := d.Dispatch(context.Background(), msg)

	if len(outcomes) != 1 || outcomes[0].Status != outcomeDomain.OutcomeStatusSent {
		t.Fatalf("expected one sent outcome, got %v", statuses(outcomes))
	}
	if len(sender.calls) != 1 || sender.calls[0].isMedia {
		t.Errorf("media-excluded rule should send text only, got %v", sender.calls)
	}
}

func TestDispatchIgnoresOtherConversations(t *testing.T) {
	d, sender, _ := newTestDispatcher(t, AutoApprove,
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{1}})

	msg := textMessage("hello")
	msg.ConversationID = -999

	if outcomes := d.Dispatch(context.Background(), msg); len(outcomes) != 0 {
		t.Fatalf("message from an unbound conversation produced outcomes: %v", statuses(outcomes))
	}
	if len(sender.calls) != 0 {
		t.Errorf("unexpected sends: %v", sender.calls)
	}
}

func TestDispatchNoMatchNoOutcome(t *testing.T) {
	d, sender, _ := newTestDispatcher(t, AutoApprove,
		&ruleDomain.Rule{SourceID: -100, Destinations: []int64{1}, Keywords: []string{"breaking"}})

	if outcomes := d.Dispatch(context.Background(), textMessage("quiet day")); len(outcomes) != 0 {
		t.Fatalf("non-matching message produced outcomes: %v", statuses(outcomes))
	}
	if len(sender.calls) != 0 {
		t.Errorf("unexpected sends: %v", sender.calls)
	}
}

func TestSnapshotFrozenAtSessionStart(t *testing.T) {
	repo, err := ruleRepo.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	svc, err := ruleService.New(repo)
	if err != nil {
		t.Fatalf("rule service: %v", err)
	}
	if err := svc.Add(&ruleDomain.Rule{SourceID: -100, Destinations: []int64{1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	sender := &fakeSender{errs: make(map[int64][]error)}
	d := NewDispatcher(svc, NewTransformer(nil), AutoApprove, &fakeDeferred{}, nil)
	d.SetSender(sender)
	d.StartSession()

	// An addition after session start must not be visible to this session.
	if err := svc.Add(&ruleDomain.Rule{SourceID: -100, Destinations: []int64{2}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	outcomes := d.Dispatch(context.Background(), textMessage("hello"))
	if len(outcomes) != 1 || outcomes[0].Destination != 1 {
		t.Fatalf("session should use the snapshot captured at start, got %v", outcomes)
	}
}
