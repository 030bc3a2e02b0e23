package service

import (
	"context"
	"sync"
	"testing"
	"time"

	messageDomain "tgrelay/internal/modules/message/domain"
	"tgrelay/internal/modules/pending/repository"
	"tgrelay/internal/platform"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	media []string
	err   error
}

func (f *fakeSender) SendText(_ context.Context, _ int64, text string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.texts = append(f.texts, text)
	return int64(len(f.texts)), nil
}

func (f *fakeSender) SendMedia(_ context.Context, _ int64, _ messageDomain.MediaRef, caption string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.media = append(f.media, caption)
	return int64(len(f.media)), nil
}

func newTestService(t *testing.T) (*Service, *fakeSender) {
	t.Helper()
	repo, err := repository.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	svc := New(repo)
	sender := &fakeSender{}
	svc.SetSender(sender)
	return svc, sender
}

func TestSendScheduledAndList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour)

	id, err := svc.SendScheduled(ctx, -200, "later", nil, at)
	if err != nil {
		t.Fatalf("SendScheduled: %v", err)
	}
	if id == "" {
		t.Fatal("SendScheduled should return an id")
	}

	all, err := svc.ListScheduled(ctx, 0)
	if err != nil {
		t.Fatalf("ListScheduled: %v", err)
	}
	if len(all) != 1 || all[0].ID != id || all[0].Destination != -200 {
		t.Errorf("ListScheduled = %v, want the enqueued send", all)
	}

	filtered, err := svc.ListScheduled(ctx, -999)
	if err != nil {
		t.Fatalf("ListScheduled: %v", err)
	}
	if len(filtered) != 0 {
		t.Errorf("destination filter should exclude other destinations, got %v", filtered)
	}
}

func TestDeleteScheduled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.SendScheduled(ctx, -200, "later", nil, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SendScheduled: %v", err)
	}
	if err := svc.DeleteScheduled(ctx, id); err != nil {
		t.Fatalf("DeleteScheduled: %v", err)
	}

	all, err := svc.ListScheduled(ctx, 0)
	if err != nil {
		t.Fatalf("ListScheduled: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("cancelled send still queued: %v", all)
	}
}

func TestFireDueDelivers(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SendScheduled(ctx, -200, "due now", nil, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SendScheduled: %v", err)
	}
	if _, err := svc.SendScheduled(ctx, -200, "not yet", nil, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SendScheduled: %v", err)
	}

	svc.fireDue()

	if len(sender.texts) != 1 || sender.texts[0] != "due now" {
		t.Errorf("only the due send should fire, got %v", sender.texts)
	}

	all, err := svc.ListScheduled(ctx, 0)
	if err != nil {
		t.Fatalf("ListScheduled: %v", err)
	}
	if len(all) != 1 || all[0].TextPreview != "not yet" {
		t.Errorf("the future send should stay queued, got %v", all)
	}
}

func TestFireDueMedia(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	media := &messageDomain.MediaRef{Type: messageDomain.MediaTypePhoto, FileID: "f"}
	if _, err := svc.SendScheduled(ctx, -200, "caption", media, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SendScheduled: %v", err)
	}

	svc.fireDue()

	if len(sender.media) != 1 || sender.media[0] != "caption" {
		t.Errorf("media send should go through SendMedia, got media=%v texts=%v", sender.media, sender.texts)
	}
}

func TestFireDueRateLimitedStaysQueued(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SendScheduled(ctx, -200, "due now", nil, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SendScheduled: %v", err)
	}

	sender.err = &platform.RateLimitedError{RetryAfter: 5 * time.Second}
	svc.fireDue()

	all, err := svc.ListScheduled(ctx, 0)
	if err != nil {
		t.Fatalf("ListScheduled: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("rate-limited send should stay queued for the next tick, got %v", all)
	}

	// Once the platform stops throttling, the next tick delivers and dequeues.
	sender.err = nil
	svc.fireDue()

	all, err = svc.ListScheduled(ctx, 0)
	if err != nil {
		t.Fatalf("ListScheduled: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("send should be gone after delivery, got %v", all)
	}
	if len(sender.texts) != 1 {
		t.Errorf("expected one delivery, got %v", sender.texts)
	}
}
