package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/oops"

	messageDomain "tgrelay/internal/modules/message/domain"
	"tgrelay/internal/modules/pending/domain"
	"tgrelay/internal/modules/pending/repository"
	"tgrelay/internal/platform"
	"tgrelay/internal/shared/ident"
)

// firing granularity; deferred sends are minute-resolution
const tickInterval = time.Second

// Service holds deferred sends and fires them when due. It implements
// platform.Deferred; the immediate sender is attached late because the
// telegram client is constructed after this service.
type Service struct {
	repo   repository.Repository
	sender platform.Sender
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new pending send service
func New(repo repository.Repository) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetSender attaches the platform sender used to fire due sends.
func (s *Service) SetSender(sender platform.Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// Start begins the firing loop.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.fireLoop()
}

// Stop stops the firing loop and waits for an in-flight fire to finish.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// SendScheduled enqueues a deferred send and returns its id.
func (s *Service) SendScheduled(ctx context.Context, destination int64, text string, media *messageDomain.MediaRef, at time.Time) (string, error) {
	pending := &domain.PendingSend{
		ID:          ident.New(),
		Destination: destination,
		Text:        text,
		Media:       media,
		At:          at,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.SavePending(pending); err != nil {
		return "", oops.With("destination", destination, "at", at, "context", "failed to enqueue scheduled send").Wrap(err)
	}

	slog.Info("Scheduled send enqueued", "pending_id", pending.ID, "destination", destination, "at", at)
	return pending.ID, nil
}

// ListScheduled returns sends queued for a destination, soonest first.
// destination 0 lists every queued send.
func (s *Service) ListScheduled(ctx context.Context, destination int64) ([]platform.ScheduledSend, error) {
	all, err := s.repo.GetAllPending()
	if err != nil {
		return nil, err
	}

	return lo.FilterMap(all, func(p *domain.PendingSend, _ int) (platform.ScheduledSend, bool) {
		if destination != 0 && p.Destination != destination {
			return platform.ScheduledSend{}, false
		}
		return platform.ScheduledSend{
			ID:          p.ID,
			Destination: p.Destination,
			At:          p.At,
			TextPreview: preview(p.Text),
		}, true
	}), nil
}

// DeleteScheduled cancels a queued send before it fires.
func (s *Service) DeleteScheduled(ctx context.Context, id string) error {
	return s.repo.DeletePending(id)
}

func (s *Service) fireLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.fireDue()
		}
	}
}

func (s *Service) fireDue() {
	s.mu.RLock()
	sender := s.sender
	s.mu.RUnlock()

	if sender == nil {
		return
	}

	all, err := s.repo.GetAllPending()
	if err != nil {
		slog.Error("Failed to load pending sends", "error", err)
		return
	}

	now := time.Now()
	for _, p := range all {
		if !p.Due(now) {
			continue
		}

		if err := s.fire(sender, p); err != nil {
			if rl, ok := platform.AsRateLimited(err); ok {
				// Leave it queued; the next tick retries after the wait
				// has passed.
				slog.Warn("Scheduled send rate limited", "pending_id", p.ID, "destination", p.Destination, "retry_after", rl.RetryAfter)
				continue
			}
			slog.Error("Scheduled send failed", "pending_id", p.ID, "destination", p.Destination, "error", err)
		} else {
			slog.Info("Scheduled send delivered", "pending_id", p.ID, "destination", p.Destination)
		}

		if err := s.repo.DeletePending(p.ID); err != nil {
			slog.Error("Failed to remove fired pending send", "pending_id", p.ID, "error", err)
		}
	}
}

func (s *Service) fire(sender platform.Sender, p *domain.PendingSend) error {
	if p.Media != nil {
		_, err := sender.SendMedia(s.ctx, p.Destination, *p.Media, p.Text)
		return err
	}
	_, err := sender.SendText(s.ctx, p.Destination, p.Text)
	return err
}

func preview(text string) string {
	const maxLen = 80
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
