package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	messageDomain "tgrelay/internal/modules/message/domain"
)

// EventSource is the pull-mode ingestion boundary. Poll returns messages
// with ids strictly greater than sinceID, in ascending id order. Latest
// returns the newest known id for a conversation, used to seed the cursor
// so a fresh start does not replay history.
type EventSource interface {
	Poll(ctx context.Context, sourceID int64, sinceID int64) ([]messageDomain.IncomingMessage, error)
	Latest(ctx context.Context, sourceID int64) (int64, error)
}

// Cursor tracks the highest message id observed per conversation. It
// advances on every observed message, independent of match outcome, so
// nothing is re-evaluated or skipped.
type Cursor struct {
	mu   sync.Mutex
	last map[int64]int64
}

func NewCursor() *Cursor {
	return &Cursor{last: make(map[int64]int64)}
}

// Last returns the highest id observed for a conversation, 0 if none.
func (c *Cursor) Last(sourceID int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last[sourceID]
}

// Advance raises the cursor to id if it is higher than the current value.
func (c *Cursor) Advance(sourceID, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id > c.last[sourceID] {
		c.last[sourceID] = id
	}
}

// Poller is the pull-mode ingestion loop: it polls each source past its
// cursor and feeds new messages to the dispatcher in order.
type Poller struct {
	source     EventSource
	dispatcher *Dispatcher
	cursor     *Cursor
	sources    []int64
	interval   time.Duration
}

func NewPoller(source EventSource, dispatcher *Dispatcher, sources []int64, interval time.Duration) *Poller {
	return &Poller{
		source:     source,
		dispatcher: dispatcher,
		cursor:     NewCursor(),
		sources:    sources,
		interval:   interval,
	}
}

// Run polls until the context is cancelled. Cursors are seeded from the
// newest message per source so only messages arriving after start are
// relayed, matching push-mode behavior.
func (p *Poller) Run(ctx context.Context) {
	for _, src := range p.sources {
		latest, err := p.source.Latest(ctx, src)
		if err != nil {
			slog.Warn("Failed to seed cursor, starting from zero", "source_id", src, "error", err)
			continue
		}
		p.cursor.Advance(src, latest)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	for _, src := range p.sources {
		messages, err := p.source.Poll(ctx, src, p.cursor.Last(src))
		if err != nil {
			slog.Error("Poll failed", "source_id", src, "error", err)
			continue
		}

		for _, msg := range messages {
			// Advance before dispatching: the cursor reflects what was
			// observed, not what matched.
			p.cursor.Advance(src, msg.ID)
			p.dispatcher.Dispatch(ctx, msg)
		}
	}
}
