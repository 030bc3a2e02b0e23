// Package platform defines the boundary to the chat platform. The relay
// core is written against these interfaces; the Telegram implementation
// lives in internal/transport/telegram.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	messageDomain "tgrelay/internal/modules/message/domain"
)

// Sender performs immediate sends to a destination conversation.
type Sender interface {
	SendText(ctx context.Context, destination int64, text string) (int64, error)
	SendMedia(ctx context.Context, destination int64, media messageDomain.MediaRef, caption string) (int64, error)
}

// ScheduledSend describes a send held for future delivery.
type ScheduledSend struct {
	ID          string    `json:"id"`
	Destination int64     `json:"destination"`
	At          time.Time `json:"at"`
	TextPreview string    `json:"text_preview"`
}

// Deferred manages sends held until a delivery instant.
type Deferred interface {
	SendScheduled(ctx context.Context, destination int64, text string, media *messageDomain.MediaRef, at time.Time) (string, error)
	ListScheduled(ctx context.Context, destination int64) ([]ScheduledSend, error)
	DeleteScheduled(ctx context.Context, id string) error
}

// Client is the full outbound platform surface.
type Client interface {
	Sender
	Deferred
}

// RateLimitedError signals platform throttling. The caller must wait
// RetryAfter before retrying the exact operation that triggered it.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// AsRateLimited unwraps err into a RateLimitedError if it carries one.
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
