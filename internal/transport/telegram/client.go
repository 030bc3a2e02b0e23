package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"

	messageDomain "tgrelay/internal/modules/message/domain"
	"tgrelay/internal/platform"
)

// how many pushed messages are kept per source for the polling fallback
const bufferLimit = 500

// Client implements platform.Sender over the Bot API and serves as the
// pull-mode EventSource. The Bot API cannot fetch chat history, so Poll
// reads from a bounded buffer of pushed updates instead.
type Client struct {
	bot *bot.Bot

	mu      sync.Mutex
	buffers map[int64][]messageDomain.IncomingMessage
}

// NewClient creates a platform client bound to a bot instance.
func NewClient(b *bot.Bot) *Client {
	return &Client{
		bot:     b,
		buffers: make(map[int64][]messageDomain.IncomingMessage),
	}
}

func (c *Client) SendText(ctx context.Context, destination int64, text string) (int64, error) {
	m, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: destination,
		Text:   text,
	})
	if err != nil {
		return 0, mapError(err)
	}
	return int64(m.ID), nil
}

func (c *Client) SendMedia(ctx context.Context, destination int64, media messageDomain.MediaRef, caption string) (int64, error) {
	var m *models.Message
	var err error

	switch media.Type {
	case messageDomain.MediaTypePhoto:
		m, err = c.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  destination,
			Photo:   &models.InputFileString{Data: media.FileID},
			Caption: caption,
		})
	case messageDomain.MediaTypeVideo:
		m, err = c.bot.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:  destination,
			Video:   &models.InputFileString{Data: media.FileID},
			Caption: caption,
		})
	case messageDomain.MediaTypeAudio:
		m, err = c.bot.SendAudio(ctx, &bot.SendAudioParams{
			ChatID:  destination,
			Audio:   &models.InputFileString{Data: media.FileID},
			Caption: caption,
		})
	default:
		m, err = c.bot.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:   destination,
			Document: &models.InputFileString{Data: media.FileID},
			Caption:  caption,
		})
	}

	if err != nil {
		return 0, mapError(err)
	}
	return int64(m.ID), nil
}

// Observe records a pushed message into the poll buffer for its source.
func (c *Client) Observe(msg messageDomain.IncomingMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := append(c.buffers[msg.ConversationID], msg)
	if len(buf) > bufferLimit {
		buf = buf[len(buf)-bufferLimit:]
	}
	c.buffers[msg.ConversationID] = buf
}

// Poll returns buffered messages with ids strictly greater than sinceID,
// in arrival order.
func (c *Client) Poll(ctx context.Context, sourceID int64, sinceID int64) ([]messageDomain.IncomingMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return lo.Filter(c.buffers[sourceID], func(m messageDomain.IncomingMessage, _ int) bool {
		return m.ID > sinceID
	}), nil
}

// Latest returns the highest buffered message id for a source, 0 if none.
func (c *Client) Latest(ctx context.Context, sourceID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var latest int64
	for _, m := range c.buffers[sourceID] {
		if m.ID > latest {
			latest = m.ID
		}
	}
	return latest, nil
}

// mapError translates Bot API throttling into the platform taxonomy so
// the dispatcher can apply its retry policy.
func mapError(err error) error {
	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return &platform.RateLimitedError{RetryAfter: time.Duration(tooMany.RetryAfter) * time.Second}
	}
	return err
}
