package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	relayService "tgrelay/internal/modules/relay/service"
	"tgrelay/internal/shared/ident"
)

const confirmCallbackPrefix = "relay:"

// PromptConfirmer satisfies the dispatcher's confirmation step by sending
// the preview to the admin chat with Forward/Skip buttons and waiting for
// the operator's answer. Timeouts decline.
type PromptConfirmer struct {
	adminChatID int64
	timeout     time.Duration

	mu      sync.Mutex
	bot     *bot.Bot
	pending map[string]chan bool
}

// NewPromptConfirmer creates an interactive confirmer targeting the admin chat.
func NewPromptConfirmer(adminChatID int64, timeout time.Duration) *PromptConfirmer {
	return &PromptConfirmer{
		adminChatID: adminChatID,
		timeout:     timeout,
		pending:     make(map[string]chan bool),
	}
}

// SetBot attaches the bot instance and registers the callback handler.
func (p *PromptConfirmer) SetBot(b *bot.Bot) {
	p.mu.Lock()
	p.bot = b
	p.mu.Unlock()

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, confirmCallbackPrefix, bot.MatchTypePrefix, p.handleCallback)
}

func (p *PromptConfirmer) Confirm(ctx context.Context, req relayService.ConfirmRequest) (bool, error) {
	p.mu.Lock()
	b := p.bot
	p.mu.Unlock()

	if b == nil {
		return false, fmt.Errorf("confirmer has no bot attached")
	}

	token := ident.New()
	answer := make(chan bool, 1)

	p.mu.Lock()
	p.pending[token] = answer
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, token)
		p.mu.Unlock()
	}()

	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "✅ Forward", CallbackData: confirmCallbackPrefix + "yes:" + token},
			{Text: "❌ Skip", CallbackData: confirmCallbackPrefix + "no:" + token},
		}},
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      p.adminChatID,
		Text:        promptText(req),
		ReplyMarkup: kb,
	}); err != nil {
		return false, err
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case approved := <-answer:
		return approved, nil
	case <-timer.C:
		slog.Info("Confirmation timed out, declining", "rule_id", req.Rule.ID, "message_id", req.Message.ID)
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (p *PromptConfirmer) handleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	data := strings.TrimPrefix(update.CallbackQuery.Data, confirmCallbackPrefix)
	verdict, token, found := strings.Cut(data, ":")
	if !found {
		return
	}

	p.mu.Lock()
	answer, ok := p.pending[token]
	p.mu.Unlock()

	ack := "Already answered"
	if ok {
		select {
		case answer <- verdict == "yes":
		default:
		}
		if verdict == "yes" {
			ack = "Forwarding"
		} else {
			ack = "Skipped"
		}
	}

	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            ack,
	})
}

func promptText(req relayService.ConfirmRequest) string {
	var b strings.Builder
	b.WriteString("📨 Forward this message?\n\n")
	b.WriteString(req.Preview)
	b.WriteString(fmt.Sprintf("\n\nSource: %d\nDestinations: %s", req.Message.ConversationID, joinIDs(req.Destinations)))
	if req.Rule.Schedule != nil {
		b.WriteString(fmt.Sprintf("\nScheduled daily at %s", req.Rule.Schedule))
	}
	return b.String()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
