package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"

	chatDomain "tgrelay/internal/modules/chat/domain"
	chatRepo "tgrelay/internal/modules/chat/repository"
	messageDomain "tgrelay/internal/modules/message/domain"
	relayService "tgrelay/internal/modules/relay/service"
	ruleDomain "tgrelay/internal/modules/rule/domain"
	ruleService "tgrelay/internal/modules/rule/service"
	"tgrelay/internal/platform"
	"tgrelay/internal/shared/config"
)

// per-conversation dispatch queue depth
const queueDepth = 64

// Handler drives the operator command surface and feeds incoming updates
// to the relay pipeline. Events from the same conversation are processed
// in order on a dedicated queue; distinct conversations interleave.
type Handler struct {
	cfg        *config.Config
	rules      *ruleService.Service
	dispatcher *relayService.Dispatcher
	deferred   platform.Deferred
	chats      chatRepo.Repository

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	client     *Client
	queues     map[int64]chan messageDomain.IncomingMessage
	pollCancel context.CancelFunc
}

// New creates a new Telegram handler
func New(cfg *config.Config, rules *ruleService.Service, dispatcher *relayService.Dispatcher, deferred platform.Deferred, chats chatRepo.Repository) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		cfg:        cfg,
		rules:      rules,
		dispatcher: dispatcher,
		deferred:   deferred,
		chats:      chats,
		ctx:        ctx,
		cancel:     cancel,
		queues:     make(map[int64]chan messageDomain.IncomingMessage),
	}
}

// SetClient attaches the platform client used for the polling fallback.
func (h *Handler) SetClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.client = c
}

// Stop ends relaying and the per-conversation workers.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.pollCancel != nil {
		h.pollCancel()
		h.pollCancel = nil
	}
	h.mu.Unlock()
	h.cancel()
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/chats", bot.MatchTypeExact, h.handleChats)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/rules", bot.MatchTypeExact, h.handleListRules)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/addrule", bot.MatchTypePrefix, h.handleAddRule)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/setrule", bot.MatchTypePrefix, h.handleSetRule)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/delrule", bot.MatchTypePrefix, h.handleDeleteRule)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/startrelay", bot.MatchTypeExact, h.handleStartRelay)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stoprelay", bot.MatchTypeExact, h.handleStopRelay)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/scheduled", bot.MatchTypePrefix, h.handleScheduled)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/cancelscheduled", bot.MatchTypePrefix, h.handleCancelScheduled)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.handleStatus)
}

// HandleUpdate processes incoming updates that no command handler matched:
// new and edited messages from every conversation the bot can see.
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg, isEdit := messageFrom(update)
	if msg == nil {
		return
	}

	h.recordChat(msg)

	incoming := toIncoming(msg, isEdit)

	h.mu.Lock()
	client := h.client
	h.mu.Unlock()
	if client != nil {
		client.Observe(incoming)
	}

	if h.cfg.IngestMode == config.IngestModePush && h.dispatcher.Running() {
		h.enqueue(incoming)
	}
}

// enqueue hands the event to its conversation's worker. Same-conversation
// events stay ordered; a rate-limit wait in one conversation does not
// stall the others.
func (h *Handler) enqueue(msg messageDomain.IncomingMessage) {
	h.mu.Lock()
	q, ok := h.queues[msg.ConversationID]
	if !ok {
		q = make(chan messageDomain.IncomingMessage, queueDepth)
		h.queues[msg.ConversationID] = q
		go h.dispatchLoop(q)
	}
	h.mu.Unlock()

	select {
	case q <- msg:
	default:
		slog.Warn("Conversation queue full, dropping event", "conversation_id", msg.ConversationID, "message_id", msg.ID)
	}
}

func (h *Handler) dispatchLoop(q chan messageDomain.IncomingMessage) {
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg := <-q:
			h.dispatcher.Dispatch(h.ctx, msg)
		}
	}
}

func (h *Handler) recordChat(msg *models.Message) {
	chat := &chatDomain.Chat{
		ID:       msg.Chat.ID,
		Title:    chatTitle(msg.Chat),
		Kind:     string(msg.Chat.Type),
		LastSeen: time.Now(),
	}
	if err := h.chats.SaveChat(chat); err != nil {
		slog.Error("Failed to record chat", "chat_id", chat.ID, "error", err)
	}
}

func (h *Handler) checkAuthorization(update *models.Update) bool {
	return update.Message != nil && update.Message.From != nil && h.cfg.Authorized(update.Message.From.ID)
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
}

// guardEditing enforces the edit/relay mutual exclusion.
func (h *Handler) guardEditing(ctx context.Context, b *bot.Bot, update *models.Update) bool {
	if h.dispatcher.Running() {
		h.reply(ctx, b, update, "⏸ Stop the relay before editing rules (/stoprelay).")
		return false
	}
	return true
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ You are not authorized to use this bot.")
		return
	}

	text := `👋 Welcome to the relay bot!

I forward messages from source conversations to destinations, with
filtering, transformation and scheduling per rule.

Available commands:
/help - Show this help message
/chats - List conversations I have seen
/rules - List forwarding rules
/addrule <source_id> <dest_id[,dest_id...]> [keyword,keyword...] - Add a rule
/setrule <n> <field> <value> - Edit rule n (keywords, regex, prefix, suffix, schedule, time_range, remove_links, include_media, forward_edits, active)
/delrule <n> - Delete rule n
/startrelay - Start relaying with the current rules
/stoprelay - Stop relaying
/scheduled [dest_id] - List queued scheduled sends
/cancelscheduled <id> - Cancel a scheduled send
/status - Show relay status

Example:
/addrule -1001234567890 -1009876543210 breaking,urgent`

	h.reply(ctx, b, update, text)
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleStart(ctx, b, update)
}

func (h *Handler) handleChats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	chats, err := h.chats.GetAllChats()
	if err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to list chats: %v", err))
		return
	}

	if len(chats) == 0 {
		h.reply(ctx, b, update, "📭 No chats seen yet. Add me to the conversations you want to relay.")
		return
	}

	var text strings.Builder
	text.WriteString("💬 Known conversations:\n\n")
	for _, ch := range chats {
		text.WriteString(fmt.Sprintf("%s (%s)\n   ID: %d\n\n", ch.Title, ch.Kind, ch.ID))
	}
	h.reply(ctx, b, update, text.String())
}

func (h *Handler) handleListRules(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	rules := h.rules.List()
	if len(rules) == 0 {
		h.reply(ctx, b, update, "📭 No rules yet.\nUse /addrule to add one.")
		return
	}

	var text strings.Builder
	text.WriteString("📋 Forwarding rules:\n\n")
	for i, r := range rules {
		text.WriteString(formatRule(i+1, r))
		text.WriteString("\n")
	}
	h.reply(ctx, b, update, text.String())
}

func (h *Handler) handleAddRule(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}
	if !h.guardEditing(ctx, b, update) {
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 3 {
		h.reply(ctx, b, update, "Usage: /addrule <source_id> <dest_id[,dest_id...]> [keyword,keyword...]\nExample: /addrule -1001234567890 -1009876543210 breaking,urgent")
		return
	}

	sourceID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		h.reply(ctx, b, update, "❌ Invalid source id")
		return
	}

	destinations, ok := parseIDList(parts[2])
	if !ok || len(destinations) == 0 {
		h.reply(ctx, b, update, "❌ Invalid destination list")
		return
	}

	rule := &ruleDomain.Rule{
		SourceID:     sourceID,
		Destinations: destinations,
	}
	if len(parts) >= 4 {
		rule.Keywords = splitList(parts[3])
	}

	if err := h.rules.Add(rule); err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to add rule: %v", err))
		return
	}

	h.reply(ctx, b, update, fmt.Sprintf("✅ Rule %d added: %d → %s", h.rules.Count(), sourceID, joinIDs(destinations)))
}

func (h *Handler) handleSetRule(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}
	if !h.guardEditing(ctx, b, update) {
		return
	}

	usage := "Usage: /setrule <n> <field> <value>\nFields: keywords, regex, prefix, suffix, schedule (HH:MM or -), time_range (HH:MM-HH:MM or -), remove_links, include_media, forward_edits, active"

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 4 {
		h.reply(ctx, b, update, usage)
		return
	}

	pos, err := strconv.Atoi(parts[1])
	if err != nil {
		h.reply(ctx, b, update, "❌ Invalid rule number")
		return
	}

	rule, err := h.rules.RuleAt(pos)
	if err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Rule not found: %d", pos))
		return
	}

	field := strings.ToLower(parts[2])
	value := strings.Join(parts[3:], " ")

	if err := applyRuleField(rule, field, value); err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ %v\n\n%s", err, usage))
		return
	}

	if err := h.rules.Save(rule); err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to save rule: %v", err))
		return
	}

	h.reply(ctx, b, update, fmt.Sprintf("✅ Rule %d updated:\n%s", pos, formatRule(pos, rule)))
}

func (h *Handler) handleDeleteRule(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}
	if !h.guardEditing(ctx, b, update) {
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		h.reply(ctx, b, update, "Usage: /delrule <n>")
		return
	}

	pos, err := strconv.Atoi(parts[1])
	if err != nil {
		h.reply(ctx, b, update, "❌ Invalid rule number")
		return
	}

	rule, err := h.rules.RuleAt(pos)
	if err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Rule not found: %d", pos))
		return
	}

	if err := h.rules.Delete(rule.ID); err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to delete rule: %v", err))
		return
	}

	h.reply(ctx, b, update, fmt.Sprintf("✅ Rule %d deleted", pos))
}

func (h *Handler) handleStartRelay(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	if h.dispatcher.Running() {
		h.reply(ctx, b, update, "▶️ Relay is already running.")
		return
	}

	count := h.dispatcher.StartSession()
	if count == 0 {
		h.dispatcher.StopSession()
		h.reply(ctx, b, update, "📭 No active rules to relay. Add one with /addrule first.")
		return
	}

	if h.cfg.IngestMode == config.IngestModePoll {
		h.startPoller()
	}

	h.reply(ctx, b, update, fmt.Sprintf("▶️ Relay started with %d rule(s) in %s mode.", count, h.cfg.IngestMode))
}

func (h *Handler) startPoller() {
	h.mu.Lock()
	defer h.mu.Unlock()

	sources := lo.Uniq(lo.FilterMap(h.rules.List(), func(r *ruleDomain.Rule, _ int) (int64, bool) {
		return r.SourceID, r.IsActive
	}))

	pollCtx, cancel := context.WithCancel(h.ctx)
	h.pollCancel = cancel

	poller := relayService.NewPoller(h.client, h.dispatcher, sources, time.Duration(h.cfg.PollInterval)*time.Second)
	go poller.Run(pollCtx)
}

func (h *Handler) handleStopRelay(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	if !h.dispatcher.Running() {
		h.reply(ctx, b, update, "⏹ Relay is not running.")
		return
	}

	h.mu.Lock()
	if h.pollCancel != nil {
		h.pollCancel()
		h.pollCancel = nil
	}
	h.mu.Unlock()

	h.dispatcher.StopSession()
	h.reply(ctx, b, update, "⏹ Relay stopped. Rules can be edited now.")
}

func (h *Handler) handleScheduled(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	var destination int64
	parts := strings.Fields(update.Message.Text)
	if len(parts) >= 2 {
		d, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			h.reply(ctx, b, update, "Usage: /scheduled [dest_id]")
			return
		}
		destination = d
	}

	scheduled, err := h.deferred.ListScheduled(ctx, destination)
	if err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to list scheduled sends: %v", err))
		return
	}

	if len(scheduled) == 0 {
		h.reply(ctx, b, update, "📭 No scheduled sends queued.")
		return
	}

	var text strings.Builder
	text.WriteString("🕐 Scheduled sends:\n\n")
	for _, s := range scheduled {
		text.WriteString(fmt.Sprintf("%s\n   → %d at %s\n   %s\n\n", s.ID, s.Destination, s.At.Format("2006-01-02 15:04"), s.TextPreview))
	}
	h.reply(ctx, b, update, text.String())
}

func (h *Handler) handleCancelScheduled(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		h.reply(ctx, b, update, "Usage: /cancelscheduled <id>")
		return
	}

	if err := h.deferred.DeleteScheduled(ctx, parts[1]); err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to cancel: %v", err))
		return
	}

	h.reply(ctx, b, update, fmt.Sprintf("✅ Scheduled send %s cancelled", parts[1]))
}

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	state := "stopped"
	if h.dispatcher.Running() {
		state = "running"
	}

	queued := 0
	if scheduled, err := h.deferred.ListScheduled(ctx, 0); err == nil {
		queued = len(scheduled)
	}

	text := fmt.Sprintf(`📊 Relay status:

Relay: %s
Rules: %d
Scheduled sends queued: %d
Ingest mode: %s
Confirm mode: %s
Storage: %s`,
		state, h.rules.Count(), queued, h.cfg.IngestMode, h.cfg.ConfirmMode, h.cfg.StoragePath)

	h.reply(ctx, b, update, text)
}

// Helper functions

func messageFrom(update *models.Update) (msg *models.Message, isEdit bool) {
	switch {
	case update.Message != nil:
		return update.Message, false
	case update.EditedMessage != nil:
		return update.EditedMessage, true
	case update.ChannelPost != nil:
		return update.ChannelPost, false
	case update.EditedChannelPost != nil:
		return update.EditedChannelPost, true
	default:
		return nil, false
	}
}

func toIncoming(msg *models.Message, isEdit bool) messageDomain.IncomingMessage {
	text := msg.Text
	entities := msg.Entities
	if text == "" && msg.Caption != "" {
		text = msg.Caption
		entities = msg.CaptionEntities
	}

	return messageDomain.IncomingMessage{
		ID:             int64(msg.ID),
		ConversationID: msg.Chat.ID,
		Timestamp:      time.Unix(int64(msg.Date), 0),
		Text:           text,
		Media:          extractMedia(msg),
		Entities:       toEntities(entities),
		IsEdit:         isEdit,
	}
}

func extractMedia(msg *models.Message) *messageDomain.MediaRef {
	switch {
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		return &messageDomain.MediaRef{Type: messageDomain.MediaTypePhoto, FileID: photo.FileID}
	case msg.Video != nil:
		return &messageDomain.MediaRef{Type: messageDomain.MediaTypeVideo, FileID: msg.Video.FileID}
	case msg.Document != nil:
		return &messageDomain.MediaRef{Type: messageDomain.MediaTypeDocument, FileID: msg.Document.FileID}
	case msg.Audio != nil:
		return &messageDomain.MediaRef{Type: messageDomain.MediaTypeAudio, FileID: msg.Audio.FileID}
	default:
		return nil
	}
}

func toEntities(src []models.MessageEntity) []messageDomain.Entity {
	return lo.FilterMap(src, func(e models.MessageEntity, _ int) (messageDomain.Entity, bool) {
		var kind messageDomain.EntityKind
		switch e.Type {
		case models.MessageEntityTypeBold:
			kind = messageDomain.EntityKindBold
		case models.MessageEntityTypeItalic:
			kind = messageDomain.EntityKindItalic
		case models.MessageEntityTypeTextLink:
			kind = messageDomain.EntityKindTextLink
		default:
			return messageDomain.Entity{}, false
		}
		return messageDomain.Entity{Kind: kind, Offset: e.Offset, Length: e.Length, URL: e.URL}, true
	})
}

func chatTitle(chat models.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	if chat.Username != "" {
		return "@" + chat.Username
	}
	return strings.TrimSpace(chat.FirstName + " " + chat.LastName)
}

func parseIDList(s string) ([]int64, bool) {
	parts := splitList(s)
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func splitList(s string) []string {
	return lo.FilterMap(strings.Split(s, ","), func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
}

func applyRuleField(rule *ruleDomain.Rule, field, value string) error {
	reset := value == "-"

	switch field {
	case "keywords":
		if reset {
			rule.Keywords = nil
		} else {
			rule.Keywords = splitList(value)
		}
	case "regex":
		if reset {
			rule.RegexPattern = ""
		} else {
			rule.RegexPattern = value
		}
	case "prefix":
		if reset {
			rule.Prefix = ""
		} else {
			rule.Prefix = value
		}
	case "suffix":
		if reset {
			rule.Suffix = ""
		} else {
			rule.Suffix = value
		}
	case "schedule":
		if reset {
			rule.Schedule = nil
		} else {
			t, err := ruleDomain.ParseTimeOfDay(value)
			if err != nil {
				return fmt.Errorf("invalid schedule %q", value)
			}
			rule.Schedule = &t
		}
	case "time_range":
		if reset {
			rule.TimeRange = nil
		} else {
			startStr, endStr, found := strings.Cut(value, "-")
			if !found {
				return fmt.Errorf("invalid time range %q", value)
			}
			start, err := ruleDomain.ParseTimeOfDay(startStr)
			if err != nil {
				return fmt.Errorf("invalid time range start %q", startStr)
			}
			end, err := ruleDomain.ParseTimeOfDay(endStr)
			if err != nil {
				return fmt.Errorf("invalid time range end %q", endStr)
			}
			rule.TimeRange = &ruleDomain.TimeRange{Start: start, End: end}
		}
	case "remove_links", "include_media", "forward_edits", "active":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		switch field {
		case "remove_links":
			rule.RemoveLinks = v
		case "include_media":
			rule.IncludeMedia = &v
		case "forward_edits":
			rule.ForwardEdits = v
		case "active":
			rule.IsActive = v
		}
	default:
		return fmt.Errorf("unknown field %q", field)
	}

	return nil
}

func formatRule(pos int, r *ruleDomain.Rule) string {
	status := "✅"
	if !r.IsActive {
		status = "⏸️"
	}

	var details []string
	if len(r.Keywords) > 0 {
		details = append(details, "keywords: "+strings.Join(r.Keywords, ","))
	}
	if r.RegexPattern != "" {
		details = append(details, "regex: "+r.RegexPattern)
	}
	if r.Schedule != nil {
		details = append(details, "daily at "+r.Schedule.String())
	}
	if r.TimeRange != nil {
		details = append(details, "window "+r.TimeRange.String())
	}
	if r.RemoveLinks {
		details = append(details, "remove links")
	}
	if !r.MediaIncluded() {
		details = append(details, "text only")
	}
	if r.ForwardEdits {
		details = append(details, "forwards edits")
	}

	line := fmt.Sprintf("%s %d. %d → %s\n", status, pos, r.SourceID, joinIDs(r.Destinations))
	if len(details) > 0 {
		line += "   " + strings.Join(details, "; ") + "\n"
	}
	return line
}
