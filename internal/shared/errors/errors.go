package errors

import "errors"

var (
	ErrMissingBotToken  = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrMissingAdminChat = errors.New("ADMIN_CHAT_ID is required when confirm_mode is prompt")
	ErrUnauthorized     = errors.New("unauthorized user")
	ErrRuleNotFound     = errors.New("rule not found")
	ErrPendingNotFound  = errors.New("pending send not found")
	ErrRelayRunning     = errors.New("relay session is running, stop it before editing rules")
	ErrInvalidRule      = errors.New("invalid rule")
	ErrNoDestinations   = errors.New("rule has no destinations")
)
