package domain

import "time"

// Chat is a conversation the bot has observed. The Bot API cannot
// enumerate dialogs, so the registry is built from updates as they arrive.
type Chat struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Kind     string    `json:"kind"`
	LastSeen time.Time `json:"last_seen"`
}
