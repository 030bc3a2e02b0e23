package domain

import "time"

// IncomingMessage is a read-only projection of a platform message as the
// relay pipeline sees it. IDs are monotonically increasing per conversation.
type IncomingMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
	Text           string    `json:"text,omitempty"`
	Media          *MediaRef `json:"media,omitempty"`
	Entities       []Entity  `json:"entities,omitempty"`
	IsEdit         bool      `json:"is_edit"`
}

// MediaRef is an opaque reference to an attachment on the platform side.
type MediaRef struct {
	Type   MediaType `json:"type"`
	FileID string    `json:"file_id"`
}

// Entity is a formatting span over the message text. Offset and Length
// are in the platform's native units and refer to the original text.
type Entity struct {
	Kind   EntityKind `json:"kind"`
	Offset int        `json:"offset"`
	Length int        `json:"length"`
	URL    string     `json:"url,omitempty"`
}

// HasText reports whether the message carries a non-empty body.
func (m IncomingMessage) HasText() bool {
	return m.Text != ""
}
