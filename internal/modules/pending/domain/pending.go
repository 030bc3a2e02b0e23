package domain

import (
	"time"

	messageDomain "tgrelay/internal/modules/message/domain"
)

// PendingSend is a send request held locally until its delivery time.
// The Bot API has no native scheduled sends, so deferral is implemented
// on this side of the platform boundary and persisted across restarts.
type PendingSend struct {
	ID          string                  `json:"id"`
	Destination int64                   `json:"destination"`
	Text        string                  `json:"text,omitempty"`
	Media       *messageDomain.MediaRef `json:"media,omitempty"`
	At          time.Time               `json:"at"`
	CreatedAt   time.Time               `json:"created_at"`
}

// Due reports whether the send should fire at or before now.
func (p PendingSend) Due(now time.Time) bool {
	return !p.At.After(now)
}
