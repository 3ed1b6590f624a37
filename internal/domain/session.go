package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionEvent names a change to a user's single session slot.
type SessionEvent string

const (
	SessionStarted   SessionEvent = "session.started"
	SessionRefreshed SessionEvent = "session.refreshed"
	SessionEnded     SessionEvent = "session.ended"
)

type SessionMessage struct {
	Type   SessionEvent `json:"type"`
	UserID uuid.UUID    `json:"userId"`
	At     time.Time    `json:"at"`
}
