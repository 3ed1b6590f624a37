package service

import (
	"strings"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/google/uuid"
)

// SessionNotifier is told whenever a user's session slot changes.
type SessionNotifier interface {
	NotifySession(userID uuid.UUID, event domain.SessionEvent)
}

// EventRecorder counts auth outcomes.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

type noopNotifier struct{}

func (noopNotifier) NotifySession(uuid.UUID, domain.SessionEvent) {}

type noopRecorder struct{}

func (noopRecorder) RecordAuthEvent(string, string) {}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
