package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dom/videotube-backend/internal/api/middleware"
	"github.com/dom/videotube-backend/internal/api/response"
	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
)

// SessionEventsHandler upgrades authenticated requests to a push-only socket
// carrying the caller's session events.
type SessionEventsHandler struct {
	hub      *websocket.Hub
	upgrader ws.Upgrader
}

// NewSessionEventsHandler accepts upgrades from any of allowedOrigins, from
// "*", or from clients that send no Origin header.
func NewSessionEventsHandler(hub *websocket.Hub, allowedOrigins []string) *SessionEventsHandler {
	return &SessionEventsHandler{
		hub: hub,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || strings.EqualFold(allowed, origin) {
						return true
					}
				}
				return false
			},
		},
	}
}

func (h *SessionEventsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the failure response.
		slog.WarnContext(r.Context(), "websocket upgrade failed", "op", "handlers.SessionEvents", "user_id", userID, "error", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
