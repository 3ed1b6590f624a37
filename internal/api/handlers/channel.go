package handlers

import (
	"net/http"

	"github.com/dom/videotube-backend/internal/api/middleware"
	"github.com/dom/videotube-backend/internal/api/response"
	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ChannelHandler struct {
	channelService *service.ChannelService
}

func NewChannelHandler(channelService *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

func (h *ChannelHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}

	profile, err := h.channelService.GetChannelProfile(r.Context(), viewerID, chi.URLParam(r, "username"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, profile, "user channel fetched successfully")
}

func (h *ChannelHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}

	profile, err := h.channelService.Subscribe(r.Context(), viewerID, chi.URLParam(r, "username"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, profile, "subscribed successfully")
}

func (h *ChannelHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}

	profile, err := h.channelService.Unsubscribe(r.Context(), viewerID, chi.URLParam(r, "username"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, profile, "unsubscribed successfully")
}

func (h *ChannelHandler) GetWatchHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}

	history, err := h.channelService.GetWatchHistory(r.Context(), userID)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, history, "watch history fetched successfully")
}

func (h *ChannelHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}

	videoID, err := uuid.Parse(chi.URLParam(r, "videoId"))
	if err != nil {
		response.Error(w, r, domain.NewValidationError("invalid video id"))
		return
	}

	if err := h.channelService.RecordView(r.Context(), userID, videoID); err != nil {
		response.Error(w, r, err)
		return
	}

	history, err := h.channelService.GetWatchHistory(r.Context(), userID)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, history, "watch history updated successfully")
}
