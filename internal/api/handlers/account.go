package handlers

import (
	"context"
	"net/http"

	"github.com/dom/videotube-backend/internal/api/middleware"
	"github.com/dom/videotube-backend/internal/api/response"
	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/media"
	"github.com/dom/videotube-backend/internal/service"
	"github.com/google/uuid"
)

type AccountHandler struct {
	accountService *service.AccountService
	maxUploadBytes int64
}

func NewAccountHandler(accountService *service.AccountService, maxUploadBytes int64) *AccountHandler {
	return &AccountHandler{accountService: accountService, maxUploadBytes: maxUploadBytes}
}

type UpdateDetailsRequest struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
}

// Register takes a multipart form: fullName, email, username, password,
// avatar (file) and an optional coverImage (file).
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	// Two images plus the text fields.
	if err := parseMultipart(w, r, 2*h.maxUploadBytes+maxJSONBytes); err != nil {
		response.Error(w, r, err)
		return
	}

	avatar, err := formFile(r, "avatar")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	cover, err := formFile(r, "coverImage")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.accountService.Register(r.Context(), service.RegisterInput{
		FullName:   r.FormValue("fullName"),
		Email:      r.FormValue("email"),
		Username:   r.FormValue("username"),
		Password:   r.FormValue("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, user, "user registered successfully")
}

func (h *AccountHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}

	var req UpdateDetailsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.accountService.UpdateDetails(r.Context(), userID, req.FullName, req.Email)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, user, "account details updated successfully")
}

func (h *AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.accountService.UpdateAvatar, "avatar image updated successfully")
}

func (h *AccountHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.accountService.UpdateCoverImage, "cover image updated successfully")
}

func (h *AccountHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID uuid.UUID, file *media.File) (*domain.User, error),
	message string,
) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}

	if err := parseMultipart(w, r, h.maxUploadBytes+maxJSONBytes); err != nil {
		response.Error(w, r, err)
		return
	}
	file, err := formFile(r, field)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := update(r.Context(), userID, file)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, user, message)
}
