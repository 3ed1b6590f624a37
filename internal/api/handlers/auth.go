package handlers

import (
	"net/http"

	"github.com/dom/videotube-backend/internal/api/middleware"
	"github.com/dom/videotube-backend/internal/api/response"
	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	cookies     cookieConfig
}

func NewAuthHandler(authService *service.AuthService, tokens *service.TokenService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies: cookieConfig{
			secure:     secureCookies,
			accessTTL:  tokens.AccessTTL(),
			refreshTTL: tokens.RefreshTTL(),
		},
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}

	h.cookies.setSession(w, result.TokenPair)
	response.JSON(w, http.StatusOK, LoginResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, "user is successfully logged in")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}

	if err := h.authService.Logout(r.Context(), userID); err != nil {
		response.Error(w, r, err)
		return
	}

	h.cookies.clearSession(w)
	response.JSON(w, http.StatusOK, struct{}{}, "user logged out")
}

// RefreshToken accepts the refresh token from its cookie or, for clients
// without cookies, from the JSON body.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" && r.ContentLength != 0 {
		var req RefreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			response.Error(w, r, err)
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	h.cookies.setSession(w, *pair)
	response.JSON(w, http.StatusOK, pair, "access token refreshed")
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	if err := h.authService.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, struct{}{}, "password changed successfully")
}

func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
		return
	}
	response.JSON(w, http.StatusOK, user, "user fetched successfully")
}
