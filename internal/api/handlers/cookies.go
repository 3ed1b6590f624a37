package handlers

import (
	"net/http"
	"time"

	"github.com/dom/videotube-backend/internal/api/middleware"
	"github.com/dom/videotube-backend/internal/service"
)

const refreshTokenCookie = "refreshToken"

type cookieConfig struct {
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func (c cookieConfig) setSession(w http.ResponseWriter, pair service.TokenPair) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, pair.AccessToken, c.accessTTL))
	http.SetCookie(w, c.cookie(refreshTokenCookie, pair.RefreshToken, c.refreshTTL))
}

func (c cookieConfig) clearSession(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		cookie := c.cookie(name, "", 0)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		http.SetCookie(w, cookie)
	}
}

func (c cookieConfig) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
