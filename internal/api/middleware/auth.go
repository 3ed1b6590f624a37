package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dom/videotube-backend/internal/api/response"
	"github.com/dom/videotube-backend/internal/domain"
	"github.com/google/uuid"
)

type contextKey string

const (
	userKey        contextKey = "user"
	requestInfoKey contextKey = "requestInfo"

	AccessTokenCookie = "accessToken"
)

// Authenticator resolves an access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

// Auth admits requests carrying a valid access token, taken from the
// Authorization header or, failing that, the accessToken cookie.
func Auth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				response.Error(w, r, domain.NewUnauthorizedError("unauthorized request", nil))
				return
			}

			user, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				if domain.IsKind(err, domain.KindUnauthorized) {
					slog.WarnContext(r.Context(), "access token rejected", "op", "middleware.Auth", "error", err)
				}
				response.Error(w, r, err)
				return
			}

			markUser(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

func extractToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func ContextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok && user != nil
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return user.ID, true
}
