package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/google/uuid"
)

const (
	eventLogin          = "login"
	eventLogout         = "logout"
	eventRefresh        = "refresh"
	eventChangePassword = "change_password"
)

// AuthService owns the single refresh-token slot of every user.
type AuthService struct {
	users    repository.UserRepository
	tokens   *TokenService
	hasher   PasswordHasher
	notifier SessionNotifier
	recorder EventRecorder
}

// NewAuthService wires the session manager. A nil notifier or recorder is
// replaced with a no-op.
func NewAuthService(users repository.UserRepository, tokens *TokenService, hasher PasswordHasher, notifier SessionNotifier, recorder EventRecorder) *AuthService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		notifier: notifier,
		recorder: recorder,
	}
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

type AuthResult struct {
	User *domain.User
	TokenPair
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	username := normalizeUsername(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" && email == "" {
		return nil, domain.NewValidationError("username or email is required")
	}
	if input.Password == "" {
		return nil, domain.NewValidationError("password is required")
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		s.recorder.RecordAuthEvent(eventLogin, outcomeFailure)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("user does not exist")
		}
		slog.ErrorContext(ctx, "failed to look up user", "op", "service.Login", "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		s.recorder.RecordAuthEvent(eventLogin, outcomeFailure)
		if errors.Is(err, ErrPasswordMismatch) {
			return nil, domain.NewUnauthorizedError("password is incorrect", nil)
		}
		slog.ErrorContext(ctx, "failed to compare password", "op", "service.Login", "user_id", user.ID, "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue tokens", "op", "service.Login", "user_id", user.ID, "error", err)
		return nil, domain.NewInternalError("something went wrong while generating tokens", err)
	}

	// A new login always wins the slot; any previous device's refresh token dies here.
	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		slog.ErrorContext(ctx, "failed to persist refresh token", "op", "service.Login", "user_id", user.ID, "error", err)
		return nil, domain.NewInternalError("something went wrong while generating tokens", err)
	}

	s.recorder.RecordAuthEvent(eventLogin, outcomeSuccess)
	s.notifier.NotifySession(user.ID, domain.SessionStarted)

	return &AuthResult{User: user.Sanitized(), TokenPair: *pair}, nil
}

// Logout empties the session slot. A user that vanished in the meantime has
// nothing left to revoke.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	err := s.users.ClearRefreshToken(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.recorder.RecordAuthEvent(eventLogout, outcomeFailure)
		slog.ErrorContext(ctx, "failed to clear refresh token", "op", "service.Logout", "user_id", userID, "error", err)
		return domain.NewInternalError("something went wrong", err)
	}

	s.recorder.RecordAuthEvent(eventLogout, outcomeSuccess)
	s.notifier.NotifySession(userID, domain.SessionEnded)
	return nil
}

func (s *AuthService) Refresh(ctx context.Context, incoming string) (*TokenPair, error) {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		s.recorder.RecordAuthEvent(eventRefresh, outcomeFailure)
		return nil, domain.NewUnauthorizedError("unauthorized request", nil)
	}

	claims, err := s.tokens.Verify(incoming, TokenRefresh)
	if err != nil {
		s.recorder.RecordAuthEvent(eventRefresh, outcomeFailure)
		return nil, domain.NewUnauthorizedError("invalid refresh token", err)
	}
	userID, _ := claims.UserID()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.recorder.RecordAuthEvent(eventRefresh, outcomeFailure)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewUnauthorizedError("invalid refresh token", err)
		}
		slog.ErrorContext(ctx, "failed to load user", "op", "service.Refresh", "user_id", userID, "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}

	if !user.HasSession() || !tokenMatches(*user.RefreshToken, incoming) {
		s.recorder.RecordAuthEvent(eventRefresh, outcomeFailure)
		slog.WarnContext(ctx, "refresh token replayed or superseded", "op", "service.Refresh", "user_id", user.ID)
		return nil, domain.NewUnauthorizedError("refresh token is expired or used", nil)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue tokens", "op", "service.Refresh", "user_id", user.ID, "error", err)
		return nil, domain.NewInternalError("something went wrong while generating tokens", err)
	}

	rotated, err := s.users.RotateRefreshToken(ctx, user.ID, incoming, pair.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to rotate refresh token", "op", "service.Refresh", "user_id", user.ID, "error", err)
		return nil, domain.NewInternalError("something went wrong while generating tokens", err)
	}
	if !rotated {
		// A concurrent refresh or login took the slot between our read and write.
		s.recorder.RecordAuthEvent(eventRefresh, outcomeFailure)
		return nil, domain.NewUnauthorizedError("refresh token is expired or used", nil)
	}

	s.recorder.RecordAuthEvent(eventRefresh, outcomeSuccess)
	s.notifier.NotifySession(user.ID, domain.SessionRefreshed)

	return pair, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return domain.NewValidationError("old and new password are required")
	}
	if len(newPassword) > maxPasswordBytes {
		return domain.NewValidationError("password must be at most 72 bytes")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.recorder.RecordAuthEvent(eventChangePassword, outcomeFailure)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewBadRequestError("invalid old password")
		}
		slog.ErrorContext(ctx, "failed to load user", "op", "service.ChangePassword", "user_id", userID, "error", err)
		return domain.NewInternalError("something went wrong", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, oldPassword); err != nil {
		s.recorder.RecordAuthEvent(eventChangePassword, outcomeFailure)
		if errors.Is(err, ErrPasswordMismatch) {
			return domain.NewBadRequestError("invalid old password")
		}
		return domain.NewInternalError("something went wrong", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.NewInternalError("something went wrong", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewBadRequestError("invalid old password")
		}
		slog.ErrorContext(ctx, "failed to update password", "op", "service.ChangePassword", "user_id", userID, "error", err)
		return domain.NewInternalError("something went wrong", err)
	}

	s.recorder.RecordAuthEvent(eventChangePassword, outcomeSuccess)
	return nil
}

// Authenticate resolves an access token to the sanitized user it names.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, domain.NewUnauthorizedError("unauthorized request", nil)
	}

	claims, err := s.tokens.Verify(accessToken, TokenAccess)
	if err != nil {
		return nil, domain.NewUnauthorizedError("invalid access token", err)
	}
	userID, _ := claims.UserID()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewUnauthorizedError("invalid access token", err)
		}
		slog.ErrorContext(ctx, "failed to load user", "op", "service.Authenticate", "user_id", userID, "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}

	return user.Sanitized(), nil
}

func tokenMatches(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
