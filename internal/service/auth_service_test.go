package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.createUser(t, "alice", "alice@example.com", "password123")

	tests := []struct {
		name    string
		input   service.LoginInput
		kind    domain.ErrorKind
		message string
		wantErr bool
	}{
		{name: "by username", input: service.LoginInput{Username: "alice", Password: "password123"}},
		{name: "by username case insensitive", input: service.LoginInput{Username: "  ALICE ", Password: "password123"}},
		{name: "by email", input: service.LoginInput{Email: "alice@example.com", Password: "password123"}},
		{
			name:    "no identifier",
			input:   service.LoginInput{Password: "password123"},
			wantErr: true, kind: domain.KindValidation, message: "username or email is required",
		},
		{
			name:    "no password",
			input:   service.LoginInput{Username: "alice"},
			wantErr: true, kind: domain.KindValidation, message: "password is required",
		},
		{
			name:    "unknown user",
			input:   service.LoginInput{Username: "nobody", Password: "password123"},
			wantErr: true, kind: domain.KindNotFound, message: "user does not exist",
		},
		{
			name:    "wrong password",
			input:   service.LoginInput{Username: "alice", Password: "wrong"},
			wantErr: true, kind: domain.KindUnauthorized, message: "password is incorrect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.auth.Login(ctx, tt.input)
			if tt.wantErr {
				requireKind(t, err, tt.kind, tt.message)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, user.ID, result.User.ID)
			assert.Empty(t, result.User.PasswordHash)
			assert.Nil(t, result.User.RefreshToken)
			assert.NotEmpty(t, result.AccessToken)

			stored, err := h.repos.User.GetByID(ctx, user.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.RefreshToken)
			assert.Equal(t, result.RefreshToken, *stored.RefreshToken)
		})
	}
}

func TestAuthService_LoginSupersedesPreviousSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createUser(t, "alice", "alice@example.com", "password123")

	first, err := h.auth.Login(ctx, service.LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	second, err := h.auth.Login(ctx, service.LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	_, err = h.auth.Refresh(ctx, first.RefreshToken)
	requireKind(t, err, domain.KindUnauthorized, "refresh token is expired or used")

	_, err = h.auth.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_RefreshRotation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.createUser(t, "alice", "alice@example.com", "password123")

	login, err := h.auth.Login(ctx, service.LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	rotated, err := h.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	stored, err := h.repos.User.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, rotated.RefreshToken, *stored.RefreshToken)

	// Replaying the old token fails and does not disturb the live one.
	_, err = h.auth.Refresh(ctx, login.RefreshToken)
	requireKind(t, err, domain.KindUnauthorized, "refresh token is expired or used")

	_, err = h.auth.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)

	assert.Equal(t, []domain.SessionEvent{domain.SessionStarted, domain.SessionRefreshed, domain.SessionRefreshed}, h.notifier.Events())
}

func TestAuthService_RefreshFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.createUser(t, "alice", "alice@example.com", "password123")

	access, err := h.tokens.IssueAccess(user)
	require.NoError(t, err)
	ghost, err := h.tokens.IssueRefresh(uuid.New())
	require.NoError(t, err)
	neverStored, err := h.tokens.IssueRefresh(user.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{"blank", "  ", "unauthorized request"},
		{"garbage", "abc.def.ghi", "invalid refresh token"},
		{"access token", access, "invalid refresh token"},
		{"unknown user", ghost, "invalid refresh token"},
		{"no session", neverStored, "refresh token is expired or used"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.auth.Refresh(ctx, tt.token)
			requireKind(t, err, domain.KindUnauthorized, tt.message)
		})
	}
}

func TestAuthService_ConcurrentRefreshHasOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createUser(t, "alice", "alice@example.com", "password123")

	login, err := h.auth.Login(ctx, service.LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.auth.Refresh(ctx, login.RefreshToken); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestAuthService_Logout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.createUser(t, "alice", "alice@example.com", "password123")

	login, err := h.auth.Login(ctx, service.LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, h.auth.Logout(ctx, user.ID))

	stored, err := h.repos.User.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	_, err = h.auth.Refresh(ctx, login.RefreshToken)
	requireKind(t, err, domain.KindUnauthorized, "refresh token is expired or used")

	// Idempotent.
	assert.NoError(t, h.auth.Logout(ctx, user.ID))
	assert.Contains(t, h.notifier.Events(), domain.SessionEnded)
}

func TestAuthService_ChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.createUser(t, "alice", "alice@example.com", "password123")

	t.Run("wrong old password", func(t *testing.T) {
		err := h.auth.ChangePassword(ctx, user.ID, "nope", "newpass456")
		requireKind(t, err, domain.KindBadRequest, "invalid old password")
	})

	t.Run("unknown user", func(t *testing.T) {
		err := h.auth.ChangePassword(ctx, uuid.New(), "password123", "newpass456")
		requireKind(t, err, domain.KindBadRequest, "invalid old password")
	})

	t.Run("blank new password", func(t *testing.T) {
		err := h.auth.ChangePassword(ctx, user.ID, "password123", "   ")
		requireKind(t, err, domain.KindValidation, "")
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, h.auth.ChangePassword(ctx, user.ID, "password123", "newpass456"))

		_, err := h.auth.Login(ctx, service.LoginInput{Username: "alice", Password: "password123"})
		requireKind(t, err, domain.KindUnauthorized, "password is incorrect")

		_, err = h.auth.Login(ctx, service.LoginInput{Username: "alice", Password: "newpass456"})
		assert.NoError(t, err)
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.createUser(t, "alice", "alice@example.com", "password123")

	access, err := h.tokens.IssueAccess(user)
	require.NoError(t, err)

	got, err := h.auth.Authenticate(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Empty(t, got.PasswordHash)

	refresh, err := h.tokens.IssueRefresh(user.ID)
	require.NoError(t, err)
	_, err = h.auth.Authenticate(ctx, refresh)
	requireKind(t, err, domain.KindUnauthorized, "invalid access token")

	_, err = h.auth.Authenticate(ctx, "")
	requireKind(t, err, domain.KindUnauthorized, "unauthorized request")

	ghost, err := h.tokens.IssueAccess(&domain.User{ID: uuid.New()})
	require.NoError(t, err)
	_, err = h.auth.Authenticate(ctx, ghost)
	requireKind(t, err, domain.KindUnauthorized, "invalid access token")
}

func TestAuthService_AuthenticateExpiredAccessToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.createUser(t, "alice", "alice@example.com", "password123")

	// Same secrets, clock an hour behind: the token expired 45 minutes ago.
	stale, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Now:           func() time.Time { return time.Now().Add(-time.Hour) },
	})
	require.NoError(t, err)

	expired, err := stale.IssueAccess(user)
	require.NoError(t, err)

	_, err = h.auth.Authenticate(ctx, expired)
	requireKind(t, err, domain.KindUnauthorized, "invalid access token")
}

func TestAuthService_LoginRejectsOverlongPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	base := strings.Repeat("a", 72)
	user := h.createUser(t, "alice", "alice@example.com", base)

	_, err := h.auth.Login(ctx, service.LoginInput{Username: "alice", Password: base})
	require.NoError(t, err)

	// bcrypt only looks at the first 72 bytes.
	_, err = h.auth.Login(ctx, service.LoginInput{Username: "alice", Password: base + "anything"})
	requireKind(t, err, domain.KindUnauthorized, "password is incorrect")

	err = h.auth.ChangePassword(ctx, user.ID, base+"x", "newpass456")
	requireKind(t, err, domain.KindBadRequest, "invalid old password")
}
