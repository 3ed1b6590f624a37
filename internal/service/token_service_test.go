package service_test

import (
	"testing"
	"time"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T, now func() time.Time) *service.TokenService {
	t.Helper()
	s, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Now:           now,
	})
	require.NoError(t, err)
	return s
}

func TestNewTokenService_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  service.TokenConfig
	}{
		{"empty access secret", service.TokenConfig{RefreshSecret: "r", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"empty refresh secret", service.TokenConfig{AccessSecret: "a", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"identical secrets", service.TokenConfig{AccessSecret: "same", RefreshSecret: "same", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"zero ttl", service.TokenConfig{AccessSecret: "a", RefreshSecret: "r", RefreshTTL: time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.NewTokenService(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestTokenService_AccessRoundTrip(t *testing.T) {
	s := newTokenService(t, nil)
	user := &domain.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com", FullName: "Alice A"}

	token, err := s.IssueAccess(user)
	require.NoError(t, err)

	claims, err := s.Verify(token, service.TokenAccess)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "Alice A", claims.FullName)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_RefreshTokensAreUnique(t *testing.T) {
	fixed := time.Now()
	s := newTokenService(t, func() time.Time { return fixed })
	id := uuid.New()

	a, err := s.IssueRefresh(id)
	require.NoError(t, err)
	b, err := s.IssueRefresh(id)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestTokenService_VerifyFailures(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Username: "bob"}
	s := newTokenService(t, nil)

	access, err := s.IssueAccess(user)
	require.NoError(t, err)
	refresh, err := s.IssueRefresh(user.ID)
	require.NoError(t, err)

	past := newTokenService(t, func() time.Time { return time.Now().Add(-48 * time.Hour) })
	expiredRefresh, err := past.IssueRefresh(user.ID)
	require.NoError(t, err)

	other, err := service.NewTokenService(service.TokenConfig{
		AccessSecret: "other-access", RefreshSecret: "other-refresh",
		AccessTTL: time.Minute, RefreshTTL: time.Hour,
	})
	require.NoError(t, err)
	forged, err := other.IssueRefresh(user.ID)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": user.ID.String(), "kind": "refresh"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		kind  service.TokenKind
	}{
		{"access token presented as refresh", access, service.TokenRefresh},
		{"refresh token presented as access", refresh, service.TokenAccess},
		{"expired", expiredRefresh, service.TokenRefresh},
		{"wrong secret", forged, service.TokenRefresh},
		{"alg none", unsigned, service.TokenRefresh},
		{"garbage", "not-a-jwt", service.TokenRefresh},
		{"tampered signature", refresh + "x", service.TokenRefresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.token, tt.kind)
			assert.ErrorIs(t, err, service.ErrInvalidToken)
		})
	}
}
