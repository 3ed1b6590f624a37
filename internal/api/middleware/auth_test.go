package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	users map[string]*domain.User
	calls int
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	f.calls++
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, domain.NewUnauthorizedError("invalid access token", nil)
}

func TestAuth(t *testing.T) {
	alice := &domain.User{ID: uuid.New(), Username: "alice"}
	bob := &domain.User{ID: uuid.New(), Username: "bob"}

	tests := []struct {
		name        string
		header      string
		cookie      string
		wantStatus  int
		wantUser    *domain.User
		wantMessage string
		wantCalls   int
	}{
		{name: "no credentials", wantStatus: http.StatusUnauthorized, wantMessage: "unauthorized request"},
		{name: "bearer header", header: "Bearer alice-token", wantStatus: http.StatusOK, wantUser: alice, wantCalls: 1},
		{name: "lowercase scheme", header: "bearer alice-token", wantStatus: http.StatusOK, wantUser: alice, wantCalls: 1},
		{name: "cookie", cookie: "bob-token", wantStatus: http.StatusOK, wantUser: bob, wantCalls: 1},
		{name: "header wins over cookie", header: "Bearer alice-token", cookie: "bob-token", wantStatus: http.StatusOK, wantUser: alice, wantCalls: 1},
		{name: "non-bearer header falls back to cookie", header: "Basic abc", cookie: "bob-token", wantStatus: http.StatusOK, wantUser: bob, wantCalls: 1},
		{name: "invalid token", header: "Bearer forged", wantStatus: http.StatusUnauthorized, wantMessage: "invalid access token", wantCalls: 1},
		{name: "empty bearer", header: "Bearer   ", wantStatus: http.StatusUnauthorized, wantMessage: "unauthorized request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuthenticator{users: map[string]*domain.User{"alice-token": alice, "bob-token": bob}}

			var got *domain.User
			handler := Auth(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = UserFromContext(r.Context())
				id, ok := GetUserID(r.Context())
				require.True(t, ok)
				assert.Equal(t, got.ID, id)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, auth.calls)
			if tt.wantUser != nil {
				assert.Equal(t, tt.wantUser, got)
				return
			}

			var body struct {
				StatusCode int      `json:"statusCode"`
				Message    string   `json:"message"`
				Success    bool     `json:"success"`
				Errors     []string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.StatusCode)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.False(t, body.Success)
			assert.NotNil(t, body.Errors)
		})
	}
}

func TestGetUserID_Missing(t *testing.T) {
	_, ok := GetUserID(context.Background())
	assert.False(t, ok)
}

type countingRecorder struct {
	statuses []int
}

func (c *countingRecorder) RecordHTTPStatus(code int)            { c.statuses = append(c.statuses, code) }
func (c *countingRecorder) ObserveRequestDuration(time.Duration) {}

func TestRequestLogger_IncludesAuthenticatedUser(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	recorder := &countingRecorder{}
	alice := &domain.User{ID: uuid.New()}
	auth := &fakeAuthenticator{users: map[string]*domain.User{"t": alice}}

	handler := RequestLogger(logger, recorder)(Auth(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer t")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, alice.ID.String(), entry["user_id"])
	assert.Equal(t, []int{http.StatusTeapot}, recorder.statuses)
}

func TestRequestLogger_DefaultsToOK(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	recorder := &countingRecorder{}

	handler := RequestLogger(logger, recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, []int{http.StatusOK}, recorder.statuses)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.NotContains(t, buf.String(), "user_id")
}
