package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordAuthEvent(t *testing.T) {
	c := NewCollector()

	c.RecordAuthEvent("login", "success")
	c.RecordAuthEvent("login", "success")
	c.RecordAuthEvent("refresh", "failure")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.authEvents.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authEvents.WithLabelValues("refresh", "failure")))
}

func TestCollector_RecordHTTPStatus(t *testing.T) {
	c := NewCollector()

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)
	c.RecordHTTPStatus(401)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpStatus.WithLabelValues("200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpStatus.WithLabelValues("401")))
}

func TestCollector_TrackSessionSockets(t *testing.T) {
	c := NewCollector()
	open := 3
	c.TrackSessionSockets(func() int { return open })

	expected := func(n int) *strings.Reader {
		return strings.NewReader(fmt.Sprintf(`
# HELP videotube_session_sockets Open session event websocket connections.
# TYPE videotube_session_sockets gauge
videotube_session_sockets %d
`, n))
	}
	require.NoError(t, testutil.GatherAndCompare(c.Gatherer(), expected(3), "videotube_session_sockets"))

	open = 1
	require.NoError(t, testutil.GatherAndCompare(c.Gatherer(), expected(1), "videotube_session_sockets"))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.RecordAuthEvent("logout", "success")
	c.ObserveRequestDuration(15 * time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `videotube_auth_events_total{event="logout",outcome="success"} 1`)
	assert.Contains(t, string(body), "videotube_http_request_duration_seconds_count 1")
}

func TestCollectors_AreIndependent(t *testing.T) {
	// Each collector owns its registry, so building two must not panic.
	assert.NotPanics(t, func() {
		NewCollector()
		NewCollector()
	})
}
