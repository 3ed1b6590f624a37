package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope is the shape of every API response.
type Envelope[T any] struct {
	StatusCode int      `json:"statusCode"`
	Data       T        `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// DecodeEnvelope reads resp's body as an envelope carrying T.
func DecodeEnvelope[T any](t *testing.T, resp *http.Response) Envelope[T] {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	var env Envelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "failed to unmarshal response: %s", string(body))
	return env
}

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertSuccessResponse decodes a success envelope and checks it agrees with
// the HTTP status.
func AssertSuccessResponse[T any](t *testing.T, resp *http.Response, expectedStatus int) T {
	t.Helper()

	require.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")
	env := DecodeEnvelope[T](t, resp)
	assert.True(t, env.Success)
	assert.Equal(t, expectedStatus, env.StatusCode)
	return env.Data
}

// AssertErrorResponse verifies an error envelope with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	env := DecodeEnvelope[json.RawMessage](t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, expectedStatus, env.StatusCode)
	assert.NotNil(t, env.Errors, "errors must be an array")
	if expectedMessage != "" {
		assert.Equal(t, expectedMessage, env.Message, "error message mismatch")
	}
}
