// Package response writes the JSON envelopes every endpoint answers with.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dom/videotube-backend/internal/domain"
)

type Success struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type Failure struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func JSON(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, Success{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error maps err to its status code. Internal failures are logged with their
// cause and answered with the generic message only.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := domain.AsAppError(err)
	status := appErr.StatusCode()

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"op", "response.Error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	details := appErr.Errors
	if details == nil {
		details = []string{}
	}

	write(w, status, Failure{
		StatusCode: status,
		Message:    appErr.Message,
		Success:    false,
		Errors:     details,
	})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "op", "response.write", "error", err)
	}
}
