package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ResponseRecorder receives the outcome of every request.
type ResponseRecorder interface {
	RecordHTTPStatus(statusCode int)
	ObserveRequestDuration(d time.Duration)
}

// requestInfo lets handlers deeper in the chain report back to RequestLogger.
type requestInfo struct {
	userID uuid.UUID
}

func markUser(ctx context.Context, userID uuid.UUID) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.userID = userID
	}
}

// RequestLogger logs one structured line per request and feeds the response
// metrics. 5xx log at error level, 4xx at warn.
func RequestLogger(logger *slog.Logger, recorder ResponseRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestInfoKey, info)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			if recorder != nil {
				recorder.RecordHTTPStatus(status)
				recorder.ObserveRequestDuration(duration)
			}

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(duration.Nanoseconds())/float64(time.Millisecond)),
			}
			if reqID := chimw.GetReqID(r.Context()); reqID != "" {
				args = append(args, slog.String("request_id", reqID))
			}
			if info.userID != uuid.Nil {
				args = append(args, slog.String("user_id", info.userID.String()))
			}

			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
