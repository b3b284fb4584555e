package llm

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the id logged for each model request.
const RequestIDHeader = "X-Request-Id"

// requestLogger tags every outgoing request with a fresh id and logs its
// status and latency.
type requestLogger struct {
	next   http.RoundTripper
	logger *slog.Logger
}

// newHTTPClient returns a client whose requests pass through requestLogger.
// A zero timeout leaves the client without one.
func newHTTPClient(timeout time.Duration, logger *slog.Logger) *http.Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &requestLogger{next: http.DefaultTransport, logger: logger},
	}
}

func (t *requestLogger) RoundTrip(req *http.Request) (*http.Response, error) {
	reqID := uuid.New().String()
	start := time.Now()

	req = req.Clone(req.Context())
	req.Header.Set(RequestIDHeader, reqID)

	t.logger.Info("llm.http.request",
		"req_id", reqID,
		"method", req.Method,
		"path", req.URL.Path,
		"content_length", req.ContentLength,
	)

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	level := slog.LevelInfo
	if resp.StatusCode/100 != 2 {
		level = slog.LevelWarn
	}
	t.logger.Log(req.Context(), level, "llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
