package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tenantconsole/pkg/idx"
)

// RequestIDHeader carries the per-request correlation id to the backend.
const RequestIDHeader = "X-Request-ID"

// Transport logs every outbound request and attaches a contextual logger to
// the request context so inner round trippers can log with the same fields.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := req.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = idx.New().String()
	}

	base := t.Logger
	if base == nil {
		base = FromContext(req.Context())
	}
	logger := base.With(
		"req_id", reqID,
		"method", req.Method,
		"url", req.URL.Redacted(),
	)

	// RoundTrippers must not mutate the caller's request.
	out := req.Clone(WithContext(req.Context(), logger))
	out.Header.Set(RequestIDHeader, reqID)

	resp, err := t.base().RoundTrip(out)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_request failed", "duration_ms", duration, "err", err)
		return nil, err
	}

	logger.Debug("http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
