package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"cumeal/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the threshold used when none is configured.
const DefaultSlowRequestMs = 200

// RequestIDHeader carries the request id in and out, and on to the menu backend.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

// statusWriter remembers the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Timing assigns every request an id, logs how long it took and records it
// as a perf.KindRequest entry. Static assets and /healthz pass straight through.
// Requests at or above slowMs (DefaultSlowRequestMs when <= 0) log at WARN.
func Timing(collector *perf.Collector, slowMs int) func(http.Handler) http.Handler {
	if slowMs <= 0 {
		slowMs = DefaultSlowRequestMs
	}
	threshold := float64(slowMs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if strings.HasPrefix(path, "/static/") || path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			id := requestID(r)
			w.Header().Set(RequestIDHeader, id)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				durationMs := float64(time.Since(start).Microseconds()) / 1000.0
				attrs := []any{
					"request_id", id,
					"method", r.Method,
					"path", path,
					"status", sw.status,
					"duration_ms", durationMs,
				}
				if durationMs >= threshold {
					slog.Warn("slow_request", attrs...)
				} else {
					slog.Debug("request", attrs...)
				}
				if collector != nil {
					collector.Record(perf.Entry{
						Kind:       perf.KindRequest,
						Path:       r.Method + " " + path,
						StatusCode: sw.status,
						DurationMs: durationMs,
						Timestamp:  start,
					})
				}
			}()

			next.ServeHTTP(sw, r.WithContext(perf.WithRequestID(r.Context(), id)))
		})
	}
}

// requestID reuses a well-formed incoming id (from a proxy) or mints one.
func requestID(r *http.Request) string {
	id := r.Header.Get(RequestIDHeader)
	if id == "" || len(id) > maxRequestIDLen || strings.ContainsFunc(id, func(c rune) bool {
		return c <= ' ' || c > '~'
	}) {
		return uuid.NewString()
	}
	return id
}
