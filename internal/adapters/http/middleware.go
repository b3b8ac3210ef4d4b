package httpadapter

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

type requestIDContextKey struct{}

// requestIDFromContext returns the id assigned by requestIDMiddleware.
// Reindex runs started over the API carry it as their requested-by tag.
func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDContextKey{}, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r)
	})
}

// quietPath marks endpoints polled by orchestrators and scrapers; their
// access records drop to debug so question traffic stays readable.
func quietPath(path string) bool {
	return path == "/healthz" || path == "/metrics"
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		remote := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			remote = host
		}

		attrs := []any{
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"elapsed_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes", rec.bytesWritten,
			"remote", remote,
		}
		switch {
		case rec.statusCode >= 500:
			slog.Error("http_request", attrs...)
		case rec.statusCode >= 400:
			slog.Warn("http_request", attrs...)
		case quietPath(r.URL.Path):
			slog.Debug("http_request", attrs...)
		default:
			slog.Info("http_request", attrs...)
		}
	})
}

// statusRecorder captures status and size for the access log. Flush is
// forwarded for the metrics handler; nothing in this API hijacks or
// pushes, so those interfaces are deliberately not implemented.
type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
