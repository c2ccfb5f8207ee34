package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waythor-lab/klock/internal/metrics"
)

// wrapWithCORS allows cross-origin requests from any dashboard polling the
// lease list, short-circuiting preflight OPTIONS requests.
func wrapWithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// wrapWithRecovery converts a panicking handler into a 500 response instead
// of taking down the whole server.
func wrapWithRecovery(next http.Handler, log *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if log != nil {
					log.WithFields(logrus.Fields{
						"panic":  fmt.Sprintf("%v", err),
						"stack":  string(debug.Stack()),
						"path":   r.URL.Path,
						"method": r.Method,
					}).Error("panic recovered")
				}
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code a handler wrote so instrumentation
// can label it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// wrapWithMetrics records request count and latency per route.
func wrapWithMetrics(next http.Handler, m *metrics.Metrics) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.RecordHTTPRequest(r.URL.Path, r.Method, fmt.Sprintf("%d", rec.status), time.Since(start))
	})
}
