package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/waythor-lab/klock/internal/facade"
	"github.com/waythor-lab/klock/internal/metrics"
)

// Service wraps an http.Server exposing klock's HTTP API.
type Service struct {
	addr   string
	server *http.Server
	log    *logrus.Logger
}

// NewService builds a Service listening on host:port, wiring klock's
// handlers behind auth, CORS, recovery, and metrics instrumentation.
// Middleware order: recovery outermost so a panic anywhere is still
// caught, then CORS so preflight requests short-circuit before auth,
// then auth, then metrics closest to the handler so it times the real
// work only.
func NewService(host string, port int, client *facade.Client, apiKey, jwtSecret string, log *logrus.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logrus.New()
	}

	mux := http.NewServeMux()
	mux.Handle("/", NewHandler(client, log, m))
	if m != nil {
		mux.Handle("/metrics", promhttp.Handler())
	}

	var handler http.Handler = mux
	handler = wrapWithMetrics(handler, m)
	handler = wrapWithAuth(handler, apiKey, jwtSecret, log)
	handler = wrapWithCORS(handler)
	handler = wrapWithRecovery(handler, log)

	return &Service{
		addr: fmt.Sprintf("%s:%d", host, port),
		server: &http.Server{
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		log: log,
	}
}

// Addr returns the address the server will listen on.
func (s *Service) Addr() string {
	return s.addr
}

// Start begins serving in the background. Call Stop to shut down cleanly.
func (s *Service) Start() error {
	s.server.Addr = s.addr
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("http server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down, honoring ctx's deadline.
func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
