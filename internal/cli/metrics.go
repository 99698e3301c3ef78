package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cricketpay/internal/log"
	"cricketpay/internal/metrics"
)

// MetricsServer exposes a background process's collectors on /metrics.
type MetricsServer struct {
	srv    *http.Server
	logger *log.Logger
}

// MetricsRouter routes /metrics to m.
func MetricsRouter(m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", m.Handler())
	return r
}

// ServeMetrics starts listening on port in the background. It returns nil
// when port is empty.
func ServeMetrics(logger *log.Logger, port string, m *metrics.Metrics) *MetricsServer {
	if port == "" {
		return nil
	}
	s := &MetricsServer{
		srv: &http.Server{
			Addr:              net.JoinHostPort("", port),
			Handler:           MetricsRouter(m),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
	go func() {
		logger.Info("Metrics listener started", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics listener failed", log.FieldError, err)
		}
	}()
	return s
}

// Shutdown stops the listener. A nil server is a no-op.
func (s *MetricsServer) Shutdown(ctx context.Context) {
	if s == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Metrics listener shutdown error", log.FieldError, err)
	}
}
