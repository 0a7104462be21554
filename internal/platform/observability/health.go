package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// HealthServer serves liveness and Prometheus metrics on a side port.
type HealthServer struct {
	server *http.Server
	logger *zerolog.Logger
}

// NewHealthServer creates the health endpoint on the given port.
func NewHealthServer(port int, logger *zerolog.Logger) *HealthServer {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &HealthServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

// Start runs the health server until it fails or is shut down.
func (h *HealthServer) Start() {
	h.logger.Info().Str("addr", h.server.Addr).Msg("health server listening")

	if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		h.logger.Error().Err(err).Msg("health server failed")
	}
}

// Shutdown stops the health server gracefully.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return h.server.Shutdown(ctx)
}
