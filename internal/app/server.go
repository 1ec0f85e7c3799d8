package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"svcore/pkg/logging"
)

const shutdownTimeout = 5 * time.Second

// metricsServer exposes the Prometheus handler until stopped.
type metricsServer struct {
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

func startMetricsServer(addr string, handler http.Handler) (*metricsServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	s := &metricsServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics", err, "Metrics server stopped")
		}
	}()

	logging.Info("Metrics", "Serving metrics on http://%s/metrics", listener.Addr())
	return s, nil
}

// Addr returns the bound address.
func (s *metricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Stop shuts the server down and waits for it to exit.
func (s *metricsServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.server.Shutdown(ctx)
	<-s.done
}
