// Package health exposes liveness and Prometheus metrics endpoints.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check probes one dependency and returns an error when it is unhealthy.
type Check func(ctx context.Context) error

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	checks map[string]Check
	server *http.Server
}

// NewServer creates a new health server on the given port.
func NewServer(port int, checks map[string]Check) *Server {
	mux := http.NewServeMux()
	s := &Server{
		checks: checks,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	details := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			status = "unhealthy"
			details[name] = err.Error()
			continue
		}
		details[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": details,
	})
}
