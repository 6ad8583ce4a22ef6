// Package statsapi exposes a single Pool's occupancy over HTTP: a JSON
// stats endpoint, a liveness/readiness probe, Prometheus scrape target,
// and a small read-only dashboard. Grounded on the teacher's
// internal/api.Server, trimmed from a multi-tenant CRUD+proxy-control
// surface down to the read-only observability surface a client-side pool
// actually needs (the pool has no tenants, pausing, or draining to expose).
package statsapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dbpool/mysqlpool/internal/eventlog"
	"github.com/dbpool/mysqlpool/internal/metrics"
	"github.com/dbpool/mysqlpool/internal/pool"
)

// Server is the stats/metrics/dashboard HTTP server for one Pool.
type Server struct {
	pool       *pool.Pool
	metrics    *metrics.Collector
	sink       eventlog.Sink
	startTime  time.Time
	httpServer *http.Server
}

// NewServer creates a Server bound to p, scraping mc's registry at
// /metrics. mc and sink may both be nil, in which case /metrics serves the
// default Prometheus registry and events are discarded.
func NewServer(p *pool.Pool, mc *metrics.Collector, sink eventlog.Sink) *Server {
	if sink == nil {
		sink = eventlog.Noop()
	}
	return &Server{pool: p, metrics: mc, sink: sink, startTime: time.Now()}
}

// Start begins serving on the given port. It returns once the listener is
// up; serving continues in a background goroutine until Stop is called.
func (s *Server) Start(port int) error {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.statusHandler).Methods("GET")
	r.HandleFunc("/stats", s.statsHandler).Methods("GET")
	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.Handle("/metrics", s.metricsHandler())
	r.HandleFunc("/", s.dashboardHandler).Methods("GET")
	r.HandleFunc("/dashboard", s.dashboardHandler).Methods("GET")

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("stats server listen on %s: %w", addr, err)
	}

	s.sink.Info("stats server listening", "addr", addr)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.sink.Error("stats server error", "err", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the stats server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) metricsHandler() http.Handler {
	if s.metrics == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pool.Stats())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	st := s.pool.Stats()
	healthy := st.Total > 0

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": boolToStatus(healthy),
		"stats":  st,
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_mb":      float64(mem.Alloc) / 1024 / 1024,
		"pool":           s.pool.Stats(),
	})
}

func boolToStatus(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unhealthy"
}
