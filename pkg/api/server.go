package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/storage"
)

// Server exposes the daemon's read-only HTTP surface: liveness,
// readiness, Prometheus metrics, and a lab status summary. There is no
// write surface; mutations go through the CLI and the store.
type Server struct {
	store storage.Store
	mux   *http.ServeMux
	http  *http.Server
}

// NewServer creates the HTTP server over the given store
func NewServer(store storage.Store) *Server {
	mux := http.NewServeMux()
	s := &Server{
		store: store,
		mux:   mux,
	}

	mux.HandleFunc("/health", metrics.LivenessHandler())
	mux.HandleFunc("/ready", s.readyHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.Handle("/metrics", metrics.Handler())

	return s
}

// Start starts the HTTP server. It blocks until the listener fails or
// Stop is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Handler returns the server's mux, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// readyHandler answers whether the daemon can serve: the store must be
// reachable and the registered components healthy
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := ReadyResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if _, err := s.store.ListHosts(); err != nil {
		response.Status = "not ready"
		response.Checks["storage"] = "unreachable: " + err.Error()
	} else {
		response.Checks["storage"] = "ok"
	}

	health := metrics.GetHealth()
	for name, state := range health.Components {
		response.Checks[name] = state
		if health.Status != "healthy" {
			response.Status = "not ready"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status != "ready" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(response)
}

// StatusResponse summarizes lab state for dashboards and quick checks
type StatusResponse struct {
	Timestamp      time.Time      `json:"timestamp"`
	HostsByStatus  map[string]int `json:"hosts_by_status"`
	HostsLocked    int            `json:"hosts_locked"`
	HostsLeased    int            `json:"hosts_leased"`
	Jobs           int            `json:"jobs"`
	PendingEntries int            `json:"pending_entries"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hosts, err := s.store.ListHosts()
	if err != nil {
		http.Error(w, "storage unreachable", http.StatusServiceUnavailable)
		return
	}
	jobs, err := s.store.ListJobs()
	if err != nil {
		http.Error(w, "storage unreachable", http.StatusServiceUnavailable)
		return
	}
	pending, err := s.store.ListPendingEntries()
	if err != nil {
		http.Error(w, "storage unreachable", http.StatusServiceUnavailable)
		return
	}

	response := StatusResponse{
		Timestamp:      time.Now(),
		HostsByStatus:  make(map[string]int),
		Jobs:           len(jobs),
		PendingEntries: len(pending),
	}
	for _, host := range hosts {
		response.HostsByStatus[string(host.Status)]++
		if host.Locked {
			response.HostsLocked++
		}
		if host.Leased {
			response.HostsLeased++
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
