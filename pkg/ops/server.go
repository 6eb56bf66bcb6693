// Package ops exposes the operational HTTP surface: health, pipeline status,
// queue inspection, and Prometheus metrics.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"solbank/pkg/data"
	"solbank/pkg/ledger"
	"solbank/pkg/logging"
	"solbank/pkg/syncq"
)

// Server provides HTTP endpoints for pipeline inspection and monitoring.
type Server struct {
	service *data.Service
	queue   *syncq.Queue
	server  *http.Server
	logger  *logging.Logger
	started time.Time
}

// Config holds configuration for the ops server.
type Config struct {
	// Address to listen on (e.g., ":8080").
	Address string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Address:      ":8080",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// NewServer creates the ops server. registry may be nil when Prometheus
// metrics are not wired; /metrics then serves the default registry.
func NewServer(service *data.Service, queue *syncq.Queue, registry *prometheus.Registry, config Config, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	s := &Server{
		service: service,
		queue:   queue,
		logger:  logger.Named("ops"),
		started: time.Now(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/queue", s.handleQueue).Methods(http.MethodGet)
	r.HandleFunc("/queue/drain", s.handleDrain).Methods(http.MethodPost)
	r.HandleFunc("/deadletter", s.handleDeadLetter).Methods(http.MethodGet)
	r.HandleFunc("/balance", s.handleBalance).Methods(http.MethodGet)
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("ops server listening", zap.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("ops server", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"online":     s.service.Online(),
		"queueDepth": s.queue.Len(r.Context()),
		"uptime":     time.Since(s.started).String(),
		"timestamp":  time.Now().Unix(),
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	ops, err := s.queue.Pending(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"depth":      len(ops),
		"operations": ops,
	})
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := s.queue.Drain(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeadLetter(w http.ResponseWriter, r *http.Request) {
	ops, err := s.queue.DeadLetter(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(ops),
		"operations": ops,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "address parameter is required"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	balance, confidence := s.service.WalletBalance(ctx, address, r.URL.Query().Get("mint"))
	writeJSON(w, http.StatusOK, map[string]any{
		"address":   address,
		"balance":   balance,
		"confirmed": confidence == ledger.ConfidenceConfirmed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
