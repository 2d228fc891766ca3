// Package targetsrv is a self-contained HTTP target for load runs. It
// serves endpoints with known latency and failure characteristics so a
// benchmark can be exercised end to end without an external service.
package targetsrv

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Config shapes the target's behavior. SlowDelay is the fixed latency
// of /slow; FlakyFailureRate is the probability in [0,1] that /flaky
// returns a 500. Seed makes the flaky endpoint reproducible.
type Config struct {
	BindAddr         string
	SlowDelay        time.Duration
	FlakyFailureRate float64
	Seed             int64
	EnableH2C        bool
}

// Server is the benchmark target.
type Server struct {
	cfg        Config
	httpServer *http.Server
	router     chi.Router

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Server. A zero FlakyFailureRate makes /flaky identical
// to /ok.
func New(cfg Config) *Server {
	if cfg.SlowDelay <= 0 {
		cfg.SlowDelay = 150 * time.Millisecond
	}
	if cfg.FlakyFailureRate < 0 {
		cfg.FlakyFailureRate = 0
	}
	if cfg.FlakyFailureRate > 1 {
		cfg.FlakyFailureRate = 1
	}

	srv := &Server{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	srv.router = srv.buildRouter()

	var handler http.Handler = srv.router
	if cfg.EnableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	srv.httpServer = &http.Server{
		Addr:    cfg.BindAddr,
		Handler: handler,
	}
	return srv
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/ok", s.handleOK)
	r.Get("/slow", s.handleSlow)
	r.Get("/flaky", s.handleFlaky)
	r.Post("/echo", s.handleEcho)

	return r
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	slog.Info("target server starting",
		"addr", s.httpServer.Addr,
		"slow_delay", s.cfg.SlowDelay,
		"flaky_failure_rate", s.cfg.FlakyFailureRate,
		"h2c", s.cfg.EnableH2C,
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("target server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOK(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSlow(w http.ResponseWriter, r *http.Request) {
	select {
	case <-time.After(s.cfg.SlowDelay):
	case <-r.Context().Done():
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"delayMs": s.cfg.SlowDelay.Milliseconds(),
	})
}

func (s *Server) handleFlaky(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail := s.rng.Float64() < s.cfg.FlakyFailureRate
	s.mu.Unlock()
	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "injected failure",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var body any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid JSON body",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"echo":    body,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
