// Package server exposes the bots over HTTP for an external scheduler:
// GET /api/{bot}/daily triggers one run.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hk-410/hakyng-bots/bot"
	"github.com/hk-410/hakyng-bots/metrics"
)

// DefaultRunTimeout bounds one triggered run.
const DefaultRunTimeout = 5 * time.Minute

// DailyResponse is the JSON body of /api/{bot}/daily.
type DailyResponse struct {
	Success bool   `json:"success"`
	DryRun  bool   `json:"dryRun"`
	RunID   string `json:"runId,omitempty"`
	Tweet   string `json:"tweet,omitempty"`
	Replies any    `json:"replies,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server routes requests to bots.
type Server struct {
	runner     *bot.Runner
	bots       map[string]bot.Bot
	cronSecret string
	metrics    *metrics.Metrics
	logger     *slog.Logger
	runTimeout time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRunTimeout overrides DefaultRunTimeout.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.runTimeout = d
	}
}

// New creates a server for bots. An empty cronSecret rejects every
// authenticated request.
func New(runner *bot.Runner, cronSecret string, bots []bot.Bot, opts ...Option) *Server {
	s := &Server{
		runner:     runner,
		bots:       make(map[string]bot.Bot, len(bots)),
		cronSecret: cronSecret,
		logger:     slog.Default(),
		runTimeout: DefaultRunTimeout,
		inFlight:   make(map[string]bool),
	}
	for _, b := range bots {
		s.bots[b.Name()] = b
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bots returns the registered bot names, sorted.
func (s *Server) Bots() []string {
	names := make([]string, 0, len(s.bots))
	for name := range s.bots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/{bot}/daily", s.handleDaily)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr, "bots", s.Bots())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("bot")
	b, ok := s.bots[name]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, DailyResponse{Error: fmt.Sprintf("unknown bot %q", name)})
		return
	}

	dryRun := r.URL.Query().Get("dryRun") == "true"
	authorized := s.authorized(r)
	s.logger.Debug("Daily request", "bot", name, "cron", authorized, "dry_run", dryRun, "method", r.Method)

	if !authorized && !(dryRun && bot.AllowsPublicDryRun(b)) {
		s.logger.Warn("Unauthorized access attempt", "bot", name, "remote", r.RemoteAddr)
		s.writeJSON(w, http.StatusUnauthorized, DailyResponse{Error: "Unauthorized"})
		return
	}
	if r.Method != http.MethodGet {
		s.writeJSON(w, http.StatusMethodNotAllowed, DailyResponse{Error: "Method Not Allowed"})
		return
	}

	if !s.acquire(name) {
		s.writeJSON(w, http.StatusConflict, DailyResponse{DryRun: dryRun, Error: "a run of this bot is already in progress"})
		return
	}
	defer s.release(name)

	// A scheduler hanging up must not cut a thread in half.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.runTimeout)
	defer cancel()

	res, err := s.runner.Run(ctx, b, dryRun)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, DailyResponse{DryRun: dryRun, Error: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, DailyResponse{
		Success: true,
		DryRun:  res.DryRun,
		RunID:   res.RunID,
		Tweet:   res.Tweet,
		Replies: res.Details,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "bots": s.Bots()})
}

// authorized checks "Authorization: Bearer <secret>".
func (s *Server) authorized(r *http.Request) bool {
	if s.cronSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) == 1
}

func (s *Server) acquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[name] {
		return false
	}
	s.inFlight[name] = true
	return true
}

func (s *Server) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, name)
}

// writeJSON writes a JSON response. The body is encoded before the status
// goes out, so an encoding failure can still become a 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("Failed to encode response", "status", status, "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(DailyResponse{Error: "failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.logger.Debug("Failed to write response", "error", err)
	}
}
