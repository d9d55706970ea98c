// Package http exposes an engine over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/strand/internal/logging"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine defines what the HTTP surface needs from the strand engine.
type Engine interface {
	RunUnit(ctx context.Context, unit string) (*domain.Report, error)
	Units(ctx context.Context) ([]string, error)
	Report(ctx context.Context, runID string) (*domain.Report, error)
	Reports(ctx context.Context) ([]string, error)
}

// Server serves the API routes.
type Server struct {
	Engine   Engine
	Streams  *StreamManager
	Gatherer prometheus.Gatherer
	Version  string

	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStreams enables GET /events, fed by the given manager.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithGatherer enables GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.Gatherer = g }
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.Version = v }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// RunRequest is the body of POST /runs.
type RunRequest struct {
	Unit string `json:"unit"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error  string         `json:"error"`
	Report *domain.Report `json:"report,omitempty"`
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/units", s.ListUnits)
	r.Get("/runs", s.ListRuns)
	r.Post("/runs", s.CreateRun)
	r.Get("/runs/{id}", s.GetRun)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	if s.Streams != nil {
		r.Get("/events", s.SubscribeEvents)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "strand-http",
		"version": s.Version,
	})
}

// ListUnits handles GET /units.
func (s *Server) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.Engine.Units(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, units)
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Reports(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.Engine.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			s.writeError(w, http.StatusNotFound, err, nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// CreateRun handles POST /runs. The unit runs to completion before the
// response is written.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Unit == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid request body: unit is required"), nil)
		return
	}

	report, err := s.Engine.RunUnit(r.Context(), body.Unit)
	if err != nil {
		s.logger.Warn("run failed", "unit", body.Unit, "error", err)
		s.writeError(w, statusFor(err), err, report)
		return
	}
	s.writeJSON(w, http.StatusCreated, report)
}

func statusFor(err error) int {
	var lf *domain.LinkFailure
	var halt *domain.Halt
	var exec *domain.ExecFailure
	switch {
	case errors.Is(err, domain.ErrUnitNotFound):
		return http.StatusNotFound
	case errors.As(err, &lf):
		return http.StatusUnprocessableEntity
	case errors.As(err, &halt):
		return http.StatusConflict
	case errors.As(err, &exec):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error, report *domain.Report) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Report: report})
}
