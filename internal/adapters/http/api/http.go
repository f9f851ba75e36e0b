// Package api exposes the import service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/okian/scoreimport/internal/app"
	"github.com/okian/scoreimport/internal/adapters/repository"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/parser"
	"github.com/okian/scoreimport/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Submit(ctx context.Context, job service.Job) (model.ImportStatus, error)
	Status(ctx context.Context, id string) (model.ImportStatus, error)
	Scores(ctx context.Context, f repository.ScoreFilter) ([]model.Score, error)
	StatsProvider
}

// Server wires HTTP routes for the import API.
type Server struct {
	deps      Dependencies
	maxUpload int64
	maxLimit  int
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:      deps,
		maxUpload: defaultMaxUploadBytes,
		maxLimit:  defaultMaxScoreLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	imports := &importsHandler{deps: s.deps, maxUpload: s.maxUpload}
	scores := &scoresHandler{deps: s.deps, maxLimit: s.maxLimit}
	stats := &statsHandler{provider: s.deps, started: time.Now()}

	mux.HandleFunc("POST /imports/file", MetricsMiddleware(imports.handleFile, "imports_file"))
	mux.HandleFunc("POST /imports/api", MetricsMiddleware(imports.handleAPI, "imports_api"))
	mux.HandleFunc("GET /imports/{id}", MetricsMiddleware(imports.handleStatus, "imports_status"))
	mux.HandleFunc("GET /scores", MetricsMiddleware(scores.handleList, "scores"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(stats.handleStats, "stats"))
	mux.HandleFunc("GET /healthz", MetricsMiddleware(handleHealth, "healthz"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// submitError maps a Submit failure to its HTTP status and code.
func submitError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, service.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, service.ErrMissingUser),
		errors.Is(err, service.ErrUnsupportedType),
		errors.Is(err, parser.ErrMissingAuth):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
