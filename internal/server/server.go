// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/solo-energia/bill-clarifier/internal/chat"
	"github.com/solo-energia/bill-clarifier/internal/common"
	"github.com/solo-energia/bill-clarifier/internal/export"
	"github.com/solo-energia/bill-clarifier/internal/pipeline"
	"github.com/solo-energia/bill-clarifier/internal/repository"
)

// Server holds the HTTP dependencies.
type Server struct {
	pipeline   *pipeline.Pipeline
	analyses   repository.AnalysisRepository
	properties repository.PropertyRepository
	chat       *chat.Service
	export     *export.Service
	log        *slog.Logger
}

func New(p *pipeline.Pipeline, analyses repository.AnalysisRepository, properties repository.PropertyRepository, chatSvc *chat.Service, exportSvc *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipeline:   p,
		analyses:   analyses,
		properties: properties,
		chat:       chatSvc,
		export:     exportSvc,
		log:        logger,
	}
}

// Router wires the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(propagateRequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyses", s.handleAnalyze)
		r.Get("/analyses/{id}", s.handleGetAnalysis)
		r.Delete("/analyses/{id}", s.handleDeleteAnalysis)
		r.Post("/analyses/{id}/chat", s.handleChat)
		r.Get("/properties/{id}", s.handleGetProperty)
		r.Get("/properties/{id}/analyses", s.handleListAnalyses)
		r.Get("/properties/{id}/analyses/export", s.handleExport)
		r.Get("/users/{id}/properties", s.handleListProperties)
	})

	return r
}

// propagateRequestID copies chi's request id into the application context so
// pipeline and stage logs can correlate with access logs.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := common.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps application errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrUnavailable):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.log.Error("http.internal_error", "error", err)
	}
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}

// pathUUID parses the {id} route parameter.
func pathUUID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, common.InvalidInputError("invalid id")
	}
	return id, nil
}
