// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/cityconnect/internal/adapters/mq/queue"
	"github.com/okian/cityconnect/internal/adapters/repository"
	service "github.com/okian/cityconnect/internal/app"
	"github.com/okian/cityconnect/internal/domain/geo"
	"github.com/okian/cityconnect/internal/domain/model"
	"github.com/okian/cityconnect/internal/domain/ranking"
)

// Dependencies required by HTTP handlers. Each handler only sees the part of
// it that it needs.
type Dependencies interface {
	SuggestionDependencies
	RosterDependencies
	EventDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	suggestionsHandler *SuggestionsHandler
	rosterHandler      *RosterHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		suggestionsHandler: NewSuggestionsHandler(deps),
		rosterHandler:      NewRosterHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("POST /suggestions", MetricsMiddleware(s.suggestionsHandler.HandleSuggest, "suggestions"))
	mux.HandleFunc("GET /nearest", MetricsMiddleware(s.suggestionsHandler.HandleNearest, "nearest"))
	mux.HandleFunc("GET /technicians", MetricsMiddleware(s.rosterHandler.HandleList, "technicians"))
	mux.HandleFunc("GET /technicians/{id}", MetricsMiddleware(s.rosterHandler.HandleGet, "technician"))
	mux.HandleFunc("PUT /technicians/{id}", MetricsMiddleware(s.rosterHandler.HandlePut, "technician"))
	mux.HandleFunc("DELETE /technicians/{id}", MetricsMiddleware(s.rosterHandler.HandleDelete, "technician"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
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

// writeFailure maps err to a status and code and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// classify translates domain and API error kinds to HTTP status codes.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinate):
		return http.StatusBadRequest, "invalid_coordinate"
	case errors.Is(err, ranking.ErrInvalidExpression):
		return http.StatusBadRequest, "invalid_expression"
	case errors.Is(err, service.ErrLimitExceeded):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, model.ErrInvalidUrgency),
		errors.Is(err, model.ErrInvalidTechnician),
		errors.Is(err, model.ErrInvalidEvent),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, queue.ErrFull), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, queue.ErrClosed), errors.Is(err, service.ErrNotStarted), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
