// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/vaxdash/internal/app"
	"github.com/okian/vaxdash/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	DefaultControls() service.Controls

	// Recompute runs a full pass over every view.
	Recompute(ctx context.Context, c service.Controls) (service.Views, error)

	// Single views.
	MapView(ctx context.Context, date model.Date) (service.MapView, error)
	WeeklyView(ctx context.Context, cutoff model.Date, mode string, lag int) (service.WeeklyView, error)
	ProportionView(ctx context.Context, date model.Date) (service.ProportionView, error)
	RankingView(ctx context.Context, q service.RankingQuery) (service.RankingView, error)
	DetailView(ctx context.Context, q service.RankingQuery, detail string) (service.DetailView, error)
	StateRank(ctx context.Context, date model.Date, criterion, direction, location string) (service.Standing, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	viewsHandler     *ViewsHandler
	rankHandler      *RankHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		viewsHandler:     NewViewsHandler(deps),
		rankHandler:      NewRankHandler(deps),
		dashboardHandler: newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/views", MetricsMiddleware(s.viewsHandler.HandleViews, "views"))
	mux.HandleFunc("/views/map", MetricsMiddleware(s.viewsHandler.HandleMap, "views_map"))
	mux.HandleFunc("/views/weekly", MetricsMiddleware(s.viewsHandler.HandleWeekly, "views_weekly"))
	mux.HandleFunc("/views/proportions", MetricsMiddleware(s.viewsHandler.HandleProportions, "views_proportions"))
	mux.HandleFunc("/views/ranking", MetricsMiddleware(s.viewsHandler.HandleRanking, "views_ranking"))
	mux.HandleFunc("/views/detail", MetricsMiddleware(s.viewsHandler.HandleDetail, "views_detail"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/", handleRoot)
}

// handleRoot sends the bare root to the dashboard.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", NewKind("api.root", ErrNotFound))
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
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

// writeServiceError maps service and API error kinds to a status code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidControls):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrStateNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
