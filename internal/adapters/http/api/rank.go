package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/vaxdash/internal/app"
	"github.com/okian/vaxdash/internal/domain/model"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	DefaultControls() service.Controls
	StateRank(ctx context.Context, date model.Date, criterion, direction, location string) (service.Standing, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{location}?date=&criterion=&direction= requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	location := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/rank/"))
	if location == "" || strings.Contains(location, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	c, err := parseControls(r.URL.Query(), h.deps.DefaultControls())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	st, err := h.deps.StateRank(r.Context(), c.Date, c.Criterion, c.Direction, location)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
