package api

import (
	"net/http"
)

// ViewsHandler serves recomputed dashboard views.
type ViewsHandler struct {
	deps Dependencies
}

// NewViewsHandler creates a new views handler.
func NewViewsHandler(deps Dependencies) *ViewsHandler {
	return &ViewsHandler{deps: deps}
}

// HandleViews handles GET /views: one full recomputation pass.
func (h *ViewsHandler) HandleViews(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_views"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	c, err := parseControls(r.URL.Query(), h.deps.DefaultControls())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	views, err := h.deps.Recompute(r.Context(), c)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleMap handles GET /views/map?date=.
func (h *ViewsHandler) HandleMap(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_map"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	c, err := parseControls(r.URL.Query(), h.deps.DefaultControls())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	v, err := h.deps.MapView(r.Context(), c.Date)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleWeekly handles GET /views/weekly?date=&mode=&lag=.
func (h *ViewsHandler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_weekly"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	c, err := parseControls(r.URL.Query(), h.deps.DefaultControls())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	v, err := h.deps.WeeklyView(r.Context(), c.Date, c.Mode, c.Lag)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleProportions handles GET /views/proportions?date=.
func (h *ViewsHandler) HandleProportions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_proportions"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	c, err := parseControls(r.URL.Query(), h.deps.DefaultControls())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	v, err := h.deps.ProportionView(r.Context(), c.Date)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleRanking handles GET /views/ranking?date=&criterion=&direction=&show=.
func (h *ViewsHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	c, err := parseControls(r.URL.Query(), h.deps.DefaultControls())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	v, err := h.deps.RankingView(r.Context(), c.Ranking())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleDetail handles GET /views/detail, taking the ranking parameters plus detail=.
func (h *ViewsHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_detail"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	c, err := parseControls(r.URL.Query(), h.deps.DefaultControls())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	v, err := h.deps.DetailView(r.Context(), c.Ranking(), c.Detail)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
