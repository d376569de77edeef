package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vaxdash/internal/adapters/repository"
	"github.com/okian/vaxdash/internal/domain/aggregate"
	"github.com/okian/vaxdash/internal/domain/filter"
	"github.com/okian/vaxdash/internal/domain/lag"
	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/internal/domain/projection"
	"github.com/okian/vaxdash/internal/domain/proportion"
	"github.com/okian/vaxdash/internal/domain/ranking"
	"github.com/okian/vaxdash/pkg/logger"
	"github.com/okian/vaxdash/pkg/metrics"
)

// Status reports whether a view could be computed.
type Status string

// View statuses.
const (
	StatusOK          Status = "ok"
	StatusNoData      Status = "no_data"
	StatusUnavailable Status = "unavailable"
)

// Meta is embedded in every view.
type Meta struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (m *Meta) degrade(view string, status Status, reason string) {
	m.Status = status
	m.Reason = reason
	metrics.RecordViewDegraded(view, string(status))
}

// MapRow is one state on the choropleth.
type MapRow struct {
	ID         int         `json:"id"`
	State      string      `json:"state"`
	Location   string      `json:"location"`
	Population int64       `json:"population"`
	CovidRate  float64     `json:"covid_rate"`
	AvgVaccine float64     `json:"avg_vaccine"`
	Flags      model.Flags `json:"flags"`
}

// MapView is the per-state snapshot of one date.
type MapView struct {
	Meta
	Date model.Date `json:"date"`
	Rows []MapRow   `json:"rows"`
}

// WeeklyView is the weekly series up to a cutoff date.
type WeeklyView struct {
	Meta
	Cutoff     model.Date           `json:"cutoff"`
	Mode       string               `json:"mode"`
	Lag        int                  `json:"lag"`
	Categories []string             `json:"categories"`
	Buckets    []model.WeeklyBucket `json:"buckets"`
	TotalCases float64              `json:"total_cases"`
	TotalDoses float64              `json:"total_doses"`
}

// ProportionView holds the donuts of one date. Degraded maps a donut name to
// the reason it is missing.
type ProportionView struct {
	Meta
	Date     model.Date              `json:"date"`
	Donuts   []proportion.Proportion `json:"donuts"`
	Degraded map[string]string       `json:"degraded,omitempty"`
}

// RankingRow carries both bar metrics so the client can layer the ranked
// bar and the comparison tick.
type RankingRow struct {
	model.RankedState
	CovidRate   float64     `json:"covid_rate"`
	CompletePct float64     `json:"series_complete_pct"`
	Population  int64       `json:"population"`
	Flags       model.Flags `json:"flags"`
}

// RankingView is the top-N state ranking of one date.
type RankingView struct {
	Meta
	Date      model.Date   `json:"date"`
	Criterion string       `json:"criterion"`
	Direction string       `json:"direction"`
	Show      int          `json:"show"`
	Total     int          `json:"total"`
	Rows      []RankingRow `json:"rows"`
	Excluded  []string     `json:"excluded"`
}

// DetailView breaks the completed series of the ranked states down by
// vaccine type or age group.
type DetailView struct {
	Meta
	Date       model.Date          `json:"date"`
	Detail     string              `json:"detail"`
	Categories []string            `json:"categories"`
	Rows       []model.CategoryRow `json:"rows"`
}

// Standing is one state's position in the full ranking.
type Standing struct {
	model.RankedState
	Total int `json:"total"`
}

// Views is the result of one recomputation pass.
type Views struct {
	PassID      string         `json:"pass_id"`
	Controls    Controls       `json:"controls"`
	Map         MapView        `json:"map"`
	Weekly      WeeklyView     `json:"weekly"`
	Proportions ProportionView `json:"proportions"`
	Ranking     RankingView    `json:"ranking"`
	Detail      DetailView     `json:"detail"`
	TookMS      float64        `json:"took_ms"`
}

// Recompute runs one full pass for c. Only invalid controls, an unstarted
// service or a cancelled context fail the pass; data problems degrade the
// affected view and leave the others intact.
func (s *Service) Recompute(ctx context.Context, c Controls) (Views, error) {
	if err := s.Validate(c); err != nil {
		return Views{}, err
	}
	store, err := s.tables()
	if err != nil {
		return Views{}, err
	}

	start := time.Now()
	passID := uuid.NewString()
	v := Views{PassID: passID, Controls: c}

	v.Map = s.mapView(ctx, store, c.Date)
	v.Weekly = s.weeklyView(ctx, store, c.Date, c.Mode, c.Lag)
	v.Proportions = s.proportionView(ctx, store, c.Date)
	v.Ranking, v.Detail = s.rankingAndDetail(ctx, store, c.Ranking(), c.Detail)

	if err := ctx.Err(); err != nil {
		return Views{}, err
	}

	took := time.Since(start)
	v.TookMS = float64(took.Microseconds()) / 1000
	s.recomputes.Add(1)
	s.lastPass.Store(passID)
	metrics.RecordRecompute(v.TookMS)

	s.logger.Debug(ctx, "views recomputed",
		logger.String("pass_id", passID),
		logger.String("date", c.Date.String()),
		logger.String("map", string(v.Map.Status)),
		logger.String("weekly", string(v.Weekly.Status)),
		logger.String("proportions", string(v.Proportions.Status)),
		logger.String("ranking", string(v.Ranking.Status)),
		logger.Duration("took", took),
	)
	return v, nil
}

// MapView computes the map view of date.
func (s *Service) MapView(ctx context.Context, date model.Date) (MapView, error) {
	c := s.DefaultControls()
	c.Date = date
	store, err := s.prepare(c)
	if err != nil {
		return MapView{}, err
	}
	return s.mapView(ctx, store, date), nil
}

// WeeklyView computes the weekly series up to cutoff for mode, with cases
// shifted lag weeks earlier.
func (s *Service) WeeklyView(ctx context.Context, cutoff model.Date, mode string, lagWeeks int) (WeeklyView, error) {
	c := s.DefaultControls()
	c.Date, c.Mode, c.Lag = cutoff, mode, lagWeeks
	store, err := s.prepare(c)
	if err != nil {
		return WeeklyView{}, err
	}
	return s.weeklyView(ctx, store, cutoff, mode, lagWeeks), nil
}

// ProportionView computes the donuts of date.
func (s *Service) ProportionView(ctx context.Context, date model.Date) (ProportionView, error) {
	c := s.DefaultControls()
	c.Date = date
	store, err := s.prepare(c)
	if err != nil {
		return ProportionView{}, err
	}
	return s.proportionView(ctx, store, date), nil
}

// RankingView computes the ranking selected by q.
func (s *Service) RankingView(ctx context.Context, q RankingQuery) (RankingView, error) {
	c := s.withQuery(q)
	store, err := s.prepare(c)
	if err != nil {
		return RankingView{}, err
	}
	rv, _ := s.rankingAndDetail(ctx, store, q, c.Detail)
	return rv, nil
}

// DetailView computes the per-state breakdown of the ranking selected by q.
func (s *Service) DetailView(ctx context.Context, q RankingQuery, detail string) (DetailView, error) {
	c := s.withQuery(q)
	c.Detail = detail
	store, err := s.prepare(c)
	if err != nil {
		return DetailView{}, err
	}
	_, dv := s.rankingAndDetail(ctx, store, q, detail)
	return dv, nil
}

// StateRank returns the full-ranking position of location. Show does not
// apply. Returns ErrStateNotFound when location is not ranked on that date.
func (s *Service) StateRank(ctx context.Context, date model.Date, criterion, direction, location string) (Standing, error) {
	q := RankingQuery{Date: date, Criterion: criterion, Direction: direction, Show: 1}
	store, err := s.prepare(s.withQuery(q))
	if err != nil {
		return Standing{}, err
	}
	records, err := s.rankingRecords(ctx, store, date)
	if err != nil {
		return Standing{}, err
	}
	dir, err := ranking.ParseDirection(direction)
	if err != nil {
		return Standing{}, fmt.Errorf("%w: %w", ErrInvalidControls, err)
	}
	res, err := ranking.RankAll(records, criterionColumn(criterion), dir, 1)
	if err != nil {
		return Standing{}, fmt.Errorf("%w: %w", ErrInvalidControls, err)
	}
	st, ok := res.Find(location)
	if !ok {
		return Standing{}, fmt.Errorf("%s on %s: %w", location, date, ErrStateNotFound)
	}
	return Standing{RankedState: st, Total: len(res.States)}, nil
}

func (s *Service) withQuery(q RankingQuery) Controls {
	c := s.DefaultControls()
	c.Date, c.Criterion, c.Direction, c.Show = q.Date, q.Criterion, q.Direction, q.Show
	return c
}

func (s *Service) prepare(c Controls) (repository.Store, error) {
	if err := s.Validate(c); err != nil {
		return nil, err
	}
	return s.tables()
}

func (s *Service) mapView(ctx context.Context, store repository.Store, date model.Date) MapView {
	defer stage("map", time.Now())
	v := MapView{Meta: Meta{Status: StatusOK}, Date: date, Rows: []MapRow{}}

	t, err := store.Table(ctx, model.DatasetSnapshot)
	if err != nil {
		v.degrade("map", StatusUnavailable, err.Error())
		return v
	}
	records := filter.ExcludeLocations(filter.OnDate(t.Records, date), s.mapExclude...)
	if len(records) == 0 {
		v.degrade("map", StatusNoData, fmt.Sprintf("no snapshot rows on %s", date))
		return v
	}

	for _, r := range records {
		row := MapRow{ID: r.ID, State: r.State, Location: r.Location, Population: r.Population}
		var ok bool
		if row.CovidRate, ok = r.Metric(model.ColumnCovidRate); !ok {
			row.Flags |= model.FlagMissingValue
		}
		if row.AvgVaccine, ok = r.Metric(model.ColumnAvgVaccine); !ok {
			row.Flags |= model.FlagMissingValue
		}
		if r.Population <= 0 {
			row.Flags |= model.FlagPopulationZero
		}
		v.Rows = append(v.Rows, row)
	}
	metrics.UpdateViewRows("map", len(v.Rows))
	return v
}

func (s *Service) weeklyView(ctx context.Context, store repository.Store, cutoff model.Date, mode string, lagWeeks int) WeeklyView {
	defer stage("weekly", time.Now())
	schema := weeklySchema(mode)
	v := WeeklyView{
		Meta:       Meta{Status: StatusOK},
		Cutoff:     cutoff,
		Mode:       mode,
		Lag:        lagWeeks,
		Categories: schema.Labels(),
		Buckets:    []model.WeeklyBucket{},
	}

	t, err := store.Table(ctx, model.DatasetWeekly)
	if err != nil {
		v.degrade("weekly", StatusUnavailable, err.Error())
		return v
	}
	shifted, err := lag.ShiftCases(t.Records, model.ColumnNewCases, lagWeeks)
	if err != nil {
		v.degrade("weekly", StatusUnavailable, err.Error())
		return v
	}
	records := filter.OnOrBefore(shifted, cutoff)
	if len(records) == 0 {
		v.degrade("weekly", StatusNoData, fmt.Sprintf("no weekly rows on or before %s", cutoff))
		return v
	}

	rows := projection.Project(records, schema, projection.WithCasesColumn(model.ColumnNewCases))
	v.Buckets = aggregate.Aggregate(rows)
	v.TotalCases, v.TotalDoses = aggregate.Totals(v.Buckets)
	metrics.UpdateViewRows("weekly", len(v.Buckets))
	return v
}

func (s *Service) proportionView(ctx context.Context, store repository.Store, date model.Date) ProportionView {
	defer stage("proportions", time.Now())
	v := ProportionView{Meta: Meta{Status: StatusOK}, Date: date, Donuts: []proportion.Proportion{}}

	t, err := store.Table(ctx, model.DatasetNational)
	if err != nil {
		v.degrade("proportions", StatusUnavailable, err.Error())
		return v
	}
	rows := filter.OnDate(t.Records, date)
	if len(rows) == 0 {
		v.degrade("proportions", StatusNoData, fmt.Sprintf("no national row on %s", date))
		return v
	}

	for _, k := range proportion.All {
		p, err := proportion.Compute(rows, k)
		if err != nil {
			if v.Degraded == nil {
				v.Degraded = map[string]string{}
			}
			v.Degraded[k.Name] = err.Error()
			if errors.Is(err, model.ErrZeroPopulation) {
				metrics.RecordPopulationZero(1)
			}
			continue
		}
		v.Donuts = append(v.Donuts, p)
	}
	if len(v.Donuts) == 0 {
		v.degrade("proportions", StatusUnavailable, "no donut could be computed")
	}
	metrics.UpdateViewRows("proportions", len(v.Donuts))
	return v
}

// rankingRecords returns the per-state rows of date with the configured
// exclusions applied.
func (s *Service) rankingRecords(ctx context.Context, store repository.Store, date model.Date) ([]model.Record, error) {
	t, err := store.Table(ctx, model.DatasetRanking)
	if err != nil {
		return nil, err
	}
	return filter.ExcludeLocations(filter.OnDate(t.Records, date), s.rankingExclude...), nil
}

func (s *Service) rankingAndDetail(ctx context.Context, store repository.Store, q RankingQuery, detail string) (RankingView, DetailView) {
	defer stage("ranking", time.Now())
	rv := RankingView{
		Meta:      Meta{Status: StatusOK},
		Date:      q.Date,
		Criterion: q.Criterion,
		Direction: q.Direction,
		Show:      q.Show,
		Rows:      []RankingRow{},
		Excluded:  []string{},
	}
	schema, perCapita := detailSchema(detail)
	dv := DetailView{
		Meta:       Meta{Status: StatusOK},
		Date:       q.Date,
		Detail:     detail,
		Categories: schema.Labels(),
		Rows:       []model.CategoryRow{},
	}

	records, err := s.rankingRecords(ctx, store, q.Date)
	if err != nil {
		rv.degrade("ranking", StatusUnavailable, err.Error())
		dv.degrade("detail", StatusUnavailable, err.Error())
		return rv, dv
	}
	if len(records) == 0 {
		reason := fmt.Sprintf("no ranking rows on %s", q.Date)
		rv.degrade("ranking", StatusNoData, reason)
		dv.degrade("detail", StatusNoData, reason)
		return rv, dv
	}

	dir, err := ranking.ParseDirection(q.Direction)
	if err == nil {
		var res ranking.Result
		res, err = ranking.RankAll(records, criterionColumn(q.Criterion), dir, q.Show)
		if err == nil {
			rv.Direction = string(dir)
			rv.Total = len(res.States)
			if res.Excluded != nil {
				rv.Excluded = res.Excluded
			}
			metrics.RecordRankingExcluded(len(res.Excluded))
			rv.Rows = rankingRows(records, res.Top())
			dv.Rows = detailRows(records, res.Top(), schema, perCapita)
		}
	}
	if err != nil {
		rv.degrade("ranking", StatusUnavailable, err.Error())
		dv.degrade("detail", StatusUnavailable, err.Error())
		return rv, dv
	}

	if len(rv.Rows) == 0 {
		rv.degrade("ranking", StatusNoData, "no state has the ranking metric")
		dv.degrade("detail", StatusNoData, "no ranked states")
	}
	metrics.UpdateViewRows("ranking", len(rv.Rows))
	metrics.UpdateViewRows("detail", len(dv.Rows))
	return rv, dv
}

func byLocation(records []model.Record) map[string]model.Record {
	out := make(map[string]model.Record, len(records))
	for _, r := range records {
		if _, dup := out[r.Location]; !dup {
			out[r.Location] = r
		}
	}
	return out
}

func rankingRows(records []model.Record, top []model.RankedState) []RankingRow {
	idx := byLocation(records)
	rows := make([]RankingRow, 0, len(top))
	for _, st := range top {
		r := idx[st.Location]
		row := RankingRow{RankedState: st, Population: r.Population}
		var ok bool
		if row.CovidRate, ok = r.Metric(model.ColumnCovidRate); !ok {
			row.Flags |= model.FlagMissingValue
		}
		if row.CompletePct, ok = r.Metric(model.ColumnSeriesCompletePct); !ok {
			row.Flags |= model.FlagMissingValue
		}
		rows = append(rows, row)
	}
	return rows
}

// detailRows projects the ranked states in rank order. The age breakdown
// skips states without a completed series percentage.
func detailRows(records []model.Record, top []model.RankedState, schema projection.Schema, perCapita bool) []model.CategoryRow {
	idx := byLocation(records)
	ranked := make([]model.Record, 0, len(top))
	for _, st := range top {
		r := idx[st.Location]
		if !perCapita {
			if pct, ok := r.Metric(model.ColumnSeriesCompletePct); !ok || pct == 0 {
				continue
			}
		}
		ranked = append(ranked, r)
	}

	var opts []projection.Option
	if perCapita {
		opts = append(opts, projection.WithPerCapita())
	}
	rows := projection.Project(ranked, schema, opts...)

	zero := 0
	for _, r := range rows {
		if r.Flags.Has(model.FlagPopulationZero) {
			zero++
		}
	}
	if zero > 0 {
		metrics.RecordPopulationZero(zero)
	}
	return rows
}

func stage(name string, start time.Time) {
	metrics.RecordStageLatency(name, float64(time.Since(start).Microseconds())/1000)
}
