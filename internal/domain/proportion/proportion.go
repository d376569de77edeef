// Package proportion splits a population into two complementary slices for
// the donut charts (infected vs uninfected, vaccinated vs unvaccinated).
package proportion

import (
	"fmt"

	"github.com/okian/vaxdash/internal/domain/model"
)

// Kind describes one donut.
type Kind struct {
	Name   string
	Title  string
	Column string
	Labels [2]string // [part, complement]
}

// Donuts shown next to the map.
var (
	Infection = Kind{
		Name:   "infection",
		Title:  "Covid-19 infection proportion",
		Column: model.ColumnTotalCases,
		Labels: [2]string{"Infected", "Uninfected"},
	}
	FirstDose = Kind{
		Name:   "first_dose",
		Title:  "First dose vaccination rate",
		Column: model.ColumnDose1Complete,
		Labels: [2]string{"Vaccinated", "Unvaccinated"},
	}
	SeriesComplete = Kind{
		Name:   "series_complete",
		Title:  "Complete vaccination rate",
		Column: model.ColumnSeriesComplete,
		Labels: [2]string{"Vaccinated", "Unvaccinated"},
	}
)

// All lists the donuts in display order.
var All = []Kind{Infection, FirstDose, SeriesComplete}

// Slice is one segment of a donut.
type Slice struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	Rate     float64 `json:"rate"`
}

// Proportion is a computed donut.
type Proportion struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Slices []Slice `json:"slices"`
}

// Compute builds the donut of kind k from the first of rows, which must be
// the single-date snapshot. It fails with model.ErrNoData when rows is empty,
// model.ErrZeroPopulation when the denominator is not positive, and
// model.ErrMissingMetric when the numerator is absent.
func Compute(rows []model.Record, k Kind) (Proportion, error) {
	if len(rows) == 0 {
		return Proportion{}, fmt.Errorf("%s: %w", k.Name, model.ErrNoData)
	}
	r := rows[0]
	if r.Population <= 0 {
		return Proportion{}, fmt.Errorf("%s on %s: %w", k.Name, r.Date, model.ErrZeroPopulation)
	}
	part, ok := r.Metric(k.Column)
	if !ok {
		return Proportion{}, fmt.Errorf("%s column %s on %s: %w", k.Name, k.Column, r.Date, model.ErrMissingMetric)
	}

	pop := float64(r.Population)
	rest := pop - part
	if rest < 0 {
		rest = 0
	}
	rate := part / pop
	if rate > 1 {
		rate = 1
	}
	return Proportion{
		Name:  k.Name,
		Title: k.Title,
		Slices: []Slice{
			{Category: k.Labels[0], Value: part, Rate: rate},
			{Category: k.Labels[1], Value: rest, Rate: 1 - rate},
		},
	}, nil
}
