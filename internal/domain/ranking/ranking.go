// Package ranking orders states by a metric and keeps the top N for display.
//
// Ordering: metric in the requested direction, then input order. Every state
// gets a distinct rank; ties are not merged.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/vaxdash/internal/domain/model"
)

// Direction selects the sort order of a ranking.
type Direction string

// Supported directions.
const (
	Descending Direction = "descending"
	Ascending  Direction = "ascending"
)

// ParseDirection accepts "descending"/"desc" and "ascending"/"asc".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "descending", "desc", "":
		return Descending, nil
	case "ascending", "asc":
		return Ascending, nil
	}
	return "", fmt.Errorf("direction %q: %w", s, ErrInvalidDirection)
}

// Result is a complete ranking: every rankable state in rank order, plus the
// locations left out because their metric was missing.
type Result struct {
	States   []model.RankedState
	Excluded []string
}

// Top returns the included prefix of the ranking.
func (r Result) Top() []model.RankedState {
	for i, s := range r.States {
		if !s.Included {
			return r.States[:i]
		}
	}
	return r.States
}

// candidate pairs a rankable record with its input position.
type candidate struct {
	pos    int
	record model.Record
	value  float64
}

// RankAll ranks every record with a usable metric. Records must already be
// restricted to one date. States lacking the metric are listed in Excluded
// instead of being sorted as zero.
func RankAll(records []model.Record, metric string, dir Direction, topN int) (Result, error) {
	if topN < 1 {
		return Result{}, fmt.Errorf("top %d: %w", topN, ErrInvalidLimit)
	}
	if dir != Descending && dir != Ascending {
		return Result{}, fmt.Errorf("direction %q: %w", dir, ErrInvalidDirection)
	}

	cands := make([]candidate, 0, len(records))
	var excluded []string
	for i, r := range records {
		v, ok := r.Metric(metric)
		if !ok {
			excluded = append(excluded, r.Location)
			continue
		}
		cands = append(cands, candidate{pos: i, record: r, value: v})
	}

	sortCandidates(cands, dir)

	states := make([]model.RankedState, len(cands))
	for i, c := range cands {
		states[i] = model.RankedState{
			State:       c.record.State,
			Location:    c.record.Location,
			MetricValue: c.value,
			Rank:        i + 1,
			Included:    i < topN,
		}
	}
	return Result{States: states, Excluded: excluded}, nil
}

// Rank returns the first topN states of RankAll.
func Rank(records []model.Record, metric string, dir Direction, topN int) ([]model.RankedState, error) {
	res, err := RankAll(records, metric, dir, topN)
	if err != nil {
		return nil, err
	}
	return res.Top(), nil
}

// Find returns the ranked entry for location.
func (r Result) Find(location string) (model.RankedState, bool) {
	for _, s := range r.States {
		if s.Location == location {
			return s, true
		}
	}
	return model.RankedState{}, false
}

// sortCandidates sorts by value in dir; equal values keep input order.
func sortCandidates(cands []candidate, dir Direction) {
	sort.SliceStable(cands, func(i, j int) bool {
		if dir == Ascending {
			return cands[i].value < cands[j].value
		}
		return cands[i].value > cands[j].value
	})
}
