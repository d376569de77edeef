// Package lag shifts case counts forward in time so a week's vaccinations can
// be compared with the cases reported several weeks later.
package lag

import (
	"errors"
	"fmt"

	"github.com/okian/vaxdash/internal/domain/model"
)

// ErrNegativeLag is returned for a negative week offset.
var ErrNegativeLag = errors.New("lag must not be negative")

// ShiftCases returns copies of records where, within each location's series
// (rows in input order), column at row i takes the value at row i+weeks. Rows
// with no successor that far ahead get 0. The series is expected to hold one
// row per week. weeks == 0 returns the input unchanged.
func ShiftCases(records []model.Record, column string, weeks int) ([]model.Record, error) {
	if weeks < 0 {
		return nil, fmt.Errorf("shift %d weeks: %w", weeks, ErrNegativeLag)
	}
	if weeks == 0 {
		return records, nil
	}

	// Row positions per location, preserving input order.
	series := make(map[string][]int)
	for i, r := range records {
		series[r.Location] = append(series[r.Location], i)
	}

	out := make([]model.Record, len(records))
	for _, idx := range series {
		for pos, i := range idx {
			r := records[i].Clone()
			if pos+weeks < len(idx) {
				if v, ok := records[idx[pos+weeks]].Metric(column); ok {
					r.Metrics[column] = v
				} else {
					delete(r.Metrics, column)
				}
			} else {
				r.Metrics[column] = 0
			}
			out[i] = r
		}
	}
	return out, nil
}
