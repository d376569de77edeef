// Package filter restricts tables of dated records to a cutoff or a single day.
package filter

import "github.com/okian/vaxdash/internal/domain/model"

// OnOrBefore returns the records dated on or before cutoff, in input order.
// The result never aliases the input slice.
func OnOrBefore(records []model.Record, cutoff model.Date) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if r.Date.Compare(cutoff) <= 0 {
			out = append(out, r)
		}
	}
	return out
}

// OnDate returns the records dated exactly d, in input order.
func OnDate(records []model.Record, d model.Date) []model.Record {
	out := make([]model.Record, 0)
	for _, r := range records {
		if r.Date == d {
			out = append(out, r)
		}
	}
	return out
}

// ExcludeLocations drops records whose location is one of locations.
func ExcludeLocations(records []model.Record, locations ...string) []model.Record {
	if len(locations) == 0 {
		return append([]model.Record(nil), records...)
	}
	skip := make(map[string]struct{}, len(locations))
	for _, l := range locations {
		skip[l] = struct{}{}
	}
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if _, ok := skip[r.Location]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// Where returns the records for which keep returns true, in input order.
func Where(records []model.Record, keep func(model.Record) bool) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
