package model

import "math"

// Well-known CSV columns.
const (
	ColumnDate       = "date"
	ColumnYear       = "year"
	ColumnMonth      = "month"
	ColumnDay        = "day"
	ColumnWeek       = "week"
	ColumnLocation   = "location"
	ColumnState      = "state"
	ColumnID         = "id"
	ColumnPopulation = "population"

	ColumnCovidRate         = "covid_rate"
	ColumnTotalCases        = "tot_case"
	ColumnNewCases          = "new_case"
	ColumnAvgVaccine        = "avg_vaccine"
	ColumnDose1Complete     = "Dose1_Complete"
	ColumnSeriesComplete    = "Series_Complete"
	ColumnSeriesCompletePct = "Series_Complete_Pop_Pct"
)

// Dataset names. Each names one source table.
const (
	DatasetSnapshot = "snapshot" // per-state cumulative rows for the map
	DatasetWeekly   = "weekly"   // national weekly series by category
	DatasetNational = "national" // national totals for the donuts
	DatasetRanking  = "ranking"  // per-state comparison and detail columns
)

// Datasets lists every dataset name.
var Datasets = []string{DatasetSnapshot, DatasetWeekly, DatasetNational, DatasetRanking}

// Record is one row of a source table. Numeric columns other than the
// well-known identity columns live in Metrics; a column absent from Metrics
// is missing for this row and must not be read as zero. Year and Week key the
// record's week; Year is the ISO year when Week was derived from Date.
type Record struct {
	Date       Date
	Year       int
	Week       int
	Location   string
	State      string
	ID         int
	Population int64
	Metrics    map[string]float64
}

// Metric returns the named numeric value and whether it is present and finite.
func (r Record) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Clone returns a copy of r with its own Metrics map.
func (r Record) Clone() Record {
	c := r
	c.Metrics = make(map[string]float64, len(r.Metrics))
	for k, v := range r.Metrics {
		c.Metrics[k] = v
	}
	return c
}

// Table is a named, ordered, read-only set of records loaded from one source.
type Table struct {
	Name    string
	Columns []string
	Records []Record
	// Invalid counts cells that were present but rejected (non-numeric or
	// out of domain) and therefore treated as missing.
	Invalid int
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// DateRange returns the earliest and latest record dates. ok is false for an
// empty table.
func (t *Table) DateRange() (first, last Date, ok bool) {
	if t.Len() == 0 {
		return Date{}, Date{}, false
	}
	first, last = t.Records[0].Date, t.Records[0].Date
	for _, r := range t.Records[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last, true
}
