package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flags marks recoverable data conditions on a derived row.
type Flags uint8

const (
	// FlagPopulationZero is set when a per-capita value could not be computed.
	FlagPopulationZero Flags = 1 << iota
	// FlagMissingValue is set when the source cell was empty or invalid.
	FlagMissingValue
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

func (f Flags) String() string {
	var parts []string
	if f.Has(FlagPopulationZero) {
		parts = append(parts, "population_zero")
	}
	if f.Has(FlagMissingValue) {
		parts = append(parts, "missing_value")
	}
	return strings.Join(parts, ",")
}

// MarshalJSON renders flags as a list of names.
func (f Flags) MarshalJSON() ([]byte, error) {
	if f == 0 {
		return []byte("[]"), nil
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, name := range strings.Split(f.String(), ",") {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"` + name + `"`)
	}
	b.WriteByte(']')
	return []byte(b.String()), nil
}

// UnmarshalJSON accepts the list form written by MarshalJSON.
func (f *Flags) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	*f = 0
	for _, n := range names {
		switch n {
		case "population_zero":
			*f |= FlagPopulationZero
		case "missing_value":
			*f |= FlagMissingValue
		default:
			return fmt.Errorf("flags: unknown flag %q", n)
		}
	}
	return nil
}

// CategoryRow is one (record, category) pair produced by unpivoting wide
// category columns into long form.
type CategoryRow struct {
	State    string  `json:"state"`
	Location string  `json:"location"`
	Date     Date    `json:"date"`
	Year     int     `json:"year"`
	Week     int     `json:"week"`
	Label    string  `json:"category"`
	Value    float64 `json:"value"`
	Cases    float64 `json:"cases"`
	Flags    Flags   `json:"flags"`
}

// BucketKey identifies one weekly aggregation bucket.
type BucketKey struct {
	Label string `json:"category"`
	Year  int    `json:"year"`
	Week  int    `json:"week"`
}

// WeeklyBucket sums category rows sharing a (category, year, week) key.
type WeeklyBucket struct {
	BucketKey
	EndDate  Date    `json:"week_date"`
	SumCases float64 `json:"sum_cases"`
	SumDoses float64 `json:"sum_doses"`
}

// RankedState is one state's position in a ranking.
type RankedState struct {
	State       string  `json:"state"`
	Location    string  `json:"location"`
	MetricValue float64 `json:"metric_value"`
	Rank        int     `json:"rank"`
	Included    bool    `json:"included"`
}
