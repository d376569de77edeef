package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/okian/vaxdash/internal/domain/model"
)

// columnKind classifies a header cell.
type columnKind int

const (
	kindMetric columnKind = iota
	kindSkip
	kindDate
	kindYear
	kindMonth
	kindDay
	kindWeek
	kindLocation
	kindState
	kindID
	kindPopulation
)

// classify maps a header cell to its kind. Identity columns are matched
// case-insensitively; metric columns keep their header verbatim.
func classify(header string) columnKind {
	h := strings.TrimSpace(header)
	if h == "" || strings.HasPrefix(h, "Unnamed") {
		return kindSkip
	}
	switch strings.ToLower(h) {
	case model.ColumnDate:
		return kindDate
	case model.ColumnYear:
		return kindYear
	case model.ColumnMonth:
		return kindMonth
	case model.ColumnDay:
		return kindDay
	case model.ColumnWeek:
		return kindWeek
	case model.ColumnLocation:
		return kindLocation
	case model.ColumnState:
		return kindState
	case model.ColumnID:
		return kindID
	case model.ColumnPopulation:
		return kindPopulation
	}
	return kindMetric
}

// ParseCSV reads a table with a header row. Every non-identity column is a
// numeric metric; empty or non-numeric cells are left missing. Rows must
// carry a date, either in a date column or as year/month/day columns.
func ParseCSV(name string, r io.Reader) (*model.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptySource)
	}
	if err != nil {
		return nil, fmt.Errorf("%s header: %w: %w", name, ErrMalformedRow, err)
	}

	kinds := make([]columnKind, len(header))
	columns := make([]string, len(header))
	hasDate, hasYMD := false, 0
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		columns[i] = h
		kinds[i] = classify(h)
		switch kinds[i] {
		case kindDate:
			hasDate = true
		case kindYear, kindMonth, kindDay:
			hasYMD++
		}
	}
	if !hasDate && hasYMD < 3 {
		return nil, fmt.Errorf("%s: no date column: %w", name, ErrMalformedRow)
	}

	t := &model.Table{Name: name, Columns: columns}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %w", name, line, ErrMalformedRow, err)
		}
		rec, invalid, err := parseRow(row, kinds, columns, hasDate)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		t.Invalid += invalid
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// parseRow converts one CSV row. invalid counts cells that were present but
// unusable.
func parseRow(row []string, kinds []columnKind, columns []string, hasDate bool) (model.Record, int, error) {
	rec := model.Record{Metrics: make(map[string]float64, len(row))}
	var (
		invalid          int
		year, month, day int
		week             = -1
	)

	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		switch kinds[i] {
		case kindSkip:
		case kindDate:
			d, err := model.ParseDate(cell)
			if err != nil {
				return rec, 0, fmt.Errorf("%w: %w", ErrMalformedRow, err)
			}
			rec.Date = d
		case kindYear:
			year = parseInt(cell)
		case kindMonth:
			month = parseInt(cell)
		case kindDay:
			day = parseInt(cell)
		case kindWeek:
			if cell != "" {
				if w := parseInt(cell); w > 0 {
					week = w
				} else {
					invalid++
				}
			}
		case kindLocation:
			rec.Location = cell
		case kindState:
			rec.State = cell
		case kindID:
			rec.ID = parseInt(cell)
		case kindPopulation:
			if cell == "" {
				continue
			}
			v, ok := parseNumber(cell)
			if !ok || v < 0 {
				invalid++
				continue
			}
			rec.Population = int64(math.Round(v))
		case kindMetric:
			if cell == "" {
				continue
			}
			v, ok := parseNumber(cell)
			if !ok {
				invalid++
				continue
			}
			rec.Metrics[columns[i]] = v
		}
	}

	if !hasDate {
		if year <= 0 || month < 1 || month > 12 || day < 1 || day > 31 {
			return rec, 0, fmt.Errorf("date %d-%d-%d: %w", year, month, day, ErrMalformedRow)
		}
		rec.Date = model.NewDate(year, month, day)
	}

	// A source week is paired with the source (or calendar) year; a derived
	// week always comes with its ISO year so late-December and early-January
	// days of one ISO week share a key.
	switch {
	case week < 0:
		rec.Year, rec.Week = rec.Date.ISOWeek()
	case year > 0:
		rec.Year, rec.Week = year, week
	default:
		rec.Year, rec.Week = rec.Date.Year, week
	}

	if v, ok := rec.Metrics[model.ColumnCovidRate]; ok && v < 0 {
		delete(rec.Metrics, model.ColumnCovidRate)
		invalid++
	}
	if _, ok := rec.Metrics[model.ColumnCovidRate]; !ok && rec.Population > 0 {
		if cases, ok := rec.Metric(model.ColumnTotalCases); ok && cases >= 0 {
			rec.Metrics[model.ColumnCovidRate] = cases / float64(rec.Population)
		}
	}
	return rec, invalid, nil
}

// parseNumber accepts integers, decimals and exponent notation, rejecting
// NaN and infinities.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseInt accepts "12" and "12.0"; anything else is 0.
func parseInt(s string) int {
	v, ok := parseNumber(s)
	if !ok {
		return 0
	}
	return int(v)
}
