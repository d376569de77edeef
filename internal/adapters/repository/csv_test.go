package repository

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/okian/vaxdash/internal/domain/aggregate"
	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/internal/domain/projection"
)

func floatEqual(a, b float64) bool {
	const tolerance = 1e-10
	return math.Abs(a-b) < tolerance
}

func TestParseCSV_Snapshot(t *testing.T) {
	data := `,date,state,location,id,population,tot_case,Series_Complete_Pop_Pct
0,2022-04-14,California,CA,6,39538223,9000000,72.1
1,2022-04-14,Texas,TX,48,29145505,,60.3
2,2022-04-14 00:00:00,Vermont,VT,50,643077,100000,abc
`
	tbl, err := ParseCSV("snapshot", strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	if tbl.Invalid != 1 {
		t.Errorf("expected 1 invalid cell, got %d", tbl.Invalid)
	}

	ca := tbl.Records[0]
	if ca.Location != "CA" || ca.State != "California" || ca.ID != 6 {
		t.Errorf("identity columns not parsed: %+v", ca)
	}
	if ca.Population != 39538223 {
		t.Errorf("expected population 39538223, got %d", ca.Population)
	}
	if !ca.Date.Equal(model.NewDate(2022, 4, 14)) {
		t.Errorf("expected 2022-04-14, got %s", ca.Date)
	}
	_, isoWeek := ca.Date.ISOWeek()
	if ca.Week != isoWeek {
		t.Errorf("expected ISO week %d, got %d", isoWeek, ca.Week)
	}
	rate, ok := ca.Metric(model.ColumnCovidRate)
	if !ok || !floatEqual(rate, 9000000.0/39538223.0) {
		t.Errorf("expected derived covid_rate, got %v %v", rate, ok)
	}

	tx := tbl.Records[1]
	if _, ok := tx.Metric(model.ColumnTotalCases); ok {
		t.Error("empty cell must be missing, not zero")
	}
	if _, ok := tx.Metric(model.ColumnCovidRate); ok {
		t.Error("covid_rate must not be derived without tot_case")
	}

	vt := tbl.Records[2]
	if _, ok := vt.Metric(model.ColumnSeriesCompletePct); ok {
		t.Error("non-numeric cell must be missing")
	}
	if !vt.Date.Equal(model.NewDate(2022, 4, 14)) {
		t.Errorf("time suffix not stripped: %s", vt.Date)
	}
}

func TestParseCSV_WeeklyColumns(t *testing.T) {
	data := `year,month,day,week,new_case,All,Pfizer
2022,3,20,12,10,100,60
2022,3,27,13,5,80,
`
	tbl, err := ParseCSV("weekly", strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tbl.Records[0].Date; !got.Equal(model.NewDate(2022, 3, 20)) {
		t.Errorf("date from components: got %s", got)
	}
	if tbl.Records[1].Week != 13 || tbl.Records[1].Year != 2022 {
		t.Errorf("expected explicit 2022 week 13, got %d/%d", tbl.Records[1].Year, tbl.Records[1].Week)
	}
	if v, _ := tbl.Records[0].Metric("Pfizer"); v != 60 {
		t.Errorf("expected Pfizer 60, got %v", v)
	}
	if _, ok := tbl.Records[1].Metric("Pfizer"); ok {
		t.Error("missing Pfizer cell must stay missing")
	}
}

func TestParseCSV_DerivedWeekUsesISOYear(t *testing.T) {
	data := `date,location,new_case,All
2020-12-29,US,1,10
2021-01-02,US,2,20
2021-01-05,US,3,30
2021-03-02,US,4,40
`
	tbl, err := ParseCSV("weekly", strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantKeys := [][2]int{{2020, 53}, {2020, 53}, {2021, 1}, {2021, 9}}
	for i, want := range wantKeys {
		if got := [2]int{tbl.Records[i].Year, tbl.Records[i].Week}; got != want {
			t.Errorf("record %d: expected year/week %v, got %v", i, want, got)
		}
	}

	rows := projection.Project(tbl.Records, projection.Schema{
		Name:       "all",
		Categories: []projection.Category{{Label: "All", Column: "All"}},
	}, projection.WithCasesColumn(model.ColumnNewCases))
	buckets := aggregate.Aggregate(rows)
	if len(buckets) != 3 {
		t.Fatalf("expected 3 weekly buckets, got %d: %+v", len(buckets), buckets)
	}
	first := buckets[0]
	if first.Year != 2020 || first.Week != 53 || first.SumDoses != 30 || first.SumCases != 3 {
		t.Errorf("expected one 2020-W53 bucket with doses 30 and cases 3, got %+v", first)
	}
	if !first.EndDate.Equal(model.NewDate(2021, 1, 2)) {
		t.Errorf("expected 2020-W53 to end on 2021-01-02, got %s", first.EndDate)
	}
	for i := 1; i < len(buckets); i++ {
		prev, cur := buckets[i-1], buckets[i]
		if prev.Year > cur.Year || (prev.Year == cur.Year && prev.Week >= cur.Week) {
			t.Errorf("buckets out of (year, week) order: %+v before %+v", prev.BucketKey, cur.BucketKey)
		}
	}
}

func TestParseCSV_NegativeCovidRate(t *testing.T) {
	data := "date,location,population,covid_rate\n2022-01-01,NY,100,-0.5\n"
	tbl, err := ParseCSV("ranking", strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tbl.Records[0].Metric(model.ColumnCovidRate); ok {
		t.Error("negative covid_rate must be rejected")
	}
	if tbl.Invalid != 1 {
		t.Errorf("expected 1 invalid cell, got %d", tbl.Invalid)
	}
}

func TestParseCSV_Errors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrEmptySource},
		{"no date column", "location,population\nCA,1\n", ErrMalformedRow},
		{"bad date", "date,location\n2022-13-45,CA\n", ErrMalformedRow},
		{"ragged row", "date,location\n2022-01-01,CA,extra\n", ErrMalformedRow},
		{"bad components", "year,month,day\n2022,0,1\n", ErrMalformedRow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCSV("t", strings.NewReader(tc.data))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseCSV_LineNumberInError(t *testing.T) {
	data := "date,location\n2022-01-01,CA\nnot-a-date,TX\n"
	_, err := ParseCSV("snapshot", strings.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected error mentioning line 3, got %v", err)
	}
}
