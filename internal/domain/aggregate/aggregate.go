// Package aggregate buckets category rows into weekly sums.
package aggregate

import (
	"sort"

	"github.com/okian/vaxdash/internal/domain/model"
)

// Aggregate groups rows by (category, year, week), summing cases and doses.
// A bucket's EndDate is the latest date it contains, so it plots at the end
// of its week. The year is the row's week year; rows without one fall back to
// the calendar year of their date. Output is sorted by (year, week, category).
func Aggregate(rows []model.CategoryRow) []model.WeeklyBucket {
	byKey := make(map[model.BucketKey]*model.WeeklyBucket)
	for _, r := range rows {
		year := r.Year
		if year == 0 {
			year = r.Date.Year
		}
		key := model.BucketKey{Label: r.Label, Year: year, Week: r.Week}
		b, ok := byKey[key]
		if !ok {
			b = &model.WeeklyBucket{BucketKey: key, EndDate: r.Date}
			byKey[key] = b
		}
		b.SumCases += r.Cases
		b.SumDoses += r.Value
		if r.Date.After(b.EndDate) {
			b.EndDate = r.Date
		}
	}
	return collect(byKey)
}

// Merge re-groups already aggregated buckets by key. Merging the output of
// Aggregate reproduces it, which lets callers combine partial runs.
func Merge(buckets []model.WeeklyBucket) []model.WeeklyBucket {
	byKey := make(map[model.BucketKey]*model.WeeklyBucket, len(buckets))
	for _, in := range buckets {
		b, ok := byKey[in.BucketKey]
		if !ok {
			cp := in
			byKey[in.BucketKey] = &cp
			continue
		}
		b.SumCases += in.SumCases
		b.SumDoses += in.SumDoses
		if in.EndDate.After(b.EndDate) {
			b.EndDate = in.EndDate
		}
	}
	return collect(byKey)
}

func collect(byKey map[model.BucketKey]*model.WeeklyBucket) []model.WeeklyBucket {
	out := make([]model.WeeklyBucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sortBuckets(out)
	return out
}

// sortBuckets orders buckets by year, week, then category label.
func sortBuckets(buckets []model.WeeklyBucket) {
	sort.Slice(buckets, func(i, j int) bool {
		a, b := buckets[i].BucketKey, buckets[j].BucketKey
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		return a.Label < b.Label
	})
}

// Totals sums doses over all buckets and cases once per (year, week): every
// category of a week carries the same case count.
func Totals(buckets []model.WeeklyBucket) (cases, doses float64) {
	type yearWeek struct{ year, week int }
	seen := make(map[yearWeek]bool)
	for _, b := range buckets {
		doses += b.SumDoses
		k := yearWeek{b.Year, b.Week}
		if !seen[k] {
			seen[k] = true
			cases += b.SumCases
		}
	}
	return cases, doses
}
