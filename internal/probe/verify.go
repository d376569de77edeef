package probe

import (
	"fmt"

	service "github.com/okian/vaxdash/internal/app"
	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/internal/domain/ranking"
)

// Check names.
const (
	CheckRankSequence   = "rank_sequence"
	CheckRankOrder      = "rank_order"
	CheckShowLimit      = "show_limit"
	CheckDetailSubset   = "detail_subset"
	CheckBucketUnique   = "bucket_unique"
	CheckTotalsMonotone = "totals_monotone"
)

// Violation is one failed check.
type Violation struct {
	Date    model.Date `json:"date"`
	Check   string     `json:"check"`
	Message string     `json:"message"`
}

func violation(date model.Date, check, format string, args ...any) Violation {
	return Violation{Date: date, Check: check, Message: fmt.Sprintf(format, args...)}
}

// VerifyViews checks a single pass. Views reported as degraded are not
// checked.
func VerifyViews(v service.Views) []Violation {
	var out []Violation
	out = append(out, verifyRanking(v.Controls.Date, v.Ranking)...)
	out = append(out, verifyDetail(v.Controls.Date, v.Ranking, v.Detail)...)
	out = append(out, verifyWeekly(v.Controls.Date, v.Weekly)...)
	return out
}

func verifyRanking(date model.Date, rv service.RankingView) []Violation {
	if rv.Status != service.StatusOK {
		return nil
	}
	var out []Violation
	if len(rv.Rows) > rv.Show {
		out = append(out, violation(date, CheckShowLimit, "%d rows for show %d", len(rv.Rows), rv.Show))
	}
	if len(rv.Rows) > rv.Total {
		out = append(out, violation(date, CheckShowLimit, "%d rows but only %d ranked states", len(rv.Rows), rv.Total))
	}

	dir, err := ranking.ParseDirection(rv.Direction)
	if err != nil {
		return append(out, violation(date, CheckRankOrder, "unknown direction %q", rv.Direction))
	}
	for i, row := range rv.Rows {
		if row.Rank != i+1 {
			out = append(out, violation(date, CheckRankSequence, "row %d (%s) has rank %d", i, row.Location, row.Rank))
		}
		if !row.Included {
			out = append(out, violation(date, CheckRankSequence, "row %d (%s) shown but not included", i, row.Location))
		}
		if i == 0 {
			continue
		}
		prev := rv.Rows[i-1].MetricValue
		if (dir == ranking.Descending && row.MetricValue > prev) ||
			(dir == ranking.Ascending && row.MetricValue < prev) {
			out = append(out, violation(date, CheckRankOrder, "%s (%g) out of %s order after %g",
				row.Location, row.MetricValue, dir, prev))
		}
	}
	return out
}

func verifyDetail(date model.Date, rv service.RankingView, dv service.DetailView) []Violation {
	if dv.Status != service.StatusOK {
		return nil
	}
	ranked := make(map[string]bool, len(rv.Rows))
	for _, row := range rv.Rows {
		ranked[row.Location] = true
	}
	var out []Violation
	seen := map[string]bool{}
	for _, row := range dv.Rows {
		if !ranked[row.Location] && !seen[row.Location] {
			seen[row.Location] = true
			out = append(out, violation(date, CheckDetailSubset, "detail lists %s which is not ranked", row.Location))
		}
	}
	return out
}

func verifyWeekly(date model.Date, wv service.WeeklyView) []Violation {
	if wv.Status != service.StatusOK {
		return nil
	}
	var out []Violation
	seen := make(map[model.BucketKey]bool, len(wv.Buckets))
	for _, b := range wv.Buckets {
		if seen[b.BucketKey] {
			out = append(out, violation(date, CheckBucketUnique, "bucket %s %d-W%02d repeated", b.Label, b.Year, b.Week))
		}
		seen[b.BucketKey] = true
		if b.EndDate.After(wv.Cutoff) {
			out = append(out, violation(date, CheckBucketUnique, "bucket %s %d-W%02d ends %s after cutoff",
				b.Label, b.Year, b.Week, b.EndDate))
		}
	}
	return out
}

// VerifyTotals checks that weekly case totals never decrease as the cutoff
// advances. passes must be in increasing date order. Only unlagged, healthy
// passes take part.
func VerifyTotals(passes []service.Views) []Violation {
	var (
		out  []Violation
		prev *service.Views
	)
	for i := range passes {
		p := &passes[i]
		if p.Weekly.Status != service.StatusOK || p.Weekly.Lag != 0 {
			continue
		}
		if prev != nil && p.Weekly.TotalCases < prev.Weekly.TotalCases {
			out = append(out, violation(p.Controls.Date, CheckTotalsMonotone,
				"total cases %g below %g at %s", p.Weekly.TotalCases, prev.Weekly.TotalCases, prev.Controls.Date))
		}
		prev = p
	}
	return out
}
