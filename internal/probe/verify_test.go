package probe

import (
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/vaxdash/internal/app"
	"github.com/okian/vaxdash/internal/domain/model"
)

var day = model.NewDate(2022, 3, 23)

func rankedRow(loc string, value float64, rank int) service.RankingRow {
	return service.RankingRow{RankedState: model.RankedState{
		State: loc, Location: loc, MetricValue: value, Rank: rank, Included: true,
	}}
}

func healthyViews(date model.Date, total float64) service.Views {
	return service.Views{
		PassID:   "pass-" + date.String(),
		Controls: service.Controls{Date: date, Show: 2},
		Weekly: service.WeeklyView{
			Meta:   service.Meta{Status: service.StatusOK},
			Cutoff: date,
			Buckets: []model.WeeklyBucket{
				{BucketKey: model.BucketKey{Label: "Pfizer", Year: 2022, Week: 11}, EndDate: date.AddDays(-7)},
				{BucketKey: model.BucketKey{Label: "Pfizer", Year: 2022, Week: 12}, EndDate: date},
			},
			TotalCases: total,
		},
		Ranking: service.RankingView{
			Meta:      service.Meta{Status: service.StatusOK},
			Direction: "descending",
			Show:      2,
			Total:     3,
			Rows:      []service.RankingRow{rankedRow("C", 70, 1), rankedRow("A", 60, 2)},
		},
		Detail: service.DetailView{
			Meta: service.Meta{Status: service.StatusOK},
			Rows: []model.CategoryRow{{Location: "C", Label: "Pfizer"}, {Location: "A", Label: "Pfizer"}},
		},
	}
}

func checks(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Check)
	}
	return out
}

func TestVerifyViews(t *testing.T) {
	convey.Convey("Given a healthy pass", t, func() {
		v := healthyViews(day, 10)

		convey.Convey("Then no check fails", func() {
			convey.So(VerifyViews(v), convey.ShouldBeEmpty)
		})

		convey.Convey("When ranks skip a position", func() {
			v.Ranking.Rows[1].Rank = 3
			convey.So(checks(VerifyViews(v)), convey.ShouldResemble, []string{CheckRankSequence})
		})

		convey.Convey("When a shown row is not included", func() {
			v.Ranking.Rows[0].Included = false
			convey.So(checks(VerifyViews(v)), convey.ShouldResemble, []string{CheckRankSequence})
		})

		convey.Convey("When values break the descending order", func() {
			v.Ranking.Rows[1].MetricValue = 80
			convey.So(checks(VerifyViews(v)), convey.ShouldResemble, []string{CheckRankOrder})
		})

		convey.Convey("When the same rows are declared ascending", func() {
			v.Ranking.Direction = "asc"
			convey.So(checks(VerifyViews(v)), convey.ShouldResemble, []string{CheckRankOrder})
		})

		convey.Convey("When more rows than show are returned", func() {
			v.Ranking.Show = 1
			convey.So(checks(VerifyViews(v)), convey.ShouldContain, CheckShowLimit)
		})

		convey.Convey("When the detail lists an unranked state", func() {
			v.Detail.Rows = append(v.Detail.Rows,
				model.CategoryRow{Location: "B", Label: "Pfizer"},
				model.CategoryRow{Location: "B", Label: "Moderna"})
			convey.So(checks(VerifyViews(v)), convey.ShouldResemble, []string{CheckDetailSubset})
		})

		convey.Convey("When a weekly bucket key repeats", func() {
			v.Weekly.Buckets = append(v.Weekly.Buckets, v.Weekly.Buckets[0])
			convey.So(checks(VerifyViews(v)), convey.ShouldResemble, []string{CheckBucketUnique})
		})

		convey.Convey("When a bucket ends after the cutoff", func() {
			v.Weekly.Buckets[1].EndDate = day.AddDays(1)
			convey.So(checks(VerifyViews(v)), convey.ShouldResemble, []string{CheckBucketUnique})
		})

		convey.Convey("When the views are degraded", func() {
			v.Ranking.Status = service.StatusNoData
			v.Ranking.Rows[1].Rank = 7
			v.Detail.Status = service.StatusNoData
			v.Weekly.Status = service.StatusUnavailable
			v.Weekly.Buckets = append(v.Weekly.Buckets, v.Weekly.Buckets[0])
			convey.So(VerifyViews(v), convey.ShouldBeEmpty)
		})
	})
}

func TestVerifyTotals(t *testing.T) {
	convey.Convey("Given passes in date order", t, func() {
		passes := []service.Views{
			healthyViews(day, 10),
			healthyViews(day.AddDays(7), 15),
			healthyViews(day.AddDays(14), 15),
		}

		convey.Convey("Then non-decreasing totals pass", func() {
			convey.So(VerifyTotals(passes), convey.ShouldBeEmpty)
		})

		convey.Convey("When a total drops", func() {
			passes[2].Weekly.TotalCases = 12
			vs := VerifyTotals(passes)
			convey.So(checks(vs), convey.ShouldResemble, []string{CheckTotalsMonotone})
			convey.So(vs[0].Date, convey.ShouldEqual, day.AddDays(14))
		})

		convey.Convey("When the dropping pass is lagged or degraded", func() {
			passes[1].Weekly.TotalCases = 1
			passes[1].Weekly.Lag = 2
			passes[2].Weekly.TotalCases = 0
			passes[2].Weekly.Status = service.StatusNoData
			convey.So(VerifyTotals(passes), convey.ShouldBeEmpty)
		})
	})
}

func TestConfig(t *testing.T) {
	convey.Convey("Given a sweep config", t, func() {
		cfg := &Config{
			BaseURL:     DefaultBaseURL,
			From:        model.NewDate(2022, 1, 1),
			To:          model.NewDate(2022, 1, 15),
			StepDays:    7,
			Concurrency: 2,
		}

		convey.Convey("Then it validates", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then dates step through the range inclusively", func() {
			convey.So(cfg.Dates(), convey.ShouldResemble, []model.Date{
				model.NewDate(2022, 1, 1), model.NewDate(2022, 1, 8), model.NewDate(2022, 1, 15),
			})
		})

		convey.Convey("Then the query carries the controls", func() {
			cfg.Criterion, cfg.Show, cfg.Lag = "covid_rate", 4, 1
			q := cfg.query(day)
			convey.So(q.Get("date"), convey.ShouldEqual, "2022-03-23")
			convey.So(q.Get("criterion"), convey.ShouldEqual, "covid_rate")
			convey.So(q.Get("show"), convey.ShouldEqual, "4")
			convey.So(q.Get("lag"), convey.ShouldEqual, "1")
			convey.So(q.Has("mode"), convey.ShouldBeFalse)
		})

		cases := []struct {
			name   string
			mutate func(*Config)
		}{
			{"empty base url", func(c *Config) { c.BaseURL = "" }},
			{"missing from", func(c *Config) { c.From = model.Date{} }},
			{"from after to", func(c *Config) { c.From, c.To = c.To, c.From }},
			{"zero step", func(c *Config) { c.StepDays = 0 }},
			{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
			{"negative lag", func(c *Config) { c.Lag = -1 }},
		}
		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				tc.mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
