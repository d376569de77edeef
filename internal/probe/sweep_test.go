package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/vaxdash/internal/app"
	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeServer serves /healthz and /views. totals maps a date to the weekly
// case total it reports; unknown dates get 100.
type fakeServer struct {
	totals  map[string]float64
	fail503 atomic.Int32 // /views requests to fail before succeeding
	hits    atomic.Int32
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/healthz":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	case "/views":
		f.hits.Add(1)
		if f.fail503.Load() > 0 {
			f.fail503.Add(-1)
			http.Error(w, "loading", http.StatusServiceUnavailable)
			return
		}
		d, err := model.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"bad_request","message":"date"}`))
			return
		}
		total, ok := f.totals[d.String()]
		if !ok {
			total = 100
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthyViews(d, total))
	default:
		http.NotFound(w, r)
	}
}

func sweepConfig(url string) *Config {
	return &Config{
		BaseURL:     url,
		From:        model.NewDate(2022, 3, 2),
		To:          model.NewDate(2022, 3, 23),
		StepDays:    7,
		Concurrency: 2,
		Timeout:     5 * time.Second,
		Retries:     2,
	}
}

func TestSweep(t *testing.T) {
	convey.Convey("Given a server with consistent views", t, func() {
		fake := &fakeServer{totals: map[string]float64{
			"2022-03-02": 10, "2022-03-09": 20, "2022-03-16": 20, "2022-03-23": 30,
		}}
		srv := httptest.NewServer(fake)
		defer srv.Close()
		ctx := context.Background()

		convey.Convey("When sweeping four weeks", func() {
			report, err := Sweep(ctx, sweepConfig(srv.URL), nil)

			convey.Convey("Then every date is fetched and checked", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(report.OK(), convey.ShouldBeTrue)
				convey.So(report.Passes, convey.ShouldHaveLength, 4)
				convey.So(report.Passes[0].Date, convey.ShouldEqual, model.NewDate(2022, 3, 2))
				convey.So(report.Passes[3].TotalCases, convey.ShouldEqual, 30.0)
				convey.So(report.Passes[3].Ranked, convey.ShouldEqual, 2)
				convey.So(fake.hits.Load(), convey.ShouldEqual, int32(4))
			})
		})

		convey.Convey("When the totals drop between weeks", func() {
			fake.totals["2022-03-16"] = 5
			report, err := Sweep(ctx, sweepConfig(srv.URL), nil)

			convey.Convey("Then the report lists the violation", func() {
				convey.So(errors.Is(err, ErrViolations), convey.ShouldBeTrue)
				convey.So(report, convey.ShouldNotBeNil)
				convey.So(report.Violations, convey.ShouldHaveLength, 1)
				convey.So(report.Violations[0].Check, convey.ShouldEqual, CheckTotalsMonotone)
				convey.So(report.Violations[0].Date, convey.ShouldEqual, model.NewDate(2022, 3, 16))
			})
		})

		convey.Convey("When the server is briefly unavailable", func() {
			fake.fail503.Store(2)
			cfg := sweepConfig(srv.URL)
			cfg.Concurrency = 1
			report, err := Sweep(ctx, cfg, nil)

			convey.Convey("Then the requests are retried", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(report.Passes, convey.ShouldHaveLength, 4)
				convey.So(fake.hits.Load(), convey.ShouldEqual, int32(6))
			})
		})

		convey.Convey("When the report is written", func() {
			report, err := Sweep(ctx, sweepConfig(srv.URL), nil)
			convey.So(err, convey.ShouldBeNil)
			path := filepath.Join(t.TempDir(), "out", "report.json")
			convey.So(WriteReport(path, report), convey.ShouldBeNil)

			convey.Convey("Then it decodes back", func() {
				data, err := os.ReadFile(path)
				convey.So(err, convey.ShouldBeNil)
				var got Report
				convey.So(json.Unmarshal(data, &got), convey.ShouldBeNil)
				convey.So(got.Passes, convey.ShouldHaveLength, 4)
				convey.So(got.From, convey.ShouldEqual, model.NewDate(2022, 3, 2))
			})
		})
	})

	convey.Convey("Given a server that rejects the controls", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				_, _ = w.Write([]byte(`{"status":"ok"}`))
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"bad_request","message":"show must be max 50"}`))
		}))
		defer srv.Close()

		convey.Convey("Then the sweep fails without retrying", func() {
			_, err := Sweep(context.Background(), sweepConfig(srv.URL), nil)
			convey.So(errors.Is(err, ErrRequest), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "status 400")
		})
	})

	convey.Convey("Given an unhealthy server", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"starting"}`))
		}))
		defer srv.Close()

		convey.Convey("Then the sweep stops before fetching views", func() {
			_, err := Sweep(context.Background(), sweepConfig(srv.URL), nil)
			convey.So(errors.Is(err, ErrUnhealthy), convey.ShouldBeTrue)
		})
	})
}

func TestViewsDecode(t *testing.T) {
	convey.Convey("Given a pass encoded by the server", t, func() {
		v := healthyViews(day, 42)
		v.Ranking.Rows[0].Flags = model.FlagPopulationZero
		data, err := json.Marshal(v)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the probe decodes it", func() {
			var got service.Views
			convey.So(json.Unmarshal(data, &got), convey.ShouldBeNil)
			convey.So(got.Controls.Date, convey.ShouldEqual, day)
			convey.So(got.Weekly.TotalCases, convey.ShouldEqual, 42.0)
			convey.So(got.Ranking.Rows[0].Flags.Has(model.FlagPopulationZero), convey.ShouldBeTrue)
			convey.So(got.Ranking.Rows[1].Location, convey.ShouldEqual, "A")
		})
	})
}

func TestCommand(t *testing.T) {
	convey.Convey("Given the probe command tree", t, func() {
		srv := httptest.NewServer(&fakeServer{totals: map[string]float64{}})
		defer srv.Close()
		out := filepath.Join(t.TempDir(), "report.json")

		convey.Convey("When running a sweep with an output file", func() {
			root := NewRootCommand()
			root.SetArgs([]string{
				"sweep", "--url", srv.URL, "--from", "2022-03-02", "--to", "2022-03-09",
				"--log-level", "error", "-o", out,
			})
			err := root.ExecuteContext(context.Background())

			convey.Convey("Then the report file is written", func() {
				convey.So(err, convey.ShouldBeNil)
				_, statErr := os.Stat(out)
				convey.So(statErr, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the from date is malformed", func() {
			root := NewRootCommand()
			root.SetArgs([]string{"sweep", "--url", srv.URL, "--from", "03/02/2022", "--to", "2022-03-09"})
			err := root.ExecuteContext(context.Background())

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
