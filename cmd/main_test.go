package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/vaxdash/internal/adapters/repository"
	app "github.com/okian/vaxdash/internal/app"
	"github.com/okian/vaxdash/internal/config"
	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/pkg/logger"
	"github.com/okian/vaxdash/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			t.Setenv("VAXDASH_ADDR", ":8080")
			t.Setenv("VAXDASH_MAX_SHOW_COUNT", "10")
			t.Setenv("VAXDASH_DEFAULT_DATE", "2021-06-01")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxShowCount, convey.ShouldEqual, 10)

				convey.Convey("And it should translate into service options", func() {
					opts, err := serviceOptions(cfg)
					convey.So(err, convey.ShouldBeNil)

					svc := app.New(opts...)
					stats := svc.GetStats()
					convey.So(stats["defaultDate"], convey.ShouldEqual, "2021-06-01")
					convey.So(stats["maxShow"], convey.ShouldEqual, 10)
					convey.So(svc.DefaultControls().Show, convey.ShouldEqual, 5)
				})
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			t.Setenv("VAXDASH_MAX_SHOW_COUNT", "0")

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a date bound cannot be parsed", func() {
			cfg := config.New()
			cfg.MinDate = "14/12/2020"

			convey.Convey("Then no options are built", func() {
				opts, err := serviceOptions(cfg)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(opts, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the dataset sources are missing", func() {
			cfg := config.New()
			dir := t.TempDir()
			cfg.SnapshotSource = filepath.Join(dir, "df1.csv")
			cfg.WeeklySource = filepath.Join(dir, "df2.csv")
			cfg.NationalSource = filepath.Join(dir, "df3.csv")
			cfg.RankingSource = filepath.Join(dir, "df4.csv")
			opts, err := serviceOptions(cfg)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the service refuses to start", func() {
				svc := app.New(opts...)
				convey.So(svc.Start(context.Background()), convey.ShouldNotBeNil)
				convey.So(svc.GetStats()["started"], convey.ShouldBeFalse)
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given the wired mux", t, func() {
		ctx := context.Background()

		convey.Convey("When the service has not started", func() {
			mux := newMux(ctx, app.New())

			convey.Convey("Then liveness and docs are served", func() {
				for _, path := range []string{"/healthz", "/openapi.yaml", "/api-docs", "/dashboard"} {
					req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
					req.Header.Set("Accept", "application/json")
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, req)
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("And views report the service as unavailable", func() {
				req := httptest.NewRequest(http.MethodGet, "/views", http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				convey.So(w.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		convey.Convey("When the service serves an in-memory store", func() {
			day := model.NewDate(2022, 4, 14)
			store := repository.NewMemoryStore(&model.Table{
				Name: model.DatasetSnapshot,
				Records: []model.Record{{
					Date: day, Location: "CA", State: "California", Population: 100,
					Metrics: map[string]float64{model.ColumnCovidRate: 0.2},
				}},
			})
			svc := app.New(app.WithStore(store))
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()
			mux := newMux(ctx, svc)

			convey.Convey("Then views are computed and missing tables degrade", func() {
				req := httptest.NewRequest(http.MethodGet, "/views/map?date=2022-04-14", http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"location":"CA"`)

				req = httptest.NewRequest(http.MethodGet, "/views/weekly?date=2022-04-14", http.NoBody)
				w = httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"status":"unavailable"`)
			})

			convey.Convey("And the metrics updater publishes dataset gauges", func() {
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the metrics updaters run until their context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then they return without panicking", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx, 20*time.Millisecond) }, convey.ShouldNotPanic)
				convey.So(func() { startServiceMetricsUpdater(ctx, app.New(), 20*time.Millisecond) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When updating system metrics", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When updating service metrics of a stopped service", func() {
			convey.Convey("Then it should be a no-op", func() {
				convey.So(func() { updateServiceMetrics(app.New()) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When creating a metrics manager on its own registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}
