package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const nationalCSV = "date,location,population,tot_case,Dose1_Complete,Series_Complete\n" +
	"2022-04-14,US,331000000,80000000,255000000,218000000\n"

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	_ = logger.Init()

	Convey("Given local and remote sources", t, func() {
		ctx := context.Background()
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(nationalCSV))
		}))
		defer srv.Close()

		local := writeTemp(t, "df1.csv", "date,location,population,tot_case\n2022-04-14,CA,100,10\n")

		Convey("When loading with retries", func() {
			store, err := Load(ctx, map[string]string{
				model.DatasetSnapshot: local,
				model.DatasetNational: srv.URL,
			}, WithRetryInterval(time.Millisecond), WithFetchRetries(5))

			Convey("Then both tables should be served", func() {
				So(err, ShouldBeNil)
				So(store.Names(), ShouldResemble, []string{model.DatasetNational, model.DatasetSnapshot})
				So(hits.Load(), ShouldEqual, 3)

				tbl, err := store.Table(ctx, model.DatasetNational)
				So(err, ShouldBeNil)
				So(tbl.Len(), ShouldEqual, 1)
				So(tbl.Records[0].Location, ShouldEqual, "US")
			})
		})

		Convey("When retries are exhausted", func() {
			_, err := Load(ctx, map[string]string{
				model.DatasetNational: srv.URL,
			}, WithRetryInterval(time.Millisecond), WithFetchRetries(1))

			Convey("Then the fetch error should surface", func() {
				So(errors.Is(err, ErrFetch), ShouldBeTrue)
				So(hits.Load(), ShouldEqual, 2)
			})
		})

		Convey("When a local file is missing", func() {
			_, err := Load(ctx, map[string]string{
				model.DatasetSnapshot: filepath.Join(t.TempDir(), "nope.csv"),
			})

			Convey("Then loading should fail", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
			})
		})

		Convey("When a source is blank", func() {
			_, err := Load(ctx, map[string]string{model.DatasetRanking: " "})

			Convey("Then ErrEmptySource should be returned", func() {
				So(errors.Is(err, ErrEmptySource), ShouldBeTrue)
			})
		})
	})

	Convey("Given a server answering 404", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			http.NotFound(w, nil)
		}))
		defer srv.Close()

		Convey("When loading", func() {
			_, err := Load(context.Background(), map[string]string{model.DatasetWeekly: srv.URL},
				WithRetryInterval(time.Millisecond))

			Convey("Then it should not retry", func() {
				So(errors.Is(err, ErrFetch), ShouldBeTrue)
				So(hits.Load(), ShouldEqual, 1)
			})
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		store := NewMemoryStore(&model.Table{Name: "a"}, nil)

		Convey("Then unknown tables should fail", func() {
			_, err := store.Table(ctx, "b")
			So(errors.Is(err, ErrUnknownTable), ShouldBeTrue)
		})

		Convey("When replaced", func() {
			store.Replace(&model.Table{Name: "b"}, &model.Table{Name: "c"})

			Convey("Then only the new tables should be served", func() {
				So(store.Names(), ShouldResemble, []string{"b", "c"})
				So(store.Count(), ShouldEqual, 2)
				_, err := store.Table(ctx, "a")
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := store.Table(cctx, "a")

			Convey("Then the context error should be returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
