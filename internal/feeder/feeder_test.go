package feeder_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/saberlens/internal/adapters/http/api"
	"github.com/okian/saberlens/internal/adapters/upstream"
	service "github.com/okian/saberlens/internal/app"
	"github.com/okian/saberlens/internal/feeder"
	"github.com/okian/saberlens/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithWriter(io.Discard, logger.FormatJSON)
	os.Exit(m.Run())
}

func TestNotesFor(t *testing.T) {
	Convey("Given a hash", t, func() {
		hash := "ABCDEF0123456789ABCDEF0123456789ABCDEF01"

		Convey("Then the note count is stable and case-insensitive", func() {
			So(feeder.NotesFor(hash, "Expert"), ShouldEqual, feeder.NotesFor("abcdef0123456789abcdef0123456789abcdef01", "Expert"))
			So(feeder.NotesFor(hash, "Expert"), ShouldBeGreaterThanOrEqualTo, 100)
		})

		Convey("Then harder difficulties have more notes", func() {
			So(feeder.NotesFor(hash, "ExpertPlus"), ShouldBeGreaterThan, feeder.NotesFor(hash, "Easy"))
		})
	})
}

func TestUpstream(t *testing.T) {
	Convey("Given the fake upstream", t, func() {
		srv := httptest.NewServer(feeder.NewUpstream())
		defer srv.Close()

		Convey("Then a known hash resolves", func() {
			resp, err := http.Get(srv.URL + "/maps/hash/abcdef0123456789abcdef0123456789abcdef01")
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("Then an unknown hash is not found", func() {
			resp, err := http.Get(srv.URL + "/maps/hash/0000ef0123456789abcdef0123456789abcdef01")
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a service backed by the fake upstream", t, func() {
		up := httptest.NewServer(feeder.NewUpstream())
		defer up.Close()

		svc := service.New(
			service.WithBeatSaverBaseURL(up.URL),
			service.WithBeatLeaderBaseURL(up.URL),
			service.WithSettleDelay(10*time.Millisecond),
			service.WithNavigationDelay(10*time.Millisecond),
			service.WithUpstreamOptions(upstream.WithRateLimit(1000, 1000)),
			service.WithWorkerCount(2),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		apiSrv := httptest.NewServer(api.NewServer(svc, svc).Routes())
		defer apiSrv.Close()

		Convey("When a feed run is executed", func() {
			out := filepath.Join(t.TempDir(), "pages.json")
			err := feeder.Run(ctx, &feeder.Config{
				BaseURL:        apiSrv.URL,
				SiteURL:        "https://scoresaber.com",
				Pages:          3,
				EntriesPerPage: 24,
				Workers:        2,
				Seed:           42,
				Timeout:        5 * time.Second,
				PollTimeout:    5 * time.Second,
				OutputFile:     out,
			})

			Convey("Then every batch verifies", func() {
				So(err, ShouldBeNil)
				_, statErr := os.Stat(out)
				So(statErr, ShouldBeNil)
			})
		})
	})
}
