package upstream_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/saberlens/internal/adapters/upstream"
	"github.com/okian/saberlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithWriter(io.Discard, logger.FormatJSON)
	os.Exit(m.Run())
}

func TestClientGetJSON(t *testing.T) {
	Convey("Given a source that answers by path", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			switch r.URL.Path {
			case "/ok":
				_, _ = w.Write([]byte(`{"id":"1a2b"}`))
			case "/missing":
				w.WriteHeader(http.StatusNotFound)
			case "/broken":
				_, _ = w.Write([]byte(`{"id":`))
			default:
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("upstream down"))
			}
		}))
		Reset(srv.Close)

		c := upstream.New("test", upstream.WithRateLimit(1000, 1000), upstream.WithBreaker(0.5, 2, time.Minute))
		ctx := context.Background()
		var out struct {
			ID string `json:"id"`
		}

		Convey("When the body is valid JSON", func() {
			err := c.GetJSON(ctx, srv.URL+"/ok", &out)

			Convey("Then it is decoded", func() {
				So(err, ShouldBeNil)
				So(out.ID, ShouldEqual, "1a2b")
			})
		})

		Convey("When the source answers 404", func() {
			err := c.GetJSON(ctx, srv.URL+"/missing", &out)

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, upstream.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then repeated absences never open the circuit", func() {
				for i := 0; i < 5; i++ {
					_ = c.GetJSON(ctx, srv.URL+"/missing", &out)
				}
				So(hits.Load(), ShouldEqual, 6)
			})
		})

		Convey("When the body is truncated", func() {
			err := c.GetJSON(ctx, srv.URL+"/broken", &out)

			Convey("Then ErrDecode is returned", func() {
				So(errors.Is(err, upstream.ErrDecode), ShouldBeTrue)
			})
		})

		Convey("When the source fails", func() {
			err := c.GetJSON(ctx, srv.URL+"/fail", &out)

			Convey("Then a StatusError carries the code", func() {
				So(errors.Is(err, upstream.ErrStatus), ShouldBeTrue)
				var se *upstream.StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Code, ShouldEqual, http.StatusBadGateway)
				So(se.Body, ShouldEqual, "upstream down")
			})

			Convey("Then enough failures open the circuit", func() {
				_ = c.GetJSON(ctx, srv.URL+"/fail", &out)
				before := hits.Load()
				err := c.GetJSON(ctx, srv.URL+"/ok", &out)
				So(errors.Is(err, upstream.ErrBreakerOpen), ShouldBeTrue)
				So(hits.Load(), ShouldEqual, before)
			})
		})

		Convey("When the caller's context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			err := c.GetJSON(cctx, srv.URL+"/ok", &out)

			Convey("Then no request is made", func() {
				So(err, ShouldNotBeNil)
				So(hits.Load(), ShouldEqual, 0)
			})
		})
	})
}
