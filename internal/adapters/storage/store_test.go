package storage_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/okian/saberlens/internal/adapters/storage"
	"github.com/okian/saberlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithWriter(io.Discard, logger.FormatJSON)
	os.Exit(m.Run())
}

func TestBadgerStore(t *testing.T) {
	Convey("Given an in-memory badger store", t, func() {
		s, err := storage.Open()
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })
		ctx := context.Background()

		Convey("When a missing key is read", func() {
			_, err := s.Get(ctx, "nope")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a value is stored without expiry", func() {
			So(s.Set(ctx, "k", []byte("v"), 0), ShouldBeNil)

			Convey("Then it can be read back", func() {
				got, err := s.Get(ctx, "k")
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, "v")
			})

			Convey("Then it can be deleted", func() {
				So(s.Delete(ctx, "k"), ShouldBeNil)
				_, err := s.Get(ctx, "k")
				So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
				So(s.Delete(ctx, "k"), ShouldBeNil)
			})
		})

		Convey("When a value is stored with a short ttl", func() {
			So(s.Set(ctx, "short", []byte("v"), time.Second), ShouldBeNil)
			time.Sleep(1500 * time.Millisecond)

			Convey("Then it expires", func() {
				_, err := s.Get(ctx, "short")
				So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When JSON helpers are used", func() {
			type doc struct {
				Name string `json:"name"`
			}
			So(storage.SetJSON(ctx, s, "doc", doc{Name: "map"}, 0), ShouldBeNil)

			Convey("Then the value round-trips", func() {
				var got doc
				So(storage.GetJSON(ctx, s, "doc", &got), ShouldBeNil)
				So(got.Name, ShouldEqual, "map")
			})

			Convey("Then a corrupt value is reported", func() {
				So(s.Set(ctx, "bad", []byte("{"), 0), ShouldBeNil)
				var got doc
				So(errors.Is(storage.GetJSON(ctx, s, "bad", &got), storage.ErrCorrupt), ShouldBeTrue)
			})
		})
	})

	Convey("Given a badger store on disk", t, func() {
		dir := t.TempDir()
		ctx := context.Background()

		s, err := storage.Open(storage.WithDir(dir))
		So(err, ShouldBeNil)
		So(s.Set(ctx, "persisted", []byte("yes"), 0), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			s2, err := storage.Open(storage.WithDir(dir))
			So(err, ShouldBeNil)
			Reset(func() { _ = s2.Close() })

			Convey("Then earlier writes survive", func() {
				got, err := s2.Get(ctx, "persisted")
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, "yes")
			})
		})
	})
}
