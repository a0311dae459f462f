package replaycache_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/saberlens/internal/adapters/storage"
	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/internal/domain/replaycache"
	"github.com/okian/saberlens/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithWriter(io.Discard, logger.FormatJSON)
	os.Exit(m.Run())
}

type fakeSource struct {
	calls      int
	last       model.ReplayQuery
	candidates []model.ReplayCandidate
	err        error
}

func (f *fakeSource) PlayerScores(_ context.Context, q model.ReplayQuery) ([]model.ReplayCandidate, error) {
	f.calls++
	f.last = q
	return f.candidates, f.err
}

func TestResolve(t *testing.T) {
	Convey("Given a replay cache over an in-memory store", t, func() {
		ctx := context.Background()
		store, err := storage.Open()
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })

		src := &fakeSource{candidates: []model.ReplayCandidate{
			{ModifiedScore: 900000, Summary: model.ReplaySummary{ID: 3}},
			{ModifiedScore: 950000, Summary: model.ReplaySummary{ID: 2, MissedNotes: 1}},
			{ModifiedScore: 950000, Summary: model.ReplaySummary{ID: 1}},
		}}
		svc := replaycache.New(src, store)
		key := model.ReplayKey{SubjectID: "76561198", Hash: "ABCD1234", Difficulty: "ExpertPlus", ModifiedScore: 950000, Mode: "Standard"}

		Convey("When an attempt matches exactly", func() {
			got, err := svc.Resolve(ctx, key)

			Convey("Then the most recent match is returned", func() {
				So(err, ShouldBeNil)
				So(got, ShouldNotBeNil)
				So(got.ID, ShouldEqual, 2)
				So(src.last, ShouldResemble, key.Query())
			})

			Convey("Then a second resolve is served from the store", func() {
				again, err := svc.Resolve(ctx, key)
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, 2)
				So(again.MissedNotes, ShouldEqual, 1)
				So(src.calls, ShouldEqual, 1)
			})
		})

		Convey("When no attempt has the modified score", func() {
			key.ModifiedScore = 1
			got, err := svc.Resolve(ctx, key)
			_, _ = svc.Resolve(ctx, key)

			Convey("Then there is no match and nothing is stored", func() {
				So(err, ShouldBeNil)
				So(got, ShouldBeNil)
				So(src.calls, ShouldEqual, 2)
			})
		})

		Convey("When the source fails", func() {
			src.err = errors.New("timeout")
			got, err := svc.Resolve(ctx, key)

			Convey("Then the error is returned", func() {
				So(got, ShouldBeNil)
				So(errors.Is(err, replaycache.ErrSource), ShouldBeTrue)
			})
		})

		Convey("When entries expire", func() {
			short := replaycache.New(src, store, replaycache.WithTTL(time.Second))
			_, err := short.Resolve(ctx, key)
			So(err, ShouldBeNil)
			time.Sleep(1100 * time.Millisecond)
			_, err = short.Resolve(ctx, key)

			Convey("Then the source is asked again", func() {
				So(err, ShouldBeNil)
				So(src.calls, ShouldEqual, 2)
			})
		})
	})
}
