package beatsaver_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/okian/saberlens/internal/adapters/beatsaver"
	"github.com/okian/saberlens/internal/adapters/upstream"
	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithWriter(io.Discard, logger.FormatJSON)
	os.Exit(m.Run())
}

const mapBody = `{
  "id": "1a2b",
  "metadata": {"bpm": 174, "duration": 201},
  "versions": [
    {"hash": "old", "diffs": [{"characteristic": "Standard", "difficulty": "Hard", "notes": 100}]},
    {"hash": "abcd1234", "diffs": [
      {"characteristic": "Standard", "difficulty": "Expert", "notes": 250},
      {"characteristic": "Standard", "difficulty": "ExpertPlus", "notes": 300}
    ]}
  ]
}`

func TestMapByHash(t *testing.T) {
	Convey("Given a metadata source", t, func() {
		var lastPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastPath = r.URL.Path
			if r.URL.Path == "/maps/hash/missing" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(mapBody))
		}))
		Reset(srv.Close)
		c := beatsaver.New(srv.URL+"/", upstream.WithRateLimit(1000, 1000))

		Convey("When a known hash is fetched", func() {
			meta, err := c.MapByHash(context.Background(), "abcd1234")

			Convey("Then the last version's difficulties are used", func() {
				So(err, ShouldBeNil)
				So(lastPath, ShouldEqual, "/maps/hash/abcd1234")
				So(meta.ExternalID, ShouldEqual, "1a2b")
				So(meta.BPM, ShouldEqual, 174)
				So(meta.Hash, ShouldEqual, "abcd1234")
				So(len(meta.Difficulties), ShouldEqual, 2)
				So(meta.Difficulties[1], ShouldResemble, model.DifficultyVariant{
					Characteristic: "Standard", Difficulty: "ExpertPlus", Notes: 300,
				})
			})
		})

		Convey("When the source does not know the hash", func() {
			_, err := c.MapByHash(context.Background(), "missing")

			Convey("Then the error wraps model.ErrNotFound", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
