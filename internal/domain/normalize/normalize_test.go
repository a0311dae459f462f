package normalize_test

import (
	"errors"
	"testing"

	"github.com/okian/saberlens/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

const batch = `{"playerScores":[
 {"leaderboard":{"songHash":"ABCD1234","difficulty":{"difficulty":9,"gameMode":"SoloStandard","difficultyRaw":"_ExpertPlus_SoloStandard"},"maxScore":0},
  "score":{"baseScore":950000,"modifiedScore":950000,"multiplier":1,"pp":312.5,"rank":4}},
 {"leaderboard":{"songHash":"EEEE0000","difficulty":{"difficulty":7,"gameMode":"SoloStandard"},"maxScore":500000},
  "score":{"baseScore":400000,"modifiedScore":380000,"pp":0,"rank":900}},
 {"leaderboard":{"songHash":"FFFF1111","difficulty":{"difficulty":5,"gameMode":"SoloLawless"},"maxScore":0},
  "score":{"baseScore":120000,"modifiedScore":110000,"multiplier":0.92,"pp":0,"rank":12}}
]}`

func TestNormalize(t *testing.T) {
	Convey("Given a payload where the second entry lacks a multiplier", t, func() {
		entries, err := normalize.Normalize([]byte(batch))

		Convey("Then only that entry is dropped", func() {
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
			So(entries[0].Hash, ShouldEqual, "ABCD1234")
			So(entries[1].Hash, ShouldEqual, "FFFF1111")
		})

		Convey("Then the kept entries retain their original ordinals", func() {
			So(entries[0].Index, ShouldEqual, 0)
			So(entries[1].Index, ShouldEqual, 2)
		})

		Convey("Then the kept entries are copied unchanged", func() {
			e := entries[1]
			So(e.Difficulty.Code, ShouldEqual, 5)
			So(e.Difficulty.GameMode, ShouldEqual, "SoloLawless")
			So(e.BaseScore, ShouldEqual, 120000)
			So(e.ModifiedScore, ShouldEqual, 110000)
			So(e.Multiplier, ShouldEqual, 0.92)
			So(e.Rank, ShouldEqual, 12)
			So(e.PayloadMax, ShouldEqual, 0)
			So(entries[0].PP, ShouldEqual, 312.5)
		})
	})

	Convey("Given entries missing each required field", t, func() {
		body := `{"playerScores":[
 {"leaderboard":{"difficulty":{"difficulty":9}},"score":{"baseScore":1,"modifiedScore":1,"multiplier":1}},
 {"leaderboard":{"songHash":"A"},"score":{"baseScore":1,"modifiedScore":1,"multiplier":1}},
 {"leaderboard":{"songHash":"A","difficulty":{"difficulty":9}},"score":{"modifiedScore":1,"multiplier":1}},
 {"leaderboard":{"songHash":"A","difficulty":{"difficulty":9}},"score":{"baseScore":1,"multiplier":1}},
 {"leaderboard":{"songHash":"A","difficulty":{"difficulty":9}}},
 {"score":{"baseScore":1,"modifiedScore":1,"multiplier":1}}
]}`
		entries, err := normalize.Normalize([]byte(body))

		Convey("Then every entry is dropped without error", func() {
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})
	})

	Convey("Given a body without scores", t, func() {
		entries, err := normalize.Normalize([]byte(`{"metadata":{"total":0}}`))

		Convey("Then the result is empty", func() {
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})
	})

	Convey("Given a body that is not JSON", t, func() {
		_, err := normalize.Normalize([]byte(`<html>`))

		Convey("Then it reports a malformed payload", func() {
			So(errors.Is(err, normalize.ErrMalformedPayload), ShouldBeTrue)
		})
	})
}
