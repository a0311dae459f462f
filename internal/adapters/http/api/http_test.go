package api_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/saberlens/internal/adapters/http/api"
	"github.com/okian/saberlens/internal/adapters/repository"
	"github.com/okian/saberlens/internal/domain/correlate"
	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/internal/domain/normalize"
	"github.com/okian/saberlens/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithWriter(io.Discard, logger.FormatJSON)
	os.Exit(m.Run())
}

type mockDeps struct {
	lastPayload []byte
	lastBatchQC model.QueryContext
	batch       *model.EnrichedBatch
	meta        *model.MapMetadata
}

func parse(url string) (model.QueryContext, error) {
	if qc, ok := correlate.ParseAPIURL(url); ok {
		return qc, nil
	}
	if qc, ok := correlate.ParseSiteURL(url); ok {
		return qc, nil
	}
	return model.QueryContext{}, fmt.Errorf("%w: %s", correlate.ErrUnrecognizedURL, url)
}

func (m *mockDeps) ObserveRequest(_ context.Context, url string) (model.QueryContext, error) {
	return parse(url)
}

func (m *mockDeps) ObserveNavigation(_ context.Context, url string) (model.QueryContext, error) {
	return parse(url)
}

func (m *mockDeps) ObserveResponse(_ context.Context, url string, payload []byte) (model.QueryContext, int, error) {
	m.lastPayload = payload
	qc, err := parse(url)
	if err != nil {
		return qc, 0, err
	}
	entries, err := normalize.Normalize(payload)
	if err != nil {
		return qc, 0, err
	}
	return qc, len(entries), nil
}

func (m *mockDeps) CurrentBatch(context.Context) (*model.EnrichedBatch, error) {
	if m.batch == nil {
		return nil, repository.ErrNotFound
	}
	return m.batch, nil
}

func (m *mockDeps) Batch(_ context.Context, qc model.QueryContext) (*model.EnrichedBatch, error) {
	m.lastBatchQC = qc
	return m.CurrentBatch(context.Background())
}

func (m *mockDeps) ResolveMap(context.Context, string) *model.MapMetadata { return m.meta }

type mockStats struct{}

func (mockStats) GetStats() map[string]any { return map[string]any{"batches": 3} }

const scoresPayload = `{"playerScores":[{"leaderboard":{"songHash":"ABCD1234","difficulty":{"difficulty":9,"gameMode":"SoloStandard","difficultyRaw":"_ExpertPlus_SoloStandard"},"maxScore":0},"score":{"baseScore":950000,"modifiedScore":950000,"multiplier":1,"pp":300,"rank":12}}]}`

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDeps{}
		h := api.NewServer(deps, mockStats{}).Routes()

		Convey("When a scores response is observed", func() {
			body := `{"url":"https://scoresaber.com/api/player/76561198/scores?page=2&sort=recent","payload":` + scoresPayload + `}`
			w := do(h, http.MethodPost, "/observe/response", body)

			Convey("Then it is accepted with the parsed context and entry count", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var ack map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack["entries"], ShouldEqual, float64(1))
				ctx := ack["context"].(map[string]any)
				So(ctx["subjectId"], ShouldEqual, "76561198")
				So(ctx["page"], ShouldEqual, float64(2))
				So(ctx["sort"], ShouldEqual, "recent")
			})
		})

		Convey("When the payload is sent as a string", func() {
			quoted, _ := json.Marshal(scoresPayload)
			body := `{"url":"https://scoresaber.com/api/player/1/scores","payload":` + string(quoted) + `}`
			w := do(h, http.MethodPost, "/observe/response", body)

			Convey("Then it is unwrapped", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(string(deps.lastPayload), ShouldEqual, scoresPayload)
			})
		})

		Convey("When the URL is not a scores URL", func() {
			w := do(h, http.MethodPost, "/observe/response", `{"url":"https://scoresaber.com/leaderboards","payload":{}}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the payload is malformed", func() {
			w := do(h, http.MethodPost, "/observe/response", `{"url":"https://scoresaber.com/api/player/1/scores","payload":[1,2]}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the body fails validation", func() {
			w := do(h, http.MethodPost, "/observe/navigation", `{"url":""}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a navigation and a request start are observed", func() {
			nav := do(h, http.MethodPost, "/observe/navigation", `{"url":"https://scoresaber.com/u/76561198"}`)
			req := do(h, http.MethodPost, "/observe/request", `{"url":"https://scoresaber.com/api/player/76561198/scores?page=1&sort=top"}`)

			Convey("Then both are accepted", func() {
				So(nav.Code, ShouldEqual, http.StatusAccepted)
				So(req.Code, ShouldEqual, http.StatusAccepted)
			})
		})

		Convey("When no batch is stored", func() {
			w := do(h, http.MethodGet, "/batches/current", "")

			Convey("Then current is 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a batch is requested by subject", func() {
			deps.batch = &model.EnrichedBatch{ID: "b-1"}
			w := do(h, http.MethodGet, "/batches/42?page=3&sort=recent", "")

			Convey("Then the context is built from the path and query", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastBatchQC, ShouldResemble, model.QueryContext{SubjectID: "42", Page: 3, Sort: model.SortRecent})
			})

			Convey("Then a bad page is rejected", func() {
				So(do(h, http.MethodGet, "/batches/42?page=zero", "").Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When maps are requested", func() {
			So(do(h, http.MethodGet, "/maps/dead", "").Code, ShouldEqual, http.StatusNotFound)
			deps.meta = &model.MapMetadata{Hash: "abcd", ExternalID: "1a2b", BPM: 120}
			w := do(h, http.MethodGet, "/maps/abcd", "")

			Convey("Then known maps are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"id":"1a2b"`)
			})
		})

		Convey("When the max score helper is called", func() {
			w := do(h, http.MethodGet, "/maxscore/300", "")

			Convey("Then it applies the formula", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"maxScore":268755`)
				So(do(h, http.MethodGet, "/maxscore/-1", "").Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When health and stats are requested", func() {
			Convey("Then both respond", func() {
				So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
				w := do(h, http.MethodGet, "/stats", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"batches":3`)
			})
		})

		Convey("When the score site sends a preflight", func() {
			req := httptest.NewRequest(http.MethodOptions, "/observe/response", nil)
			req.Header.Set("Origin", "https://scoresaber.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then CORS allows it", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldNotBeEmpty)
			})
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a router with a tight observe limit", t, func() {
		h := api.NewServer(&mockDeps{}, mockStats{}, api.WithObserveRateLimit(2, time.Minute)).Routes()

		Convey("When a client exceeds it", func() {
			codes := []int{}
			for i := 0; i < 3; i++ {
				codes = append(codes, do(h, http.MethodPost, "/observe/navigation", `{"url":"https://scoresaber.com/u/1"}`).Code)
			}

			Convey("Then the excess request is refused", func() {
				So(codes, ShouldResemble, []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests})
			})
		})
	})
}
