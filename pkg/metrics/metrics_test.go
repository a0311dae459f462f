package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it registers under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.batchesPublished.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "saberlens_enrichment_batches_published_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithMetricPrefix("pre"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names carry the prefix", func() {
				manager.inflightJoins.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := []string{}
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_sub_pre_inflight_joins_total")
			})

			Convey("Then the runtime options are stored", func() {
				So(manager.enabled.Load(), ShouldBeFalse)
				So(time.Duration(manager.refreshInterval.Load()), ShouldEqual, 5*time.Second)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording cache lookups", func() {
			before := testutil.ToFloat64(globalManager.cacheLookups.WithLabelValues("metadata", "hit"))
			RecordCacheLookup("metadata", "hit")
			RecordCacheLookup("metadata", "hit")

			Convey("Then the counter increases", func() {
				after := testutil.ToFloat64(globalManager.cacheLookups.WithLabelValues("metadata", "hit"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording dropped entries", func() {
			before := testutil.ToFloat64(globalManager.entriesDropped.WithLabelValues("normalize"))
			RecordEntriesDropped("normalize", 3)
			RecordEntriesDropped("normalize", 0)

			Convey("Then only positive counts are added", func() {
				after := testutil.ToFloat64(globalManager.entriesDropped.WithLabelValues("normalize"))
				So(after-before, ShouldEqual, 3)
			})
		})

		Convey("When updating gauges", func() {
			UpdateStreamClients(4)
			UpdateBreakerState("beatsaver", 2)
			UpdateCacheEntries("metadata", 12)

			Convey("Then the gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.streamClients), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.breakerState.WithLabelValues("beatsaver")), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.cacheEntries.WithLabelValues("metadata")), ShouldEqual, 12)
			})
		})

		Convey("When calling every recorder", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordInflightJoin()
					RecordSnapshotWrite("ok")
					RecordUpstreamRequest("beatleader", "ok")
					RecordUpstreamLatency("beatleader", 12)
					RecordPayloadObserved("response")
					RecordBatchPublished()
					RecordBatchStale()
					RecordEnrichLatency(800)
					RecordReplayResolution("verified")
					RecordReplayStale()
					RecordNavigationTrigger("fired")
					RecordHTTPRequest("/healthz", "GET", "200")
					RecordHTTPRequestDuration("/healthz", "GET", "200", 1)
					UpdateQueueCapacity(10)
					UpdateQueueSize(1)
					UpdateQueueUtilization(0.1)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					RecordQueueProcessingLatency(1)
					UpdateWorkerActiveCount(2)
					UpdateWorkerMessagesPerSecond(1)
					RecordWorkerProcessingLatency(1)
					RecordWorkerError()
					RecordErrorByComponent("queue", "closed")
					RecordErrorByEndpoint("/maps", "GET", "not_found")
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(10)
					RecordSystemGCPauseTime(0.5)
				}, ShouldNotPanic)
				So(GetRegistry(), ShouldNotBeNil)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Reset(func() {
			Configure(WithMetricsEnabled(true), WithRefreshInterval(defaultRefreshInterval))
		})

		Convey("When recording is disabled", func() {
			Configure(WithMetricsEnabled(false))
			before := testutil.ToFloat64(globalManager.batchesPublished)
			RecordBatchPublished()
			UpdateStreamClients(99)

			Convey("Then recorders leave the collectors untouched", func() {
				So(Enabled(), ShouldBeFalse)
				So(testutil.ToFloat64(globalManager.batchesPublished), ShouldEqual, before)
				So(testutil.ToFloat64(globalManager.streamClients), ShouldNotEqual, 99)
			})

			Convey("And then re-enabled", func() {
				Configure(WithMetricsEnabled(true))
				RecordBatchPublished()

				Convey("Then recording resumes", func() {
					So(testutil.ToFloat64(globalManager.batchesPublished), ShouldEqual, before+1)
				})
			})
		})

		Convey("When a refresh interval is set", func() {
			Configure(WithRefreshInterval(250 * time.Millisecond))

			Convey("Then RefreshInterval reports it", func() {
				So(RefreshInterval(), ShouldEqual, 250*time.Millisecond)
			})
		})

		Convey("When a non-positive refresh interval is set", func() {
			Configure(WithRefreshInterval(0))

			Convey("Then the previous interval is kept", func() {
				So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}
