package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.rosterSize.Set(3)

			Convey("Then its collectors use the namespace and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_unit_roster_size" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
						So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 3)
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share one registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecordHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When suggestion metrics are recorded", func() {
			before := testutil.ToFloat64(globalManager.suggestions.WithLabelValues("URGENT"))
			RecordSuggestion("URGENT", 1.5, 4)
			RecordSuggestionError("invalid_coordinate")

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.suggestions.WithLabelValues("URGENT")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.suggestionErrors.WithLabelValues("invalid_coordinate")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateRosterSize(12)
			UpdateQueueSize(4)
			UpdateQueueCapacity(100)
			UpdateWorkerCount(3)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.rosterSize), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 3)
			})
		})

		Convey("When event and pipeline metrics are recorded", func() {
			processed := testutil.ToFloat64(globalManager.eventsProcessed)
			So(func() {
				RecordEventProcessed()
				RecordEventDuplicate()
				RecordEventFailed()
				RecordKafkaMessage("accepted")
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(0.4)
				RecordWorkerError()
				RecordRosterUpdate("upsert")
				RecordHTTPRequest("/suggestions", "POST", "200")
				RecordHTTPRequestDuration("/suggestions", "POST", "200", 2.5)
				RecordErrorByComponent("api", "bad_request")
			}, ShouldNotPanic)

			Convey("Then the processed counter moved once", func() {
				So(testutil.ToFloat64(globalManager.eventsProcessed), ShouldEqual, processed+1)
			})
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
