package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register collectors on that registry", func() {
				So(manager, ShouldNotBeNil)
				manager.slotsAssigned.Add(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(testutil.ToFloat64(manager.slotsAssigned), ShouldEqual, 3)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.noEligible.Inc()

			Convey("Then names and labels should follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_sub_no_eligible_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording scheduling outcomes", func() {
			before := testutil.ToFloat64(globalManager.starsConsumed)
			RecordStarsConsumed(2)
			RecordStarsConsumed(0)
			RecordSlots(4, 1)
			RecordBoardsGenerated("horizon", 6)
			RecordToggle("joined", true)
			RecordConflictDetected("manual_assignment")
			RecordConflictResolved("auto_replace")
			UpdateConflictsPending(1)
			RecordNoEligible()
			UpdateRoster(5, 4)

			Convey("Then counters should move", func() {
				So(testutil.ToFloat64(globalManager.starsConsumed)-before, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.boardsGenerated.WithLabelValues("horizon")), ShouldBeGreaterThanOrEqualTo, 6)
				So(testutil.ToFloat64(globalManager.toggles.WithLabelValues("joined", "on")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.conflictsPending), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.coordinatorsAvailable), ShouldEqual, 4)
			})
		})

		Convey("When recording store calls", func() {
			ObserveStoreOperation("memory", "load_boards", 0.001, nil)
			ObserveStoreOperation("memory", "load_boards", 0.002, errors.New("boom"))

			Convey("Then results should be split by outcome", func() {
				So(testutil.ToFloat64(globalManager.storeOperations.WithLabelValues("memory", "load_boards", "error")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.storeOperations.WithLabelValues("memory", "load_boards", "ok")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording HTTP and audit activity", func() {
			RecordHTTPRequest("/api/boards", "GET", "200")
			RecordHTTPRequestDuration("/api/boards", "GET", "200", 0.01)
			RecordErrorByEndpoint("/api/boards", "PUT", "input")
			UpdateAuditQueueCapacity(64)
			UpdateAuditQueueSize(3)
			RecordAuditEnqueued()
			RecordAuditFallback("full")
			RecordAuditWrite(0.001, errors.New("disk"))
			RecordErrorByComponent("audit", "write")

			Convey("Then the registry should expose them", func() {
				n, err := testutil.GatherAndCount(GetRegistry(), "starboard_scheduler_http_requests_total")
				So(err, ShouldBeNil)
				So(n, ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.auditQueueSize), ShouldEqual, 3)

				expected := `
# HELP starboard_scheduler_audit_queue_capacity Audit queue capacity
# TYPE starboard_scheduler_audit_queue_capacity gauge
starboard_scheduler_audit_queue_capacity 64
`
				So(testutil.GatherAndCompare(GetRegistry(), strings.NewReader(expected), "starboard_scheduler_audit_queue_capacity"), ShouldBeNil)
			})
		})
	})
}

func TestRuntimeCollectors(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		Convey("When runtime collectors are registered twice", func() {
			So(RegisterRuntimeCollectors(), ShouldBeNil)
			So(RegisterRuntimeCollectors(), ShouldBeNil)

			Convey("Then Go runtime metrics are gathered", func() {
				n, err := testutil.GatherAndCount(GetRegistry(), "go_goroutines")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})
	})
}
