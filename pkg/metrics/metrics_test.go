package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			registryOpt := WithPrometheusRegistry(prometheus.NewRegistry())

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(registryOpt, ShouldNotBeNil)
			})
		})

		Convey("When an option receives a zero value", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "muster")
				So(manager.subsystem, ShouldEqual, "pipeline")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "muster")
				So(manager.subsystem, ShouldEqual, "pipeline")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the configuration is applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "test-namespace")
				So(manager.subsystem, ShouldEqual, "test-subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})

			Convey("Then the metrics land on the given registry", func() {
				So(manager.candidates, ShouldNotBeNil)
				manager.candidates.Set(42)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("Then it is initialized at startup", func() {
			So(globalManager, ShouldNotBeNil)
			So(GetRegistry(), ShouldNotBeNil)
		})

		Convey("When recording through the package helpers", func() {
			RecordRowParsed("ordinary")
			RecordMalformedRow()
			RecordScoreRangeError()
			RecordDuplicateEntry()
			RecordScoreConflict()
			UpdateCandidateCount(10)
			UpdateUnitCounts(8, 2)
			RecordPlacement("ranked")
			RecordPlacement("designated")
			RecordRejection("no-capacity")
			RecordDiagnostic("malformed-row")
			RecordStageDuration("normalize", 12.5)

			Convey("Then the registry gathers without error", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
