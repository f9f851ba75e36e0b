package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// value reads the current value of a counter or gauge.
func value(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return -1
	}
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then the defaults are applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "scoreimport")
				So(manager.subsystem, ShouldEqual, "engine")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names carry the namespace and subsystem", func() {
				manager.imports.WithLabelValues("file/mer-iidx", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_imports_total")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 2, 3})
			})
		})

		Convey("When const labels are given", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithConstLabels(prometheus.Labels{"region": "ap-northeast-1"}),
				WithConstLabels(prometheus.Labels{"instance": "a"}),
				WithConstLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every series carries them", func() {
				manager.importsDuplicate.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				labels := map[string]string{}
				for _, f := range families {
					if f.GetName() != "scoreimport_engine_imports_duplicate_total" {
						continue
					}
					for _, lp := range f.GetMetric()[0].GetLabel() {
						labels[lp.GetName()] = lp.GetValue()
					}
				}
				So(labels, ShouldResemble, map[string]string{"region": "ap-northeast-1", "instance": "a"})
			})
		})

		Convey("When empty option values are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "scoreimport")
				So(manager.subsystem, ShouldEqual, "engine")
				So(len(manager.histogramBuckets), ShouldEqual, 12)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording import outcomes", func() {
			before := value(globalManager.imports.WithLabelValues("file/batch-manual", "ok"))
			RecordImport("file/batch-manual", "ok", 12)
			RecordImport("file/batch-manual", "ok", 3)

			Convey("Then the counter advances per batch", func() {
				after := value(globalManager.imports.WithLabelValues("file/batch-manual", "ok"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording scores and failures", func() {
			before := value(globalManager.scoresImported.WithLabelValues("sdvx"))
			RecordScoresImported("sdvx", 40)
			RecordImportFailure("decode", "field_validation")

			Convey("Then scores are added in bulk", func() {
				after := value(globalManager.scoresImported.WithLabelValues("sdvx"))
				So(after-before, ShouldEqual, 40)
				So(value(globalManager.importFailures.WithLabelValues("decode", "field_validation")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(64)
			UpdateWorkerCount(4)
			UpdateWorkerActiveCount(2)
			UpdateStoredScores(1200)

			Convey("Then the gauges hold the last value", func() {
				So(value(globalManager.queueSize), ShouldEqual, 7)
				So(value(globalManager.queueCapacity), ShouldEqual, 64)
				So(value(globalManager.workerCount), ShouldEqual, 4)
				So(value(globalManager.workerActiveCount), ShouldEqual, 2)
				So(value(globalManager.storedScores), ShouldEqual, 1200)
			})
		})

		Convey("When recording the remaining series", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordImportDuplicate()
					RecordClassProvider("ok")
					RecordPartnerFetch("FLO", "200", 45)
					RecordStoreBatchLatency(1.5)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					RecordWorkerProcessingLatency(20)
					RecordWorkerError()
					RecordHTTPRequest("/v1/imports", "POST", "202")
					RecordHTTPRequestDuration("/v1/imports", "POST", "202", 4)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		Convey("Then it gathers the global manager's series", func() {
			RecordQueueEnqueue()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			found := false
			for _, f := range families {
				if f.GetName() == "scoreimport_engine_queue_enqueued_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
