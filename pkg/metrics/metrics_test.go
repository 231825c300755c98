package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func family(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then the generator metrics are namespaced", func() {
				So(manager, ShouldNotBeNil)
				manager.dataPointsGenerated.WithLabelValues("heart-rate").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(family(families, "vitalgen_generator_data_points_generated_total"), ShouldNotBeNil)
				So(family(families, "vitalgen_generator_queue_capacity"), ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 10}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.requests.WithLabelValues("ok").Inc()

			Convey("Then names and constant labels follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				requests := family(families, "test_sub_requests_total")
				So(requests, ShouldNotBeNil)
				So(requests.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording generation metrics", func() {
			before := testutil.ToFloat64(globalManager.dataPointsGenerated.WithLabelValues("body-weight"))
			RecordDataPoints("body-weight", 3)
			RecordValueGroups("body-weight", 3)
			RecordGenerationDuration("body-weight", 12)
			RecordRequest("ok")

			Convey("Then counters move by the recorded amount", func() {
				after := testutil.ToFloat64(globalManager.dataPointsGenerated.WithLabelValues("body-weight"))
				So(after-before, ShouldEqual, 3.0)
			})
		})

		Convey("When recording errors and gauges", func() {
			active := testutil.ToFloat64(globalManager.workerActiveCount)
			So(func() {
				RecordGenerationError("step-count", "sampling")
				RecordSinkWrite("file", 10)
				RecordSinkError("file")
				RecordSinkWriteLatency("file", 2)
				UpdateQueueSize(4)
				UpdateQueueCapacity(16)
				UpdateQueueUtilization(0.25)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				AddWorkerActive(2)
				RecordWorkerProcessingLatency(5)
				RecordErrorByComponent("sink", "write_failed")
			}, ShouldNotPanic)

			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 16.0)
			So(testutil.ToFloat64(globalManager.workerActiveCount)-active, ShouldEqual, 2.0)
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}

func TestPush(t *testing.T) {
	Convey("Given a pushgateway", t, func() {
		var hits atomic.Int32
		var path atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			path.Store(r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		RecordRequest("ok")
		err := Push(context.Background(), srv.URL, "vitalgen")

		Convey("Then the registry is pushed under the job", func() {
			So(err, ShouldBeNil)
			So(hits.Load(), ShouldEqual, int32(1))
			So(strings.HasSuffix(path.Load().(string), "/job/vitalgen"), ShouldBeTrue)
		})
	})

	Convey("Given a failing pushgateway", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := Push(context.Background(), srv.URL, "vitalgen")
		So(errors.Is(err, ErrPushFailed), ShouldBeTrue)
	})
}
