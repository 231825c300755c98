package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/vitalgen/internal/app"
	"github.com/okian/vitalgen/internal/config"
	"github.com/okian/vitalgen/internal/domain/datapoint"
	"github.com/okian/vitalgen/internal/domain/generator"
	"github.com/okian/vitalgen/internal/domain/measure"
	"github.com/okian/vitalgen/internal/domain/timeline"
	"github.com/okian/vitalgen/pkg/logger"
	"github.com/okian/vitalgen/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var (
	start = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	now   = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

type memoryWriter struct {
	mu      sync.Mutex
	batches [][]datapoint.DataPoint
	err     error
}

func (w *memoryWriter) WriteDataPoints(_ context.Context, points []datapoint.DataPoint) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	w.batches = append(w.batches, points)
	return int64(len(points)), nil
}

func (w *memoryWriter) Close(context.Context) error { return nil }

func (w *memoryWriter) points() []datapoint.DataPoint {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []datapoint.DataPoint
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

func heartRateRequest(sd float64) config.MeasureGenerationRequest {
	return config.MeasureGenerationRequest{
		Generator:              measure.NameHeartRate,
		StartDateTime:          start,
		EndDateTime:            start.Add(24 * time.Hour),
		MeanInterPointDuration: time.Hour,
		Trends: map[string]config.TrendConfig{
			measure.KeyHeartRate: {StartValue: 60, EndValue: 80, StandardDeviation: sd},
		},
	}
}

func requestsTotal(status string) float64 {
	families, err := metrics.GetRegistry().Gather()
	So(err, ShouldBeNil)
	for _, f := range families {
		if f.GetName() != "vitalgen_generator_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" && l.GetValue() == status {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func newService(w *memoryWriter, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithUserID("u1"),
		service.WithWorkerCount(4),
		service.WithQueueSize(2),
		service.WithSourceName("simulator"),
		service.WithClock(func() time.Time { return now }),
	}
	return service.New(w, append(base, opts...)...)
}

func TestService_New(t *testing.T) {
	Convey("Given a service without a writer", t, func() {
		svc := service.New(nil)

		Convey("Then running it fails", func() {
			_, err := svc.Run(context.Background(), []config.MeasureGenerationRequest{heartRateRequest(0)})
			So(errors.Is(err, service.ErrMissingWriter), ShouldBeTrue)
		})
	})

	Convey("Given a service built from configuration", t, func() {
		cfg := config.New()
		cfg.UserID = "u1"
		cfg.WorkerCount = 2
		cfg.Seed = 11
		w := &memoryWriter{}
		svc := service.New(w, service.WithConfig(cfg))

		Convey("Then its settings drive the run", func() {
			summary, err := svc.Run(context.Background(), []config.MeasureGenerationRequest{heartRateRequest(1)})
			So(err, ShouldBeNil)
			So(summary.Written, ShouldBeGreaterThan, 0)
			So(w.points()[0].Header().UserID, ShouldEqual, "u1")
			So(w.points()[0].Header().AcquisitionProvenance.SourceName, ShouldEqual, "generator")
		})
	})

	Convey("Given a configuration naming the sampling method in upper case", t, func() {
		cfg := config.New()
		cfg.UserID = "u1"
		cfg.Seed = 3
		cfg.SamplingMethod = "INVERSE_CDF"
		cfg.MaxSamplingAttempts = 1
		So(cfg.Validate(), ShouldBeNil)

		lo, hi := 65.0, 66.0
		r := heartRateRequest(1)
		r.Trends = map[string]config.TrendConfig{
			measure.KeyHeartRate: {StartValue: 60, EndValue: 60, StandardDeviation: 1, MinimumValue: &lo, MaximumValue: &hi},
		}
		w := &memoryWriter{}
		_, err := service.New(w, service.WithConfig(cfg)).Run(context.Background(), []config.MeasureGenerationRequest{r})

		Convey("Then tail values are drawn with the inverse CDF", func() {
			So(err, ShouldBeNil)
			So(w.points(), ShouldNotBeEmpty)
			for _, p := range w.points() {
				So(p.Body().(measure.HeartRate).HeartRate.Value, ShouldBeBetweenOrEqual, lo, hi)
			}
		})
	})
}

func TestService_Run(t *testing.T) {
	Convey("Given a heart rate request over one day", t, func() {
		w := &memoryWriter{}
		svc := newService(w, service.WithSeed(7))

		summary, err := svc.Run(context.Background(), []config.MeasureGenerationRequest{heartRateRequest(0)})
		So(err, ShouldBeNil)

		Convey("Then every generated point is written", func() {
			So(summary.Requests, ShouldEqual, 1)
			So(summary.ValueGroups, ShouldBeGreaterThan, 0)
			So(summary.DataPoints, ShouldEqual, summary.ValueGroups)
			So(summary.Written, ShouldEqual, summary.DataPoints)
			So(w.points(), ShouldHaveLength, int(summary.Written))
		})

		Convey("Then headers carry the configured identity", func() {
			for _, p := range w.points() {
				h := p.Header()
				So(h.UserID, ShouldEqual, "u1")
				So(h.CreationDateTime, ShouldEqual, now)
				So(h.AcquisitionProvenance.SourceName, ShouldEqual, "simulator")
				So(h.AcquisitionProvenance.SourceCreationDateTime, ShouldEqual, now.Add(-5*time.Minute))
				So(h.SchemaID.Name, ShouldEqual, "heart-rate")
			}
		})

		Convey("Then values follow the trend between its end points", func() {
			for _, p := range w.points() {
				v := p.Body().(measure.HeartRate).HeartRate.Value
				So(v, ShouldBeBetweenOrEqual, 60.0, 80.0)
			}
		})
	})

	Convey("Given the same seed twice", t, func() {
		run := func() []float64 {
			w := &memoryWriter{}
			_, err := newService(w, service.WithSeed(42)).
				Run(context.Background(), []config.MeasureGenerationRequest{heartRateRequest(3)})
			So(err, ShouldBeNil)
			var values []float64
			for _, p := range w.points() {
				values = append(values, p.Body().(measure.HeartRate).HeartRate.Value)
			}
			return values
		}

		Convey("Then the sampled values are identical", func() {
			So(run(), ShouldResemble, run())
		})
	})

	Convey("Given several requests", t, func() {
		w := &memoryWriter{}
		requests := []config.MeasureGenerationRequest{heartRateRequest(1), heartRateRequest(1), heartRateRequest(1)}
		bp := heartRateRequest(1)
		bp.Generator = measure.NameBloodPressure
		bp.Trends = map[string]config.TrendConfig{
			measure.KeySystolicBloodPressure:  {StartValue: 120, EndValue: 110, StandardDeviation: 2},
			measure.KeyDiastolicBloodPressure: {StartValue: 80, EndValue: 75, StandardDeviation: 1},
		}
		requests = append(requests, bp)

		summary, err := newService(w).Run(context.Background(), requests)

		Convey("Then each request is written as one batch", func() {
			So(err, ShouldBeNil)
			So(summary.Requests, ShouldEqual, 4)
			So(w.batches, ShouldHaveLength, 4)
			So(summary.Written, ShouldEqual, int64(len(w.points())))
		})
	})

	Convey("Given several requests and the request counter", t, func() {
		before := requestsTotal("ok")
		requests := []config.MeasureGenerationRequest{heartRateRequest(1), heartRateRequest(1), heartRateRequest(1)}
		_, err := newService(&memoryWriter{}).Run(context.Background(), requests)

		Convey("Then every request is counted", func() {
			So(err, ShouldBeNil)
			So(requestsTotal("ok")-before, ShouldEqual, 3.0)
		})
	})

	Convey("Given no requests", t, func() {
		w := &memoryWriter{}
		summary, err := newService(w).Run(context.Background(), nil)
		So(err, ShouldBeNil)
		So(summary, ShouldResemble, service.Summary{})
	})
}

func TestService_RunFailures(t *testing.T) {
	Convey("Given an unknown generator", t, func() {
		w := &memoryWriter{}
		r := heartRateRequest(0)
		r.Generator = "glucose"
		_, err := newService(w).Run(context.Background(), []config.MeasureGenerationRequest{heartRateRequest(0), r})

		Convey("Then nothing is generated", func() {
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
			So(errors.Is(err, measure.ErrUnknownMeasure), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "request 1")
			So(w.batches, ShouldBeEmpty)
		})
	})

	Convey("Given a request missing a required trend", t, func() {
		r := heartRateRequest(0)
		r.Generator = measure.NameBloodPressure
		r.Trends = map[string]config.TrendConfig{
			measure.KeySystolicBloodPressure: {StartValue: 120, EndValue: 120},
		}
		_, err := newService(&memoryWriter{}).Run(context.Background(), []config.MeasureGenerationRequest{r})
		So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		So(errors.Is(err, timeline.ErrInvalidRequest), ShouldBeTrue)
	})

	Convey("Given a service without a user", t, func() {
		_, err := service.New(&memoryWriter{}).Run(context.Background(), []config.MeasureGenerationRequest{heartRateRequest(0)})
		So(errors.Is(err, generator.ErrMissingUserID), ShouldBeTrue)
	})

	Convey("Given a failing writer", t, func() {
		boom := errors.New("disk full")
		w := &memoryWriter{err: boom}
		summary, err := newService(w).Run(context.Background(), []config.MeasureGenerationRequest{heartRateRequest(0)})

		Convey("Then the write error is returned", func() {
			So(errors.Is(err, boom), ShouldBeTrue)
			So(summary.Written, ShouldEqual, int64(0))
		})
	})

	Convey("Given a failing writer and the request counter", t, func() {
		before := requestsTotal("failed")
		w := &memoryWriter{err: errors.New("disk full")}
		_, err := newService(w, service.WithWorkerCount(1)).Run(context.Background(), []config.MeasureGenerationRequest{heartRateRequest(0)})

		Convey("Then the failed request is counted once", func() {
			So(err, ShouldNotBeNil)
			So(requestsTotal("failed")-before, ShouldEqual, 1.0)
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newService(&memoryWriter{}).Run(ctx, []config.MeasureGenerationRequest{heartRateRequest(0)})
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}
