package measure

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/okian/vitalgen/internal/domain/datapoint"
	"github.com/okian/vitalgen/internal/domain/generator"
	"github.com/okian/vitalgen/internal/domain/valuegroup"
)

// Generator names.
const (
	NameBloodPressure           = "blood-pressure"
	NameHeartRate               = "heart-rate"
	NameBodyWeight              = "body-weight"
	NameBodyHeight              = "body-height"
	NameBodyTemperature         = "body-temperature"
	NameBodyFatPercentage       = "body-fat-percentage"
	NameStepCount               = "step-count"
	NameSleepDuration           = "sleep-duration"
	NameMinutesModerateActivity = "minutes-moderate-activity"
)

// Value group keys.
const (
	KeySystolicBloodPressure   = "systolic-blood-pressure-in-mmhg"
	KeyDiastolicBloodPressure  = "diastolic-blood-pressure-in-mmhg"
	KeyHeartRate               = "heart-rate-in-beats-per-minute"
	KeyBodyWeight              = "weight-in-kg"
	KeyBodyHeight              = "height-in-meters"
	KeyBodyTemperature         = "temperature-in-c"
	KeyBodyFatPercentage       = "percentage"
	KeyStepsPerMinute          = "steps-per-minute"
	KeyDurationInSeconds       = "duration-in-seconds"
	KeySleepDuration           = "sleep-duration-in-hours"
	KeyMinutesModerateActivity = "minutes-moderate-activity-in-mins"
)

// MaxSleepDurationHours is the longest sleep episode a single data point may report.
const MaxSleepDurationHours = 24

// Factory builds one measure type and names the value keys it needs.
type Factory interface {
	generator.MeasureFactory
	Name() string
	RequiredKeys() []string
}

type factory struct {
	name  string
	keys  []string
	build func(ts time.Time, values []float64) (datapoint.Measure, error)
}

func (f *factory) Name() string { return f.name }

func (f *factory) RequiredKeys() []string { return slices.Clone(f.keys) }

func (f *factory) NewMeasure(group valuegroup.TimestampedValueGroup) (datapoint.Measure, error) {
	values := make([]float64, len(f.keys))
	for i, key := range f.keys {
		v, ok := group.Value(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s requires %q", ErrMissingValue, f.name, key)
		}
		values[i] = v
	}
	return f.build(group.Timestamp(), values)
}

var registry = map[string]*factory{}

func register(name string, keys []string, build func(time.Time, []float64) (datapoint.Measure, error)) {
	registry[name] = &factory{name: name, keys: keys, build: build}
}

func init() {
	register(NameBloodPressure, []string{KeySystolicBloodPressure, KeyDiastolicBloodPressure},
		func(ts time.Time, v []float64) (datapoint.Measure, error) {
			return BloodPressure{
				SystolicBloodPressure:  UnitValue{Unit: UnitMmHg, Value: v[0]},
				DiastolicBloodPressure: UnitValue{Unit: UnitMmHg, Value: v[1]},
				EffectiveTimeFrame:     at(ts),
			}, nil
		})

	register(NameHeartRate, []string{KeyHeartRate},
		func(ts time.Time, v []float64) (datapoint.Measure, error) {
			return HeartRate{HeartRate: UnitValue{Unit: UnitBeatsPerMin, Value: v[0]}, EffectiveTimeFrame: at(ts)}, nil
		})

	register(NameBodyWeight, []string{KeyBodyWeight},
		func(ts time.Time, v []float64) (datapoint.Measure, error) {
			return BodyWeight{BodyWeight: UnitValue{Unit: UnitKilogram, Value: v[0]}, EffectiveTimeFrame: at(ts)}, nil
		})

	register(NameBodyHeight, []string{KeyBodyHeight},
		func(ts time.Time, v []float64) (datapoint.Measure, error) {
			return BodyHeight{BodyHeight: UnitValue{Unit: UnitMeter, Value: v[0]}, EffectiveTimeFrame: at(ts)}, nil
		})

	register(NameBodyTemperature, []string{KeyBodyTemperature},
		func(ts time.Time, v []float64) (datapoint.Measure, error) {
			return BodyTemperature{BodyTemperature: UnitValue{Unit: UnitCelsius, Value: v[0]}, EffectiveTimeFrame: at(ts)}, nil
		})

	register(NameBodyFatPercentage, []string{KeyBodyFatPercentage},
		func(ts time.Time, v []float64) (datapoint.Measure, error) {
			return BodyFatPercentage{BodyFatPercentage: UnitValue{Unit: UnitPercent, Value: v[0]}, EffectiveTimeFrame: at(ts)}, nil
		})

	register(NameStepCount, []string{KeyStepsPerMinute, KeyDurationInSeconds},
		func(ts time.Time, v []float64) (datapoint.Measure, error) {
			perMinute, seconds := v[0], v[1]
			if seconds < 0 || perMinute < 0 {
				return nil, fmt.Errorf("%w: step count needs non-negative rate and duration, got %g/min over %gs",
					ErrInvalidValue, perMinute, seconds)
			}
			return StepCount{
				StepCount:          int64(math.Round(perMinute * seconds / 60)),
				EffectiveTimeFrame: TimeFrame{TimeInterval: &TimeInterval{
					StartDateTime: &ts,
					Duration:      &UnitValue{Unit: UnitSecond, Value: seconds},
				}},
			}, nil
		})

	register(NameSleepDuration, []string{KeySleepDuration},
		func(ts time.Time, v []float64) (datapoint.Measure, error) {
			hours := v[0]
			if hours < 0 || hours > MaxSleepDurationHours {
				return nil, fmt.Errorf("%w: sleep duration %g h is outside [0, %d]", ErrInvalidValue, hours, MaxSleepDurationHours)
			}
			end := ts
			start := ts.Add(-time.Duration(hours * float64(time.Hour)))
			return SleepDuration{
				SleepDuration:      UnitValue{Unit: UnitHour, Value: hours},
				EffectiveTimeFrame: TimeFrame{TimeInterval: &TimeInterval{
					StartDateTime: &start,
					EndDateTime:   &end,
				}},
			}, nil
		})

	register(NameMinutesModerateActivity, []string{KeyMinutesModerateActivity},
		func(ts time.Time, v []float64) (datapoint.Measure, error) {
			return MinutesModerateActivity{
				MinutesModerateActivity: UnitValue{Unit: UnitMinute, Value: v[0]},
				EffectiveTimeFrame:      at(ts),
			}, nil
		})
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMeasure, name)
	}
	return f, nil
}

// Names lists the registered generator names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
