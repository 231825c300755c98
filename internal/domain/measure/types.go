// Package measure provides the Open mHealth measure bodies and the factories
// that build them from value groups, one factory per measure type.
package measure

import (
	"time"

	"github.com/okian/vitalgen/internal/domain/datapoint"
)

// Namespace and version shared by the schemas below.
const (
	SchemaNamespace = "omh"
	SchemaVersion   = "1.0"
)

// Units.
const (
	UnitMmHg        = "mmHg"
	UnitBeatsPerMin = "beats/min"
	UnitKilogram    = "kg"
	UnitMeter       = "m"
	UnitCelsius     = "C"
	UnitPercent     = "%"
	UnitSecond      = "sec"
	UnitHour        = "h"
	UnitMinute      = "min"
)

func schema(name string) datapoint.SchemaID {
	return datapoint.SchemaID{Namespace: SchemaNamespace, Name: name, Version: SchemaVersion}
}

// UnitValue is a numeric value with its unit.
type UnitValue struct {
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

// TimeInterval bounds a measure in time. Any two fields are sufficient.
type TimeInterval struct {
	StartDateTime *time.Time `json:"start_date_time,omitempty"`
	EndDateTime   *time.Time `json:"end_date_time,omitempty"`
	Duration      *UnitValue `json:"duration,omitempty"`
}

// TimeFrame is either a point in time or an interval.
type TimeFrame struct {
	DateTime     *time.Time    `json:"date_time,omitempty"`
	TimeInterval *TimeInterval `json:"time_interval,omitempty"`
}

func at(t time.Time) TimeFrame { return TimeFrame{DateTime: &t} }

// BloodPressure is omh:blood-pressure.
type BloodPressure struct {
	SystolicBloodPressure  UnitValue `json:"systolic_blood_pressure"`
	DiastolicBloodPressure UnitValue `json:"diastolic_blood_pressure"`
	EffectiveTimeFrame     TimeFrame `json:"effective_time_frame"`
}

// SchemaID implements datapoint.Measure.
func (BloodPressure) SchemaID() datapoint.SchemaID { return schema(NameBloodPressure) }

// HeartRate is omh:heart-rate.
type HeartRate struct {
	HeartRate          UnitValue `json:"heart_rate"`
	EffectiveTimeFrame TimeFrame `json:"effective_time_frame"`
}

// SchemaID implements datapoint.Measure.
func (HeartRate) SchemaID() datapoint.SchemaID { return schema(NameHeartRate) }

// BodyWeight is omh:body-weight.
type BodyWeight struct {
	BodyWeight         UnitValue `json:"body_weight"`
	EffectiveTimeFrame TimeFrame `json:"effective_time_frame"`
}

// SchemaID implements datapoint.Measure.
func (BodyWeight) SchemaID() datapoint.SchemaID { return schema(NameBodyWeight) }

// BodyHeight is omh:body-height.
type BodyHeight struct {
	BodyHeight         UnitValue `json:"body_height"`
	EffectiveTimeFrame TimeFrame `json:"effective_time_frame"`
}

// SchemaID implements datapoint.Measure.
func (BodyHeight) SchemaID() datapoint.SchemaID { return schema(NameBodyHeight) }

// BodyTemperature is omh:body-temperature.
type BodyTemperature struct {
	BodyTemperature    UnitValue `json:"body_temperature"`
	EffectiveTimeFrame TimeFrame `json:"effective_time_frame"`
}

// SchemaID implements datapoint.Measure.
func (BodyTemperature) SchemaID() datapoint.SchemaID { return schema(NameBodyTemperature) }

// BodyFatPercentage is omh:body-fat-percentage.
type BodyFatPercentage struct {
	BodyFatPercentage  UnitValue `json:"body_fat_percentage"`
	EffectiveTimeFrame TimeFrame `json:"effective_time_frame"`
}

// SchemaID implements datapoint.Measure.
func (BodyFatPercentage) SchemaID() datapoint.SchemaID { return schema(NameBodyFatPercentage) }

// StepCount is omh:step-count.
type StepCount struct {
	StepCount          int64     `json:"step_count"`
	EffectiveTimeFrame TimeFrame `json:"effective_time_frame"`
}

// SchemaID implements datapoint.Measure.
func (StepCount) SchemaID() datapoint.SchemaID { return schema(NameStepCount) }

// SleepDuration is omh:sleep-duration.
type SleepDuration struct {
	SleepDuration      UnitValue `json:"sleep_duration"`
	EffectiveTimeFrame TimeFrame `json:"effective_time_frame"`
}

// SchemaID implements datapoint.Measure.
func (SleepDuration) SchemaID() datapoint.SchemaID { return schema(NameSleepDuration) }

// MinutesModerateActivity is omh:minutes-moderate-activity.
type MinutesModerateActivity struct {
	MinutesModerateActivity UnitValue `json:"minutes_moderate_activity"`
	EffectiveTimeFrame      TimeFrame `json:"effective_time_frame"`
}

// SchemaID implements datapoint.Measure.
func (MinutesModerateActivity) SchemaID() datapoint.SchemaID {
	return schema(NameMinutesModerateActivity)
}
