// Package valuegroup holds the timestamped bundles of sampled values that
// feed measure construction.
package valuegroup

import (
	"maps"
	"slices"
	"time"
)

// TimestampedValueGroup pairs an instant with the sampled field values of one
// measure instance. It is immutable.
type TimestampedValueGroup struct {
	timestamp time.Time
	values    map[string]float64
}

// New copies values into a new group.
func New(timestamp time.Time, values map[string]float64) TimestampedValueGroup {
	return TimestampedValueGroup{timestamp: timestamp, values: maps.Clone(values)}
}

// Timestamp returns the instant of the group.
func (g TimestampedValueGroup) Timestamp() time.Time { return g.timestamp }

// Value returns the value stored under key.
func (g TimestampedValueGroup) Value(key string) (float64, bool) {
	v, ok := g.values[key]
	return v, ok
}

// Keys returns the value keys in sorted order.
func (g TimestampedValueGroup) Keys() []string {
	return slices.Sorted(maps.Keys(g.values))
}

// Len returns the number of values.
func (g TimestampedValueGroup) Len() int { return len(g.values) }
