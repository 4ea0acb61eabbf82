package store

import (
	"slices"
	"time"
)

func telemetryTime(r TelemetryRecord) time.Time { return r.Timestamp }
func sensorTime(r SensorRecord) time.Time       { return r.Timestamp }

// find filters records by q, newest first, keeping insertion order stable for equal timestamps.
func find[T any](records []T, q Query, ts func(T) time.Time) []T {
	out := make([]T, 0, min(len(records), max(q.Limit, 0)))

	for i := len(records) - 1; i >= 0; i-- {
		if q.Contains(ts(records[i])) {
			out = append(out, records[i])
		}
	}

	slices.SortStableFunc(out, func(a, b T) int {
		return ts(b).Compare(ts(a))
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out
}
