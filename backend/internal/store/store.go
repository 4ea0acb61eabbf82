// Package store defines the append-only record store the bridge writes telemetry to.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when no store is configured or it cannot be reached.
var ErrUnavailable = errors.New("document store unavailable")

// TelemetryRecord is one status message from the robot.
type TelemetryRecord struct {
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Speed     int            `json:"speed" bson:"speed"`
	Mode      string         `json:"mode" bson:"mode"`
	Direction string         `json:"direction" bson:"direction"`
	Gas       *int           `json:"gas,omitempty" bson:"gas,omitempty"`
	Angle     *int           `json:"angle,omitempty" bson:"angle,omitempty"`
	Duration  *int           `json:"duration,omitempty" bson:"duration,omitempty"`
	Raw       map[string]any `json:"raw" bson:"raw_data"`
}

// SensorRecord is one gas / wheel RPM reading.
type SensorRecord struct {
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Gas       *int           `json:"gas,omitempty" bson:"gas,omitempty"`
	RPM       []*int         `json:"rpm" bson:"rpm"`
	Raw       map[string]any `json:"raw" bson:"raw_data"`
}

// Query selects records in [From, To), newest first. Zero times are unbounded.
type Query struct {
	Limit int
	From  time.Time
	To    time.Time
}

// DocumentStore persists telemetry and sensor records.
type DocumentStore interface {
	InsertTelemetry(ctx context.Context, rec TelemetryRecord) error
	InsertSensor(ctx context.Context, rec SensorRecord) error
	FindTelemetry(ctx context.Context, q Query) ([]TelemetryRecord, error)
	FindSensor(ctx context.Context, q Query) ([]SensorRecord, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Contains reports whether t falls inside the query's time range.
func (q Query) Contains(t time.Time) bool {
	if !q.From.IsZero() && t.Before(q.From) {
		return false
	}

	if !q.To.IsZero() && !t.Before(q.To) {
		return false
	}

	return true
}
