package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueryContains(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	q := Query{From: day, To: day.AddDate(0, 0, 1)}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{name: "from is inclusive", t: day, want: true},
		{name: "midday", t: day.Add(12 * time.Hour), want: true},
		{name: "to is exclusive", t: day.AddDate(0, 0, 1), want: false},
		{name: "before", t: day.Add(-time.Nanosecond), want: false},
	}

	for _, tt := range tests {
		if got := q.Contains(tt.t); got != tt.want {
			t.Errorf("%s: Contains(%s) = %v, want %v", tt.name, tt.t, got, tt.want)
		}
	}

	if !(Query{}).Contains(day) {
		t.Error("unbounded query should contain everything")
	}
}

func TestMemoryFindNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	for i := range 5 {
		if err := m.InsertTelemetry(ctx, TelemetryRecord{Timestamp: base.Add(time.Duration(i) * time.Minute), Speed: i}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.FindTelemetry(ctx, Query{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 3 || got[0].Speed != 4 || got[2].Speed != 2 {
		t.Errorf("FindTelemetry(limit 3) = %+v", got)
	}

	got, err = m.FindTelemetry(ctx, Query{From: base.Add(time.Minute), To: base.Add(3 * time.Minute)})
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 || got[0].Speed != 2 || got[1].Speed != 1 {
		t.Errorf("FindTelemetry(range) = %+v", got)
	}
}

func TestMemoryPingError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("connection refused")

	m.SetPingError(boom)

	if err := m.Ping(ctx); !errors.Is(err, boom) {
		t.Errorf("Ping() = %v", err)
	}

	if err := m.InsertSensor(ctx, SensorRecord{}); err == nil {
		t.Error("InsertSensor succeeded on a failing store")
	}

	m.SetPingError(nil)

	if err := m.InsertSensor(ctx, SensorRecord{Timestamp: time.Now()}); err != nil {
		t.Errorf("InsertSensor() = %v", err)
	}

	if len(m.Sensor()) != 1 {
		t.Errorf("Sensor() = %+v", m.Sensor())
	}
}
