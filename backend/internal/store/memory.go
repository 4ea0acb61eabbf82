package store

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process DocumentStore. It backs STORE_DRIVER=memory and the tests of the
// packages that write records.
type Memory struct {
	mu        sync.Mutex
	telemetry []TelemetryRecord
	sensor    []SensorRecord
	pingErr   error
}

func NewMemory() *Memory {
	return &Memory{}
}

// SetPingError makes Ping (and every other call) fail with err, or recover with nil.
func (m *Memory) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pingErr = err
}

func (m *Memory) InsertTelemetry(_ context.Context, rec TelemetryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pingErr != nil {
		return m.pingErr
	}

	m.telemetry = append(m.telemetry, rec)

	return nil
}

func (m *Memory) InsertSensor(_ context.Context, rec SensorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pingErr != nil {
		return m.pingErr
	}

	m.sensor = append(m.sensor, rec)

	return nil
}

func (m *Memory) FindTelemetry(_ context.Context, q Query) ([]TelemetryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pingErr != nil {
		return nil, m.pingErr
	}

	return find(m.telemetry, q, telemetryTime), nil
}

func (m *Memory) FindSensor(_ context.Context, q Query) ([]SensorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pingErr != nil {
		return nil, m.pingErr
	}

	return find(m.sensor, q, sensorTime), nil
}

func (m *Memory) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pingErr
}

func (m *Memory) Close(context.Context) error { return nil }

// Telemetry returns every stored telemetry record in insertion order.
func (m *Memory) Telemetry() []TelemetryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.telemetry)
}

// Sensor returns every stored sensor record in insertion order.
func (m *Memory) Sensor() []SensorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.sensor)
}
