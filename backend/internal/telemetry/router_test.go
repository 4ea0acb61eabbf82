package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"robot-bridge/backend/internal/robot"
	"robot-bridge/backend/internal/store"
	"robot-bridge/backend/pkg/utils"
)

var testTopics = Topics{Status: "robot/telemetry/status", Data: "robot/telemetry/data"}

func newTestRouter(st store.DocumentStore) (*Router, *robot.State) {
	state := robot.NewState()
	r := NewRouter(slog.New(slog.NewTextHandler(os.Stderr, nil)), state, st, testTopics)
	r.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

	return r, state
}

func TestStatusMessageUpdatesStateAndStoresOneRecord(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	r, state := newTestRouter(mem)

	res, err := r.Route(context.Background(), testTopics.Status, []byte(`{"speed":77,"mode":"AUTO"}`))
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	if res.Kind != KindTelemetry || !res.Stored {
		t.Errorf("Result = %+v", res)
	}

	snap := state.Snapshot()
	if snap.Speed != 77 || snap.Mode != robot.ModeAuto {
		t.Errorf("state = %+v", snap)
	}

	recs := mem.Telemetry()
	if len(recs) != 1 {
		t.Fatalf("stored %d telemetry records, want 1", len(recs))
	}

	rec := recs[0]
	if rec.Speed != 77 || rec.Mode != "AUTO" || rec.Direction != "S" {
		t.Errorf("record = %+v", rec)
	}

	if rec.Raw["speed"] != float64(77) || rec.Raw["mode"] != "AUTO" {
		t.Errorf("raw = %v", rec.Raw)
	}

	if len(mem.Sensor()) != 0 {
		t.Error("status message wrote a sensor record")
	}
}

func TestStatusDefaultsFromState(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	r, state := newTestRouter(mem)

	_ = state.SetSpeed(120)
	state.SetLastCommand("L")

	if _, err := r.Route(context.Background(), testTopics.Status, []byte(`{"angle":30,"duration":800}`)); err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	rec := mem.Telemetry()[0]
	if rec.Speed != 120 || rec.Mode != "MANUAL" || rec.Direction != "L" {
		t.Errorf("record = %+v", rec)
	}

	if rec.Angle == nil || *rec.Angle != 30 || rec.Duration == nil || *rec.Duration != 800 {
		t.Errorf("angle/duration = %v/%v", rec.Angle, rec.Duration)
	}
}

func TestRejectedMessagesChangeNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{name: "invalid json", topic: testTopics.Status, payload: `{"speed":`},
		{name: "not an object", topic: testTopics.Status, payload: `[1,2]`},
		{name: "trailing data", topic: testTopics.Status, payload: `{"speed":1} {"speed":2}`},
		{name: "only unknown fields", topic: testTopics.Status, payload: `{"turbo":true}`, wantErr: ErrEmptyMessage},
		{name: "empty object", topic: testTopics.Status, payload: `{}`, wantErr: ErrEmptyMessage},
		{name: "empty payload", topic: testTopics.Status, payload: ``, wantErr: ErrEmptyMessage},
		{name: "speed above range", topic: testTopics.Status, payload: `{"speed":300}`, wantErr: robot.ErrSpeedOutOfRange},
		{name: "negative speed", topic: testTopics.Status, payload: `{"speed":-5}`, wantErr: robot.ErrSpeedOutOfRange},
		{name: "fractional speed", topic: testTopics.Status, payload: `{"speed":7.5}`},
		{name: "bad mode", topic: testTopics.Status, payload: `{"mode":"TURBO"}`, wantErr: robot.ErrInvalidMode},
		{name: "bad direction", topic: testTopics.Status, payload: `{"direction":"FW"}`, wantErr: robot.ErrInvalidCommand},
		{name: "data without readings", topic: testTopics.Data, payload: `{}`, wantErr: ErrEmptyMessage},
		{name: "speed on data topic", topic: testTopics.Data, payload: `{"speed":10}`, wantErr: ErrEmptyMessage},
		{name: "extra field with bad speed", topic: testTopics.Status, payload: `{"speed":300,"distance":12}`, wantErr: robot.ErrSpeedOutOfRange},
		{name: "unknown topic", topic: "robot/other", payload: `{"speed":10}`, wantErr: ErrUnknownTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mem := store.NewMemory()
			r, state := newTestRouter(mem)
			before := state.Snapshot()

			_, err := r.Route(context.Background(), tt.topic, []byte(tt.payload))
			if err == nil {
				t.Fatal("Route() accepted the message")
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Route() error = %v, want %v", err, tt.wantErr)
			}

			if after := state.Snapshot(); after.Speed != before.Speed || after.Mode != before.Mode || after.LastCommand != before.LastCommand || after.Gas != nil {
				t.Errorf("state changed: %+v -> %+v", before, after)
			}

			if len(mem.Telemetry())+len(mem.Sensor()) != 0 {
				t.Error("rejected message was stored")
			}
		})
	}
}

func TestStatusMessageWithGasAndExtraFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantGas *int
	}{
		{name: "gas", payload: `{"speed":77,"mode":"AUTO","gas":300}`, wantGas: utils.Ptr(300)},
		{name: "firmware extra field", payload: `{"speed":77,"mode":"AUTO","distance":12}`},
		{name: "gas and extra field", payload: `{"speed":77,"mode":"AUTO","gas":41,"battery":7.4}`, wantGas: utils.Ptr(41)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mem := store.NewMemory()
			r, state := newTestRouter(mem)

			if _, err := r.Route(context.Background(), testTopics.Status, []byte(tt.payload)); err != nil {
				t.Fatalf("Route() error = %v", err)
			}

			snap := state.Snapshot()
			if snap.Speed != 77 || snap.Mode != robot.ModeAuto {
				t.Errorf("state = %+v", snap)
			}

			if !equalIntPtr(snap.Gas, tt.wantGas) {
				t.Errorf("state gas = %v, want %v", snap.Gas, tt.wantGas)
			}

			recs := mem.Telemetry()
			if len(recs) != 1 {
				t.Fatalf("stored %d telemetry records, want 1", len(recs))
			}

			if recs[0].Speed != 77 || recs[0].Mode != "AUTO" || !equalIntPtr(recs[0].Gas, tt.wantGas) {
				t.Errorf("record = %+v", recs[0])
			}

			want, err := utils.FromJSON[map[string]any]([]byte(tt.payload))
			if err != nil {
				t.Fatal(err)
			}

			for k, v := range want {
				if recs[0].Raw[k] != v {
					t.Errorf("raw[%s] = %v, want %v", k, recs[0].Raw[k], v)
				}
			}

			if len(mem.Sensor()) != 0 {
				t.Error("status message wrote a sensor record")
			}
		})
	}
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

func TestDataMessageWritesSensorRecord(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	r, state := newTestRouter(mem)

	res, err := r.Route(context.Background(), testTopics.Data, []byte(`{"gas":415,"s1":100,"s2":101,"rpm2":150,"s4":99}`))
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	if res.Kind != KindSensor || !res.Stored {
		t.Errorf("Result = %+v", res)
	}

	recs := mem.Sensor()
	if len(recs) != 1 {
		t.Fatalf("stored %d sensor records, want 1", len(recs))
	}

	rec := recs[0]
	if rec.Gas == nil || *rec.Gas != 415 {
		t.Errorf("gas = %v", rec.Gas)
	}

	if *rec.RPM[0] != 100 || *rec.RPM[1] != 150 || rec.RPM[2] != nil || *rec.RPM[3] != 99 {
		t.Errorf("rpm = %v", rec.RPM)
	}

	snap := state.Snapshot()
	if snap.Gas == nil || *snap.Gas != 415 || snap.RPM[1] != 150 {
		t.Errorf("state = %+v", snap)
	}

	if len(mem.Telemetry()) != 0 {
		t.Error("data message wrote a telemetry record")
	}
}

func TestRouteWithoutStore(t *testing.T) {
	t.Parallel()

	r, state := newTestRouter(nil)

	res, err := r.Route(context.Background(), testTopics.Status, []byte(`{"speed":5}`))
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	if res.Stored {
		t.Error("Stored = true without a store")
	}

	if state.Snapshot().Speed != 5 {
		t.Error("state not updated without a store")
	}
}

func TestRouteStoreFailureStillUpdatesState(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	mem.SetPingError(store.ErrUnavailable)

	r, state := newTestRouter(mem)

	res, err := r.Route(context.Background(), testTopics.Status, []byte(`{"mode":"AUTO"}`))
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	if res.Stored || state.Snapshot().Mode != robot.ModeAuto {
		t.Errorf("Result = %+v, mode = %s", res, state.Snapshot().Mode)
	}
}
