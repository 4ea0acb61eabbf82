// Package telemetry turns robot messages into state updates and stored records.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"robot-bridge/backend/internal/robot"
	"robot-bridge/backend/internal/store"
	"robot-bridge/backend/pkg/utils"
)

var (
	ErrUnknownTopic = errors.New("unknown telemetry topic")
	ErrEmptyMessage = errors.New("message has no known field")
)

const defaultWriteTimeout = 5 * time.Second

// Kind names the collection a message is written to.
type Kind string

const (
	KindTelemetry Kind = "telemetry"
	KindSensor    Kind = "sensor"
)

// Topics maps inbound topics to message kinds.
type Topics struct {
	Status string
	Data   string
}

// Result describes what Route did with an accepted message.
type Result struct {
	Kind     Kind
	Snapshot robot.Snapshot
	Stored   bool
}

type Router struct {
	state        *robot.State
	store        store.DocumentStore
	topics       Topics
	l            *slog.Logger
	now          func() time.Time
	writeTimeout time.Duration
}

// NewRouter creates a router. st may be nil, in which case records are not written.
func NewRouter(l *slog.Logger, state *robot.State, st store.DocumentStore, topics Topics) *Router {
	return &Router{
		state:        state,
		store:        st,
		topics:       topics,
		l:            l.With(slog.String("component", "telemetry-router")),
		now:          time.Now,
		writeTimeout: defaultWriteTimeout,
	}
}

// Route decodes payload according to topic, updates the state and writes exactly one record.
// A rejected message returns an error and leaves both the state and the store untouched.
func (r *Router) Route(ctx context.Context, topic string, payload []byte) (Result, error) {
	switch topic {
	case r.topics.Status:
		return r.routeStatus(ctx, payload)
	case r.topics.Data:
		return r.routeData(ctx, payload)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
}

func (r *Router) routeStatus(ctx context.Context, payload []byte) (Result, error) {
	msg, err := utils.FromJSONLenient[StatusMessage](payload)
	if err != nil {
		return Result{}, fmt.Errorf("invalid status message: %w", err)
	}

	update, err := msg.statusUpdate()
	if err != nil {
		return Result{}, fmt.Errorf("invalid status message: %w", err)
	}

	raw, err := utils.FromJSON[map[string]any](payload)
	if err != nil {
		return Result{}, fmt.Errorf("invalid status message: %w", err)
	}

	snap := r.state.ApplyStatus(update)

	rec := store.TelemetryRecord{
		Timestamp: r.now().UTC(),
		Speed:     snap.Speed,
		Mode:      string(snap.Mode),
		Direction: snap.LastCommand,
		Gas:       msg.Gas,
		Angle:     msg.Angle,
		Duration:  msg.Duration,
		Raw:       raw,
	}

	stored := r.write(ctx, KindTelemetry, func(ctx context.Context, st store.DocumentStore) error {
		return st.InsertTelemetry(ctx, rec)
	})

	return Result{Kind: KindTelemetry, Snapshot: snap, Stored: stored}, nil
}

func (r *Router) routeData(ctx context.Context, payload []byte) (Result, error) {
	msg, err := utils.FromJSONLenient[DataMessage](payload)
	if err != nil {
		return Result{}, fmt.Errorf("invalid data message: %w", err)
	}

	update, err := msg.sensorUpdate()
	if err != nil {
		return Result{}, fmt.Errorf("invalid data message: %w", err)
	}

	raw, err := utils.FromJSON[map[string]any](payload)
	if err != nil {
		return Result{}, fmt.Errorf("invalid data message: %w", err)
	}

	snap := r.state.ApplySensor(update)

	rec := store.SensorRecord{
		Timestamp: r.now().UTC(),
		Gas:       update.Gas,
		RPM:       update.RPM[:],
		Raw:       raw,
	}

	stored := r.write(ctx, KindSensor, func(ctx context.Context, st store.DocumentStore) error {
		return st.InsertSensor(ctx, rec)
	})

	return Result{Kind: KindSensor, Snapshot: snap, Stored: stored}, nil
}

// write runs insert with a bounded timeout. Failures are logged and not retried.
func (r *Router) write(ctx context.Context, kind Kind, insert func(context.Context, store.DocumentStore) error) bool {
	if r.store == nil {
		r.l.Warn("Store unavailable, record not written", slog.String("kind", string(kind)))

		return false
	}

	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if err := insert(ctx, r.store); err != nil {
		r.l.Error("Failed to write record", slog.String("kind", string(kind)), utils.ErrAttr(err))

		return false
	}

	return true
}
