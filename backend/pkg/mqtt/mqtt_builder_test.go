package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"robot-bridge/backend/pkg/generate"
)

type commandMessage struct {
	Cmd string `json:"cmd"`
	Spd int    `json:"spd"`
}

func newTestBuilder(t *testing.T) *MQTTBuilder {
	t.Helper()

	mb, err := NewMQTTBuilder(slog.New(slog.NewTextHandler(os.Stderr, nil)), &generate.NoopCollector{}, MQTTClientOptions{
		BrokerURL: "tcp://127.0.0.1:1",
		ClientID:  "robot-bridge-test",
	})
	if err != nil {
		t.Fatalf("NewMQTTBuilder() error = %v", err)
	}

	return mb
}

func commandSpec(id string) PublicationSpec {
	return PublicationSpec{
		OperationID: id,
		Summary:     "Drive command",
		Description: "Direction letter and speed for the motor controller",
		Group:       "Control",
		MessageType: commandMessage{},
	}
}

func TestRegisterPublishRejectsDuplicates(t *testing.T) {
	t.Parallel()

	mb := newTestBuilder(t)

	if err := mb.RegisterPublish("robot/command/set", commandSpec("publishCommand")); err != nil {
		t.Fatalf("RegisterPublish() error = %v", err)
	}

	if err := mb.RegisterPublish("robot/command/other", commandSpec("publishCommand")); err == nil {
		t.Error("duplicate operationID accepted")
	}

	if got := mb.publications["publishCommand"].TopicMQTT; got != "robot/command/set" {
		t.Errorf("TopicMQTT = %q", got)
	}
}

func TestRegisterSubscribeRequiresHandler(t *testing.T) {
	t.Parallel()

	mb := newTestBuilder(t)

	spec := SubscriptionSpec{
		OperationID: "receiveStatus",
		Summary:     "Status",
		Description: "Robot status",
		Group:       "Telemetry",
		MessageType: map[string]any{},
	}

	if err := mb.RegisterSubscribe("robot/telemetry/status", spec); err == nil {
		t.Error("subscription without handler accepted")
	}

	spec.Handler = func(paho.Client, paho.Message) {}

	if err := mb.RegisterSubscribe("robot/telemetry/status", spec); err != nil {
		t.Errorf("RegisterSubscribe() error = %v", err)
	}
}

func TestPublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	mb := newTestBuilder(t)
	mb.MustRegisterPublish("robot/command/set", commandSpec("publishCommand"))

	err := mb.Client().Publish("publishCommand", "robot/command/set", commandMessage{Cmd: "F", Spd: 100})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}

	if err := mb.Client().Publish("unknown", "robot/command/set", nil); err == nil {
		t.Error("publish with unknown operationID accepted")
	}

	if mb.Client().IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
}

func TestNewMQTTBuilderValidation(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tests := []MQTTClientOptions{
		{ClientID: "x"},
		{BrokerURL: "tcp://127.0.0.1:1883"},
		{BrokerURL: "http://127.0.0.1:1883", ClientID: "x"},
	}

	for _, opts := range tests {
		if _, err := NewMQTTBuilder(l, &generate.NoopCollector{}, opts); err == nil {
			t.Errorf("NewMQTTBuilder(%+v) expected error", opts)
		}
	}
}

type disconnectRecorder struct {
	paho.Client
	calls atomic.Int32
}

func (d *disconnectRecorder) Disconnect(quiesce uint) {
	d.calls.Add(1)
	d.Client.Disconnect(quiesce)
}

func TestDisconnectStopsPendingConnect(t *testing.T) {
	t.Parallel()

	mb := newTestBuilder(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := mb.Connect(ctx); err == nil {
		t.Fatal("Connect() to a closed port succeeded")
	}

	rec := &disconnectRecorder{Client: mb.client}
	mb.client = rec

	mb.Disconnect()

	if got := rec.calls.Load(); got != 1 {
		t.Errorf("paho Disconnect called %d times, want 1", got)
	}

	if mb.client.IsConnectionOpen() || mb.Client().IsConnected() {
		t.Error("client still connected after Disconnect")
	}
}
