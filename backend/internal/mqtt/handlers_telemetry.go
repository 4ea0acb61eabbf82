package mqtt

import (
	"context"
	"errors"
	"log/slog"

	paho "github.com/eclipse/paho.mqtt.golang"

	"robot-bridge/backend/internal/mqtt/types"
	"robot-bridge/backend/internal/telemetry"
	"robot-bridge/backend/pkg/mqtt"
	"robot-bridge/backend/pkg/utils"
)

// RegisterStatusSubscribe registers the robot status subscription.
func (h *Handler) RegisterStatusSubscribe(mb *mqtt.MQTTBuilder) {
	mb.MustRegisterSubscribe(h.topics.Status, mqtt.SubscriptionSpec{
		OperationID: types.OpReceiveStatus,
		Summary:     "Receive robot status",
		Description: "Speed, mode, direction and gas reported by the robot. Every message is stored as a telemetry record, unrecognised keys are kept in its raw payload.",
		Group:       "Telemetry",
		MessageType: telemetry.StatusMessage{Speed: utils.Ptr(120), Mode: utils.Ptr("MANUAL")},
		Handler:     h.handleMessage,
		QoS:         mqtt.QoSAtMostOnce,
		Examples: map[string]any{
			"status":   telemetry.StatusMessage{Speed: utils.Ptr(120), Mode: utils.Ptr("MANUAL"), Direction: utils.Ptr("F"), Gas: utils.Ptr(300)},
			"obstacle": telemetry.StatusMessage{Mode: utils.Ptr("AUTO"), Angle: utils.Ptr(90), Duration: utils.Ptr(600)},
		},
	})
}

// RegisterDataSubscribe registers the sensor data subscription.
func (h *Handler) RegisterDataSubscribe(mb *mqtt.MQTTBuilder) {
	mb.MustRegisterSubscribe(h.topics.Data, mqtt.SubscriptionSpec{
		OperationID: types.OpReceiveData,
		Summary:     "Receive sensor data",
		Description: "Gas level and wheel RPM readings. Every message is stored as a sensor record.",
		Group:       "Telemetry",
		MessageType: telemetry.DataMessage{Gas: utils.Ptr(310), RPM1: utils.Ptr(88)},
		Handler:     h.handleMessage,
		QoS:         mqtt.QoSAtMostOnce,
		Examples: map[string]any{
			"rpm": telemetry.DataMessage{
				Gas: utils.Ptr(310), RPM1: utils.Ptr(88), RPM2: utils.Ptr(90), RPM3: utils.Ptr(87), RPM4: utils.Ptr(91),
			},
			"legacy": telemetry.DataMessage{S1: utils.Ptr(88), S2: utils.Ptr(90), S3: utils.Ptr(87), S4: utils.Ptr(91)},
		},
	})
}

// handleMessage runs on the paho router goroutine; bad messages are logged and dropped.
func (h *Handler) handleMessage(_ paho.Client, msg paho.Message) {
	h.route(context.Background(), msg.Topic(), msg.Payload())
}

func (h *Handler) route(ctx context.Context, topic string, payload []byte) {
	res, err := h.router.Route(ctx, topic, payload)

	switch {
	case errors.Is(err, telemetry.ErrUnknownTopic):
		h.l.Warn("Ignoring message on unknown topic", slog.String("topic", topic))
	case err != nil:
		h.l.Warn("Dropped invalid message", slog.String("topic", topic), slog.Int("size", len(payload)), utils.ErrAttr(err))
	default:
		h.l.Debug("Routed message",
			slog.String("topic", topic),
			slog.String("kind", string(res.Kind)),
			slog.Bool("stored", res.Stored))
	}
}
