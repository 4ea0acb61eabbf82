// Package mqtt registers the MQTT operations of the bridge: the commands it sends to the
// robot and the telemetry it receives back.
package mqtt

import (
	"log/slog"

	"robot-bridge/backend/internal/config"
	"robot-bridge/backend/internal/telemetry"
	"robot-bridge/backend/pkg/mqtt"
)

// Handler handles MQTT message processing.
type Handler struct {
	l      *slog.Logger
	router *telemetry.Router
	topics config.Topics
}

// NewMQTTHandler creates a new MQTT handler.
func NewMQTTHandler(l *slog.Logger, router *telemetry.Router, topics config.Topics) *Handler {
	return &Handler{
		l:      l.With(slog.String("component", "mqtt-handler")),
		router: router,
		topics: topics,
	}
}

// RegisterAll registers every publication and subscription on mb.
func (h *Handler) RegisterAll(mb *mqtt.MQTTBuilder) {
	h.RegisterCommandPublish(mb)
	h.RegisterModeStatusPublish(mb)
	h.RegisterStatusSubscribe(mb)
	h.RegisterDataSubscribe(mb)
}
