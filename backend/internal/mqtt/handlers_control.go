package mqtt

import (
	"robot-bridge/backend/internal/mqtt/types"
	"robot-bridge/backend/pkg/mqtt"
)

// RegisterCommandPublish registers the motor command publication.
func (h *Handler) RegisterCommandPublish(mb *mqtt.MQTTBuilder) {
	mb.MustRegisterPublish(h.topics.Command, mqtt.PublicationSpec{
		OperationID: types.OpPublishCommand,
		Summary:     "Publish motor command",
		Description: "Sends a direction letter and a PWM speed to the motor controller. S stops the motors.",
		Group:       "Control",
		MessageType: types.CommandMessage{Cmd: "F", Spd: 150},
		QoS:         mqtt.QoSAtMostOnce,
		Examples: map[string]any{
			"forward": types.CommandMessage{Cmd: "F", Spd: 150},
			"stop":    types.CommandMessage{Cmd: "S", Spd: 0},
		},
	})
}

// RegisterModeStatusPublish registers the mode announcement, a bare MANUAL or AUTO string.
func (h *Handler) RegisterModeStatusPublish(mb *mqtt.MQTTBuilder) {
	mb.MustRegisterPublish(h.topics.Mode, mqtt.PublicationSpec{
		OperationID: types.OpPublishModeStatus,
		Summary:     "Publish driving mode",
		Description: "Announces the driving mode after it was toggled from the control UI.",
		Group:       "Control",
		MessageType: types.ModeStatus("AUTO"),
		QoS:         mqtt.QoSAtMostOnce,
		Examples: map[string]any{
			"manual": types.ModeStatus("MANUAL"),
			"auto":   types.ModeStatus("AUTO"),
		},
	})
}
