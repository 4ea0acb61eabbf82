package mqtt

import (
	paho "github.com/eclipse/paho.mqtt.golang"
)

// QoS represents MQTT quality of service levels.
type QoS byte

const (
	// QoSAtMostOnce is fire and forget. Every operation in this service uses it.
	QoSAtMostOnce QoS = 0
	// QoSAtLeastOnce means the message is always delivered at least once.
	QoSAtLeastOnce QoS = 1
	// QoSExactlyOnce means the message is always delivered exactly once.
	QoSExactlyOnce QoS = 2
)

// TopicParameter describes a parameter in an MQTT topic pattern.
type TopicParameter struct {
	Name        string // e.g. "robotID"
	Description string
	Type        any // e.g. new(string)
}

// PublicationSpec describes a message this service publishes.
type PublicationSpec struct {
	OperationID     string           // unique across HTTP and MQTT, e.g. "publishCommand"
	TopicMQTT       string           // wildcard form, filled in on registration
	Summary         string
	Description     string
	Group           string           // e.g. "Control"
	Deprecated      string           // optional deprecation message
	TopicParameters []TopicParameter
	MessageType     any              // Go type of the payload; a string for raw payloads
	QoS             QoS
	Retained        bool
	Examples        map[string]any
}

// SubscriptionSpec describes a message this service consumes.
type SubscriptionSpec struct {
	OperationID     string              // unique across HTTP and MQTT, e.g. "receiveStatus"
	TopicMQTT       string              // wildcard form, filled in on registration
	Summary         string
	Description     string
	Group           string              // e.g. "Telemetry"
	Deprecated      string              // optional deprecation message
	TopicParameters []TopicParameter
	MessageType     any                 // expected Go type of inbound payloads
	Handler         paho.MessageHandler // invoked on the paho router goroutine
	QoS             QoS
	Examples        map[string]any
}
