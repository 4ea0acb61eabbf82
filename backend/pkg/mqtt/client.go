package mqtt

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"robot-bridge/backend/pkg/utils"
)

// ErrNotConnected is returned by publishes attempted while the broker connection is down.
var ErrNotConnected = errors.New("not connected to MQTT broker")

const ackTimeout = 5 * time.Second

// MQTTClient publishes registered operations.
type MQTTClient struct {
	client  paho.Client
	builder *MQTTBuilder
}

// Publish JSON-encodes payload and sends it using the publication registered under operationID.
// At QoS 0 it returns as soon as the message is handed to paho.
func (c *MQTTClient) Publish(operationID string, actualTopic string, payload any) error {
	bytes, err := utils.ToJSON(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	return c.publish(operationID, actualTopic, bytes)
}

// PublishRaw sends payload unmodified, for topics that carry plain strings.
func (c *MQTTClient) PublishRaw(operationID string, actualTopic string, payload string) error {
	return c.publish(operationID, actualTopic, []byte(payload))
}

// IsConnected reports whether the broker connection is currently up.
func (c *MQTTClient) IsConnected() bool {
	return c.builder.connected.Load()
}

func (c *MQTTClient) publish(operationID, topic string, payload []byte) error {
	pub, ok := c.builder.publications[operationID]
	if !ok {
		return fmt.Errorf("publication not found for operationID %s", operationID)
	}

	if !c.IsConnected() {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, ErrNotConnected)
	}

	token := c.client.Publish(topic, byte(pub.QoS), pub.Retained, payload)

	if pub.QoS == QoSAtMostOnce {
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
			}
		default:
		}

		return nil
	}

	if !token.WaitTimeout(ackTimeout) {
		return fmt.Errorf("timed out publishing to topic %s", topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	return nil
}
