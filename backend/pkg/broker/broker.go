// Package broker runs an embedded MQTT broker for local development and tests.
package broker

import (
	"errors"
	"fmt"
	"log/slog"

	mqttbroker "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// Broker wraps a mochi server with a single TCP listener that accepts every client.
type Broker struct {
	l      *slog.Logger
	addr   string
	server *mqttbroker.Server
}

// New creates a broker listening on addr, e.g. ":1883". It does not accept connections until Start.
func New(l *slog.Logger, addr string) (*Broker, error) {
	if addr == "" {
		return nil, errors.New("listen address is required")
	}

	l = l.With(slog.String("component", "mqtt-broker"))

	server := mqttbroker.New(&mqttbroker.Options{
		Logger: l,
	})

	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("failed to add listener on %s: %w", addr, err)
	}

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("failed to add auth hook: %w", err)
	}

	return &Broker{l: l, addr: addr, server: server}, nil
}

// Start begins serving. Listener errors surface here.
func (b *Broker) Start() error {
	b.l.Info("MQTT broker listening", slog.String("address", b.addr))

	if err := b.server.Serve(); err != nil {
		return fmt.Errorf("failed to start MQTT broker: %w", err)
	}

	return nil
}

// Addr returns the configured listen address.
func (b *Broker) Addr() string {
	return b.addr
}

// Close disconnects all clients and stops the listeners.
func (b *Broker) Close() error {
	b.l.Info("MQTT broker shutting down...")

	return b.server.Close()
}
