// Package services holds the business logic behind the HTTP and MQTT handlers.
package services

import (
	"log/slog"

	"robot-bridge/backend/internal/config"
	"robot-bridge/backend/internal/robot"
	"robot-bridge/backend/internal/store"
)

// Publisher sends messages to the robot. *mqtt.MQTTClient satisfies it.
type Publisher interface {
	Publish(operationID string, topic string, payload any) error
	PublishRaw(operationID string, topic string, payload string) error
	IsConnected() bool
}

type Services struct {
	l         *slog.Logger
	Control   *ControlService
	History   *HistoryService
	Health    *HealthService
	Readiness *Readiness
	Sessions  *SessionService // nil when the session gate is disabled
}

// NewServices wires the services. st may be nil when no store is reachable.
func NewServices(l *slog.Logger, c *config.Config, state *robot.State, st store.DocumentStore, pub Publisher) (*Services, error) {
	l = l.With(slog.String("module", "services"))

	s := &Services{
		l:         l,
		Control:   NewControlService(l, state, pub, c.Topics),
		History:   NewHistoryService(l, st, c.HistoryDefaultLimit, c.HistoryMaxLimit),
		Health:    NewHealthService(l, st, pub, c.StoreDriver),
		Readiness: &Readiness{},
	}

	if c.AuthEnabled() {
		sessions, err := NewSessionService(l, c.AuthUsername, c.AuthPassword, c.SessionSecret)
		if err != nil {
			return nil, err
		}

		s.Sessions = sessions
	}

	return s, nil
}
