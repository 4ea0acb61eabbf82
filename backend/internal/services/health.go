package services

import (
	"context"
	"log/slog"
	"time"

	"robot-bridge/backend/internal/config"
	"robot-bridge/backend/internal/store"
	"robot-bridge/backend/pkg/utils"
)

const pingTimeout = 2 * time.Second

type ConnectionStatus string

const (
	Connected    ConnectionStatus = "connected"
	Disconnected ConnectionStatus = "disconnected"
)

type HealthStatus struct {
	Store       ConnectionStatus
	StoreDriver config.StoreDriver
	MQTT        ConnectionStatus
}

type HealthService struct {
	l      *slog.Logger
	store  store.DocumentStore
	pub    Publisher
	driver config.StoreDriver
}

func NewHealthService(l *slog.Logger, st store.DocumentStore, pub Publisher, driver config.StoreDriver) *HealthService {
	return &HealthService{
		l:      l.With(slog.String("service", "health")),
		store:  st,
		pub:    pub,
		driver: driver,
	}
}

// Health pings the store and checks the MQTT connection. It never fails.
func (s *HealthService) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{Store: Disconnected, StoreDriver: s.driver, MQTT: Disconnected}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			s.l.Warn("Store ping failed", utils.ErrAttr(err))
		} else {
			status.Store = Connected
		}
	}

	if s.pub != nil && s.pub.IsConnected() {
		status.MQTT = Connected
	}

	return status
}
