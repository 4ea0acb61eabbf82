// Package api holds the HTTP handlers of the control surface.
package api

import (
	"log/slog"
	"net/http"

	"robot-bridge/backend/internal/services"
	"robot-bridge/web"
)

const (
	CoreGroup      = "Core"
	ControlGroup   = "Control"
	TelemetryGroup = "Telemetry"
	AuthGroup      = "Auth"
)

// Handler represents the API handler.
type Handler struct {
	l     *slog.Logger
	svc   *services.Services
	pages *web.Pages
	live  http.Handler
}

// NewHandler creates a new API handler. live serves the websocket feed.
func NewHandler(l *slog.Logger, svc *services.Services, pages *web.Pages, live http.Handler) *Handler {
	return &Handler{
		l:     l.With(slog.String("component", "api")),
		svc:   svc,
		pages: pages,
		live:  live,
	}
}
