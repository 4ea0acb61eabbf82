package types

import (
	"time"

	"robot-bridge/backend/internal/store"
)

// CommandRequest sends a direction command.
type CommandRequest struct {
	// Single direction letter, e.g. F, B, L, R. Defaults to S (stop)
	Command string `json:"command,omitempty"`
}

// CommandResponse confirms a command.
type CommandResponse struct {
	// Always "OK"
	Status string `json:"status"`
	// Human readable confirmation, e.g. "Published F"
	Message string `json:"message"`
	// Current driving mode
	Mode string `json:"mode"`
	// Speed sent along with the command
	Speed int `json:"speed"`
	// False when the command could not be handed to the broker
	Published bool `json:"published"`
}

// SpeedResponse confirms a speed change.
type SpeedResponse struct {
	Status    string `json:"status"`
	Speed     int    `json:"speed"`
	Mode      string `json:"mode"`
	Published bool   `json:"published"`
}

// ModeResponse confirms a mode toggle.
type ModeResponse struct {
	Status string `json:"status"`
	// The new mode, MANUAL or AUTO
	Mode      string `json:"mode"`
	Published bool   `json:"published"`
}

// StatusResponse is the mirrored robot state.
type StatusResponse struct {
	Status      string `json:"status"`
	Speed       int    `json:"speed"`
	Mode        string `json:"mode"`
	LastCommand string `json:"lastCommand"`
	// Last gas reading, absent until the robot reported one
	Gas *int `json:"gas,omitempty"`
	// Last wheel RPM readings, absent until the robot reported them
	RPM       []int     `json:"rpm,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HistoryResponse lists stored records, newest first. Only the list of the requested kind is set.
type HistoryResponse struct {
	Status    string                  `json:"status"`
	Kind      string                  `json:"kind"`
	Count     int                     `json:"count"`
	Telemetry []store.TelemetryRecord `json:"telemetry,omitempty"`
	Sensor    []store.SensorRecord    `json:"sensor,omitempty"`
}

// HealthResponse reports the connectivity of the dependencies. It is always served with 200.
type HealthResponse struct {
	Status string `json:"status"`
	// Record store connectivity, "connected" or "disconnected"
	Mongo string `json:"mongo"`
	// Broker connectivity, "connected" or "disconnected"
	MQTT string `json:"mqtt"`
	// Configured store driver
	Store string `json:"store"`
}

// ReadyResponse is returned once startup has finished.
type ReadyResponse struct {
	Status string `json:"status"`
}

// LoginRequest carries the configured credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse confirms a login or logout. The session travels in a cookie.
type LoginResponse struct {
	Status string `json:"status"`
}
