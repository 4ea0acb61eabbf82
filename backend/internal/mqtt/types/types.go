package types

// Operation ids of the MQTT messages this service publishes and consumes.
const (
	OpPublishCommand    = "publishCommand"
	OpPublishModeStatus = "publishModeStatus"
	OpReceiveStatus     = "receiveStatus"
	OpReceiveData       = "receiveData"
)

// CommandMessage drives the motors.
type CommandMessage struct {
	// Cmd is a single direction letter, S stops the robot
	Cmd string `json:"cmd"`
	// Spd is the PWM duty, 0-255
	Spd int `json:"spd"`
}

// ModeStatus is sent as a bare string, "MANUAL" or "AUTO".
type ModeStatus string
