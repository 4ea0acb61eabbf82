package telemetry

import (
	"robot-bridge/backend/internal/robot"
)

// StatusMessage is published by the robot on the status topic. Every field is optional
// but at least one must be present. Other keys are kept only in the record's raw payload.
type StatusMessage struct {
	Speed     *int    `json:"speed,omitempty"`
	Mode      *string `json:"mode,omitempty"`
	Direction *string `json:"direction,omitempty"`
	Gas       *int    `json:"gas,omitempty"`
	Angle     *int    `json:"angle,omitempty"`    // obstacle avoidance turn angle
	Duration  *int    `json:"duration,omitempty"` // obstacle avoidance manoeuvre, ms
}

// DataMessage is published by the robot on the data topic. Older firmware names the
// wheel readings s1..s4, newer firmware rpm1..rpm4; rpmN wins when both are sent.
type DataMessage struct {
	Gas  *int `json:"gas,omitempty"`
	RPM1 *int `json:"rpm1,omitempty"`
	RPM2 *int `json:"rpm2,omitempty"`
	RPM3 *int `json:"rpm3,omitempty"`
	RPM4 *int `json:"rpm4,omitempty"`
	S1   *int `json:"s1,omitempty"`
	S2   *int `json:"s2,omitempty"`
	S3   *int `json:"s3,omitempty"`
	S4   *int `json:"s4,omitempty"`
}

// statusUpdate validates m and converts it to a state update.
func (m StatusMessage) statusUpdate() (robot.StatusUpdate, error) {
	if m.Speed == nil && m.Mode == nil && m.Direction == nil && m.Gas == nil && m.Angle == nil && m.Duration == nil {
		return robot.StatusUpdate{}, ErrEmptyMessage
	}

	u := robot.StatusUpdate{Gas: m.Gas}

	if m.Speed != nil {
		if err := robot.ValidateSpeed(*m.Speed); err != nil {
			return robot.StatusUpdate{}, err
		}

		u.Speed = m.Speed
	}

	if m.Mode != nil {
		mode, err := robot.ParseMode(*m.Mode)
		if err != nil {
			return robot.StatusUpdate{}, err
		}

		u.Mode = &mode
	}

	if m.Direction != nil {
		if _, err := robot.ParseCommand(*m.Direction); err != nil || *m.Direction == "" {
			return robot.StatusUpdate{}, robot.ErrInvalidCommand
		}

		u.Direction = m.Direction
	}

	return u, nil
}

// wheels returns the four wheel readings, preferring rpmN over sN.
func (m DataMessage) wheels() [robot.WheelCount]*int {
	pick := func(rpm, s *int) *int {
		if rpm != nil {
			return rpm
		}

		return s
	}

	return [robot.WheelCount]*int{pick(m.RPM1, m.S1), pick(m.RPM2, m.S2), pick(m.RPM3, m.S3), pick(m.RPM4, m.S4)}
}

func (m DataMessage) sensorUpdate() (robot.SensorUpdate, error) {
	u := robot.SensorUpdate{Gas: m.Gas, RPM: m.wheels()}

	if u.Gas != nil {
		return u, nil
	}

	for _, v := range u.RPM {
		if v != nil {
			return u, nil
		}
	}

	return robot.SensorUpdate{}, ErrEmptyMessage
}
