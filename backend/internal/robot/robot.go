// Package robot holds the in-memory mirror of the robot's last known state.
package robot

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Mode is the robot's driving mode.
type Mode string

const (
	ModeManual Mode = "MANUAL"
	ModeAuto   Mode = "AUTO"
)

const (
	MinSpeed = 0
	MaxSpeed = 255

	// WheelCount is the number of wheel RPM readings reported by the motor controller.
	WheelCount = 4
)

var (
	ErrSpeedOutOfRange = fmt.Errorf("speed must be between %d and %d", MinSpeed, MaxSpeed)
	ErrInvalidMode     = errors.New("mode must be MANUAL or AUTO")
	ErrInvalidCommand  = errors.New("command must be a single letter")
)

// ParseMode validates s as a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeManual, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Toggled returns the other mode.
func (m Mode) Toggled() Mode {
	if m == ModeAuto {
		return ModeManual
	}

	return ModeAuto
}

// ValidateSpeed returns ErrSpeedOutOfRange for values outside [MinSpeed, MaxSpeed].
func ValidateSpeed(v int) error {
	if v < MinSpeed || v > MaxSpeed {
		return fmt.Errorf("%w, got %d", ErrSpeedOutOfRange, v)
	}

	return nil
}

// ParseCommand validates a direction command. An empty command means stop.
func ParseCommand(s string) (string, error) {
	if s == "" {
		return CommandStop, nil
	}

	if len(s) != 1 || !isASCIILetter(s[0]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCommand, s)
	}

	return s, nil
}

// CommandStop halts the motors.
const CommandStop = "S"

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Snapshot is a copy of the state at one point in time.
type Snapshot struct {
	Speed       int       `json:"speed"`
	Mode        Mode      `json:"mode"`
	LastCommand string    `json:"lastCommand"`
	Gas         *int      `json:"gas,omitempty"`
	RPM         []int     `json:"rpm,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StatusUpdate carries the fields of a status message; nil fields are left unchanged.
type StatusUpdate struct {
	Speed     *int
	Mode      *Mode
	Direction *string
	Gas       *int
}

// SensorUpdate carries the fields of a sensor message; nil fields are left unchanged.
type SensorUpdate struct {
	Gas *int
	RPM [WheelCount]*int
}

// State is the single shared, mutex guarded robot state.
type State struct {
	mu          sync.RWMutex
	speed       int
	mode        Mode
	lastCommand string
	gas         *int
	rpm         []int
	updatedAt   time.Time

	subMu       sync.Mutex
	subscribers map[int]chan Snapshot
	nextSubID   int

	now func() time.Time
}

// NewState returns the boot state: speed 0, MANUAL, last command S.
func NewState() *State {
	s := &State{
		mode:        ModeManual,
		lastCommand: CommandStop,
		subscribers: make(map[int]chan Snapshot),
		now:         time.Now,
	}
	s.updatedAt = s.now().UTC()

	return s
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Speed:       s.speed,
		Mode:        s.mode,
		LastCommand: s.lastCommand,
		UpdatedAt:   s.updatedAt,
	}

	if s.gas != nil {
		g := *s.gas
		snap.Gas = &g
	}

	if s.rpm != nil {
		snap.RPM = append([]int(nil), s.rpm...)
	}

	return snap
}

// SetSpeed stores v if it is within range.
func (s *State) SetSpeed(v int) error {
	if err := ValidateSpeed(v); err != nil {
		return err
	}

	s.update(func() { s.speed = v })

	return nil
}

// SetLastCommand records the last direction command sent to the robot.
func (s *State) SetLastCommand(c string) {
	s.update(func() { s.lastCommand = c })
}

// SetMode stores m if it is a known mode.
func (s *State) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}

	s.update(func() { s.mode = m })

	return nil
}

// ToggleMode flips between MANUAL and AUTO and returns the new mode.
func (s *State) ToggleMode() Mode {
	var next Mode

	s.update(func() {
		next = s.mode.Toggled()
		s.mode = next
	})

	return next
}

// ApplyStatus merges the present fields of a status message and returns the resulting state.
// Values are expected to be validated.
func (s *State) ApplyStatus(u StatusUpdate) Snapshot {
	return s.update(func() {
		if u.Speed != nil {
			s.speed = *u.Speed
		}

		if u.Mode != nil {
			s.mode = *u.Mode
		}

		if u.Direction != nil {
			s.lastCommand = *u.Direction
		}

		if u.Gas != nil {
			g := *u.Gas
			s.gas = &g
		}
	})
}

// ApplySensor merges the present fields of a sensor message and returns the resulting state.
func (s *State) ApplySensor(u SensorUpdate) Snapshot {
	return s.update(func() {
		if u.Gas != nil {
			g := *u.Gas
			s.gas = &g
		}

		for i, v := range u.RPM {
			if v == nil {
				continue
			}

			if s.rpm == nil {
				s.rpm = make([]int, WheelCount)
			}

			s.rpm[i] = *v
		}
	})
}

func (s *State) update(fn func()) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn()
	s.updatedAt = s.now().UTC()

	snap := s.snapshotLocked()

	// notify never blocks, so subscribers see snapshots in mutation order
	s.notify(snap)

	return snap
}
