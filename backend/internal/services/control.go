package services

import (
	"fmt"
	"log/slog"

	"robot-bridge/backend/internal/config"
	mqtttypes "robot-bridge/backend/internal/mqtt/types"
	"robot-bridge/backend/internal/robot"
	"robot-bridge/backend/pkg/utils"
)

// ControlService turns operator actions into state changes and robot commands.
// Publishing is best effort: a failed publish is logged and reported, the state change stands.
type ControlService struct {
	l      *slog.Logger
	state  *robot.State
	pub    Publisher
	topics config.Topics
}

func NewControlService(l *slog.Logger, state *robot.State, pub Publisher, topics config.Topics) *ControlService {
	return &ControlService{
		l:      l.With(slog.String("service", "control")),
		state:  state,
		pub:    pub,
		topics: topics,
	}
}

type CommandResult struct {
	Command   string
	Speed     int
	Mode      robot.Mode
	Published bool
}

type ModeResult struct {
	Mode      robot.Mode
	Published bool
}

// Command sends a direction command at the current speed. An empty command stops the robot.
func (s *ControlService) Command(command string) (CommandResult, error) {
	cmd, err := robot.ParseCommand(command)
	if err != nil {
		return CommandResult{}, err
	}

	s.state.SetLastCommand(cmd)
	snap := s.state.Snapshot()

	published := s.publishCommand(mqtttypes.CommandMessage{Cmd: cmd, Spd: snap.Speed})

	return CommandResult{Command: cmd, Speed: snap.Speed, Mode: snap.Mode, Published: published}, nil
}

// SetSpeed stores a new speed and tells the robot, which stays stopped until the next direction command.
func (s *ControlService) SetSpeed(value int) (CommandResult, error) {
	if err := s.state.SetSpeed(value); err != nil {
		return CommandResult{}, err
	}

	published := s.publishCommand(mqtttypes.CommandMessage{Cmd: robot.CommandStop, Spd: value})

	return CommandResult{Command: robot.CommandStop, Speed: value, Mode: s.state.Snapshot().Mode, Published: published}, nil
}

// ToggleMode flips MANUAL/AUTO. Entering AUTO first stops the motors; the new mode is then
// announced on the mode topic.
func (s *ControlService) ToggleMode() ModeResult {
	mode := s.state.ToggleMode()
	published := true

	if mode == robot.ModeAuto {
		published = s.publishCommand(mqtttypes.CommandMessage{Cmd: robot.CommandStop, Spd: 0})
	}

	if err := s.pub.PublishRaw(mqtttypes.OpPublishModeStatus, s.topics.Mode, string(mode)); err != nil {
		s.l.Error("Failed to publish mode", slog.String("mode", string(mode)), utils.ErrAttr(err))

		published = false
	}

	return ModeResult{Mode: mode, Published: published}
}

// Status returns the current state.
func (s *ControlService) Status() robot.Snapshot {
	return s.state.Snapshot()
}

func (s *ControlService) publishCommand(msg mqtttypes.CommandMessage) bool {
	if err := s.pub.Publish(mqtttypes.OpPublishCommand, s.topics.Command, msg); err != nil {
		s.l.Error("Failed to publish command", slog.String("cmd", msg.Cmd), slog.Int("spd", msg.Spd), utils.ErrAttr(err))

		return false
	}

	s.l.Debug("Published command", slog.String("cmd", msg.Cmd), slog.Int("spd", msg.Spd))

	return true
}

// Message is the human readable confirmation shown by the UI.
func (r CommandResult) Message() string {
	return fmt.Sprintf("Published %s", r.Command)
}
