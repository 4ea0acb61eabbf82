package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apitypes "robot-bridge/backend/internal/api/types"
	"robot-bridge/backend/internal/robot"
	"robot-bridge/backend/internal/services"
	apicommon "robot-bridge/backend/internal/shared/api"
	sharedtypes "robot-bridge/backend/internal/shared/types"
	"robot-bridge/backend/pkg/router"
)

const invalidSpeedMessage = "Invalid speed value"

func (h *Handler) Command(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[apitypes.CommandRequest](w, r, true)
	if err != nil {
		return err
	}

	res, err := h.svc.Control.Command(req.Command)
	if errors.Is(err, robot.ErrInvalidCommand) {
		return apicommon.NewValidationError(map[string]string{"command": "must be a single letter"})
	}

	if err != nil {
		return err
	}

	apicommon.RespondJSON(w, r, http.StatusOK, commandResponse(res))

	return nil
}

func commandResponse(res services.CommandResult) apitypes.CommandResponse {
	return apitypes.CommandResponse{
		Status:    sharedtypes.StatusOK,
		Message:   res.Message(),
		Mode:      string(res.Mode),
		Speed:     res.Speed,
		Published: res.Published,
	}
}

func (h *Handler) RegisterCommand(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "sendCommand",
		Summary:     "Send a direction command",
		Description: "Publishes the command with the current speed to the robot and records it as the last command. An empty body stops the robot.",
		Group:       ControlGroup,
		Handler:     apicommon.ErrorHandler(h.Command),
		RequestType: &router.RequestBodySpec{
			Type: apitypes.CommandRequest{},
			Examples: map[string]any{
				"Forward": apitypes.CommandRequest{Command: "F"},
				"Stop":    apitypes.CommandRequest{Command: "S"},
			},
		},
		Responses: apicommon.GenerateBodyResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Command accepted",
				Type:        apitypes.CommandResponse{},
				Examples: map[string]any{
					"Published":   apitypes.CommandResponse{Status: "OK", Message: "Published F", Mode: "MANUAL", Speed: 150, Published: true},
					"Broker down": apitypes.CommandResponse{Status: "OK", Message: "Published F", Mode: "MANUAL", Speed: 150},
				},
			},
			http.StatusServiceUnavailable: apicommon.ErrorSpec("Starting", "Service is starting"),
		}),
	})
}

func (h *Handler) SetSpeed(w http.ResponseWriter, r *http.Request) error {
	value, err := strconv.Atoi(chi.URLParam(r, "value"))
	if err != nil {
		return apicommon.NewError(http.StatusBadRequest, invalidSpeedMessage).AddError("value", "must be an integer")
	}

	res, err := h.svc.Control.SetSpeed(value)
	if errors.Is(err, robot.ErrSpeedOutOfRange) {
		return apicommon.NewError(http.StatusBadRequest, invalidSpeedMessage).AddError("value", err.Error())
	}

	if err != nil {
		return err
	}

	apicommon.RespondJSON(w, r, http.StatusOK, apitypes.SpeedResponse{
		Status:    sharedtypes.StatusOK,
		Speed:     res.Speed,
		Mode:      string(res.Mode),
		Published: res.Published,
	})

	return nil
}

func (h *Handler) RegisterSetSpeed(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "setSpeed",
		Summary:     "Set the speed",
		Description: "Stores the PWM speed and sends a stop command carrying it. The robot moves at the new speed on the next direction command.",
		Group:       ControlGroup,
		Handler:     apicommon.ErrorHandler(h.SetSpeed),
		Parameters: map[string]router.ParameterSpec{
			"value": {
				In:          router.ParameterInPath,
				Description: "PWM duty, 0-255",
				Required:    true,
				Type:        new(int),
			},
		},
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Speed stored",
				Type:        apitypes.SpeedResponse{},
				Examples: map[string]any{
					"Success": apitypes.SpeedResponse{Status: "OK", Speed: 200, Mode: "MANUAL", Published: true},
				},
			},
			http.StatusBadRequest:         apicommon.ErrorSpec("Invalid speed", invalidSpeedMessage),
			http.StatusServiceUnavailable: apicommon.ErrorSpec("Starting", "Service is starting"),
		}),
	})
}

func (h *Handler) ToggleMode(w http.ResponseWriter, r *http.Request) error {
	res := h.svc.Control.ToggleMode()

	apicommon.RespondJSON(w, r, http.StatusOK, apitypes.ModeResponse{
		Status:    sharedtypes.StatusOK,
		Mode:      string(res.Mode),
		Published: res.Published,
	})

	return nil
}

func (h *Handler) RegisterToggleMode(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "toggleMode",
		Summary:     "Toggle the driving mode",
		Description: "Switches between MANUAL and AUTO. Entering AUTO stops the motors first. The new mode is announced to the robot.",
		Group:       ControlGroup,
		Handler:     apicommon.ErrorHandler(h.ToggleMode),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Mode toggled",
				Type:        apitypes.ModeResponse{},
				Examples: map[string]any{
					"Auto":   apitypes.ModeResponse{Status: "OK", Mode: "AUTO", Published: true},
					"Manual": apitypes.ModeResponse{Status: "OK", Mode: "MANUAL", Published: true},
				},
			},
			http.StatusServiceUnavailable: apicommon.ErrorSpec("Starting", "Service is starting"),
		}),
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) error {
	snap := h.svc.Control.Status()

	apicommon.RespondJSON(w, r, http.StatusOK, apitypes.StatusResponse{
		Status:      sharedtypes.StatusOK,
		Speed:       snap.Speed,
		Mode:        string(snap.Mode),
		LastCommand: snap.LastCommand,
		Gas:         snap.Gas,
		RPM:         snap.RPM,
		UpdatedAt:   snap.UpdatedAt,
	})

	return nil
}

func (h *Handler) RegisterStatus(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "getStatus",
		Summary:     "Get the robot state",
		Description: "Returns the last known state of the robot as mirrored from commands and telemetry.",
		Group:       TelemetryGroup,
		Handler:     apicommon.ErrorHandler(h.Status),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Current state",
				Type:        apitypes.StatusResponse{},
				Examples: map[string]any{
					"Boot": apitypes.StatusResponse{Status: "OK", Speed: 0, Mode: "MANUAL", LastCommand: "S"},
				},
			},
		}),
	})
}
