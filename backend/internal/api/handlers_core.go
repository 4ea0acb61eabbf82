package api

import (
	"net/http"

	apitypes "robot-bridge/backend/internal/api/types"
	apicommon "robot-bridge/backend/internal/shared/api"
	sharedtypes "robot-bridge/backend/internal/shared/types"
	"robot-bridge/backend/pkg/router"
	"robot-bridge/backend/pkg/utils"
)

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) error {
	apicommon.RespondJSON(w, r, http.StatusOK, sharedtypes.PingResponse{
		Message: "Pong", Status: sharedtypes.PingStatusOK, Version: utils.GetVersionShort(),
	})

	return nil
}

func (h *Handler) RegisterPing(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "ping",
		Summary:     "Ping the server",
		Description: "Check if the server is alive",
		Group:       CoreGroup,
		Handler:     apicommon.ErrorHandler(h.Ping),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Successful ping response",
				Type:        sharedtypes.PingResponse{},
				Examples: map[string]any{
					"Success": sharedtypes.PingResponse{Message: "Pong", Status: sharedtypes.PingStatusOK, Version: "v1.0.0"},
				},
			},
		}),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) error {
	status := h.svc.Health.Health(r.Context())

	apicommon.RespondJSON(w, r, http.StatusOK, apitypes.HealthResponse{
		Status: sharedtypes.StatusOK,
		Mongo:  string(status.Store),
		MQTT:   string(status.MQTT),
		Store:  string(status.StoreDriver),
	})

	return nil
}

func (h *Handler) RegisterHealth(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "health",
		Summary:     "Check dependency health",
		Description: "Pings the record store and checks the broker connection. Always answers 200, degraded dependencies are reported as disconnected.",
		Group:       CoreGroup,
		Handler:     apicommon.ErrorHandler(h.Health),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Dependency status",
				Type:        apitypes.HealthResponse{},
				Examples: map[string]any{
					"Healthy":     apitypes.HealthResponse{Status: "OK", Mongo: "connected", MQTT: "connected", Store: "mongo"},
					"No database": apitypes.HealthResponse{Status: "OK", Mongo: "disconnected", MQTT: "connected", Store: "mongo"},
					"Broker down": apitypes.HealthResponse{Status: "OK", Mongo: "connected", MQTT: "disconnected", Store: "mongo"},
				},
			},
		}),
	})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) error {
	if !h.svc.Readiness.Ready() {
		w.Header().Set("Retry-After", "1")

		return apicommon.NewError(http.StatusServiceUnavailable, "Service is starting")
	}

	apicommon.RespondJSON(w, r, http.StatusOK, apitypes.ReadyResponse{Status: sharedtypes.StatusOK})

	return nil
}

func (h *Handler) RegisterReady(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "ready",
		Summary:     "Check readiness",
		Description: "Answers 200 once the store and the broker connection have been set up, 503 before.",
		Group:       CoreGroup,
		Handler:     apicommon.ErrorHandler(h.Ready),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Ready",
				Type:        apitypes.ReadyResponse{},
				Examples:    map[string]any{"Ready": apitypes.ReadyResponse{Status: "OK"}},
			},
			http.StatusServiceUnavailable: apicommon.ErrorSpec("Starting", "Service is starting"),
		}),
	})
}
