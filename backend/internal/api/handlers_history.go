package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	apitypes "robot-bridge/backend/internal/api/types"
	apicommon "robot-bridge/backend/internal/shared/api"
	sharedtypes "robot-bridge/backend/internal/shared/types"
	"robot-bridge/backend/internal/store"
	"robot-bridge/backend/pkg/router"
	"robot-bridge/backend/pkg/utils"
	"robot-bridge/web"
)

const storeUnavailableMessage = "Document store unavailable"

func (h *Handler) History(w http.ResponseWriter, r *http.Request) error {
	qp := r.URL.Query()

	q, errs := h.svc.History.ParseQuery(qp.Get("kind"), qp.Get("limit"), qp.Get("from"), qp.Get("to"))
	if errs != nil {
		return apicommon.NewValidationError(errs)
	}

	res, err := h.svc.History.Find(r.Context(), q)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			apicommon.GetLogger(r.Context()).Warn("History query failed", utils.ErrAttr(err))

			return apicommon.NewError(http.StatusServiceUnavailable, storeUnavailableMessage)
		}

		return err
	}

	apicommon.RespondJSON(w, r, http.StatusOK, apitypes.HistoryResponse{
		Status:    sharedtypes.StatusOK,
		Kind:      string(res.Kind),
		Count:     res.Len(),
		Telemetry: res.Telemetry,
		Sensor:    res.Sensor,
	})

	return nil
}

func (h *Handler) RegisterHistory(path string, rb *router.RouteBuilder) {
	example := time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)

	rb.MustGet(path, router.RouteSpec{
		OperationID: "getHistory",
		Summary:     "List stored records",
		Description: "Returns telemetry or sensor records, newest first. from and to are calendar days (UTC) and both are included.",
		Group:       TelemetryGroup,
		Handler:     apicommon.ErrorHandler(h.History),
		Parameters: map[string]router.ParameterSpec{
			"kind": {
				In:          router.ParameterInQuery,
				Description: "telemetry (default) or sensor",
				Type:        new(string),
			},
			"limit": {
				In:          router.ParameterInQuery,
				Description: "Maximum number of records, default 50",
				Type:        new(int),
			},
			"from": {
				In:          router.ParameterInQuery,
				Description: "First day, YYYY-MM-DD",
				Type:        new(string),
			},
			"to": {
				In:          router.ParameterInQuery,
				Description: "Last day, YYYY-MM-DD",
				Type:        new(string),
			},
		},
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			http.StatusOK: {
				Description: "Matching records",
				Type:        apitypes.HistoryResponse{},
				Examples: map[string]any{
					"Telemetry": apitypes.HistoryResponse{
						Status: "OK",
						Kind:   "telemetry",
						Count:  1,
						Telemetry: []store.TelemetryRecord{{
							Timestamp: example, Speed: 77, Mode: "AUTO", Direction: "F",
							Raw: map[string]any{"speed": 77, "mode": "AUTO"},
						}},
					},
				},
			},
			http.StatusBadRequest:         apicommon.ErrorSpec("Invalid query", "Validation failed"),
			http.StatusServiceUnavailable: apicommon.ErrorSpec("Store unavailable", storeUnavailableMessage),
		}),
	})
}

type historyPage struct {
	Kind      string
	From      string
	To        string
	Limit     int
	MaxLimit  int
	Telemetry []store.TelemetryRecord
	Sensor    []store.SensorRecord
	Errors    map[string]string
	Error     string
}

// HistoryPage renders the history table. Invalid filters and store failures are shown on the page.
func (h *Handler) HistoryPage(w http.ResponseWriter, r *http.Request) error {
	qp := r.URL.Query()

	page := historyPage{
		Kind:     qp.Get("kind"),
		From:     qp.Get("from"),
		To:       qp.Get("to"),
		Limit:    h.svc.History.DefaultLimit(),
		MaxLimit: h.svc.History.MaxLimit(),
	}

	q, errs := h.svc.History.ParseQuery(page.Kind, qp.Get("limit"), page.From, page.To)
	if errs != nil {
		page.Errors = errs

		return h.pages.Render(w, http.StatusBadRequest, web.PageHistory, page)
	}

	page.Kind = string(q.Kind)
	page.Limit = q.Limit

	res, err := h.svc.History.Find(r.Context(), q)
	if err != nil {
		apicommon.GetLogger(r.Context()).Warn("History query failed", utils.ErrAttr(err))

		page.Error = storeUnavailableMessage

		return h.pages.Render(w, http.StatusServiceUnavailable, web.PageHistory, page)
	}

	page.Telemetry = res.Telemetry
	page.Sensor = res.Sensor

	apicommon.GetLogger(r.Context()).Debug("Rendered history", slog.String("kind", page.Kind), slog.Int("count", res.Len()))

	return h.pages.Render(w, http.StatusOK, web.PageHistory, page)
}

