package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apicommon "robot-bridge/backend/internal/shared/api"
	"robot-bridge/backend/pkg/router"
	"robot-bridge/web"
)

const loginPath = "/login"

// RegisterRoutes mounts every route: the documented JSON API under /api, the legacy root
// paths the first UI used, the HTML pages and the static assets.
func (h *Handler) RegisterRoutes(rb *router.RouteBuilder, mw *apicommon.MiddlewareHandler, static *web.WebApp) {
	h.l.Info("Registering HTTP handlers...")

	// a nil *SessionService must become a nil interface to disable the gate
	var sessions apicommon.SessionChecker
	if h.svc.Sessions != nil {
		sessions = h.svc.Sessions
	}

	requireSession := mw.AuthMiddleware(sessions, loginPath)
	requireReady := mw.ReadyMiddleware(h.svc.Readiness)

	rb.Use(mw.RequestIDMiddleware, mw.LoggerMiddleware, mw.RecoveryMiddleware)

	rb.Route("/api", func(rb *router.RouteBuilder) {
		h.RegisterPing("/ping", rb)
		h.RegisterHealth("/health", rb)
		h.RegisterReady("/ready", rb)

		rb.Group(func(rb *router.RouteBuilder) {
			rb.Use(requireSession)

			h.RegisterStatus("/status", rb)
			h.RegisterHistory("/history", rb)
			rb.Router().Get("/ws", h.live.ServeHTTP)

			rb.Group(func(rb *router.RouteBuilder) {
				rb.Use(requireReady)

				h.RegisterCommand("/command", rb)
				h.RegisterSetSpeed("/speed/{value}", rb)
				h.RegisterToggleMode("/mode", rb)
			})
		})
	})

	h.RegisterLogin(loginPath, rb)
	h.RegisterLogout("/logout", rb)

	r := rb.Router()
	r.Get(loginPath, apicommon.ErrorHandler(h.LoginPage))
	r.Get("/health", apicommon.ErrorHandler(h.Health))

	r.Group(func(r chi.Router) {
		r.Use(requireSession)

		r.Get("/", apicommon.ErrorHandler(h.Index))
		r.Get("/status", apicommon.ErrorHandler(h.Status))
		r.Get("/history", apicommon.ErrorHandler(h.HistoryPage))

		r.Group(func(r chi.Router) {
			r.Use(requireReady)

			r.Post("/command", apicommon.ErrorHandler(h.Command))
			r.Post("/speed/{value}", apicommon.ErrorHandler(h.SetSpeed))
			r.Post("/mode", apicommon.ErrorHandler(h.ToggleMode))
		})
	})

	static.Register(r, h.l)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apicommon.RespondJSON(w, r, http.StatusNotFound, apicommon.NewError(http.StatusNotFound, "Not Found"))
	})

	h.l.Info("HTTP handlers registered successfully")
}
