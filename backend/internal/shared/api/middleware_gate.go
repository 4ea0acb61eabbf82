package apicommon

import (
	"net/http"
	"strings"

	"robot-bridge/backend/internal/shared/types"
)

// ReadinessChecker reports whether startup sequencing has finished.
type ReadinessChecker interface {
	Ready() bool
}

// SessionChecker reports whether a request carries a valid session.
type SessionChecker interface {
	Authenticated(r *http.Request) bool
}

// ReadyMiddleware answers 503 until rc is ready.
func (m *MiddlewareHandler) ReadyMiddleware(rc ReadinessChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rc.Ready() {
				w.Header().Set("Retry-After", "1")
				RespondJSON(w, r, http.StatusServiceUnavailable, errorWithID(r, http.StatusServiceUnavailable, "Service is starting"))

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware lets authenticated requests through. Browsers asking for HTML are redirected
// to loginPath, everything else gets a 401. A nil checker disables the gate.
func (m *MiddlewareHandler) AuthMiddleware(sc SessionChecker, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if sc == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sc.Authenticated(r) {
				next.ServeHTTP(w, r)

				return
			}

			if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html") {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)

				return
			}

			RespondJSON(w, r, http.StatusUnauthorized, errorWithID(r, http.StatusUnauthorized, "Authentication required"))
		})
	}
}

func errorWithID(r *http.Request, status int, message string) *types.ErrorResponse {
	e := NewError(status, message)
	e.RequestID = GetRequestID(r.Context())

	return e
}
