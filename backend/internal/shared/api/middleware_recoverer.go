package apicommon

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"robot-bridge/backend/internal/shared/types"
)

// RecoveryMiddleware turns a panicking handler into a 500.
func (m *MiddlewareHandler) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			if rec == http.ErrAbortHandler { //nolint:errorlint,err113 // sentinel comparison is what net/http does
				panic(rec)
			}

			l := getLoggerOrNil(r.Context())
			if l == nil {
				l = m.l
			}

			l.Error("panic recovered", slog.Any("error", rec), slog.String("stack", string(debug.Stack())))

			RespondJSON(w, r, http.StatusInternalServerError, &types.ErrorResponse{
				Status:    types.StatusError,
				RequestID: GetRequestID(r.Context()),
				Message:   "Internal Server Error",
			})
		}()

		next.ServeHTTP(w, r)
	})
}
