package apicommon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"robot-bridge/backend/internal/shared/types"
	"robot-bridge/backend/pkg/router"
	"robot-bridge/backend/pkg/utils"
)

const (
	MaxBodySize     = 64 << 10
	MaxBodyText     = "64KB"
	RequestIDHeader = "X-Request-ID"

	ReadHeaderTimeout = 5 * time.Second
	ReadTimeout       = 30 * time.Second
	IdleTimeout       = 120 * time.Second
	ShutdownTimeout   = 30 * time.Second
)

type HTTPServer struct {
	l        *slog.Logger
	server   *http.Server
	listener net.Listener
}

// NewHTTPServer creates a server without a write timeout, since /api/ws holds connections open.
func NewHTTPServer(l *slog.Logger, addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		l: l.With(slog.String("component", "http-server")),
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: ReadHeaderTimeout,
			ReadTimeout:       ReadTimeout,
			IdleTimeout:       IdleTimeout,
		},
	}
}

// Listen binds the server address, so a bind failure is reported before anything is served.
func (s *HTTPServer) Listen() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.listener = ln

	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *HTTPServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.server.Addr
}

// StartOnBackground serves until shutdown; any other failure cancels the process context.
// It binds the address itself when Listen was not called.
func (s *HTTPServer) StartOnBackground(cancel context.CancelFunc) {
	go func() {
		var err error

		if s.listener != nil {
			s.l.Info("http server listening", slog.String("address", s.Addr()))
			err = s.server.Serve(s.listener)
		} else {
			s.l.Info("http server listening", slog.String("address", s.server.Addr))
			err = s.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Error("http server failed", utils.ErrAttr(err))
			cancel()
		}
	}()
}

func (s *HTTPServer) ShutdownWithDefaultTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// HandlerFunc is a HTTP handler that can return an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// NewError creates a simple error response.
func NewError(statusCode int, message string) *types.ErrorResponse {
	return &types.ErrorResponse{
		StatusCode: statusCode,
		Status:     types.StatusError,
		Message:    message,
	}
}

// NewValidationError creates a 400 with field-level details.
func NewValidationError(fieldErrors map[string]string) *types.ErrorResponse {
	return &types.ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Status:     types.StatusError,
		Message:    "Validation failed",
		Errors:     fieldErrors,
	}
}

// ErrorHandler adapts a HandlerFunc. *types.ErrorResponse errors are sent to the client as is,
// anything else is logged and answered with a generic 500.
func ErrorHandler(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		l := GetLogger(r.Context())
		requestID := GetRequestID(r.Context())

		var httpErr *types.ErrorResponse
		if errors.As(err, &httpErr) {
			httpErr.RequestID = requestID
			httpErr.Status = types.StatusError
			l.Warn("handler returned HTTP error", slog.Int("status", httpErr.StatusCode), slog.String("message", httpErr.Message))
			RespondJSON(w, r, httpErr.StatusCode, httpErr)

			return
		}

		l.Error("internal error", utils.ErrAttr(err))
		RespondJSON(w, r, http.StatusInternalServerError, &types.ErrorResponse{
			Status:    types.StatusError,
			RequestID: requestID,
			Message:   "Internal Server Error",
		})
	}
}

// RespondJSON writes data as JSON with the given status. Encoding errors are only logged,
// the status line has already been sent by then.
func RespondJSON(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}

	if err := utils.ToJSONStream(w, data); err != nil {
		GetLogger(r.Context()).Error("failed to encode JSON response", utils.ErrAttr(err))
	}
}

// DecodeJSON strictly decodes the request body. An empty body yields the zero value when allowEmpty is set.
//
//nolint:ireturn // Generic functions must return type parameter T
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, allowEmpty bool) (T, error) {
	var zero T

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	res, err := utils.FromJSONStream[T](r.Body)
	if err == nil {
		return res, nil
	}

	var (
		syntaxError        *json.SyntaxError
		unmarshalTypeError *json.UnmarshalTypeError
		maxBytesError      *http.MaxBytesError
		extraDataError     *utils.ExtraDataAfterJSONError
	)

	switch {
	case errors.Is(err, io.EOF):
		if allowEmpty {
			return zero, nil
		}

		return zero, NewError(http.StatusBadRequest, "Request body is empty")

	case errors.As(err, &syntaxError):
		return zero, NewError(http.StatusBadRequest, fmt.Sprintf("Invalid JSON syntax at position %d", syntaxError.Offset))

	case errors.As(err, &unmarshalTypeError):
		return zero, NewError(http.StatusBadRequest, fmt.Sprintf("Invalid type for field '%s'", unmarshalTypeError.Field))

	case errors.Is(err, io.ErrUnexpectedEOF):
		return zero, NewError(http.StatusBadRequest, "Malformed JSON")

	case errors.As(err, &maxBytesError):
		return zero, NewError(http.StatusRequestEntityTooLarge, "Request body too large (max "+MaxBodyText+")")

	case errors.As(err, &extraDataError):
		return zero, NewError(http.StatusBadRequest, "Request body contains multiple JSON objects")

	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return zero, NewError(http.StatusBadRequest, err.Error())

	default:
		return zero, NewError(http.StatusBadRequest, "Invalid JSON payload")
	}
}

func errorExample(message string) types.ErrorResponse {
	return types.ErrorResponse{Status: types.StatusError, RequestID: zeroUUID, Message: message}
}

// ErrorSpec documents an error status with one example.
func ErrorSpec(description, message string) router.ResponseSpec {
	return router.ResponseSpec{
		Description: description,
		Type:        types.ErrorResponse{},
		Examples:    map[string]any{description: errorExample(message)},
	}
}

// GenerateResponses adds the error responses every route can produce.
func GenerateResponses(responses map[int]router.ResponseSpec) map[int]router.ResponseSpec {
	if _, exists := responses[http.StatusInternalServerError]; !exists {
		responses[http.StatusInternalServerError] = ErrorSpec("Internal Server Error", "Internal Server Error")
	}

	return responses
}

// GenerateBodyResponses adds the errors of routes that decode a JSON body.
func GenerateBodyResponses(responses map[int]router.ResponseSpec) map[int]router.ResponseSpec {
	if _, exists := responses[http.StatusRequestEntityTooLarge]; !exists {
		responses[http.StatusRequestEntityTooLarge] = ErrorSpec("Request entity too large", "Request body too large (max "+MaxBodyText+")")
	}

	if _, exists := responses[http.StatusBadRequest]; !exists {
		responses[http.StatusBadRequest] = ErrorSpec("Bad Request", "Invalid JSON payload")
	}

	return GenerateResponses(responses)
}
