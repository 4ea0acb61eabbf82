package types

// Values of the status field of every JSON body.
const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// ErrorResponse is the unified error response type.
//
//nolint:errname // ErrorResponse is an API response type, not a traditional error
type ErrorResponse struct {
	// HTTP status code (internal only, not sent to client)
	StatusCode int `json:"-"`
	// Always "Error"
	Status string `json:"status"`
	// Request ID for tracking
	RequestID string `json:"requestID"`
	// High-level error message
	Message string `json:"message"`
	// Field-level validation errors
	Errors map[string]string `json:"errors,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// AddError adds a field-level error.
func (e *ErrorResponse) AddError(field, message string) *ErrorResponse {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}

	e.Errors[field] = message

	return e
}

// PingResponse is the response to a ping request.
type PingResponse struct {
	Message string     `json:"message"`
	Status  PingStatus `json:"status"`
	Version string     `json:"version"`
}

type PingStatus string

const (
	PingStatusOK    PingStatus = "OK"
	PingStatusError PingStatus = "ERROR"
)
