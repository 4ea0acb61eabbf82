package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"robot-bridge/backend/pkg/generate"
	"robot-bridge/backend/pkg/utils"
)

// ParameterIn is where a parameter is carried.
type ParameterIn string

const (
	ParameterInPath   ParameterIn = "path"
	ParameterInQuery  ParameterIn = "query"
	ParameterInHeader ParameterIn = "header"
)

// ParameterSpec documents one request parameter.
type ParameterSpec struct {
	In          ParameterIn
	Description string
	Required    bool
	Type        any // e.g. new(int)
}

// RequestBodySpec documents a JSON request body.
type RequestBodySpec struct {
	Type     any
	Examples map[string]any
}

// ResponseSpec documents one response status.
type ResponseSpec struct {
	Description string
	Type        any
	Examples    map[string]any
}

// RouteSpec describes an HTTP operation. Every field except Deprecated, Parameters and
// RequestType is required.
type RouteSpec struct {
	OperationID string
	Summary     string
	Description string
	Group       string
	Deprecated  string
	RequestType *RequestBodySpec
	Parameters  map[string]ParameterSpec
	Responses   map[int]ResponseSpec
	Handler     http.HandlerFunc

	method   string
	fullPath string
}

// RouteBuilder registers documented routes on a chi router.
type RouteBuilder struct {
	router    chi.Router
	prefix    string
	collector generate.HTTPMetadataCollector
	l         *slog.Logger
}

// NewRouteBuilder returns a builder on a fresh chi mux.
func NewRouteBuilder(l *slog.Logger, collector generate.HTTPMetadataCollector) (*RouteBuilder, error) {
	if collector == nil {
		return nil, fmt.Errorf("collector is required")
	}

	return &RouteBuilder{
		router:    chi.NewRouter(),
		collector: collector,
		l:         l.With(slog.String("component", "route-builder")),
	}, nil
}

// Router exposes the underlying chi router for undocumented routes (pages, websockets, static files).
//
//nolint:ireturn // chi.Router is the public contract
func (rb *RouteBuilder) Router() chi.Router {
	return rb.router
}

// Use appends middleware. Must be called before routes are added to this builder.
func (rb *RouteBuilder) Use(middlewares ...func(http.Handler) http.Handler) {
	rb.router.Use(middlewares...)
}

// Route mounts a sub router under pattern.
func (rb *RouteBuilder) Route(pattern string, fn func(rb *RouteBuilder)) {
	rb.router.Route(pattern, func(r chi.Router) {
		fn(rb.child(r, rb.prefix+pattern))
	})
}

// Group creates an inline group sharing the prefix, with its own middleware stack.
func (rb *RouteBuilder) Group(fn func(rb *RouteBuilder)) {
	rb.router.Group(func(r chi.Router) {
		fn(rb.child(r, rb.prefix))
	})
}

func (rb *RouteBuilder) child(r chi.Router, prefix string) *RouteBuilder {
	return &RouteBuilder{router: r, prefix: prefix, collector: rb.collector, l: rb.l}
}

// Register validates spec, reports it to the collector and mounts the handler.
func (rb *RouteBuilder) Register(method, path string, spec RouteSpec) error {
	spec.method = method
	spec.fullPath = generate.SanitizePath(rb.prefix + path)

	if err := validateRouteSpec(spec); err != nil {
		return fmt.Errorf("invalid route spec for %s %s: %w", method, spec.fullPath, err)
	}

	params, err := generateParameters(spec)
	if err != nil {
		return err
	}

	responses := make(map[int]generate.ResponseInfo, len(spec.Responses))
	for code, r := range spec.Responses {
		responses[code] = generate.ResponseInfo{Description: r.Description, TypeValue: r.Type, Examples: r.Examples}
	}

	var request *generate.RequestInfo
	if spec.RequestType != nil {
		request = &generate.RequestInfo{TypeValue: spec.RequestType.Type, Examples: spec.RequestType.Examples}
	}

	if err := rb.collector.RegisterRoute(&generate.RouteInfo{
		OperationID: spec.OperationID,
		Method:      method,
		Path:        spec.fullPath,
		Summary:     spec.Summary,
		Description: spec.Description,
		Group:       spec.Group,
		Deprecated:  spec.Deprecated,
		Parameters:  params,
		Request:     request,
		Responses:   responses,
	}); err != nil {
		return fmt.Errorf("failed to register route %s with collector: %w", spec.OperationID, err)
	}

	rb.router.Method(method, path, spec.Handler)

	rb.l.Debug("Registered route", slog.String("operationID", spec.OperationID), slog.String("method", method), slog.String("path", spec.fullPath))

	return nil
}

func (rb *RouteBuilder) mustRegister(method, path string, spec RouteSpec) {
	if err := rb.Register(method, path, spec); err != nil {
		rb.l.Error("Failed to register route", slog.String("method", method), slog.String("path", path), utils.ErrAttr(err))
		os.Exit(1)
	}
}

// MustGet registers a GET route and exits the process on error.
func (rb *RouteBuilder) MustGet(path string, spec RouteSpec) {
	rb.mustRegister(http.MethodGet, path, spec)
}

// MustPost registers a POST route and exits the process on error.
func (rb *RouteBuilder) MustPost(path string, spec RouteSpec) {
	rb.mustRegister(http.MethodPost, path, spec)
}

// MustPut registers a PUT route and exits the process on error.
func (rb *RouteBuilder) MustPut(path string, spec RouteSpec) {
	rb.mustRegister(http.MethodPut, path, spec)
}

// MustDelete registers a DELETE route and exits the process on error.
func (rb *RouteBuilder) MustDelete(path string, spec RouteSpec) {
	rb.mustRegister(http.MethodDelete, path, spec)
}
