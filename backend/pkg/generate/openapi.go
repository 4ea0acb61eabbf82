package generate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/oasdiff/yaml"

	"robot-bridge/backend/pkg/utils"
)

// APIInfo is the top level metadata of the generated document.
type APIInfo struct {
	Title       string
	Version     string
	Description string
	Servers     []ServerInfo
}

// ServerInfo is one entry of the servers list.
type ServerInfo struct {
	URL         string
	Description string
}

// OpenAPICollectorOptions configures where documentation is written.
type OpenAPICollectorOptions struct {
	// OpenAPISpecOutputPath receives the HTTP API as OpenAPI 3 YAML.
	OpenAPISpecOutputPath string
	// MessagingDocsOutputPath receives the MQTT operations as JSON. Optional.
	MessagingDocsOutputPath string
	APIInfo                 APIInfo
}

// OpenAPICollector records every registered operation and renders documentation files.
type OpenAPICollector struct {
	l             *slog.Logger
	opts          OpenAPICollectorOptions
	operationIDs  map[string]struct{}
	routes        []*RouteInfo
	publications  []*MQTTPublicationInfo
	subscriptions []*MQTTSubscriptionInfo
}

// NewOpenAPICollector validates opts and returns an empty collector.
func NewOpenAPICollector(l *slog.Logger, opts OpenAPICollectorOptions) (*OpenAPICollector, error) {
	if opts.OpenAPISpecOutputPath == "" {
		return nil, fmt.Errorf("OpenAPISpecOutputPath is required")
	}

	if opts.APIInfo.Title == "" || opts.APIInfo.Version == "" {
		return nil, fmt.Errorf("APIInfo title and version are required")
	}

	return &OpenAPICollector{
		l:            l.With(slog.String("component", "openapi-collector")),
		opts:         opts,
		operationIDs: make(map[string]struct{}),
	}, nil
}

func (g *OpenAPICollector) claimOperationID(operationID string) error {
	if err := validateOperationID(operationID); err != nil {
		return err
	}

	if _, exists := g.operationIDs[operationID]; exists {
		return fmt.Errorf("duplicate operationID: %s", operationID)
	}

	g.operationIDs[operationID] = struct{}{}

	return nil
}

// RegisterRoute records an HTTP operation. Every route needs at least one response.
func (g *OpenAPICollector) RegisterRoute(route *RouteInfo) error {
	if len(route.Responses) == 0 {
		return fmt.Errorf("route [%s] has no responses", route.OperationID)
	}

	if route.Request != nil && route.Request.TypeValue == nil {
		return fmt.Errorf("route [%s] request TypeValue must not be nil", route.OperationID)
	}

	if err := g.claimOperationID(route.OperationID); err != nil {
		return err
	}

	g.routes = append(g.routes, route)

	return nil
}

// RegisterMQTTPublication records a publication.
func (g *OpenAPICollector) RegisterMQTTPublication(pub *MQTTPublicationInfo) error {
	if err := g.claimOperationID(pub.OperationID); err != nil {
		return err
	}

	g.publications = append(g.publications, pub)

	return nil
}

// RegisterMQTTSubscription records a subscription.
func (g *OpenAPICollector) RegisterMQTTSubscription(sub *MQTTSubscriptionInfo) error {
	if err := g.claimOperationID(sub.OperationID); err != nil {
		return err
	}

	g.subscriptions = append(g.subscriptions, sub)

	return nil
}

// Generate writes the OpenAPI YAML and, if configured, the messaging docs JSON.
func (g *OpenAPICollector) Generate() error {
	spec, err := g.buildSpec()
	if err != nil {
		return fmt.Errorf("failed to build OpenAPI spec: %w", err)
	}

	yamlData, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal OpenAPI spec: %w", err)
	}

	if err := writeFile(g.opts.OpenAPISpecOutputPath, yamlData); err != nil {
		return err
	}

	g.l.Info("OpenAPI spec written", slog.String("file", g.opts.OpenAPISpecOutputPath), slog.Int("operations", len(g.routes)))

	if g.opts.MessagingDocsOutputPath == "" {
		return nil
	}

	docs := struct {
		Publications  []*MQTTPublicationInfo  `json:"publications"`
		Subscriptions []*MQTTSubscriptionInfo `json:"subscriptions"`
	}{g.publications, g.subscriptions}

	jsonData, err := utils.ToJSONIndent(docs)
	if err != nil {
		return fmt.Errorf("failed to marshal messaging docs: %w", err)
	}

	if err := writeFile(g.opts.MessagingDocsOutputPath, jsonData); err != nil {
		return err
	}

	g.l.Info("Messaging docs written", slog.String("file", g.opts.MessagingDocsOutputPath),
		slog.Int("publications", len(g.publications)), slog.Int("subscriptions", len(g.subscriptions)))

	return nil
}

func (g *OpenAPICollector) buildSpec() (*openapi3.T, error) {
	schemas := openapi3.Schemas{}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.opts.APIInfo.Title,
			Version:     g.opts.APIInfo.Version,
			Description: g.opts.APIInfo.Description,
		},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: schemas},
	}

	for _, s := range g.opts.APIInfo.Servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: s.URL, Description: s.Description})
	}

	groups := map[string]struct{}{}

	for _, route := range g.routes {
		op, err := buildOperation(route, schemas)
		if err != nil {
			return nil, fmt.Errorf("route [%s]: %w", route.OperationID, err)
		}

		spec.AddOperation(toOpenAPIPath(route.Path), route.Method, op)
		groups[route.Group] = struct{}{}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		spec.Tags = append(spec.Tags, &openapi3.Tag{Name: name})
	}

	return spec, nil
}

func buildOperation(route *RouteInfo, schemas openapi3.Schemas) (*openapi3.Operation, error) {
	op := &openapi3.Operation{
		OperationID: route.OperationID,
		Summary:     route.Summary,
		Description: route.Description,
		Tags:        []string{route.Group},
		Deprecated:  route.Deprecated != "",
		Responses:   openapi3.NewResponsesWithCapacity(len(route.Responses)),
	}

	for _, p := range route.Parameters {
		param, err := buildParameter(p)
		if err != nil {
			return nil, err
		}

		op.AddParameter(param)
	}

	if route.Request != nil {
		ref, err := openapi3gen.NewSchemaRefForValue(route.Request.TypeValue, schemas)
		if err != nil {
			return nil, fmt.Errorf("request schema: %w", err)
		}

		body := openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(ref)
		addExamples(body.Content, route.Request.Examples)
		op.RequestBody = &openapi3.RequestBodyRef{Value: body}
	}

	codes := make([]int, 0, len(route.Responses))
	for code := range route.Responses {
		codes = append(codes, code)
	}

	slices.Sort(codes)

	for _, code := range codes {
		info := route.Responses[code]

		resp := openapi3.NewResponse().WithDescription(info.Description)

		if info.TypeValue != nil {
			ref, err := openapi3gen.NewSchemaRefForValue(info.TypeValue, schemas)
			if err != nil {
				return nil, fmt.Errorf("response %d schema: %w", code, err)
			}

			resp = resp.WithJSONSchemaRef(ref)
			addExamples(resp.Content, info.Examples)
		}

		op.Responses.Set(strconv.Itoa(code), &openapi3.ResponseRef{Value: resp})
	}

	return op, nil
}

func buildParameter(p ParameterInfo) (*openapi3.Parameter, error) {
	var param *openapi3.Parameter

	switch p.In {
	case "path":
		param = openapi3.NewPathParameter(p.Name)
	case "query":
		param = openapi3.NewQueryParameter(p.Name)
	case "header":
		param = openapi3.NewHeaderParameter(p.Name)
	default:
		return nil, fmt.Errorf("parameter %s: unsupported location %q", p.Name, p.In)
	}

	ref, err := openapi3gen.NewSchemaRefForValue(p.TypeValue, nil)
	if err != nil {
		return nil, fmt.Errorf("parameter %s schema: %w", p.Name, err)
	}

	return param.WithDescription(p.Description).WithRequired(p.Required).WithSchema(ref.Value), nil
}

func addExamples(content openapi3.Content, examples map[string]any) {
	if len(examples) == 0 {
		return
	}

	media := content.Get("application/json")
	if media == nil {
		return
	}

	media.Examples = openapi3.Examples{}
	for name, value := range examples {
		media.Examples[name] = &openapi3.ExampleRef{Value: openapi3.NewExample(value)}
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if !strings.HasSuffix(string(data), "\n") {
		data = append(data, '\n')
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
