package generate

// RouteInfo describes one documented HTTP operation.
type RouteInfo struct {
	OperationID string
	Method      string
	Path        string
	Summary     string
	Description string
	Group       string
	Deprecated  string
	Parameters  []ParameterInfo
	Request     *RequestInfo
	Responses   map[int]ResponseInfo
}

// ParameterInfo describes a path, query or header parameter.
type ParameterInfo struct {
	Name        string
	In          string
	TypeValue   any
	Description string
	Required    bool
}

// RequestInfo describes a JSON request body.
type RequestInfo struct {
	TypeValue any
	Examples  map[string]any
}

// ResponseInfo describes one response status of an operation.
type ResponseInfo struct {
	Description string
	TypeValue   any
	Examples    map[string]any
}

// MQTTTopicParameter describes a {param} segment of a topic.
type MQTTTopicParameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TypeValue   any    `json:"-"`
}

// MQTTPublicationInfo describes a message this service publishes.
type MQTTPublicationInfo struct {
	OperationID     string               `json:"operationID"`
	Topic           string               `json:"topic"`
	TopicMQTT       string               `json:"topicMQTT"`
	TopicParameters []MQTTTopicParameter `json:"topicParameters,omitempty"`
	Summary         string               `json:"summary"`
	Description     string               `json:"description"`
	Group           string               `json:"group"`
	Deprecated      string               `json:"deprecated,omitempty"`
	QoS             byte                 `json:"qos"`
	Retained        bool                 `json:"retained"`
	TypeValue       any                  `json:"-"`
	Examples        map[string]any       `json:"examples,omitempty"`
}

// MQTTSubscriptionInfo describes a message this service consumes.
type MQTTSubscriptionInfo struct {
	OperationID     string               `json:"operationID"`
	Topic           string               `json:"topic"`
	TopicMQTT       string               `json:"topicMQTT"`
	TopicParameters []MQTTTopicParameter `json:"topicParameters,omitempty"`
	Summary         string               `json:"summary"`
	Description     string               `json:"description"`
	Group           string               `json:"group"`
	Deprecated      string               `json:"deprecated,omitempty"`
	QoS             byte                 `json:"qos"`
	TypeValue       any                  `json:"-"`
	Examples        map[string]any       `json:"examples,omitempty"`
}

// HTTPMetadataCollector receives HTTP route registrations.
type HTTPMetadataCollector interface {
	RegisterRoute(route *RouteInfo) error
}

// MQTTMetadataCollector receives MQTT operation registrations.
type MQTTMetadataCollector interface {
	RegisterMQTTPublication(pub *MQTTPublicationInfo) error
	RegisterMQTTSubscription(sub *MQTTSubscriptionInfo) error
}

// MetadataCollector gathers every registration and renders documentation on Generate.
type MetadataCollector interface {
	HTTPMetadataCollector
	MQTTMetadataCollector
	Generate() error
}

// NoopCollector accepts everything and generates nothing. Used at runtime.
type NoopCollector struct{}

func (n *NoopCollector) RegisterRoute(*RouteInfo) error                       { return nil }
func (n *NoopCollector) RegisterMQTTPublication(*MQTTPublicationInfo) error   { return nil }
func (n *NoopCollector) RegisterMQTTSubscription(*MQTTSubscriptionInfo) error { return nil }
func (n *NoopCollector) Generate() error                                      { return nil }
