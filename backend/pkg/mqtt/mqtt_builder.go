package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"robot-bridge/backend/pkg/generate"
	"robot-bridge/backend/pkg/utils"
)

// MQTTBuilder registers publications and subscriptions and owns the paho client.
// Registration must finish before Connect.
type MQTTBuilder struct {
	client        paho.Client
	wrappedClient *MQTTClient
	collector     generate.MQTTMetadataCollector
	l             *slog.Logger
	broker        string
	operationIDs  map[string]struct{}
	publications  map[string]*PublicationSpec
	subscriptions map[string]*SubscriptionSpec

	connected      atomic.Bool
	runConnectOnce atomic.Bool
}

// MQTTClientOptions contains configuration for creating an MQTT client.
type MQTTClientOptions struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
}

// NewMQTTBuilder creates a new MQTT builder with the given broker configuration.
func NewMQTTBuilder(l *slog.Logger, collector generate.MQTTMetadataCollector, opts MQTTClientOptions) (*MQTTBuilder, error) {
	l = l.With(slog.String("component", "mqtt-builder"))

	if opts.BrokerURL == "" {
		return nil, errors.New("broker URL is required")
	}

	if opts.ClientID == "" {
		return nil, errors.New("client ID is required")
	}

	if collector == nil {
		return nil, errors.New("collector is required")
	}

	useTLS, err := isTLSBroker(opts.BrokerURL)
	if err != nil {
		return nil, err
	}

	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 60 * time.Second
	}

	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	mb := &MQTTBuilder{
		collector:     collector,
		l:             l,
		broker:        opts.BrokerURL,
		operationIDs:  make(map[string]struct{}),
		publications:  make(map[string]*PublicationSpec),
		subscriptions: make(map[string]*SubscriptionSpec),
	}

	clientOpts := paho.NewClientOptions()
	clientOpts.AddBroker(opts.BrokerURL)
	clientOpts.SetClientID(opts.ClientID)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}

	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	if useTLS {
		// nil RootCAs selects the system pool
		clientOpts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	clientOpts.SetConnectRetryInterval(5 * time.Second)
	clientOpts.SetMaxReconnectInterval(15 * time.Second)
	clientOpts.SetKeepAlive(opts.KeepAlive)

	clientOpts.SetOnConnectHandler(mb.onConnect)
	clientOpts.SetConnectionLostHandler(mb.onConnectionLost)
	clientOpts.SetReconnectingHandler(mb.onReconnecting)

	mb.client = paho.NewClient(clientOpts)
	mb.wrappedClient = &MQTTClient{
		client:  mb.client,
		builder: mb,
	}

	l.Info("MQTT builder created", slog.String("broker", opts.BrokerURL), slog.String("clientID", opts.ClientID), slog.Bool("tls", useTLS))

	return mb, nil
}

// isTLSBroker parses the broker URL and reports whether its scheme requires TLS.
func isTLSBroker(broker string) (bool, error) {
	u, err := url.Parse(broker)
	if err != nil {
		return false, fmt.Errorf("invalid broker URL %q: %w", broker, err)
	}

	switch u.Scheme {
	case "ssl", "tls", "mqtts", "wss":
		return true, nil
	case "tcp", "mqtt", "ws":
		return false, nil
	default:
		return false, fmt.Errorf("unsupported broker URL scheme %q", u.Scheme)
	}
}

// Client returns the publishing client.
func (mb *MQTTBuilder) Client() *MQTTClient {
	return mb.wrappedClient
}

// RegisterPublish registers a publication operation.
func (mb *MQTTBuilder) RegisterPublish(topic string, spec PublicationSpec) error {
	if mb.runConnectOnce.Load() {
		return errors.New("cannot register publication after connecting to MQTT broker")
	}

	if err := validateTopicPattern(topic); err != nil {
		return fmt.Errorf("invalid topic pattern: %w", err)
	}

	if err := mb.validatePublicationSpec(spec); err != nil {
		return fmt.Errorf("invalid publication spec: %w", err)
	}

	if _, exists := mb.operationIDs[spec.OperationID]; exists {
		return fmt.Errorf("duplicate operationID: %s", spec.OperationID)
	}

	topicParams, err := generateParameters(topic, spec.TopicParameters)
	if err != nil {
		return fmt.Errorf("failed to generate topic parameters in operationID %s: %w", spec.OperationID, err)
	}

	spec.TopicMQTT = convertTopicToMQTT(topic)

	if err := mb.collector.RegisterMQTTPublication(&generate.MQTTPublicationInfo{
		OperationID:     spec.OperationID,
		Topic:           topic,
		TopicMQTT:       spec.TopicMQTT,
		TopicParameters: topicParams,
		Summary:         spec.Summary,
		Description:     spec.Description,
		Group:           spec.Group,
		Deprecated:      spec.Deprecated,
		QoS:             byte(spec.QoS),
		Retained:        spec.Retained,
		TypeValue:       spec.MessageType,
		Examples:        spec.Examples,
	}); err != nil {
		return fmt.Errorf("failed to register publication with collector: %w", err)
	}

	mb.operationIDs[spec.OperationID] = struct{}{}
	mb.publications[spec.OperationID] = &spec

	mb.l.Info("Registered MQTT publication", slog.String("operationID", spec.OperationID), slog.String("topic", topic), slog.String("group", spec.Group))

	return nil
}

// MustRegisterPublish registers a publication operation and terminates the program if an error occurs.
func (mb *MQTTBuilder) MustRegisterPublish(topic string, spec PublicationSpec) {
	if err := mb.RegisterPublish(topic, spec); err != nil {
		mb.l.Error("Failed to register publication", slog.String("operationID", spec.OperationID), slog.String("topic", topic), utils.ErrAttr(err))
		os.Exit(1)
	}
}

// RegisterSubscribe registers a subscription operation. The handler is attached on every (re)connect.
func (mb *MQTTBuilder) RegisterSubscribe(topic string, spec SubscriptionSpec) error {
	if mb.runConnectOnce.Load() {
		return errors.New("cannot register subscription after connecting to MQTT broker")
	}

	if err := validateTopicPattern(topic); err != nil {
		return fmt.Errorf("invalid topic pattern: %w", err)
	}

	if err := mb.validateSubscriptionSpec(spec); err != nil {
		return fmt.Errorf("invalid subscription spec: %w", err)
	}

	if _, exists := mb.operationIDs[spec.OperationID]; exists {
		return fmt.Errorf("duplicate operationID: %s", spec.OperationID)
	}

	topicParams, err := generateParameters(topic, spec.TopicParameters)
	if err != nil {
		return fmt.Errorf("failed to generate topic parameters in operationID %s: %w", spec.OperationID, err)
	}

	spec.TopicMQTT = convertTopicToMQTT(topic)

	if err := mb.collector.RegisterMQTTSubscription(&generate.MQTTSubscriptionInfo{
		OperationID:     spec.OperationID,
		Topic:           topic,
		TopicMQTT:       spec.TopicMQTT,
		TopicParameters: topicParams,
		Summary:         spec.Summary,
		Description:     spec.Description,
		Group:           spec.Group,
		Deprecated:      spec.Deprecated,
		QoS:             byte(spec.QoS),
		TypeValue:       spec.MessageType,
		Examples:        spec.Examples,
	}); err != nil {
		return fmt.Errorf("failed to register subscription with collector: %w", err)
	}

	mb.operationIDs[spec.OperationID] = struct{}{}
	mb.subscriptions[spec.OperationID] = &spec

	mb.l.Info("Registered MQTT subscription", slog.String("operationID", spec.OperationID), slog.String("topic", topic), slog.String("group", spec.Group))

	return nil
}

// MustRegisterSubscribe registers a subscription operation and terminates the program if an error occurs.
func (mb *MQTTBuilder) MustRegisterSubscribe(topic string, spec SubscriptionSpec) {
	if err := mb.RegisterSubscribe(topic, spec); err != nil {
		mb.l.Error("Failed to register subscription", slog.String("operationID", spec.OperationID), slog.String("topic", topic), utils.ErrAttr(err))
		os.Exit(1)
	}
}

// Connect starts the connection and waits until it is established or ctx is done.
// On timeout paho keeps retrying in the background and subscriptions are attached once it connects.
func (mb *MQTTBuilder) Connect(ctx context.Context) error {
	if mb.runConnectOnce.Swap(true) {
		return errors.New("connect already called")
	}

	mb.l.Info("Connecting to MQTT broker", slog.String("broker", mb.broker))

	token := mb.client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", mb.broker, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", mb.broker, err)
	}

	return nil
}

// Disconnect disconnects from the MQTT broker. It also stops the background connect retry
// of a client that never got a connection.
func (mb *MQTTBuilder) Disconnect() {
	mb.l.Info("Disconnecting from MQTT broker...", slog.Bool("connectionOpen", mb.client.IsConnectionOpen()))
	mb.client.Disconnect(250) // ms grace period
	mb.connected.Store(false)
	mb.l.Info("Disconnected from MQTT broker")
}

// onConnect runs on every successful connect and reconnect.
func (mb *MQTTBuilder) onConnect(client paho.Client) {
	mb.l.Info("Connected to MQTT broker, subscribing to topics", slog.Int("subscriptionCount", len(mb.subscriptions)))

	for _, spec := range mb.subscriptions {
		token := client.Subscribe(spec.TopicMQTT, byte(spec.QoS), spec.Handler)
		if !token.WaitTimeout(ackTimeout) {
			mb.l.Error("Timed out subscribing", slog.String("topic", spec.TopicMQTT), slog.String("operationID", spec.OperationID))
			continue
		}

		if err := token.Error(); err != nil {
			mb.l.Error("Failed to subscribe", slog.String("topic", spec.TopicMQTT), slog.String("operationID", spec.OperationID), utils.ErrAttr(err))
			continue
		}

		mb.l.Info("Subscribed", slog.String("topic", spec.TopicMQTT), slog.String("operationID", spec.OperationID))
	}

	mb.connected.Store(true)
}

func (mb *MQTTBuilder) onConnectionLost(_ paho.Client, err error) {
	mb.l.Warn("Connection to MQTT broker lost", utils.ErrAttr(err))
	mb.connected.Store(false)
}

func (mb *MQTTBuilder) onReconnecting(_ paho.Client, opts *paho.ClientOptions) {
	mb.l.Info("Reconnecting to MQTT broker", slog.String("broker", opts.Servers[0].String()))
}
