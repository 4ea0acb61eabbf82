package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"robot-bridge/backend/pkg/utils"
)

type EnvKey string

const (
	EnvGenerate EnvKey = "GENERATE"

	EnvPort      EnvKey = "PORT"
	EnvDataDir   EnvKey = "DATA_DIR"
	EnvLogLevel  EnvKey = "LOG_LEVEL"
	EnvLogToFile EnvKey = "LOG_TO_FILE"

	EnvStoreDriver         EnvKey = "STORE_DRIVER"
	EnvMongoURI            EnvKey = "MONGO_URI"
	EnvMongoDB             EnvKey = "MONGO_DB"
	// Collection names apply to mongo only. The SQL drivers use the migrated telemetry and
	// sensor tables and reject other values.
	EnvTelemetryCollection EnvKey = "TELEMETRY_COLLECTION"
	EnvSensorCollection    EnvKey = "SENSOR_COLLECTION"

	EnvDBHost    EnvKey = "DB_HOST"
	EnvDBPort    EnvKey = "DB_PORT"
	EnvDBName    EnvKey = "DB_NAME"
	EnvDBUser    EnvKey = "DB_USER"
	EnvDBPass    EnvKey = "DB_PASSWORD"
	EnvDBSSLMode EnvKey = "DB_SSLMODE"

	EnvMQTTEmbeddedBroker EnvKey = "MQTT_EMBEDDED_BROKER"
	EnvMQTTBrokerPort     EnvKey = "MQTT_SERVER_PORT"

	EnvMQTTBroker         EnvKey = "MQTT_BROKER"
	EnvMQTTClientID       EnvKey = "MQTT_CLIENT_ID"
	EnvMQTTUsername       EnvKey = "MQTT_USERNAME"
	EnvMQTTPassword       EnvKey = "MQTT_PASSWORD"
	EnvMQTTKeepAlive      EnvKey = "MQTT_KEEPALIVE"
	EnvMQTTConnectTimeout EnvKey = "MQTT_CONNECT_TIMEOUT"

	EnvMQTTCommandTopic EnvKey = "MQTT_CMD_TOPIC"
	EnvMQTTStatusTopic  EnvKey = "MQTT_STATUS_TOPIC"
	EnvMQTTDataTopic    EnvKey = "MQTT_DATA_TOPIC"
	EnvMQTTModeTopic    EnvKey = "MQTT_MODE_TOPIC"

	EnvAuthUsername  EnvKey = "AUTH_USERNAME"
	EnvAuthPassword  EnvKey = "AUTH_PASSWORD"
	EnvSessionSecret EnvKey = "SESSION_SECRET"

	EnvHistoryDefaultLimit EnvKey = "HISTORY_DEFAULT_LIMIT"
	EnvHistoryMaxLimit     EnvKey = "HISTORY_MAX_LIMIT"
)

// StoreDriver selects the record store backend.
type StoreDriver string

const (
	StoreMongo    StoreDriver = "mongo"
	StoreSQLite   StoreDriver = "sqlite"
	StorePostgres StoreDriver = "postgres"
	StoreMemory   StoreDriver = "memory"
	StoreNone     StoreDriver = "none"
)

const (
	defaultTelemetryCollection = "telemetry"
	defaultSensorCollection    = "sensor"
)

type Topics struct {
	Command string
	Status  string
	Data    string
	Mode    string
}

type Config struct {
	Port      int
	Generate  bool
	DataDir   string
	LogLevel  slog.Leveler
	LogOutput io.Writer

	StoreDriver         StoreDriver
	MongoURI            string
	MongoDB             string
	Database            string // SQL connection string for sqlite / postgres
	TelemetryCollection string
	SensorCollection    string

	// Embedded MQTT broker
	MQTTEmbeddedBroker bool
	MQTTBrokerPort     int

	MQTTBroker         string
	MQTTClientID       string
	MQTTUsername       string
	MQTTPassword       string
	MQTTKeepAlive      time.Duration
	MQTTConnectTimeout time.Duration
	Topics             Topics

	AuthUsername  string
	AuthPassword  string
	SessionSecret string

	HistoryDefaultLimit int
	HistoryMaxLimit     int
}

func New() (*Config, error) {
	dataDir := getStringEnv(EnvDataDir, "data")

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	var logOutput io.Writer = os.Stdout

	if getBoolEnv(EnvLogToFile, false) {
		f, err := os.OpenFile(filepath.Join(dataDir, "robot-bridge.log"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		logOutput = f
	}

	c := &Config{
		Port:                getIntEnv(EnvPort, 5000),
		Generate:            getBoolEnv(EnvGenerate, false),
		DataDir:             dataDir,
		LogLevel:            getLogLevelEnv(EnvLogLevel, slog.LevelInfo),
		LogOutput:           logOutput,
		StoreDriver:         StoreDriver(strings.ToLower(getStringEnv(EnvStoreDriver, string(StoreMongo)))),
		MongoURI:            getStringEnv(EnvMongoURI, "mongodb://localhost:27017/"),
		MongoDB:             getStringEnv(EnvMongoDB, "Mobile_Robot"),
		TelemetryCollection: getStringEnv(EnvTelemetryCollection, defaultTelemetryCollection),
		SensorCollection:    getStringEnv(EnvSensorCollection, defaultSensorCollection),
		MQTTEmbeddedBroker:  getBoolEnv(EnvMQTTEmbeddedBroker, false),
		MQTTBrokerPort:      getIntEnv(EnvMQTTBrokerPort, 1883),
		MQTTBroker:          getStringEnv(EnvMQTTBroker, "tcp://127.0.0.1:1883"),
		MQTTClientID:        getStringEnv(EnvMQTTClientID, "robot-bridge-"+utils.ShortID()),
		MQTTUsername:        getStringEnv(EnvMQTTUsername, ""),
		MQTTPassword:        getStringEnv(EnvMQTTPassword, ""),
		MQTTKeepAlive:       getDurationEnv(EnvMQTTKeepAlive, 60*time.Second),
		MQTTConnectTimeout:  getDurationEnv(EnvMQTTConnectTimeout, 10*time.Second),
		Topics: Topics{
			Command: getStringEnv(EnvMQTTCommandTopic, "robot/command/set"),
			Status:  getStringEnv(EnvMQTTStatusTopic, "robot/telemetry/status"),
			Data:    getStringEnv(EnvMQTTDataTopic, "robot/telemetry/data"),
			Mode:    getStringEnv(EnvMQTTModeTopic, "robot/mode/status"),
		},
		AuthUsername:        getStringEnv(EnvAuthUsername, ""),
		AuthPassword:        getStringEnv(EnvAuthPassword, ""),
		SessionSecret:       getStringEnv(EnvSessionSecret, ""),
		HistoryDefaultLimit: getIntEnv(EnvHistoryDefaultLimit, 50),
		HistoryMaxLimit:     getIntEnv(EnvHistoryMaxLimit, 500),
	}

	switch c.StoreDriver {
	case StoreMongo, StoreMemory, StoreNone:
	case StoreSQLite:
		c.Database = filepath.Join(dataDir, "records.sqlite")
	case StorePostgres:
		c.Database = fmt.Sprintf(
			"postgres://%s:%s@%s/%s?sslmode=%s",
			url.QueryEscape(getStringEnv(EnvDBUser, "robot")),
			url.QueryEscape(getStringEnv(EnvDBPass, "")),
			net.JoinHostPort(getStringEnv(EnvDBHost, "localhost"), strconv.Itoa(getIntEnv(EnvDBPort, 5432))),
			getStringEnv(EnvDBName, "robot"),
			getStringEnv(EnvDBSSLMode, "disable"),
		)
	default:
		return nil, errors.Join(fmt.Errorf("unsupported store driver: %s", c.StoreDriver), c.Close())
	}

	if err := c.validate(); err != nil {
		return nil, errors.Join(err, c.Close())
	}

	return c, nil
}

func (c *Config) validate() error {
	if c.StoreDriver == StoreSQLite || c.StoreDriver == StorePostgres {
		if c.TelemetryCollection != defaultTelemetryCollection || c.SensorCollection != defaultSensorCollection {
			return fmt.Errorf("%s and %s cannot be changed for the %s store", EnvTelemetryCollection, EnvSensorCollection, c.StoreDriver)
		}
	}

	if c.HistoryDefaultLimit <= 0 || c.HistoryMaxLimit < c.HistoryDefaultLimit {
		return fmt.Errorf("history limits must satisfy 0 < %s <= %s", EnvHistoryDefaultLimit, EnvHistoryMaxLimit)
	}

	if (c.AuthUsername == "") != (c.AuthPassword == "") {
		return fmt.Errorf("%s and %s must be set together", EnvAuthUsername, EnvAuthPassword)
	}

	topics := map[string]struct{}{}
	for _, t := range []string{c.Topics.Command, c.Topics.Status, c.Topics.Data, c.Topics.Mode} {
		if _, dup := topics[t]; dup || t == "" {
			return fmt.Errorf("MQTT topics must be distinct and non-empty, got %q", t)
		}

		topics[t] = struct{}{}
	}

	return nil
}

// AuthEnabled reports whether the session gate is configured.
func (c *Config) AuthEnabled() bool {
	return c.AuthUsername != "" && c.AuthPassword != ""
}

func (c *Config) Close() error {
	if f, ok := c.LogOutput.(*os.File); ok {
		if f != os.Stdout && f != os.Stderr {
			return f.Close()
		}
	}

	return nil
}

func getStringEnv(key EnvKey, defaultVal string) string {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	return val
}

func getBoolEnv(key EnvKey, defaultVal bool) bool {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func getIntEnv(key EnvKey, defaultVal int) int {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	if intVal, err := strconv.Atoi(val); err == nil {
		return intVal
	}

	return defaultVal
}

// getDurationEnv accepts Go durations ("90s") or a bare number of seconds.
func getDurationEnv(key EnvKey, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}

	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}

	return defaultVal
}

func getLogLevelEnv(key EnvKey, defaultVal slog.Leveler) slog.Leveler {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	switch strings.ToUpper(val) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}

	return defaultVal
}
