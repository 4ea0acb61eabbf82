package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"robot-bridge/backend/internal/api"
	"robot-bridge/backend/internal/config"
	mqttapi "robot-bridge/backend/internal/mqtt"
	"robot-bridge/backend/internal/robot"
	"robot-bridge/backend/internal/services"
	apicommon "robot-bridge/backend/internal/shared/api"
	"robot-bridge/backend/internal/store"
	"robot-bridge/backend/internal/store/mongostore"
	"robot-bridge/backend/internal/store/sqlstore"
	"robot-bridge/backend/internal/telemetry"
	"robot-bridge/backend/pkg/broker"
	"robot-bridge/backend/pkg/dialect"
	"robot-bridge/backend/pkg/generate"
	"robot-bridge/backend/pkg/live"
	"robot-bridge/backend/pkg/migrator"
	"robot-bridge/backend/pkg/mqtt"
	"robot-bridge/backend/pkg/router"
	"robot-bridge/backend/pkg/utils"
	"robot-bridge/web"
)

const storeOpenTimeout = 15 * time.Second

func main() {
	sigCtx, sigCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigCancel()

	config, err := config.New()
	if err != nil {
		fatalIfErr(slog.Default(), fmt.Errorf("failed to create config: %w", err))
	}

	defer utils.LogOnError(slog.Default(), config.Close, "failed to close config")

	logger := getLogger(config)

	collector, err := getCollector(config, logger)
	fatalIfErr(logger, err)

	// Embedded broker first, so the client below can reach it
	var mqttBroker *broker.Broker

	if config.MQTTEmbeddedBroker && !config.Generate {
		mqttBroker, err = broker.New(logger, fmt.Sprintf(":%d", config.MQTTBrokerPort))
		fatalIfErr(logger, err)
		fatalIfErr(logger, mqttBroker.Start())
	}

	// A store that cannot be reached leaves the bridge running without persistence
	var recordStore store.DocumentStore
	if !config.Generate {
		recordStore = openStore(sigCtx, logger, config)
	}

	// Builders
	rb, err := router.NewRouteBuilder(logger, collector)
	fatalIfErr(logger, err)

	mb, err := mqtt.NewMQTTBuilder(logger, collector, mqtt.MQTTClientOptions{
		BrokerURL:      config.MQTTBroker,
		ClientID:       config.MQTTClientID,
		Username:       config.MQTTUsername,
		Password:       config.MQTTPassword,
		KeepAlive:      config.MQTTKeepAlive,
		ConnectTimeout: config.MQTTConnectTimeout,
	})
	fatalIfErr(logger, err)

	state := robot.NewState()

	services, err := services.NewServices(logger, config, state, recordStore, mb.Client())
	fatalIfErr(logger, err)

	telemetryRouter := telemetry.NewRouter(logger, state, recordStore, telemetry.Topics{
		Status: config.Topics.Status,
		Data:   config.Topics.Data,
	})

	pages, err := web.NewPages()
	fatalIfErr(logger, err)

	static, err := web.StaticApp()
	fatalIfErr(logger, err)

	streamer := live.NewStreamer[robot.Snapshot](logger, state)

	apiHandler := api.NewHandler(logger, services, pages, streamer)
	mqttHandler := mqttapi.NewMQTTHandler(logger, telemetryRouter, config.Topics)

	apiHandler.RegisterRoutes(rb, apicommon.NewMiddlewareHandler(logger), static)
	registerMQTTHandlers(logger, mb, mqttHandler)

	if config.Generate {
		if err := collector.Generate(); err != nil {
			fatalIfErr(logger, fmt.Errorf("failed to generate API documentation: %w", err))
		}

		fatalIfErr(logger, generateDatabaseDocs(sigCtx, logger))

		return
	}

	// HTTP Server. Control routes answer 503 until the MQTT connect below has been attempted.
	httpServer := apicommon.NewHTTPServer(logger, fmt.Sprintf(":%d", config.Port), rb.Router())
	fatalIfErr(logger, httpServer.Listen())
	httpServer.StartOnBackground(sigCancel)

	connectCtx, connectCancel := context.WithTimeout(sigCtx, config.MQTTConnectTimeout)
	if err := mb.Connect(connectCtx); err != nil {
		logger.Warn("MQTT broker not reachable yet, retrying in the background", utils.ErrAttr(err))
	}

	connectCancel()

	services.Readiness.MarkReady()
	logger.Info("Startup complete, accepting control requests")

	// Wait for signal (either OS or some failure)
	<-sigCtx.Done()
	logger.Info("received signal, shutting down...")

	streamer.Close()

	logger.Info("http server shutting down...")

	if err := httpServer.ShutdownWithDefaultTimeout(); err != nil {
		logger.Error("http server shutdown failed", utils.ErrAttr(err))
	}

	mb.Disconnect()

	if recordStore != nil {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		utils.LogOnError(logger, func() error { return recordStore.Close(closeCtx) }, "failed to close record store")
		closeCancel()
	}

	if mqttBroker != nil {
		utils.LogOnError(logger, mqttBroker.Close, "mqtt broker shutdown failed")
	}

	logger.Info("server exited gracefully")
}

// openStore returns nil, not a typed nil, when the store is disabled or unreachable.
//
//nolint:ireturn // Returns the DocumentStore of the configured driver
func openStore(ctx context.Context, l *slog.Logger, c *config.Config) store.DocumentStore {
	ctx, cancel := context.WithTimeout(ctx, storeOpenTimeout)
	defer cancel()

	l = l.With(slog.String("driver", string(c.StoreDriver)))

	switch c.StoreDriver {
	case config.StoreNone:
		l.Warn("No record store configured, telemetry will not be persisted")

		return nil

	case config.StoreMemory:
		l.Warn("Using the in-memory record store, records are lost on restart")

		return store.NewMemory()

	case config.StoreMongo:
		st, err := mongostore.New(ctx, l, mongostore.Options{
			URI:                 c.MongoURI,
			Database:            c.MongoDB,
			TelemetryCollection: c.TelemetryCollection,
			SensorCollection:    c.SensorCollection,
		})
		if err != nil {
			l.Error("Record store unavailable, running without persistence", utils.ErrAttr(err))

			return nil
		}

		return st

	case config.StoreSQLite, config.StorePostgres:
		st, err := sqlstore.New(ctx, l, dialect.Dialect(c.StoreDriver), c.Database)
		if err != nil {
			l.Error("Record store unavailable, running without persistence", utils.ErrAttr(err))

			return nil
		}

		return st
	}

	return nil
}

// registerMQTTHandlers registers all MQTT handlers.
func registerMQTTHandlers(l *slog.Logger, mb *mqtt.MQTTBuilder, h *mqttapi.Handler) {
	l.Info("Registering MQTT handlers...")
	h.RegisterAll(mb)
	l.Info("MQTT handlers registered successfully")
}

// generateDatabaseDocs migrates a scratch SQLite database and writes its schema and a
// table summary next to the API docs.
func generateDatabaseDocs(ctx context.Context, l *slog.Logger) error {
	dir, err := os.MkdirTemp("", "robot-bridge-schema-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}

	defer utils.LogOnError(l, func() error { return os.RemoveAll(dir) }, "failed to remove temp dir")

	m, err := migrator.New(l, dialect.SQLite, filepath.Join(dir, "schema.sqlite"))
	if err != nil {
		return err
	}

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate scratch database: %w", err)
	}

	// needs the sqlite3 binary, which is not always installed
	if err := m.DumpSchema("schema.sql"); err != nil {
		l.Warn("Skipping schema.sql", utils.ErrAttr(err))
	}

	stats, err := m.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect scratch database: %w", err)
	}

	data, err := utils.ToJSONIndent(stats)
	if err != nil {
		return err
	}

	if err := os.WriteFile("database.json", append(data, '\n'), 0o644); err != nil { //nolint:gosec // documentation output
		return fmt.Errorf("failed to write database.json: %w", err)
	}

	l.Info("Database documentation generated", slog.Int("tables", len(stats.Tables)))

	return nil
}

//nolint:ireturn // Returns MetadataCollector interface (OpenAPICollector or NoopCollector)
func getCollector(c *config.Config, l *slog.Logger) (generate.MetadataCollector, error) {
	if !c.Generate {
		return &generate.NoopCollector{}, nil
	}

	return generate.NewOpenAPICollector(l, generate.OpenAPICollectorOptions{
		OpenAPISpecOutputPath:   "openapi.yaml",
		MessagingDocsOutputPath: "mqtt_docs.json",
		APIInfo: generate.APIInfo{
			Title:       "Robot Bridge API",
			Version:     utils.GetVersionShort(),
			Description: "Control and telemetry API of the robot bridge",
			Servers: []generate.ServerInfo{
				{URL: fmt.Sprintf("http://localhost:%d", c.Port), Description: "Local server"},
			},
		},
	})
}

func getLogger(config *config.Config) *slog.Logger {
	logOptions := slog.HandlerOptions{
		Level:       config.LogLevel,
		ReplaceAttr: utils.SlogReplacer,
	}

	var logHandler slog.Handler = slog.NewJSONHandler(config.LogOutput, &logOptions)
	if config.Generate {
		logHandler = slog.NewTextHandler(config.LogOutput, &logOptions)
	}

	return slog.New(logHandler).With(slog.String("version", utils.GetVersionShort()))
}

func fatalIfErr(l *slog.Logger, err error) {
	if err == nil {
		return
	}

	l.Error("error", utils.ErrAttr(err))
	os.Exit(1)
}
