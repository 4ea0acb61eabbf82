// Package mongostore implements store.DocumentStore on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"robot-bridge/backend/internal/store"
	"robot-bridge/backend/pkg/utils"
)

const serverSelectionTimeout = 5 * time.Second

type Options struct {
	URI                 string
	Database            string
	TelemetryCollection string
	SensorCollection    string
}

type Store struct {
	client    *mongo.Client
	telemetry *mongo.Collection
	sensor    *mongo.Collection
	l         *slog.Logger
}

var _ store.DocumentStore = (*Store)(nil)

// New connects, pings and ensures the timestamp indexes. The caller decides whether a failure is fatal.
func New(ctx context.Context, l *slog.Logger, opts Options) (*Store, error) {
	if opts.URI == "" || opts.Database == "" {
		return nil, errors.New("mongo URI and database are required")
	}

	l = l.With(slog.String("component", "mongo-store"), slog.String("database", opts.Database))

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetAppName("robot-bridge")

	// Atlas style SRV URIs pin the stable server API.
	if strings.HasPrefix(opts.URI, "mongodb+srv://") {
		clientOpts.SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	}

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	s := &Store{
		client:    client,
		telemetry: client.Database(opts.Database).Collection(opts.TelemetryCollection),
		sensor:    client.Database(opts.Database).Collection(opts.SensorCollection),
		l:         l,
	}

	if err := s.Ping(ctx); err != nil {
		utils.LogOnError(l, func() error { return client.Disconnect(context.WithoutCancel(ctx)) }, "failed to disconnect mongo client")

		return nil, err
	}

	for _, coll := range []*mongo.Collection{s.telemetry, s.sensor} {
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "timestamp", Value: -1}}})
		if err != nil {
			l.Warn("Failed to create timestamp index", slog.String("collection", coll.Name()), utils.ErrAttr(err))
		}
	}

	l.Info("Connected to MongoDB")

	return s, nil
}

func (s *Store) InsertTelemetry(ctx context.Context, rec store.TelemetryRecord) error {
	if _, err := s.telemetry.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert telemetry record: %w", err)
	}

	return nil
}

func (s *Store) InsertSensor(ctx context.Context, rec store.SensorRecord) error {
	if _, err := s.sensor.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert sensor record: %w", err)
	}

	return nil
}

func (s *Store) FindTelemetry(ctx context.Context, q store.Query) ([]store.TelemetryRecord, error) {
	return find[store.TelemetryRecord](ctx, s.telemetry, q)
}

func (s *Store) FindSensor(ctx context.Context, q store.Query) ([]store.SensorRecord, error) {
	return find[store.SensorRecord](ctx, s.sensor, q)
}

func find[T any](ctx context.Context, coll *mongo.Collection, q store.Query) ([]T, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if q.Limit > 0 {
		findOpts.SetLimit(int64(q.Limit))
	}

	cur, err := coll.Find(ctx, rangeFilter(q), findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s records: %w", coll.Name(), err)
	}

	return out, nil
}

// rangeFilter maps the half-open query range onto the timestamp field.
func rangeFilter(q store.Query) bson.M {
	ts := bson.M{}

	if !q.From.IsZero() {
		ts["$gte"] = q.From
	}

	if !q.To.IsZero() {
		ts["$lt"] = q.To
	}

	if len(ts) == 0 {
		return bson.M{}
	}

	return bson.M{"timestamp": ts}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}

	return nil
}

func (s *Store) Close(ctx context.Context) error {
	s.l.Info("Disconnecting from MongoDB")

	return s.client.Disconnect(ctx)
}
