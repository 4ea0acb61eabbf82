// Package sqlstore implements store.DocumentStore on SQLite or PostgreSQL. Each record is a row
// with its raw payload kept as JSON next to the indexed columns.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"robot-bridge/backend/internal/store"
	"robot-bridge/backend/pkg/dialect"
	"robot-bridge/backend/pkg/migrator"
	"robot-bridge/backend/pkg/utils"
)

type Store struct {
	db      *sql.DB
	dialect dialect.Dialect
	l       *slog.Logger
}

var _ store.DocumentStore = (*Store)(nil)

// New migrates the database and opens a pool on it. For SQLite connStr is a file path,
// for PostgreSQL a postgres:// URL.
func New(ctx context.Context, l *slog.Logger, d dialect.Dialect, connStr string) (*Store, error) {
	l = l.With(slog.String("component", "sql-store"), slog.String("dialect", d.String()))

	m, err := migrator.New(l, d, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Migrate(); err != nil {
		return nil, err
	}

	dsn := connStr
	if d == dialect.SQLite {
		dsn = "file:" + connStr + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d == dialect.SQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, dialect: d, l: l}

	if err := s.Ping(ctx); err != nil {
		utils.LogOnError(l, db.Close, "failed to close database")

		return nil, err
	}

	l.Info("SQL store ready")

	return s, nil
}

func (s *Store) InsertTelemetry(ctx context.Context, rec store.TelemetryRecord) error {
	raw, err := utils.ToJSON(orEmpty(rec.Raw))
	if err != nil {
		return fmt.Errorf("failed to encode raw payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.insert("telemetry", "ts", "speed", "mode", "direction", "gas", "angle", "duration", "raw"),
		rec.Timestamp.UnixMilli(), rec.Speed, rec.Mode, rec.Direction, nullInt(rec.Gas), nullInt(rec.Angle), nullInt(rec.Duration), string(raw))
	if err != nil {
		return fmt.Errorf("failed to insert telemetry record: %w", err)
	}

	return nil
}

func (s *Store) InsertSensor(ctx context.Context, rec store.SensorRecord) error {
	raw, err := utils.ToJSON(orEmpty(rec.Raw))
	if err != nil {
		return fmt.Errorf("failed to encode raw payload: %w", err)
	}

	rpm := make([]any, 4)
	for i := range rpm {
		if i < len(rec.RPM) {
			rpm[i] = nullInt(rec.RPM[i])
		} else {
			rpm[i] = sql.NullInt64{}
		}
	}

	_, err = s.db.ExecContext(ctx, s.insert("sensor", "ts", "gas", "rpm1", "rpm2", "rpm3", "rpm4", "raw"),
		rec.Timestamp.UnixMilli(), nullInt(rec.Gas), rpm[0], rpm[1], rpm[2], rpm[3], string(raw))
	if err != nil {
		return fmt.Errorf("failed to insert sensor record: %w", err)
	}

	return nil
}

func (s *Store) FindTelemetry(ctx context.Context, q store.Query) ([]store.TelemetryRecord, error) {
	query, args := s.selectQuery("telemetry", "ts, speed, mode, direction, gas, angle, duration, raw", q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	defer utils.LogOnError(s.l, rows.Close, "failed to close telemetry rows")

	out := []store.TelemetryRecord{}

	for rows.Next() {
		var (
			rec             store.TelemetryRecord
			ts              int64
			gas, angle, duration sql.NullInt64
			raw             string
		)

		if err := rows.Scan(&ts, &rec.Speed, &rec.Mode, &rec.Direction, &gas, &angle, &duration, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan telemetry row: %w", err)
		}

		rec.Timestamp = time.UnixMilli(ts).UTC()
		rec.Gas = intPtr(gas)
		rec.Angle = intPtr(angle)
		rec.Duration = intPtr(duration)

		if rec.Raw, err = utils.FromJSON[map[string]any]([]byte(raw)); err != nil {
			return nil, fmt.Errorf("failed to decode raw telemetry payload: %w", err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate telemetry rows: %w", err)
	}

	return out, nil
}

func (s *Store) FindSensor(ctx context.Context, q store.Query) ([]store.SensorRecord, error) {
	query, args := s.selectQuery("sensor", "ts, gas, rpm1, rpm2, rpm3, rpm4, raw", q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor: %w", err)
	}
	defer utils.LogOnError(s.l, rows.Close, "failed to close sensor rows")

	out := []store.SensorRecord{}

	for rows.Next() {
		var (
			rec store.SensorRecord
			ts  int64
			gas sql.NullInt64
			rpm [4]sql.NullInt64
			raw string
		)

		if err := rows.Scan(&ts, &gas, &rpm[0], &rpm[1], &rpm[2], &rpm[3], &raw); err != nil {
			return nil, fmt.Errorf("failed to scan sensor row: %w", err)
		}

		rec.Timestamp = time.UnixMilli(ts).UTC()
		rec.Gas = intPtr(gas)

		rec.RPM = make([]*int, len(rpm))
		for i := range rpm {
			rec.RPM[i] = intPtr(rpm[i])
		}

		if rec.Raw, err = utils.FromJSON[map[string]any]([]byte(raw)); err != nil {
			return nil, fmt.Errorf("failed to decode raw sensor payload: %w", err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensor rows: %w", err)
	}

	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}

	return nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func (s *Store) insert(table string, columns ...string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = s.dialect.Placeholder(i + 1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// selectQuery builds a newest-first select over [q.From, q.To). Ties keep insertion order reversed.
func (s *Store) selectQuery(table, columns string, q store.Query) (string, []any) {
	var (
		where []string
		args  []any
	)

	if !q.From.IsZero() {
		args = append(args, q.From.UnixMilli())
		where = append(where, "ts >= "+s.dialect.Placeholder(len(args)))
	}

	if !q.To.IsZero() {
		args = append(args, q.To.UnixMilli())
		where = append(where, "ts < "+s.dialect.Placeholder(len(args)))
	}

	var b strings.Builder

	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, table)

	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	b.WriteString(" ORDER BY ts DESC, id DESC")

	if q.Limit > 0 {
		args = append(args, q.Limit)
		b.WriteString(" LIMIT " + s.dialect.Placeholder(len(args)))
	}

	return b.String(), args
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}

	i := int(v.Int64)

	return &i
}
