//go:build cgo

package migrator

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"robot-bridge/backend/pkg/dialect"
)

func newTestMigrator(t *testing.T) (Migrator, string) {
	t.Helper()

	dbFile := filepath.Join(t.TempDir(), "records.db")

	m, err := New(slog.New(slog.NewTextHandler(os.Stdout, nil)), dialect.SQLite, dbFile)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return m, dbFile
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name    string
		d       dialect.Dialect
		connStr string
		errMsg  string
	}{
		{name: "empty conn string", d: dialect.SQLite, connStr: "", errMsg: "connection string is required"},
		{name: "in memory", d: dialect.SQLite, connStr: ":memory:", errMsg: "in-memory"},
		{name: "unknown dialect", d: dialect.Dialect("mysql"), connStr: "x", errMsg: "unsupported dialect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(l, tt.d, tt.connStr)
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("New() error = %v, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	m, dbFile := newTestMigrator(t)

	for range 2 {
		if err := m.Migrate(); err != nil {
			t.Fatalf("Migrate() error = %v", err)
		}
	}

	if _, err := os.Stat(dbFile); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestStatsDescribesRecordTables(t *testing.T) {
	t.Parallel()

	m, _ := newTestMigrator(t)

	if err := m.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	stats, err := m.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	telemetry := stats.Table("telemetry")
	if telemetry == nil {
		t.Fatalf("telemetry table missing from %+v", stats.Tables)
	}

	for _, col := range []string{"ts", "speed", "mode", "direction", "gas", "angle", "duration", "raw"} {
		if !telemetry.HasColumn(col) {
			t.Errorf("telemetry has no column %s", col)
		}
	}

	if len(telemetry.Indexes) != 1 || telemetry.Indexes[0].Name != "idx_telemetry_ts" {
		t.Errorf("telemetry indexes = %+v", telemetry.Indexes)
	}

	sensor := stats.Table("sensor")
	if sensor == nil || !sensor.HasColumn("gas") || !sensor.HasColumn("rpm4") {
		t.Errorf("sensor table = %+v", sensor)
	}
}

func TestDumpSchema(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sqlite3"); err != nil {
		t.Skip("sqlite3 binary not available")
	}

	m, dbFile := newTestMigrator(t)

	if err := m.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	schemaFile := filepath.Join(filepath.Dir(dbFile), "schema.sql")
	if err := m.DumpSchema(schemaFile); err != nil {
		t.Fatalf("DumpSchema() error = %v", err)
	}

	content, err := os.ReadFile(schemaFile)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(content), "CREATE TABLE telemetry") {
		t.Errorf("schema does not define telemetry:\n%s", content)
	}
}
