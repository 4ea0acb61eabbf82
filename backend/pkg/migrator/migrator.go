// Package migrator applies the embedded dbmate migrations of a dialect.
package migrator

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	"github.com/amacneil/dbmate/v2/pkg/dbutil"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/postgres"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"robot-bridge/backend/pkg/dbstats"
	"robot-bridge/backend/pkg/dialect"
	"robot-bridge/backend/pkg/utils"
)

const migrationsDir = "migrations"

// Migrator defines the interface for database migrations and schema operations.
type Migrator interface {
	Migrate() error
	DumpSchema(outputPath string) error
	Stats(ctx context.Context) (dbstats.DatabaseStats, error)
}

type migrator struct {
	db      *dbmate.DB
	dialect dialect.Dialect
	fs      embed.FS
	connStr string
	l       *slog.Logger
}

// New creates a migrator for d. For SQLite connStr is a file path, for PostgreSQL a postgres:// URL.
//
//nolint:ireturn // Returns Migrator interface
func New(l *slog.Logger, d dialect.Dialect, connStr string) (Migrator, error) {
	return newMigrator(l, d, d.MigrationFS(), connStr)
}

func newMigrator(l *slog.Logger, d dialect.Dialect, migrations embed.FS, connStr string) (*migrator, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if connStr == "" {
		return nil, errors.New("connection string is required")
	}

	if _, err := fs.ReadDir(migrations, migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	dbURL := connStr

	if d == dialect.SQLite {
		if strings.Contains(connStr, ":memory:") {
			return nil, errors.New("in-memory databases are not supported")
		}

		dbURL = "sqlite:" + connStr
	}

	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	l = l.With(slog.String("component", "db-migrator"), slog.String("dialect", d.String()))

	db := dbmate.New(u)
	db.Strict = true
	db.FS = migrations
	db.MigrationsDir = []string{migrationsDir}
	db.AutoDumpSchema = false
	db.Log = utils.NewSlogWriter(l)

	return &migrator{db: db, dialect: d, fs: migrations, connStr: connStr, l: l}, nil
}

func (m *migrator) Migrate() error {
	m.l.Info("Migrating database")

	if err := m.db.CreateAndMigrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// DumpSchema writes the current schema to filePath. dbmate shells out to sqlite3 or pg_dump for this.
func (m *migrator) DumpSchema(filePath string) error {
	m.db.SchemaFile = filePath

	m.l.Info("Dumping schema", slog.String("file", filePath))

	if err := m.db.DumpSchema(); err != nil {
		return fmt.Errorf("failed to dump schema: %w", err)
	}

	if m.dialect != dialect.PostgreSQL {
		return nil
	}

	schema, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	schema, err = dbutil.StripPsqlMetaCommands(schema)
	if err != nil {
		return fmt.Errorf("failed to strip psql meta commands: %w", err)
	}

	schema = append(bytes.TrimSpace(schema), '\n')

	if err := os.WriteFile(filePath, schema, 0o600); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	return nil
}

// Stats reads table, column and index metadata from the migrated database.
func (m *migrator) Stats(ctx context.Context) (dbstats.DatabaseStats, error) {
	db, err := sql.Open(m.dialect.Driver(), m.connStr)
	if err != nil {
		return dbstats.DatabaseStats{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer utils.LogOnError(m.l, db.Close, "failed to close database")

	var inspect inspector = sqliteInspector{}
	if m.dialect == dialect.PostgreSQL {
		inspect = postgresInspector{}
	}

	names, err := queryStrings(ctx, db, inspect.tablesQuery())
	if err != nil {
		return dbstats.DatabaseStats{}, fmt.Errorf("failed to list tables: %w", err)
	}

	stats := dbstats.DatabaseStats{Dialect: m.dialect.String(), Tables: make([]dbstats.Table, 0, len(names))}

	for _, name := range names {
		columns, err := inspect.columns(ctx, db, name)
		if err != nil {
			return dbstats.DatabaseStats{}, fmt.Errorf("failed to read columns of %s: %w", name, err)
		}

		indexes, err := inspect.indexes(ctx, db, name)
		if err != nil {
			return dbstats.DatabaseStats{}, fmt.Errorf("failed to read indexes of %s: %w", name, err)
		}

		stats.Tables = append(stats.Tables, dbstats.Table{Name: name, Columns: columns, Indexes: indexes})
	}

	return stats, nil
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // read-only

	var out []string

	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, rows.Err()
}
