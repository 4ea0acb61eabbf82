// Package dialect names the SQL backends the record store can run on.
package dialect

import (
	"embed"
	"fmt"
	"strconv"

	"robot-bridge/backend/internal/database/postgres"
	"robot-bridge/backend/internal/database/sqlite"
)

type Dialect string

const (
	SQLite     Dialect = "sqlite"
	PostgreSQL Dialect = "postgres"
)

func (d Dialect) Validate() error {
	switch d {
	case SQLite, PostgreSQL:
		return nil
	default:
		return fmt.Errorf("unsupported dialect: %s", d)
	}
}

func (d Dialect) String() string {
	return string(d)
}

// Driver is the database/sql driver name registered by the dialect's driver package.
func (d Dialect) Driver() string {
	switch d {
	case SQLite:
		return "sqlite3"
	case PostgreSQL:
		return "pgx"
	default:
		return ""
	}
}

// Placeholder returns the bind parameter for the n-th (1 based) argument.
func (d Dialect) Placeholder(n int) string {
	if d == PostgreSQL {
		return "$" + strconv.Itoa(n)
	}

	return "?"
}

func (d Dialect) MigrationFS() embed.FS {
	switch d {
	case SQLite:
		return sqlite.GetMigrationsFS()
	case PostgreSQL:
		return postgres.GetMigrationsFS()
	default:
		return embed.FS{}
	}
}
