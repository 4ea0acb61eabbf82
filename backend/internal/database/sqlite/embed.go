// Package sqlite embeds the SQLite migrations for the SQL record store.
package sqlite

import "embed"

//go:embed migrations/*.sql
var migrations embed.FS

func GetMigrationsFS() embed.FS {
	return migrations
}
