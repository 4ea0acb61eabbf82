// Package sqlite embeds the PostgreSQL migrations for the SQL record store.
package postgres

import "embed"

//go:embed migrations/*.sql
var migrations embed.FS

func GetMigrationsFS() embed.FS {
	return migrations
}
