package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"robot-bridge/backend/pkg/dbstats"
)

type inspector interface {
	tablesQuery() string
	columns(ctx context.Context, db *sql.DB, table string) ([]dbstats.Column, error)
	indexes(ctx context.Context, db *sql.DB, table string) ([]dbstats.Index, error)
}

type sqliteInspector struct{}

func (sqliteInspector) tablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

func (sqliteInspector) columns(ctx context.Context, db *sql.DB, table string) ([]dbstats.Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // read-only

	var columns []dbstats.Column

	for rows.Next() {
		var (
			c            dbstats.Column
			cid, notnull int
			pk           int
			dflt         sql.NullString
		)

		if err := rows.Scan(&cid, &c.Name, &c.Type, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}

		c.PrimaryKey = pk > 0
		c.NotNull = notnull == 1 || c.PrimaryKey

		if dflt.Valid {
			c.Default = &dflt.String
		}

		columns = append(columns, c)
	}

	return columns, rows.Err()
}

func (sqliteInspector) indexes(ctx context.Context, db *sql.DB, table string) ([]dbstats.Index, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA index_list(%q)`, table))
	if err != nil {
		return nil, err
	}

	var indexes []dbstats.Index

	for rows.Next() {
		var (
			seq, unique            int
			name, origin, partial string
		)

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close() //nolint:errcheck,gosec // already failing

			return nil, err
		}

		if origin != "pk" {
			indexes = append(indexes, dbstats.Index{Name: name, Unique: unique == 1})
		}
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range indexes {
		cols, err := queryStrings(ctx, db, fmt.Sprintf(`SELECT name FROM pragma_index_info(%s) ORDER BY seqno`, quoteLiteral(indexes[i].Name)))
		if err != nil {
			return nil, err
		}

		indexes[i].Columns = cols
	}

	return indexes, nil
}

type postgresInspector struct{}

func (postgresInspector) tablesQuery() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (postgresInspector) columns(ctx context.Context, db *sql.DB, table string) ([]dbstats.Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.column_name, c.data_type, c.is_nullable = 'NO', c.column_default,
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage k
					ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = c.table_name
					AND k.column_name = c.column_name
			)
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // read-only

	var columns []dbstats.Column

	for rows.Next() {
		var (
			c    dbstats.Column
			dflt sql.NullString
		)

		if err := rows.Scan(&c.Name, &c.Type, &c.NotNull, &dflt, &c.PrimaryKey); err != nil {
			return nil, err
		}

		if dflt.Valid {
			c.Default = &dflt.String
		}

		columns = append(columns, c)
	}

	return columns, rows.Err()
}

func (postgresInspector) indexes(ctx context.Context, db *sql.DB, table string) ([]dbstats.Index, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT i.relname, ix.indisunique, array_to_string(array_agg(a.attname ORDER BY a.attnum), ',')
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE t.relname = $1 AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // read-only

	var indexes []dbstats.Index

	for rows.Next() {
		var (
			idx  dbstats.Index
			cols string
		)

		if err := rows.Scan(&idx.Name, &idx.Unique, &cols); err != nil {
			return nil, err
		}

		idx.Columns = strings.Split(cols, ",")
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
