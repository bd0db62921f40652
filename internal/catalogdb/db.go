// Package catalogdb persists merged source catalogs in a sqlite
// database: one row per merge run plus the flattened detection rows,
// with masked cells stored as NULL. Schema versioning is handled by
// golang-migrate over embedded migration files.
package catalogdb

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// Store wraps the sqlite connection holding merge runs.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the catalog database at path without touching
// the schema; run MigrateUp to bring it to the latest version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db}, nil
}
