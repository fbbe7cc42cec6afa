// Package migrations holds sqlitestore's schema migrations, one file per
// migration following internal/storage/sqlite/migrations' idiom: a single
// idempotent function guarded by an existence check, so Open can re-run the
// full list against an already-up-to-date database with no effect.
package migrations

import "database/sql"

// Migration is one schema step.
type Migration struct {
	Name string
	Up   func(db *sql.DB) error
}

// All is applied, in order, every time Open runs.
var All = []Migration{
	{Name: "001_core_catalog_tables", Up: MigrateCoreCatalogTables},
	{Name: "002_oid_sequence", Up: MigrateOIDSequence},
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow(`SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&exists)
	return exists, err
}
