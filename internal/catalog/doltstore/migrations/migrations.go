// Package migrations holds doltstore's schema migrations. Each migration is
// an idempotent function guarded by an information_schema existence check, so
// EnsureSchema can be re-run against an already-up-to-date database with no
// effect — the same idiom as sqlitestore/migrations, adapted for Dolt's
// MySQL-compatible dialect (information_schema.tables instead of
// sqlite_master).
package migrations

import "database/sql"

// Migration is one schema step.
type Migration struct {
	Name string
	Up   func(db *sql.DB) error
}

// All is applied, in order, every time a doltstore.Store is opened.
var All = []Migration{
	{Name: "001_core_catalog_tables", Up: MigrateCoreCatalogTables},
	{Name: "002_oid_sequence", Up: MigrateOIDSequence},
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow(
		`SELECT COUNT(*) > 0 FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`,
		name,
	).Scan(&exists)
	return exists, err
}
