package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateCoreCatalogTables creates the relations/attributes/constraints/
// indexes/inherits/dependencies tables backing catalog.Tx. Composite fields
// (partition bounds/keys, reloptions, key-column lists) are stored as JSON
// text, the way the teacher's issue_metadata_index treats its canonical
// metadata blob as the source of truth and indexes only the parts queried
// directly.
func MigrateCoreCatalogTables(db *sql.DB) error {
	exists, err := tableExists(db, "relations")
	if err != nil {
		return fmt.Errorf("check relations table: %w", err)
	}
	if exists {
		return nil
	}

	stmts := []string{
		`CREATE TABLE relations (
			oid INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			namespace INTEGER NOT NULL,
			kind TEXT NOT NULL,
			persistence TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			tablespace INTEGER NOT NULL DEFAULT 0,
			has_oids INTEGER NOT NULL DEFAULT 0,
			has_subclass INTEGER NOT NULL DEFAULT 0,
			is_partition INTEGER NOT NULL DEFAULT 0,
			partition_bound TEXT,
			partition_key TEXT,
			replica_identity TEXT NOT NULL DEFAULT 'd',
			replica_identity_index INTEGER NOT NULL DEFAULT 0,
			natts INTEGER NOT NULL DEFAULT 0,
			reloptions TEXT,
			oncommit TEXT NOT NULL DEFAULT '',
			row_security INTEGER NOT NULL DEFAULT 0,
			force_row_security INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX idx_relations_namespace_name ON relations(namespace, name)`,

		`CREATE TABLE attributes (
			rel_id INTEGER NOT NULL,
			attnum INTEGER NOT NULL,
			name TEXT NOT NULL,
			type_oid INTEGER NOT NULL,
			typmod INTEGER NOT NULL DEFAULT -1,
			collation_id INTEGER NOT NULL DEFAULT 0,
			storage TEXT NOT NULL DEFAULT 'p',
			not_null INTEGER NOT NULL DEFAULT 0,
			has_default INTEGER NOT NULL DEFAULT 0,
			default_expr TEXT NOT NULL DEFAULT '',
			identity TEXT NOT NULL DEFAULT '',
			dropped INTEGER NOT NULL DEFAULT 0,
			inh_count INTEGER NOT NULL DEFAULT 0,
			is_local INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (rel_id, attnum)
		)`,

		`CREATE TABLE constraints (
			oid INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			namespace INTEGER NOT NULL,
			rel_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			deferrable INTEGER NOT NULL DEFAULT 0,
			initially_deferred INTEGER NOT NULL DEFAULT 0,
			no_inherit INTEGER NOT NULL DEFAULT 0,
			validated INTEGER NOT NULL DEFAULT 1,
			inh_count INTEGER NOT NULL DEFAULT 0,
			expr TEXT NOT NULL DEFAULT '',
			index_oid INTEGER NOT NULL DEFAULT 0,
			columns TEXT,
			foreign_rel_id INTEGER NOT NULL DEFAULT 0,
			foreign_columns TEXT,
			foreign_on_delete TEXT NOT NULL DEFAULT '',
			foreign_on_update TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX idx_constraints_rel_id ON constraints(rel_id)`,

		`CREATE TABLE indexes (
			rel_oid INTEGER PRIMARY KEY,
			ind_rel_id INTEGER NOT NULL,
			key_columns TEXT,
			opclasses TEXT,
			collations TEXT,
			predicate TEXT NOT NULL DEFAULT '',
			is_unique INTEGER NOT NULL DEFAULT 0,
			is_primary INTEGER NOT NULL DEFAULT 0,
			is_valid INTEGER NOT NULL DEFAULT 1,
			is_partial INTEGER NOT NULL DEFAULT 0,
			is_expression INTEGER NOT NULL DEFAULT 0,
			parent_index INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX idx_indexes_ind_rel_id ON indexes(ind_rel_id)`,

		`CREATE TABLE inherits (
			child_oid INTEGER NOT NULL,
			parent_oid INTEGER NOT NULL,
			seq_no INTEGER NOT NULL,
			PRIMARY KEY (child_oid, parent_oid)
		)`,
		`CREATE INDEX idx_inherits_parent ON inherits(parent_oid)`,

		`CREATE TABLE dependencies (
			dependent_oid INTEGER NOT NULL,
			dependent_sub INTEGER NOT NULL DEFAULT 0,
			referenced_oid INTEGER NOT NULL,
			referenced_sub INTEGER NOT NULL DEFAULT 0,
			kind TEXT NOT NULL
		)`,
		`CREATE INDEX idx_dependencies_dependent ON dependencies(dependent_oid)`,
		`CREATE INDEX idx_dependencies_referenced ON dependencies(referenced_oid)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
