package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateCoreCatalogTables creates the relations/attributes/constraints/
// indexes/inherits/dependencies tables backing catalog.Tx, mirroring
// sqlitestore's schema with Dolt/MySQL-dialect DDL (AUTO_INCREMENT is not
// used — OIDs are assigned explicitly via the oid_sequence counter so the
// same value space is shared across every catalog backend).
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
			oid BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			namespace BIGINT NOT NULL,
			kind VARCHAR(8) NOT NULL,
			persistence VARCHAR(16) NOT NULL,
			owner VARCHAR(255) NOT NULL DEFAULT '',
			tablespace BIGINT NOT NULL DEFAULT 0,
			has_oids TINYINT NOT NULL DEFAULT 0,
			has_subclass TINYINT NOT NULL DEFAULT 0,
			is_partition TINYINT NOT NULL DEFAULT 0,
			partition_bound TEXT,
			partition_key TEXT,
			replica_identity VARCHAR(8) NOT NULL DEFAULT 'd',
			replica_identity_index BIGINT NOT NULL DEFAULT 0,
			natts INT NOT NULL DEFAULT 0,
			reloptions TEXT,
			oncommit VARCHAR(8) NOT NULL DEFAULT '',
			row_security TINYINT NOT NULL DEFAULT 0,
			force_row_security TINYINT NOT NULL DEFAULT 0,
			UNIQUE KEY idx_relations_namespace_name (namespace, name)
		)`,

		`CREATE TABLE attributes (
			rel_id BIGINT NOT NULL,
			attnum INT NOT NULL,
			name VARCHAR(255) NOT NULL,
			type_oid BIGINT NOT NULL,
			typmod INT NOT NULL DEFAULT -1,
			collation_id BIGINT NOT NULL DEFAULT 0,
			storage VARCHAR(4) NOT NULL DEFAULT 'p',
			not_null TINYINT NOT NULL DEFAULT 0,
			has_default TINYINT NOT NULL DEFAULT 0,
			default_expr TEXT NOT NULL,
			identity VARCHAR(4) NOT NULL DEFAULT '',
			dropped TINYINT NOT NULL DEFAULT 0,
			inh_count INT NOT NULL DEFAULT 0,
			is_local TINYINT NOT NULL DEFAULT 1,
			PRIMARY KEY (rel_id, attnum)
		)`,

		`CREATE TABLE constraints (
			oid BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			namespace BIGINT NOT NULL,
			rel_id BIGINT NOT NULL,
			kind VARCHAR(8) NOT NULL,
			deferrable TINYINT NOT NULL DEFAULT 0,
			initially_deferred TINYINT NOT NULL DEFAULT 0,
			no_inherit TINYINT NOT NULL DEFAULT 0,
			validated TINYINT NOT NULL DEFAULT 1,
			inh_count INT NOT NULL DEFAULT 0,
			expr TEXT NOT NULL,
			index_oid BIGINT NOT NULL DEFAULT 0,
			columns TEXT,
			foreign_rel_id BIGINT NOT NULL DEFAULT 0,
			foreign_columns TEXT,
			foreign_on_delete VARCHAR(8) NOT NULL DEFAULT '',
			foreign_on_update VARCHAR(8) NOT NULL DEFAULT '',
			KEY idx_constraints_rel_id (rel_id)
		)`,

		`CREATE TABLE indexes (
			rel_oid BIGINT PRIMARY KEY,
			ind_rel_id BIGINT NOT NULL,
			key_columns TEXT,
			opclasses TEXT,
			collations TEXT,
			predicate TEXT NOT NULL,
			is_unique TINYINT NOT NULL DEFAULT 0,
			is_primary TINYINT NOT NULL DEFAULT 0,
			is_valid TINYINT NOT NULL DEFAULT 1,
			is_partial TINYINT NOT NULL DEFAULT 0,
			is_expression TINYINT NOT NULL DEFAULT 0,
			parent_index BIGINT NOT NULL DEFAULT 0,
			KEY idx_indexes_ind_rel_id (ind_rel_id)
		)`,

		`CREATE TABLE inherits (
			child_oid BIGINT NOT NULL,
			parent_oid BIGINT NOT NULL,
			seq_no INT NOT NULL,
			PRIMARY KEY (child_oid, parent_oid),
			KEY idx_inherits_parent (parent_oid)
		)`,

		`CREATE TABLE dependencies (
			dependent_oid BIGINT NOT NULL,
			dependent_sub INT NOT NULL DEFAULT 0,
			referenced_oid BIGINT NOT NULL,
			referenced_sub INT NOT NULL DEFAULT 0,
			kind VARCHAR(8) NOT NULL,
			KEY idx_dependencies_dependent (dependent_oid),
			KEY idx_dependencies_referenced (referenced_oid)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
