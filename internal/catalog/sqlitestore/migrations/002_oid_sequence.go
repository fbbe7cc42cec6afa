package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateOIDSequence creates the single-row counter NextOID increments.
// OIDs below 16384 are reserved for built-in/system relations the way the
// original system reserves its FirstNormalObjectId range, so the counter
// seeds above that.
func MigrateOIDSequence(db *sql.DB) error {
	exists, err := tableExists(db, "oid_sequence")
	if err != nil {
		return fmt.Errorf("check oid_sequence table: %w", err)
	}
	if exists {
		return nil
	}

	const firstNormalOID = 16384
	stmts := []string{
		`CREATE TABLE oid_sequence (id INTEGER PRIMARY KEY CHECK (id = 1), next_oid INTEGER NOT NULL)`,
		fmt.Sprintf(`INSERT INTO oid_sequence (id, next_oid) VALUES (1, %d)`, firstNormalOID),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
