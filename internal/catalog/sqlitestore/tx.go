package sqlitestore

import (
	"context"
	"database/sql"

	"github.com/catalogmut/enginecore/internal/catalog"
)

// sqliteTx implements catalog.Tx over one *sql.Tx.
type sqliteTx struct {
	tx    *sql.Tx
	store *Store
}

// CommandCounterIncrement is a no-op: every statement within a single SQLite
// transaction already sees the writes of earlier statements in the same
// transaction, so there is no separate command-counter snapshot to advance.
// The method exists so callers written against catalog.Tx don't special-case
// this backend.
func (t *sqliteTx) CommandCounterIncrement(ctx context.Context) error {
	return nil
}

// Invalidate is a no-op for a single-process, single-connection store: there
// is no other session's relcache to invalidate. A distributed backend (see
// doltstore) gives this method real content.
func (t *sqliteTx) Invalidate(ctx context.Context, oid catalog.OID) error {
	return nil
}

func (t *sqliteTx) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback()
}

// NextOID allocates the next OID from the single-row counter, serialized by
// store.mu since SQLite only allows one writer at a time anyway.
func (t *sqliteTx) NextOID(ctx context.Context) (catalog.OID, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var next int64
	if err := t.tx.QueryRowContext(ctx, `SELECT next_oid FROM oid_sequence WHERE id = 1`).Scan(&next); err != nil {
		return 0, err
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE oid_sequence SET next_oid = next_oid + 1 WHERE id = 1`); err != nil {
		return 0, err
	}
	return catalog.OID(next), nil
}
