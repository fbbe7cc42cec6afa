// Package sqlitestore is a single-node Catalog implementation backed by
// SQLite, grounded the way internal/storage/ephemeral backs its own
// SQLite-backed store: a pure-Go ncruces/go-sqlite3 driver registered via
// blank import, a single WAL-mode connection pool capped at one writer, and
// an idempotent schema migration step run at Open time. It exists for
// development and for the unit/integration tests in this module — a
// production distributed deployment uses internal/catalog/doltstore instead.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/catalog/sqlitestore/migrations"
)

// Store implements catalog.Catalog over one *sql.DB.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes OID allocation the same way a single writer serializes SQLite commits
}

// Open creates (if needed) and opens the catalog database at path, running
// every migration in migrations.All before returning.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlitestore: create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal=WAL&_busy_timeout=5000&_foreign_keys=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}

	for _, m := range migrations.All {
		if err := m.Up(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlitestore: migration %q: %w", m.Name, err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a new transactional handle.
func (s *Store) Begin(ctx context.Context) (catalog.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: begin: %w", err)
	}
	return &sqliteTx{tx: tx, store: s}, nil
}
