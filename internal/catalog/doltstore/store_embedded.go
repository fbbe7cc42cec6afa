//go:build cgo

package doltstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	embedded "github.com/dolthub/driver"
)

const embeddedOpenMaxElapsed = 30 * time.Second

func newEmbeddedOpenBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = embeddedOpenMaxElapsed
	return bo
}

// newEmbeddedMode opens the engine's own on-disk Dolt database directly, no
// dolt sql-server process involved, grounded in
// internal/storage/dolt/store_embedded.go's UOW split: ensure the database
// exists, initialize schema, then open the real working connection.
func newEmbeddedMode(ctx context.Context, cfg *Config) (*Store, error) {
	if info, statErr := os.Stat(cfg.Path); statErr == nil && !info.IsDir() {
		return nil, fmt.Errorf("doltstore: path %q is a file, not a directory", cfg.Path)
	}
	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		return nil, fmt.Errorf("doltstore: create data directory: %w", err)
	}

	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("doltstore: resolve absolute path: %w", err)
	}

	initDSN := fmt.Sprintf("file://%s?commitname=%s&commitemail=%s", absPath, cfg.CommitterName, cfg.CommitterEmail)
	dbDSN := fmt.Sprintf("file://%s?commitname=%s&commitemail=%s&database=%s",
		absPath, cfg.CommitterName, cfg.CommitterEmail, cfg.Database)

	if !cfg.ReadOnly {
		if err := withEmbeddedDolt(ctx, initDSN, func(ctx context.Context, db *sql.DB) error {
			_, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database))
			return err
		}); err != nil {
			return nil, fmt.Errorf("doltstore: create database: %w", err)
		}
		if err := withEmbeddedDolt(ctx, dbDSN, func(ctx context.Context, db *sql.DB) error {
			return runMigrations(ctx, db)
		}); err != nil {
			return nil, fmt.Errorf("doltstore: initialize schema: %w", err)
		}
	}

	openCfg, err := embedded.ParseDSN(dbDSN)
	if err != nil {
		return nil, fmt.Errorf("doltstore: parse DSN: %w", err)
	}
	openCfg.BackOff = newEmbeddedOpenBackoff()

	connector, err := embedded.NewConnector(openCfg)
	if err != nil {
		return nil, fmt.Errorf("doltstore: create connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		connector.Close()
		return nil, fmt.Errorf("doltstore: ping embedded database: %w", err)
	}

	return &Store{db: db, serverMode: false, embeddedCloser: connector}, nil
}

// withEmbeddedDolt opens a short-lived connection against dsn, runs fn, and
// always closes it — used for the one-shot database-create and schema-init
// steps that happen before the long-lived Store connection is opened.
func withEmbeddedDolt(ctx context.Context, dsn string, fn func(context.Context, *sql.DB) error) error {
	openCfg, err := embedded.ParseDSN(dsn)
	if err != nil {
		return err
	}
	openCfg.BackOff = newEmbeddedOpenBackoff()
	connector, err := embedded.NewConnector(openCfg)
	if err != nil {
		return err
	}
	db := sql.OpenDB(connector)
	defer db.Close()
	defer connector.Close()
	return fn(ctx, db)
}
