// Package doltstore is a distributed, versioned Catalog implementation
// backed by Dolt, grounded in internal/storage/dolt: embedded access via
// github.com/dolthub/driver (CGO, no server process) or server mode via
// go-sql-driver/mysql (pure Go, multi-writer), both behind the same
// database/sql-backed Tx, with server-mode transient errors retried via
// cenkalti/backoff and every statement traced/measured with OpenTelemetry.
package doltstore

import "time"

// Config mirrors internal/storage/dolt.Config's split between embedded and
// server connection modes.
type Config struct {
	Path           string // directory for the embedded engine's on-disk state
	CommitterName  string
	CommitterEmail string
	Database       string // database name within Dolt (default: "enginecore")
	ReadOnly       bool

	ServerMode     bool
	ServerHost     string
	ServerPort     int
	ServerUser     string
	ServerPassword string
	ServerTLS      bool
}

func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.Database == "" {
		cfg.Database = "enginecore"
	}
	if cfg.CommitterName == "" {
		cfg.CommitterName = "enginecore"
	}
	if cfg.CommitterEmail == "" {
		cfg.CommitterEmail = "enginecore@localhost"
	}
	if cfg.ServerMode {
		if cfg.ServerHost == "" {
			cfg.ServerHost = "127.0.0.1"
		}
		if cfg.ServerPort == 0 {
			cfg.ServerPort = 3307
		}
		if cfg.ServerUser == "" {
			cfg.ServerUser = "root"
		}
	}
	return &cfg
}

const serverRetryMaxElapsed = 30 * time.Second
