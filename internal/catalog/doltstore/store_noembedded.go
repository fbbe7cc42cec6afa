//go:build !cgo

package doltstore

import (
	"context"
	"fmt"
)

// newEmbeddedMode is unavailable in a non-cgo build; the dolthub/driver
// embedded engine requires cgo. Run with cfg.ServerMode = true against a
// `dolt sql-server` instead, which uses the pure-Go go-sql-driver/mysql path.
func newEmbeddedMode(ctx context.Context, cfg *Config) (*Store, error) {
	return nil, fmt.Errorf("doltstore: embedded mode requires a cgo build; use server mode (cfg.ServerMode = true)")
}
