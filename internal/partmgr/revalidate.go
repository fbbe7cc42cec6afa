package partmgr

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/catalogmut/enginecore/internal/catalog"
)

// ScanFunc performs the actual Phase-3 row-by-row check for one partition
// against constraint — supplied by the caller since the scan itself needs a
// live heap/row source this package doesn't own (spec.md §4.3 Phase 3).
type ScanFunc func(ctx context.Context, partition catalog.OID, constraint string) error

// RevalidateConcurrently fans scan out across every partition in need, one
// goroutine per partition, the way a large ATTACH PARTITION's default-
// partition revalidation and a new CREATE INDEX's per-partition clone scans
// both want to run without serializing on the slowest table (spec.md §4.5).
// The first failing scan's error is returned once every goroutine has
// finished; ctx is canceled for the others as soon as one fails.
func RevalidateConcurrently(ctx context.Context, targets []catalog.OID, constraint string, scan ScanFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range targets {
		p := p
		g.Go(func() error {
			return scan(gctx, p, constraint)
		})
	}
	return g.Wait()
}
