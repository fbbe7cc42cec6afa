package main

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/inherit"
)

// txDeleter implements oncommit.Deleter against an open transaction, draining
// the ON COMMIT registry at commit time (spec.md §4.7). TruncateRelations has
// no live heap to empty in this module's scope (see internal/altercontrol's
// RunPhase3 doc comment); it only broadcasts the invalidation a real heap
// truncate would also need to send.
type txDeleter struct {
	tx catalog.Tx
}

func (d txDeleter) TruncateRelations(ctx context.Context, relids []catalog.OID) error {
	for _, relid := range relids {
		if err := d.tx.Invalidate(ctx, relid); err != nil {
			return err
		}
	}
	return nil
}

func (d txDeleter) DropRelations(ctx context.Context, relids []catalog.OID) error {
	plan, err := inherit.PlanDrop(ctx, d.tx, relids, catalog.DropCascade)
	if err != nil {
		return err
	}
	return plan.Execute(ctx, d.tx)
}
