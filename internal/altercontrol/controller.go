package altercontrol

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/distribution"
	"github.com/catalogmut/enginecore/internal/lockmgr"
)

// RunOptions bundles the relation-level context RunPhase2/RunPhase3 need per
// relation, sourced from whatever distribution/partition metadata the
// caller's catalog row carries.
type RunOptions struct {
	Locks              *lockmgr.Table
	Owner              uint64
	DistributionColumn func(relID catalog.OID) string
	PartitionColumn    func(relID catalog.OID) string
	IsDistributed      func(relID catalog.OID) bool
	Reparse            ReparseHook

	// DistributionCheck, when set, is consulted before every sub-command
	// against a distributed relation (opts.IsDistributed reports true),
	// implementing spec.md §9's "CheckCmd callback rejects unsupported
	// patterns." Left nil, no check runs — matching distribution.NoopCheck.
	DistributionCheck *distribution.Registry
}

// ExecuteAlter runs all three phases of spec.md §4.3 for one ALTER TABLE
// statement against an already-open transaction: Prep builds the work queue
// and acquires locks, RunPhase2 drains it pass by pass, and the caller is
// responsible for invoking RunPhase3 against its own heap/row-source
// implementation for every info that NeedsRewrite() (Phase 3 is storage-
// engine specific and therefore not hardcoded here). Locks are released by
// the caller at transaction end via opts.Locks.ReleaseAll, matching spec.md
// §5's "held until the transaction terminates" rule.
func ExecuteAlter(ctx context.Context, tx catalog.Tx, stmt *Statement, opts RunOptions) (*Plan, error) {
	plan, err := Prep(ctx, tx, stmt)
	if err != nil {
		return nil, err
	}
	if opts.Locks != nil {
		if err := AcquireLocks(ctx, opts.Locks, opts.Owner, plan); err != nil {
			return nil, err
		}
	}

	relCache := make(map[catalog.OID]*catalog.Relation, len(plan.Infos))
	for _, info := range plan.Infos {
		rel, err := tx.GetRelation(ctx, info.RelID)
		if err != nil {
			return nil, err
		}
		relCache[info.RelID] = rel
	}

	err = RunPhase2(ctx, tx, plan, func(info *catalog.AlteredTableInfo) Executor {
		rel := relCache[info.RelID]
		distCol, partCol := "", ""
		isDist := false
		if opts.DistributionColumn != nil {
			distCol = opts.DistributionColumn(info.RelID)
		}
		if opts.PartitionColumn != nil {
			partCol = opts.PartitionColumn(info.RelID)
		}
		if opts.IsDistributed != nil {
			isDist = opts.IsDistributed(info.RelID)
		}
		exec := DefaultExecutor(rel, distCol, partCol, isDist, stmt.Only)
		if opts.DistributionCheck == nil || !isDist {
			return exec
		}
		return func(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, cmd *catalog.SubCommand) error {
			keyAttNum, err := distKeyAttNum(ctx, tx, info.RelID, distCol)
			if err != nil {
				return err
			}
			change := distribution.Change{
				RelID: info.RelID,
				Kind:  cmd.Kind,
				Existing: distribution.Metadata{
					RelID:     info.RelID,
					KeyColumn: keyAttNum,
				},
			}
			if err := opts.DistributionCheck.Check(ctx, change); err != nil {
				return err
			}
			return exec(ctx, tx, info, cmd)
		}
	}, opts.Reparse)
	if err != nil {
		return nil, err
	}

	needsToast, err := relationsNeedingTOAST(ctx, tx, plan, relCache)
	if err != nil {
		return nil, err
	}
	plan.NeedsTOAST = needsToast

	return plan, nil
}

// distKeyAttNum resolves distCol's attnum within relID for the CheckCmd's
// Metadata.KeyColumn, or 0 when distCol names no live column (e.g. the
// relation's locator has no key column, such as REPLICATION).
func distKeyAttNum(ctx context.Context, tx catalog.Tx, relID catalog.OID, distCol string) (int16, error) {
	if distCol == "" {
		return 0, nil
	}
	attrs, err := tx.ListAttributes(ctx, relID)
	if err != nil {
		return 0, err
	}
	for _, a := range attrs {
		if !a.Dropped && a.Name == distCol {
			return a.AttNum, nil
		}
	}
	return 0, nil
}

// relationsNeedingTOAST implements spec.md §4.3 Phase 2's closing step:
// after all passes, a plain/partitioned table or matview with no partition
// constraint to validate needs a TOAST table if its attribute set now
// includes any non-plain-storage column. TOAST itself is an out-of-heap
// storage detail with no catalog-visible row shape this module tracks
// beyond this need/no-need decision; a concrete store implementation acts on
// the returned OIDs however it represents TOAST relations.
func relationsNeedingTOAST(ctx context.Context, tx catalog.Tx, plan *Plan, relCache map[catalog.OID]*catalog.Relation) ([]catalog.OID, error) {
	var out []catalog.OID
	for _, info := range plan.Infos {
		if info.PartitionConstraint != "" {
			continue
		}
		rel := relCache[info.RelID]
		if rel.Kind != catalog.RelKindTable && rel.Kind != catalog.RelKindPartitionedTable && rel.Kind != catalog.RelKindMatview {
			continue
		}
		attrs, err := tx.ListAttributes(ctx, info.RelID)
		if err != nil {
			return nil, err
		}
		for _, a := range attrs {
			if !a.Dropped && a.Storage != catalog.StoragePlain {
				out = append(out, info.RelID)
				break
			}
		}
	}
	return out, nil
}
