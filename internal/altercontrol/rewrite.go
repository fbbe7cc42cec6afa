package altercontrol

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
	"github.com/catalogmut/enginecore/internal/subcmd"
)

// Executor dispatches one classified sub-command against one relation's
// AlteredTableInfo. The controller is generic over passes (spec.md §9's
// work-queue polymorphism note): it never special-cases a Kind itself,
// delegating entirely to this function.
type Executor func(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, cmd *catalog.SubCommand) error

// DefaultExecutor wires every SubCommandKind to its internal/subcmd
// implementation. Sub-commands whose executor needs extra relation-level
// context (distribution/partition flags, the live *catalog.Relation) have
// that context threaded in by RunPhase2's caller via closures rather than
// being hardcoded here, keeping this table a pure Kind->func dispatch.
func DefaultExecutor(rel *catalog.Relation, distributionCol, partitionCol string, isDistributed, statementOnly bool) Executor {
	return func(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, cmd *catalog.SubCommand) error {
		switch cmd.Kind {
		case catalog.CmdAddColumn:
			return subcmd.AddColumn(ctx, tx, info, cmd, info.Recursed)
		case catalog.CmdDropColumn:
			return subcmd.DropColumn(ctx, tx, info, cmd, info.Recursed, distributionCol, partitionCol)
		case catalog.CmdAlterColumnType:
			attnum, found, err := columnAttNum(ctx, tx, info.RelID, cmd.ColumnName)
			if err != nil {
				return err
			}
			var dependents []subcmd.DependentDefs
			if found {
				dependents, err = subcmd.CollectDependents(ctx, tx, info.RelID, attnum)
				if err != nil {
					return err
				}
			}
			_, err = subcmd.AlterColumnType(ctx, tx, info, cmd, distributionCol, partitionCol, subcmd.IsNoOpCast(cmd.ColumnName, cmd.UsingExpr), dependents)
			return err
		case catalog.CmdSetNotNull:
			return subcmd.SetNotNull(ctx, tx, info, cmd.ColumnName)
		case catalog.CmdDropNotNull:
			isPK, err := columnInPrimaryKey(ctx, tx, info.RelID, cmd.ColumnName)
			if err != nil {
				return err
			}
			return subcmd.DropNotNull(ctx, tx, info, cmd.ColumnName, isPK)
		case catalog.CmdSetDefault:
			return subcmd.SetDefault(ctx, tx, info, cmd.ColumnName, cmd.UsingExpr)
		case catalog.CmdDropDefault:
			return subcmd.DropDefault(ctx, tx, info, cmd.ColumnName)
		case catalog.CmdAddConstraint:
			return subcmd.AddConstraint(ctx, tx, info, cmd, rel.PartitionKey != nil, rel.PartitionKey != nil && rel.PartitionKey.Strategy == catalog.PartitionStrategyInterval, isDistributed, info.Recursed)
		case catalog.CmdDropConstraint:
			return subcmd.DropConstraint(ctx, tx, info, cmd, statementOnly && rel.HasSubclass)
		case catalog.CmdInherit:
			return subcmd.AddInherit(ctx, tx, rel, cmd.InheritParent)
		case catalog.CmdNoInherit:
			return subcmd.NoInherit(ctx, tx, rel, cmd.InheritParent)
		case catalog.CmdSetTablespace:
			return subcmd.SetTablespace(ctx, tx, info, rel, cmd.NewTablespace)
		case catalog.CmdSetLogged:
			return subcmd.SetLogged(ctx, tx, info, rel)
		case catalog.CmdSetUnlogged:
			return subcmd.SetUnlogged(ctx, tx, info, rel)
		case catalog.CmdSetReplicaIdentity:
			return subcmd.SetReplicaIdentity(ctx, tx, rel, cmd.NewReplicaIdentity, cmd.NewReplicaIdentityIndex)
		case catalog.CmdSetOptions:
			return subcmd.SetOptions(ctx, tx, rel, cmd.Reloptions, nil)
		case catalog.CmdOwnerTo:
			return subcmd.OwnerTo(ctx, tx, rel, cmd.NewOwner)
		default:
			return dbcodes.New(dbcodes.FeatureNotSupported, "sub-command kind %d is not handled by the catalog rewrite phase", cmd.Kind)
		}
	}
}

// ReparseHook is invoked once per relation immediately after PASS_ALTER_TYPE
// completes, for any info whose ChangedIndexes/ChangedConstraints are
// non-empty (spec.md §4.3: "reparse and requeue the definitions of every
// index and constraint that referenced the column being retyped"). The hook
// owns turning each stashed definition back into a SubCommand and enqueuing
// it onto info's PASS_OLD_INDEX/PASS_ADD_CONSTR buckets — the expression/DDL
// reparser itself lives outside this module (spec.md §9).
type ReparseHook func(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo) error

// DefaultReparseHook is the concrete ReparseHook this module's Catalog
// interface can perform without an external DDL parser (spec.md §9: "the
// expression/DDL reparser itself lives outside this module"): every index or
// constraint info.ChangedIndexes/ChangedConstraints stashed during
// PASS_ALTER_TYPE (because it referenced the retyped column) is re-fetched
// and re-validated now that the column's new representation is in place,
// rather than left marked invalid forever.
func DefaultReparseHook(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo) error {
	if len(info.ChangedIndexes) > 0 {
		indexes, err := tx.ListIndexes(ctx, info.RelID)
		if err != nil {
			return err
		}
		changed := make(map[catalog.OID]bool, len(info.ChangedIndexes))
		for _, oid := range info.ChangedIndexes {
			changed[oid] = true
		}
		for _, idx := range indexes {
			if !changed[idx.RelOID] {
				continue
			}
			idx.IsValid = true
			if err := tx.UpdateIndex(ctx, idx); err != nil {
				return err
			}
		}
	}
	if len(info.ChangedConstraints) > 0 {
		constraints, err := tx.ListConstraints(ctx, info.RelID)
		if err != nil {
			return err
		}
		changed := make(map[catalog.OID]bool, len(info.ChangedConstraints))
		for _, oid := range info.ChangedConstraints {
			changed[oid] = true
		}
		for _, c := range constraints {
			if !changed[c.OID] {
				continue
			}
			c.Validated = true
			if err := tx.UpdateConstraint(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// columnAttNum resolves columnName to its live attnum within relid, used by
// both the primary-key and ALTER COLUMN TYPE dependent-collection paths.
func columnAttNum(ctx context.Context, tx catalog.Tx, relid catalog.OID, columnName string) (int16, bool, error) {
	attrs, err := tx.ListAttributes(ctx, relid)
	if err != nil {
		return 0, false, err
	}
	for _, a := range attrs {
		if a.Name == columnName && !a.Dropped {
			return a.AttNum, true, nil
		}
	}
	return 0, false, nil
}

// columnInPrimaryKey reports whether columnName is a key column of relid's
// PRIMARY KEY constraint, used to reject DROP NOT NULL on it (spec.md §4.4
// ties NOT NULL removal to primary-key membership the same way the original
// system's ATExecDropNotNull does).
func columnInPrimaryKey(ctx context.Context, tx catalog.Tx, relid catalog.OID, columnName string) (bool, error) {
	attnum, found, err := columnAttNum(ctx, tx, relid, columnName)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	constraints, err := tx.ListConstraints(ctx, relid)
	if err != nil {
		return false, err
	}
	for _, c := range constraints {
		if c.Kind != catalog.ConstraintPrimary {
			continue
		}
		for _, col := range c.Columns {
			if col == attnum {
				return true, nil
			}
		}
	}
	return false, nil
}

// RunPhase2 implements spec.md §4.3 Phase 2: outer loop over passes, inner
// loop over each relation's queued entries for that pass, command-counter
// incremented between passes so later passes see earlier writes. exec is
// looked up per-relation since different relations in the same plan may need
// different relation-level context (distribution column, partition key).
// reparse may be nil when no sub-command in the plan alters a column type.
func RunPhase2(ctx context.Context, tx catalog.Tx, plan *Plan, execFor func(info *catalog.AlteredTableInfo) Executor, reparse ReparseHook) error {
	for pass := catalog.Pass(0); pass < catalog.NumPasses; pass++ {
		for _, info := range plan.Infos {
			cmds := info.SubCmds[pass]
			if len(cmds) == 0 {
				continue
			}
			exec := execFor(info)
			for _, cmd := range cmds {
				if err := exec(ctx, tx, info, cmd); err != nil {
					return err
				}
			}
		}
		if err := tx.CommandCounterIncrement(ctx); err != nil {
			return err
		}
		if pass == catalog.PassAlterType && reparse != nil {
			for _, info := range plan.Infos {
				if len(info.ChangedIndexes) == 0 && len(info.ChangedConstraints) == 0 {
					continue
				}
				if err := reparse(ctx, tx, info); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
