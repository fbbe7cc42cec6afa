// Package subcmd implements C4, one routine per ALTER TABLE sub-command.
// Each executor reads/writes catalog tuples only; heap rewrites are merely
// requested (via AlteredTableInfo.RewriteFlags / NewVals) and performed
// later by the ALTER Controller's Phase 3 (spec.md §4.4).
package subcmd

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
)

// AddColumn implements spec.md §4.4.a. isChild is true when this call was
// reached by recursing from the statement's direct target into an
// inheritance child or partition (info.Recursed): the child's copy of the
// column is then marked not-local with inhcount=1, the same contract
// internal/inherit/merge.go's MergeAttributes already applies for CREATE
// TABLE INHERITS, so I4 holds and DropColumn's inhcount bookkeeping stays
// correct across later recursive drops.
func AddColumn(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, cmd *catalog.SubCommand, isChild bool) error {
	rel, err := tx.GetRelation(ctx, info.RelID)
	if err != nil {
		return err
	}
	if rel.IsPartition {
		return dbcodes.New(dbcodes.WrongObjectType, "cannot add a column to a partition directly; alter the partitioned parent instead")
	}

	existing, err := tx.ListAttributes(ctx, info.RelID)
	if err != nil {
		return err
	}
	var maxAttNum int16
	for _, a := range existing {
		if a.Name == cmd.Column.Name && !a.Dropped {
			if cmd.IfNotExists {
				return nil // NOTICE+skip, per spec.md §4.4.a
			}
			return dbcodes.New(dbcodes.DuplicateColumn, "column %q of relation already exists", cmd.Column.Name)
		}
		if a.AttNum > maxAttNum {
			maxAttNum = a.AttNum
		}
	}
	if int(maxAttNum)+1 > 1600 {
		return dbcodes.New(dbcodes.TooManyColumns, "tables can have at most 1600 columns")
	}

	col := *cmd.Column
	col.RelID = info.RelID
	col.AttNum = maxAttNum + 1
	if isChild {
		col.IsLocal = false
		col.InhCount = 1
	} else {
		col.IsLocal = true
	}
	if err := tx.InsertAttribute(ctx, &col); err != nil {
		return err
	}

	rel.NAtts++
	if err := tx.UpdateRelation(ctx, rel); err != nil {
		return err
	}

	if col.HasDefault {
		// Missing-value fast path: store the default as metadata only, no
		// rewrite needed, unless the type is a constrained domain or the
		// default depends on other columns (left to the caller to flag via
		// cmd.Column.Identity/typmod heuristics out of this CORE's scope;
		// here we default to the fast path).
		if dependsOnOtherColumns(col.DefaultExpr) {
			info.RewriteFlags |= catalog.RewriteDefaultVal
		}
		if err := tx.InsertDependency(ctx, &catalog.Dependency{
			DependentOID: info.RelID, DependentSub: col.AttNum, ReferencedOID: col.TypeOID, Kind: catalog.DepNormal,
		}); err != nil {
			return err
		}
		if col.CollationID != catalog.InvalidOID {
			if err := tx.InsertDependency(ctx, &catalog.Dependency{
				DependentOID: info.RelID, DependentSub: col.AttNum, ReferencedOID: col.CollationID, Kind: catalog.DepNormal,
			}); err != nil {
				return err
			}
		}
	}

	return nil
}

// dependsOnOtherColumns is a conservative heuristic: any expression other
// than a bare constant-looking literal is assumed to depend on other
// columns and therefore needs a full rewrite rather than the missing-value
// fast path, matching spec.md §4.4.a's fallback condition.
func dependsOnOtherColumns(expr string) bool {
	for _, r := range expr {
		if r == '(' {
			return true // a function call: conservatively assume dependency
		}
	}
	return false
}

// DropColumn implements spec.md §4.4.b.
func DropColumn(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, cmd *catalog.SubCommand, isChild bool, distributionCol, partitionCol string) error {
	attrs, err := tx.ListAttributes(ctx, info.RelID)
	if err != nil {
		return err
	}
	var target *catalog.Attribute
	for _, a := range attrs {
		if a.Name == cmd.ColumnName && !a.Dropped {
			target = a
			break
		}
	}
	if target == nil {
		if cmd.IfExists {
			return nil
		}
		return dbcodes.New(dbcodes.UndefinedColumn, "column %q does not exist", cmd.ColumnName)
	}
	if cmd.ColumnName == distributionCol {
		return dbcodes.New(dbcodes.FeatureNotSupported, "cannot drop the distribution key column %q", cmd.ColumnName)
	}
	if cmd.ColumnName == partitionCol {
		return dbcodes.New(dbcodes.FeatureNotSupported, "cannot drop column %q because it is used in the partition key", cmd.ColumnName)
	}

	if isChild && target.InhCount > 0 {
		target.InhCount--
		if target.InhCount == 0 && !target.IsLocal {
			target.Dropped = true
		}
		return tx.UpdateAttribute(ctx, target)
	}

	target.Dropped = true
	if target.AttNum < 0 {
		// Dropping the OID system column requires a rewrite.
		info.RewriteFlags |= catalog.RewriteAddOIDs
	}
	return tx.UpdateAttribute(ctx, target)
}
