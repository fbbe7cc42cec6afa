package subcmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
)

// DependentDefs is a stashed index/constraint definition text, captured so
// Phase 2 can reparse and requeue it after the column's type has changed
// (spec.md §4.4.c).
type DependentDefs struct {
	IndexOID       catalog.OID
	IndexDef       string
	ConstraintOID  catalog.OID
	ConstraintDef  string
}

// AlterColumnTypeResult carries what the controller needs to splice into
// Phase 2's post-pass.
type AlterColumnTypeResult struct {
	Dependents []DependentDefs
}

// CollectDependents implements the dependent-object collection spec.md
// §4.4.c asks ALTER COLUMN TYPE to do before rewriting an attribute: every
// index and constraint of relid whose key columns mention attnum is stashed
// as a DependentDefs entry (pg_get_indexdef_string/pg_get_constraintdef_command
// stand-ins, since this module has no DDL deparser of its own) so Phase 2's
// post-PASS_ALTER_TYPE step can re-validate it once the column's new
// representation is in place. Views, rules, triggers, and row-security
// policies are not part of this module's catalog model (spec.md §1 places
// the DML/query layer out of scope), so the FEATURE_NOT_SUPPORTED rejection
// spec.md §4.4.c describes for those dependents has no catalog row to detect
// here and is not raised by this function.
func CollectDependents(ctx context.Context, tx catalog.Tx, relid catalog.OID, attnum int16) ([]DependentDefs, error) {
	var out []DependentDefs

	indexes, err := tx.ListIndexes(ctx, relid)
	if err != nil {
		return nil, err
	}
	for _, idx := range indexes {
		if !attNumReferenced(idx.KeyColumns, attnum) {
			continue
		}
		out = append(out, DependentDefs{IndexOID: idx.RelOID, IndexDef: fmt.Sprintf("INDEX ON (%v)", idx.KeyColumns)})
	}

	constraints, err := tx.ListConstraints(ctx, relid)
	if err != nil {
		return nil, err
	}
	for _, c := range constraints {
		if !attNumReferenced(c.Columns, attnum) {
			continue
		}
		out = append(out, DependentDefs{ConstraintOID: c.OID, ConstraintDef: fmt.Sprintf("CONSTRAINT %s (%v)", c.Name, c.Columns)})
	}

	return out, nil
}

func attNumReferenced(cols []int16, attnum int16) bool {
	for _, c := range cols {
		if c == attnum {
			return true
		}
	}
	return false
}

// AlterColumnType implements spec.md §4.4.c. distributionCol/partitionCol
// name the columns that may never be retyped; reject those before anything
// else. isNoOp, when true, means the expression is provably a Var/
// RelabelType cast and the column value itself need not be recomputed
// (B3/P5): the rewrite may still be needed for other reasons tracked via
// info.RewriteFlags, but no per-row NewValue is queued.
func AlterColumnType(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, cmd *catalog.SubCommand, distributionCol, partitionCol string, isNoOp bool, dependents []DependentDefs) (*AlterColumnTypeResult, error) {
	if cmd.ColumnName == distributionCol {
		return nil, dbcodes.New(dbcodes.FeatureNotSupported, "cannot alter the type of the distribution key column %q", cmd.ColumnName)
	}
	if cmd.ColumnName == partitionCol {
		return nil, dbcodes.New(dbcodes.FeatureNotSupported, "cannot alter the type of a partition key column %q", cmd.ColumnName)
	}

	attrs, err := tx.ListAttributes(ctx, info.RelID)
	if err != nil {
		return nil, err
	}
	var target *catalog.Attribute
	for _, a := range attrs {
		if a.Name == cmd.ColumnName && !a.Dropped {
			target = a
			break
		}
	}
	if target == nil {
		return nil, dbcodes.New(dbcodes.UndefinedColumn, "column %q does not exist", cmd.ColumnName)
	}

	target.TypeOID = cmd.NewTypeOID
	target.TypMod = cmd.NewTypMod
	if err := tx.UpdateAttribute(ctx, target); err != nil {
		return nil, err
	}

	// The old type/collation dependency rows for this attribute are not
	// deleted: this Catalog interface scopes DeleteDependenciesOf at the
	// whole-object granularity, so the InsertDependency calls below add the
	// new edges alongside the old ones rather than replacing them.
	if err := tx.InsertDependency(ctx, &catalog.Dependency{
		DependentOID: info.RelID, DependentSub: target.AttNum, ReferencedOID: target.TypeOID, Kind: catalog.DepNormal,
	}); err != nil {
		return nil, err
	}
	if target.CollationID != catalog.InvalidOID {
		if err := tx.InsertDependency(ctx, &catalog.Dependency{
			DependentOID: info.RelID, DependentSub: target.AttNum, ReferencedOID: target.CollationID, Kind: catalog.DepNormal,
		}); err != nil {
			return nil, err
		}
	}

	if !isNoOp {
		info.RewriteFlags |= catalog.RewriteColumnType
		info.NewVals = append(info.NewVals, &catalog.NewValue{
			AttNum: target.AttNum,
			Expr:   cmd.UsingExpr,
		})
	} else {
		info.NewVals = append(info.NewVals, &catalog.NewValue{AttNum: target.AttNum, Expr: cmd.UsingExpr, NoOp: true})
	}

	for _, d := range dependents {
		if d.IndexOID != 0 {
			info.ChangedIndexes = append(info.ChangedIndexes, d.IndexOID)
		}
		if d.ConstraintOID != 0 {
			info.ChangedConstraints = append(info.ChangedConstraints, d.ConstraintOID)
		}
	}

	return &AlterColumnTypeResult{Dependents: dependents}, nil
}

// IsNoOpCast reports whether a USING expression is provably a no-op: a bare
// column reference, optionally wrapped in a RelabelType-shaped cast marker,
// over an unconstrained domain (spec.md §4.4.c / B3). usingExpr is compared
// syntactically since the expression planner itself is out of scope.
func IsNoOpCast(columnName, usingExpr string) bool {
	trimmed := strings.TrimSpace(usingExpr)
	if trimmed == columnName {
		return true
	}
	return strings.HasPrefix(trimmed, columnName+"::")
}

// CheckIndexCompatible reports whether an index built over the old column
// representation can be reused unchanged after the type change, per
// spec.md §4.4.c's `CheckIndexCompatible`. Real compatibility checking
// belongs to the access-method layer; this is a conservative same-opclass,
// same-collation test.
func CheckIndexCompatible(oldOpClass, newOpClass, oldCollation, newCollation catalog.OID) bool {
	return oldOpClass == newOpClass && oldCollation == newCollation
}
