package subcmd

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
)

// AddConstraint implements spec.md §4.4.d for CHECK/PRIMARY/UNIQUE/
// EXCLUSION/FOREIGN. allowMerge mirrors AddRelationNewConstraints'
// allow_merge = recursing parameter: when true, a same-name same-expression
// constraint already present on the relation is merged (coninhcount
// bumped) rather than rejected as a duplicate.
func AddConstraint(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, cmd *catalog.SubCommand, isPartitioned, isIntervalPartitioned, isDistributed bool, allowMerge bool) error {
	cc := *cmd.Constraint
	c := &cc
	if c.Kind == catalog.ConstraintForeign {
		if isPartitioned {
			return dbcodes.New(dbcodes.FeatureNotSupported, "foreign key constraints are not supported on partitioned tables")
		}
		if isIntervalPartitioned {
			return dbcodes.New(dbcodes.FeatureNotSupported, "foreign key constraints are not supported on interval-partitioned tables")
		}
		if c.Deferrable && isDistributed {
			return dbcodes.New(dbcodes.FeatureNotSupported, "deferrable foreign key constraints are not supported on distributed tables")
		}
	}

	existing, err := tx.ListConstraints(ctx, info.RelID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Name != c.Name {
			continue
		}
		if allowMerge && e.Kind == c.Kind && e.Expr == c.Expr {
			e.InhCount++
			return tx.UpdateConstraint(ctx, e)
		}
		return dbcodes.New(dbcodes.InvalidTableDefinition, "constraint %q for relation already exists", c.Name)
	}

	oid, err := tx.NextOID(ctx)
	if err != nil {
		return err
	}
	c.OID = oid
	c.RelID = info.RelID
	if !cmd.IfNotExists {
		c.Validated = true
	}

	if c.Kind == catalog.ConstraintForeign {
		c.Validated = false // validated unless NOT VALID is absent — caller enqueues validation below
	}

	if err := tx.InsertConstraint(ctx, c); err != nil {
		return err
	}
	if err := tx.InsertDependency(ctx, &catalog.Dependency{
		DependentOID: c.OID, ReferencedOID: info.RelID, Kind: catalog.DepAuto,
	}); err != nil {
		return err
	}
	if c.IndexOID != catalog.InvalidOID {
		if err := tx.InsertDependency(ctx, &catalog.Dependency{
			DependentOID: c.OID, ReferencedOID: c.IndexOID, Kind: catalog.DepInternal,
		}); err != nil {
			return err
		}
	}

	info.Constraints = append(info.Constraints, c)
	return nil
}

// RIOperators names the three equality operators RI trigger
// synthesis needs per spec.md §4.4.d: pfeqop (parent=foreign), ppeqop
// (parent=parent), ffeqop (foreign=foreign), one per matched column pair.
// Operator resolution itself belongs to the out-of-scope type system; this
// records the intent so the catalog store can create the five trigger rows
// spec.md names (check-ins, check-upd, action-del, action-upd, referenced-
// side) against the right operator family.
type RIOperators struct {
	ParentForeignEq []string
	ParentParentEq  []string
	ForeignForeignEq []string
}

// DropConstraint implements the drop half of spec.md §4.4.d.
func DropConstraint(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, cmd *catalog.SubCommand, hasUnrecursedChildren bool) error {
	existing, err := tx.ListConstraints(ctx, info.RelID)
	if err != nil {
		return err
	}
	var target *catalog.Constraint
	for _, c := range existing {
		if c.Name == cmd.ConstraintName {
			target = c
			break
		}
	}
	if target == nil {
		if cmd.IfExists {
			return nil
		}
		return dbcodes.New(dbcodes.UndefinedColumn, "constraint %q does not exist", cmd.ConstraintName)
	}

	if !cmd.Recurse && hasUnrecursedChildren {
		return dbcodes.New(dbcodes.WrongObjectType,
			"ALTER TABLE ONLY cannot drop constraint %q because child tables still inherit it", cmd.ConstraintName)
	}

	if target.InhCount > 0 {
		target.InhCount--
		if target.InhCount == 0 {
			return tx.DeleteConstraint(ctx, target.OID)
		}
		return tx.UpdateConstraint(ctx, target)
	}

	return tx.DeleteConstraint(ctx, target.OID)
}
