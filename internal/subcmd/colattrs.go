package subcmd

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
)

func findLiveAttribute(attrs []*catalog.Attribute, name string) *catalog.Attribute {
	for _, a := range attrs {
		if a.Name == name && !a.Dropped {
			return a
		}
	}
	return nil
}

// SetNotNull and DropNotNull belong to PassColAttrs (spec.md §4.3's pass
// table): they run after index/constraint drops and before ADD COLUMN so a
// later ADD CONSTRAINT in the same statement sees the final nullability.
func SetNotNull(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, columnName string) error {
	attrs, err := tx.ListAttributes(ctx, info.RelID)
	if err != nil {
		return err
	}
	target := findLiveAttribute(attrs, columnName)
	if target == nil {
		return dbcodes.New(dbcodes.UndefinedColumn, "column %q does not exist", columnName)
	}
	if target.NotNull {
		return nil
	}
	target.NotNull = true
	info.NewNotNull = true
	return tx.UpdateAttribute(ctx, target)
}

func DropNotNull(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, columnName string, isPrimaryKeyColumn bool) error {
	if isPrimaryKeyColumn {
		return dbcodes.New(dbcodes.InvalidTableDefinition, "column %q is in a primary key and cannot be made nullable", columnName)
	}
	attrs, err := tx.ListAttributes(ctx, info.RelID)
	if err != nil {
		return err
	}
	target := findLiveAttribute(attrs, columnName)
	if target == nil {
		return dbcodes.New(dbcodes.UndefinedColumn, "column %q does not exist", columnName)
	}
	target.NotNull = false
	return tx.UpdateAttribute(ctx, target)
}

// SetDefault and DropDefault rewrite the attribute's stored default
// expression; neither requires a heap rewrite since existing rows keep
// whatever value they already have.
func SetDefault(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, columnName, expr string) error {
	attrs, err := tx.ListAttributes(ctx, info.RelID)
	if err != nil {
		return err
	}
	target := findLiveAttribute(attrs, columnName)
	if target == nil {
		return dbcodes.New(dbcodes.UndefinedColumn, "column %q does not exist", columnName)
	}
	if target.Identity != catalog.IdentityNone {
		return dbcodes.New(dbcodes.InvalidTableDefinition, "identity column %q cannot have a separate default expression", columnName)
	}
	target.HasDefault = true
	target.DefaultExpr = expr
	if err := tx.UpdateAttribute(ctx, target); err != nil {
		return err
	}
	return tx.InsertDependency(ctx, &catalog.Dependency{
		DependentOID: info.RelID, DependentSub: target.AttNum, ReferencedOID: target.TypeOID, Kind: catalog.DepNormal,
	})
}

func DropDefault(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, columnName string) error {
	attrs, err := tx.ListAttributes(ctx, info.RelID)
	if err != nil {
		return err
	}
	target := findLiveAttribute(attrs, columnName)
	if target == nil {
		return dbcodes.New(dbcodes.UndefinedColumn, "column %q does not exist", columnName)
	}
	target.HasDefault = false
	target.DefaultExpr = ""
	return tx.UpdateAttribute(ctx, target)
}

// SetLogged and SetUnlogged flip a table's persistence between PERMANENT and
// UNLOGGED, which requires a full heap rewrite (the WAL-logging behavior
// differs per page, not per catalog row).
func SetLogged(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, rel *catalog.Relation) error {
	if rel.Persistence == catalog.PersistenceTemp {
		return dbcodes.New(dbcodes.FeatureNotSupported, "cannot change a temporary relation's persistence")
	}
	if rel.Persistence == catalog.PersistencePermanent {
		return nil
	}
	rel.Persistence = catalog.PersistencePermanent
	info.RewriteFlags |= catalog.RewritePersistence
	return tx.UpdateRelation(ctx, rel)
}

func SetUnlogged(ctx context.Context, tx catalog.Tx, info *catalog.AlteredTableInfo, rel *catalog.Relation) error {
	if rel.Persistence == catalog.PersistenceTemp {
		return dbcodes.New(dbcodes.FeatureNotSupported, "cannot change a temporary relation's persistence")
	}
	if rel.Persistence == catalog.PersistenceUnlogged {
		return nil
	}
	rel.Persistence = catalog.PersistenceUnlogged
	info.RewriteFlags |= catalog.RewritePersistence
	return tx.UpdateRelation(ctx, rel)
}

// OwnerTo reassigns relation ownership, cascading to the relation's owned
// sequences and its TOAST table when present — out of this module's stored
// shape, so only the relation row itself is updated here.
func OwnerTo(ctx context.Context, tx catalog.Tx, rel *catalog.Relation, newOwner string) error {
	if rel.Owner == newOwner {
		return nil
	}
	rel.Owner = newOwner
	return tx.UpdateRelation(ctx, rel)
}
