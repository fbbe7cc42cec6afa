package subcmd

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
	"github.com/catalogmut/enginecore/internal/inherit"
)

// AddInherit implements spec.md §4.4.e.
func AddInherit(ctx context.Context, tx catalog.Tx, child *catalog.Relation, parentOID catalog.OID) error {
	if isDescendant, err := inherit.IsDescendant(ctx, tx, child.OID, parentOID); err != nil {
		return err
	} else if isDescendant {
		return dbcodes.New(dbcodes.InvalidObjectDefinition, "circular inheritance: relation %d is already a descendant of %d", parentOID, child.OID)
	}

	parent, err := tx.GetRelation(ctx, parentOID)
	if err != nil {
		return err
	}
	if parent.Persistence != child.Persistence {
		return dbcodes.New(dbcodes.InvalidTableDefinition, "cannot mix TEMP and PERMANENT relations in an inheritance hierarchy")
	}
	if parent.HasOIDs != child.HasOIDs {
		return dbcodes.New(dbcodes.InvalidTableDefinition, "OID presence must match between parent and child (I5)")
	}
	if parent.IsPartition != child.IsPartition {
		return dbcodes.New(dbcodes.InvalidTableDefinition, "cannot mix partition and non-partition relations in an inheritance hierarchy")
	}

	childAttrs, err := tx.ListAttributes(ctx, child.OID)
	if err != nil {
		return err
	}
	parentAttrs, err := tx.ListAttributes(ctx, parentOID)
	if err != nil {
		return err
	}
	byName := make(map[string]*catalog.Attribute, len(childAttrs))
	for _, a := range childAttrs {
		if !a.Dropped {
			byName[a.Name] = a
		}
	}
	for _, pa := range parentAttrs {
		if pa.Dropped {
			continue
		}
		ca, ok := byName[pa.Name]
		if !ok {
			return dbcodes.New(dbcodes.DatatypeMismatch, "child is missing column %q required by new parent", pa.Name)
		}
		if ca.TypeOID != pa.TypeOID || ca.TypMod != pa.TypMod || ca.CollationID != pa.CollationID || ca.AttNum != pa.AttNum {
			return dbcodes.New(dbcodes.DatatypeMismatch, "column %q does not match its definition in the new parent", pa.Name)
		}
		ca.InhCount++
		if child.IsPartition {
			ca.IsLocal = false
		}
		if err := tx.UpdateAttribute(ctx, ca); err != nil {
			return err
		}
	}

	parentConstraints, err := tx.ListConstraints(ctx, parentOID)
	if err != nil {
		return err
	}
	childConstraints, err := tx.ListConstraints(ctx, child.OID)
	if err != nil {
		return err
	}
	merged, err := inherit.MergeCheckConstraints(childConstraints, parentConstraints)
	if err != nil {
		return err
	}
	existingByName := make(map[string]bool, len(childConstraints))
	for _, c := range childConstraints {
		existingByName[c.Name] = true
	}
	for _, c := range merged {
		if !existingByName[c.Name] {
			c.RelID = child.OID
			oid, err := tx.NextOID(ctx)
			if err != nil {
				return err
			}
			c.OID = oid
			if err := tx.InsertConstraint(ctx, c); err != nil {
				return err
			}
		}
	}

	nextSeq, err := nextInheritSeq(ctx, tx, child.OID)
	if err != nil {
		return err
	}
	if err := tx.InsertInherits(ctx, &catalog.InheritsEdge{ChildOID: child.OID, ParentOID: parentOID, SeqNo: nextSeq}); err != nil {
		return err
	}
	parent.HasSubclass = true
	return tx.UpdateRelation(ctx, parent)
}

func nextInheritSeq(ctx context.Context, tx catalog.Tx, child catalog.OID) (int32, error) {
	existing, err := tx.ListParents(ctx, child)
	if err != nil {
		return 0, err
	}
	var max int32
	for _, e := range existing {
		if e.SeqNo > max {
			max = e.SeqNo
		}
	}
	return max + 1, nil
}

// NoInherit implements the NO INHERIT half of spec.md §4.4.e: decrement
// attinhcount for each formerly-shared column, demote ownership to local
// if the count would otherwise orphan the column, and drop the pg_inherits
// edge.
func NoInherit(ctx context.Context, tx catalog.Tx, child *catalog.Relation, parentOID catalog.OID) error {
	childAttrs, err := tx.ListAttributes(ctx, child.OID)
	if err != nil {
		return err
	}
	parentAttrs, err := tx.ListAttributes(ctx, parentOID)
	if err != nil {
		return err
	}
	parentNames := make(map[string]bool, len(parentAttrs))
	for _, pa := range parentAttrs {
		if !pa.Dropped {
			parentNames[pa.Name] = true
		}
	}
	for _, ca := range childAttrs {
		if ca.Dropped || !parentNames[ca.Name] {
			continue
		}
		if ca.InhCount > 0 {
			ca.InhCount--
		}
		if ca.InhCount == 0 {
			ca.IsLocal = true
		}
		if err := tx.UpdateAttribute(ctx, ca); err != nil {
			return err
		}
	}

	return tx.DeleteInherits(ctx, child.OID, parentOID)
}
