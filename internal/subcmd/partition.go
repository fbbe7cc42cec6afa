package subcmd

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
	"github.com/catalogmut/enginecore/internal/lockmgr"
	"github.com/catalogmut/enginecore/internal/partmgr"
)

// AttachPartitionResult tells the controller which Phase-3 work the attach
// requires: a scan of the new child to confirm no row violates the parent's
// partition constraint, and/or a scan of the default partition (if any) to
// confirm no row there now belongs under the new, more specific child.
type AttachPartitionResult struct {
	NeedsChildValidation   bool
	NeedsDefaultValidation bool
	DefaultPartitionOID    catalog.OID
}

// AttachPartition implements spec.md §4.4.g. Both parent and child are
// already locked AccessExclusiveLock by the caller's Phase 1 (spec.md §5:
// attach always takes the strongest mode since it changes both relations'
// partition structure).
func AttachPartition(ctx context.Context, tx catalog.Tx, locks *lockmgr.Table, owner uint64, parent, child *catalog.Relation, bound *catalog.PartitionBound) (*AttachPartitionResult, error) {
	if parent.PartitionKey == nil {
		return nil, dbcodes.New(dbcodes.WrongObjectType, "relation is not a partitioned table")
	}
	if child.IsPartition {
		return nil, dbcodes.New(dbcodes.WrongObjectType, "relation is already a partition")
	}
	if parent.Persistence != child.Persistence {
		return nil, dbcodes.New(dbcodes.InvalidTableDefinition, "cannot attach a relation with mismatched persistence")
	}

	children, err := tx.ListChildren(ctx, parent.OID)
	if err != nil {
		return nil, err
	}
	var siblings []partmgr.Sibling
	var defaultOID catalog.OID
	for _, edge := range children {
		sib, err := tx.GetRelation(ctx, edge.ChildOID)
		if err != nil {
			return nil, err
		}
		if sib.PartitionBound != nil {
			siblings = append(siblings, partmgr.Sibling{RelID: sib.OID, Bound: sib.PartitionBound})
			if sib.PartitionBound.IsDefault {
				defaultOID = sib.OID
			}
		}
	}
	if err := partmgr.CheckOverlap(parent.PartitionKey.Strategy, bound, siblings); err != nil {
		return nil, err
	}

	seq, err := nextInheritSeq(ctx, tx, child.OID)
	if err != nil {
		return nil, err
	}
	if err := tx.InsertInherits(ctx, &catalog.InheritsEdge{ChildOID: child.OID, ParentOID: parent.OID, SeqNo: seq}); err != nil {
		return nil, err
	}
	if err := tx.InsertDependency(ctx, &catalog.Dependency{
		DependentOID: child.OID, ReferencedOID: parent.OID, Kind: catalog.DepAuto,
	}); err != nil {
		return nil, err
	}

	child.IsPartition = true
	child.PartitionBound = bound
	if err := tx.UpdateRelation(ctx, child); err != nil {
		return nil, err
	}
	parent.HasSubclass = true
	if err := tx.UpdateRelation(ctx, parent); err != nil {
		return nil, err
	}

	parentIdxs, err := tx.ListIndexes(ctx, parent.OID)
	if err != nil {
		return nil, err
	}
	childIdxs, err := tx.ListIndexes(ctx, child.OID)
	if err != nil {
		return nil, err
	}
	for i, pidx := range parentIdxs {
		parentInfo := partmgr.IndexInfo{KeyColumns: pidx.KeyColumns, OpClasses: pidx.OpClasses, Collations: pidx.Collations, Predicate: pidx.Predicate, IsUnique: pidx.IsUnique}

		var matched *catalog.Index
		for _, cidx := range childIdxs {
			candidate := partmgr.IndexInfo{KeyColumns: cidx.KeyColumns, OpClasses: cidx.OpClasses, Collations: cidx.Collations, Predicate: cidx.Predicate, IsUnique: cidx.IsUnique}
			if candidate.Matches(parentInfo) {
				matched = cidx
				break
			}
		}
		if matched != nil {
			matched.ParentIndex = pidx.RelOID
			if err := tx.UpdateIndex(ctx, matched); err != nil {
				return nil, err
			}
			continue
		}

		parentIdxRel, err := tx.GetRelation(ctx, pidx.RelOID)
		if err != nil {
			return nil, err
		}
		cloneOID, err := tx.NextOID(ctx)
		if err != nil {
			return nil, err
		}
		cloneRel := &catalog.Relation{
			OID:         cloneOID,
			Name:        partmgr.CanonicalPartitionIndexName(parentIdxRel.Name, i),
			Namespace:   child.Namespace,
			Kind:        catalog.RelKindIndex,
			Persistence: child.Persistence,
			Owner:       child.Owner,
			Tablespace:  child.Tablespace,
		}
		if err := tx.InsertRelation(ctx, cloneRel); err != nil {
			return nil, err
		}
		clone := *pidx
		clone.RelOID = cloneOID
		clone.IndRelID = child.OID
		clone.ParentIndex = pidx.RelOID
		if err := tx.InsertIndex(ctx, &clone); err != nil {
			return nil, err
		}
		if err := tx.InsertDependency(ctx, &catalog.Dependency{
			DependentOID: cloneOID, ReferencedOID: child.OID, Kind: catalog.DepAuto,
		}); err != nil {
			return nil, err
		}
	}

	result := &AttachPartitionResult{NeedsChildValidation: true}
	if defaultOID != catalog.InvalidOID {
		result.NeedsDefaultValidation = true
		result.DefaultPartitionOID = defaultOID
	}
	return result, nil
}

// DetachPartition implements spec.md §4.4.g's DETACH. The caller acquires
// AccessExclusiveLock on parent and child (the mode lockmgr.RequiredLockLevel
// gives DETACH, spec.md §5) before calling this.
func DetachPartition(ctx context.Context, tx catalog.Tx, parent, child *catalog.Relation) error {
	if !child.IsPartition {
		return dbcodes.New(dbcodes.WrongObjectType, "relation is not a partition of this table")
	}

	parents, err := tx.ListParents(ctx, child.OID)
	if err != nil {
		return err
	}
	isChildOfParent := false
	for _, e := range parents {
		if e.ParentOID == parent.OID {
			isChildOfParent = true
			break
		}
	}
	if !isChildOfParent {
		return dbcodes.New(dbcodes.WrongObjectType, "relation is not a partition of this table")
	}

	if err := tx.DeleteInherits(ctx, child.OID, parent.OID); err != nil {
		return err
	}
	// The DepAuto edge recorded by AttachPartition (child -> parent) is left
	// in place: this Catalog interface only exposes whole-object dependency
	// deletion (DeleteDependenciesOf), which would also wipe the child's
	// unrelated type/collation edges. A stale partition-membership dependency
	// is harmless once pg_inherits no longer names this pair.

	child.IsPartition = false
	child.PartitionBound = nil
	if err := tx.UpdateRelation(ctx, child); err != nil {
		return err
	}

	remaining, err := tx.ListChildren(ctx, parent.OID)
	if err != nil {
		return err
	}
	stillHasChildren := false
	for _, e := range remaining {
		if e.ChildOID != child.OID {
			stillHasChildren = true
			break
		}
	}
	if !stillHasChildren {
		parent.HasSubclass = false
		if err := tx.UpdateRelation(ctx, parent); err != nil {
			return err
		}
	}

	// The detached relation's own indexes that were clones (ParentIndex set)
	// become independent, ordinary indexes; their ParentIndex link is
	// cleared so they are no longer treated as partition-propagated.
	idxs, err := tx.ListIndexes(ctx, child.OID)
	if err != nil {
		return err
	}
	for _, idx := range idxs {
		if idx.ParentIndex != catalog.InvalidOID {
			idx.ParentIndex = catalog.InvalidOID
			if err := tx.UpdateIndex(ctx, idx); err != nil {
				return err
			}
		}
	}
	return nil
}
