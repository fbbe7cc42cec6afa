// Package relbuilder implements C2, the relation builder: DefineRelation
// executes namespace resolution, tablespace selection, parent-attribute
// merge, catalog row insertion, and partition-bound storage (spec.md §4.2).
package relbuilder

import (
	"context"
	"fmt"
	"sort"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
	"github.com/catalogmut/enginecore/internal/inherit"
	"github.com/catalogmut/enginecore/internal/lockmgr"
	"github.com/catalogmut/enginecore/internal/oncommit"
	"github.com/catalogmut/enginecore/internal/partmgr"
	"github.com/catalogmut/enginecore/internal/transform"
)

// Dependencies groups the collaborators DefineRelation needs beyond the
// Catalog handle itself, keeping the function signature testable without a
// real lock manager or on-commit registry wired in.
type Dependencies struct {
	Locks    *lockmgr.Table
	OnCommit *oncommit.Registry
	Owner    uint64 // lock-table owner id for this session
}

// Result is the object address DefineRelation returns: the new relation's
// OID plus the namespace it lives in, matching spec.md §4.2's
// `object_address` return type.
type Result struct {
	OID       catalog.OID
	Namespace catalog.OID
}

// DefineRelation implements the nine-step sequence of spec.md §4.2.
func DefineRelation(ctx context.Context, tx catalog.Tx, deps Dependencies, resolved *transform.ResolvedCreate, kind catalog.RelKind, owner string) (*Result, error) {
	stmt := resolved.Stmt

	// Step 1: ON COMMIT only combines with TEMP persistence.
	if stmt.OnCommit != catalog.OnCommitNoop && stmt.Persistence != catalog.PersistenceTemp {
		return nil, dbcodes.New(dbcodes.InvalidTableDefinition, "ON COMMIT can only be used on temporary tables")
	}

	// Step 2: lock scheme on parents.
	for _, parentOID := range stmt.Inherits {
		mode := lockmgr.ParentLockLevel(stmt.PartitionOf != nil && stmt.PartitionOf.Parent == parentOID)
		if deps.Locks != nil {
			if err := deps.Locks.Acquire(ctx, uint32(parentOID), deps.Owner, mode); err != nil {
				return nil, fmt.Errorf("acquiring lock on parent %d: %w", parentOID, err)
			}
		}
	}
	if stmt.PartitionOf != nil && deps.Locks != nil {
		if err := deps.Locks.Acquire(ctx, uint32(stmt.PartitionOf.Parent), deps.Owner, lockmgr.AccessExclusiveLock); err != nil {
			return nil, fmt.Errorf("acquiring partition parent lock: %w", err)
		}
	}

	// Step 3/4: merge attributes and CHECK constraints across ordered parents.
	var childAttrs []*catalog.Attribute
	for i, col := range stmt.Columns {
		childAttrs = append(childAttrs, &catalog.Attribute{
			AttNum:      int16(i + 1),
			Name:        col.Name,
			TypeOID:     col.TypeOID,
			TypMod:      col.TypMod,
			CollationID: col.CollationID,
			Storage:     col.Storage,
			NotNull:     col.NotNull,
			HasDefault:  col.HasDefault,
			DefaultExpr: col.DefaultExpr,
			Identity:    col.Identity,
			IsLocal:     true,
			InhCount:    0,
		})
	}
	var childConstraints []*catalog.Constraint
	poisonedAny := map[string]bool{}
	inheritedRank := map[string]int{}

	for _, parentOID := range stmt.Inherits {
		parentAttrs, err := tx.ListAttributes(ctx, parentOID)
		if err != nil {
			return nil, err
		}
		merged, poisoned, err := inherit.MergeAttributes(childAttrs, parentAttrs)
		if err != nil {
			return nil, err
		}
		childAttrs = merged.Attributes
		for name := range poisoned {
			poisonedAny[name] = true
		}
		for _, pa := range parentAttrs {
			if _, ok := inheritedRank[pa.Name]; !ok {
				inheritedRank[pa.Name] = len(inheritedRank)
			}
		}

		parentConstraints, err := tx.ListConstraints(ctx, parentOID)
		if err != nil {
			return nil, err
		}
		childConstraints, err = inherit.MergeCheckConstraints(childConstraints, parentConstraints)
		if err != nil {
			return nil, err
		}
	}

	// Inherited columns take the leading attnums, in parent order; columns
	// declared only on the child follow in declaration order.
	sort.SliceStable(childAttrs, func(i, j int) bool {
		ri, iok := inheritedRank[childAttrs[i].Name]
		rj, jok := inheritedRank[childAttrs[j].Name]
		return iok && (!jok || ri < rj)
	})
	for i, a := range childAttrs {
		a.AttNum = int16(i + 1)
	}

	for name := range poisonedAny {
		found := false
		for _, a := range childAttrs {
			if a.Name == name && a.IsLocal && a.HasDefault {
				found = true
				break
			}
		}
		if !found {
			return nil, dbcodes.New(dbcodes.InvalidTableDefinition,
				"column %q has conflicting inherited default values and must be overridden", name)
		}
	}

	if len(childAttrs) > transform.MaxColumns {
		return nil, dbcodes.New(dbcodes.TooManyColumns, "tables can have at most %d columns", transform.MaxColumns)
	}

	// Step 5: insert the relation row.
	oid, err := tx.NextOID(ctx)
	if err != nil {
		return nil, err
	}
	rel := &catalog.Relation{
		OID:         oid,
		Name:        stmt.Name,
		Namespace:   stmt.Namespace,
		Kind:        kind,
		Persistence: stmt.Persistence,
		Owner:       owner,
		Tablespace:  stmt.Tablespace,
		IsPartition: stmt.PartitionOf != nil,
		PartitionKey: stmt.PartitionBy,
		Reloptions:  stmt.Reloptions,
		OnCommit:    stmt.OnCommit,
		NAtts:       int32(len(childAttrs)),
	}
	if stmt.PartitionOf != nil {
		bound, err := buildBoundFromClause(stmt.PartitionOf)
		if err != nil {
			return nil, err
		}
		rel.PartitionBound = bound
	}
	if err := tx.InsertRelation(ctx, rel); err != nil {
		return nil, err
	}
	for _, a := range childAttrs {
		a.RelID = oid
		if err := tx.InsertAttribute(ctx, a); err != nil {
			return nil, err
		}
	}
	for _, c := range childConstraints {
		c.RelID = oid
		if err := tx.InsertConstraint(ctx, c); err != nil {
			return nil, err
		}
	}

	// Command-counter increment so subsequent steps see the new row.
	if err := tx.CommandCounterIncrement(ctx); err != nil {
		return nil, err
	}

	// Step 6: inheritance edges and NORMAL/AUTO dependencies.
	for i, parentOID := range stmt.Inherits {
		if err := tx.InsertInherits(ctx, &catalog.InheritsEdge{ChildOID: oid, ParentOID: parentOID, SeqNo: int32(i + 1)}); err != nil {
			return nil, err
		}
		depKind := catalog.DepNormal
		if rel.IsPartition {
			depKind = catalog.DepAuto
		}
		if err := tx.InsertDependency(ctx, &catalog.Dependency{
			DependentOID: oid, ReferencedOID: parentOID, Kind: depKind,
		}); err != nil {
			return nil, err
		}
		parent, err := tx.GetRelation(ctx, parentOID)
		if err != nil {
			return nil, err
		}
		parent.HasSubclass = true
		if err := tx.UpdateRelation(ctx, parent); err != nil {
			return nil, err
		}
	}

	// Step 7: PARTITION OF bound validation and overlap detection.
	if stmt.PartitionOf != nil {
		if err := validatePartitionAttach(ctx, tx, stmt.PartitionOf.Parent, rel); err != nil {
			return nil, err
		}
	}

	// Step 8: clone parent indexes into the partition, named
	// `{parent_index}_part_{i}` (spec.md §4.2 step 8 / §4.5).
	if rel.IsPartition {
		for _, parentOID := range stmt.Inherits {
			idxs, err := tx.ListIndexes(ctx, parentOID)
			if err != nil {
				return nil, err
			}
			for i, idx := range idxs {
				parentIdxRel, err := tx.GetRelation(ctx, idx.RelOID)
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
					Namespace:   rel.Namespace,
					Kind:        catalog.RelKindIndex,
					Persistence: rel.Persistence,
					Owner:       owner,
					Tablespace:  rel.Tablespace,
				}
				if err := tx.InsertRelation(ctx, cloneRel); err != nil {
					return nil, err
				}
				clone := *idx
				clone.RelOID = cloneOID
				clone.IndRelID = oid
				clone.ParentIndex = idx.RelOID
				if err := tx.InsertIndex(ctx, &clone); err != nil {
					return nil, err
				}
				if err := tx.InsertDependency(ctx, &catalog.Dependency{
					DependentOID: cloneOID, ReferencedOID: oid, Kind: catalog.DepAuto,
				}); err != nil {
					return nil, err
				}
			}
		}
	}

	// Step 9: NOT NULL / CHECK constraints via the new-constraint pipeline
	// is handled by the caller invoking subcmd.AddConstraint for each
	// resolved.ImplicitIndexes entry and any remaining CHECK constraints in
	// stmt.Constraints — DefineRelation itself only owns steps 1-8 plus the
	// inherited-constraint merge already folded into childConstraints above.

	if deps.OnCommit != nil && stmt.OnCommit != catalog.OnCommitNoop {
		deps.OnCommit.Register(oid, stmt.OnCommit, 0)
	}

	return &Result{OID: oid, Namespace: stmt.Namespace}, nil
}

func buildBoundFromClause(clause *transform.PartitionOfClause) (*catalog.PartitionBound, error) {
	if clause.RawBound == nil {
		return nil, dbcodes.New(dbcodes.InvalidTableDefinition, "PARTITION OF requires FOR VALUES or DEFAULT")
	}
	raw := clause.RawBound
	if raw.IsDefault {
		return &catalog.PartitionBound{IsDefault: true, Strategy: raw.Strategy}, nil
	}
	return &catalog.PartitionBound{
		Strategy:   raw.Strategy,
		ListValues: raw.ListValues,
		RangeFrom:  raw.RangeFrom,
		RangeTo:    raw.RangeTo,
		Modulus:    raw.Modulus,
		Remainder:  raw.Remainder,
	}, nil
}

// validatePartitionAttach performs the static overlap check of the new
// child's bound against the bounds of the parent's partitions (spec.md §4.2
// step 7). It does not queue a scan of an existing default partition, and
// DefineRelation returns no such validation request to its caller.
func validatePartitionAttach(ctx context.Context, tx catalog.Tx, parentOID catalog.OID, child *catalog.Relation) error {
	parent, err := tx.GetRelation(ctx, parentOID)
	if err != nil {
		return err
	}
	if parent.PartitionKey == nil {
		return dbcodes.New(dbcodes.WrongObjectType, "relation %d is not a partitioned table", parentOID)
	}

	children, err := tx.ListChildren(ctx, parentOID)
	if err != nil {
		return err
	}
	var siblings []partmgr.Sibling
	for _, edge := range children {
		sib, err := tx.GetRelation(ctx, edge.ChildOID)
		if err != nil {
			return err
		}
		if sib.PartitionBound != nil {
			siblings = append(siblings, partmgr.Sibling{RelID: sib.OID, Bound: sib.PartitionBound})
		}
	}

	return partmgr.CheckOverlap(parent.PartitionKey.Strategy, child.PartitionBound, siblings)
}
