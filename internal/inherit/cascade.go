package inherit

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
)

// DropPlan is the result of walking the dependency graph for a DROP
// statement: the full set of objects to delete, in reverse topological
// order, per spec.md §4.6's PERFORM_DELETION_INTERNAL algorithm.
type DropPlan struct {
	// Ordered deletes this DROP must perform, last-to-delete first reversed
	// so callers can iterate Targets in order and never violate a
	// dependency that's already been deleted.
	Targets []catalog.OID
}

// PlanDrop walks the dependency graph starting from roots and returns the
// ordered deletion plan, implementing spec.md §4.6:
//
//  1. walk pinning every object reachable via AUTO/INTERNAL edges (always,
//     regardless of behavior) plus, for CASCADE, every object reachable via
//     a NORMAL edge too;
//  2. for RESTRICT, refuse if any NORMAL edge points in from outside the
//     pinned set;
//  3. delete in reverse topological order in one transaction.
func PlanDrop(ctx context.Context, tx catalog.Tx, roots []catalog.OID, behavior catalog.DropBehavior) (*DropPlan, error) {
	pinned := make(map[catalog.OID]bool)
	order := []catalog.OID{}
	var walk func(oid catalog.OID) error
	walk = func(oid catalog.OID) error {
		if pinned[oid] {
			return nil
		}
		pinned[oid] = true
		order = append(order, oid)

		deps, err := tx.ListDependents(ctx, oid)
		if err != nil {
			return err
		}
		for _, d := range deps {
			switch d.Kind {
			case catalog.DepAuto, catalog.DepInternal:
				if err := walk(d.DependentOID); err != nil {
					return err
				}
			case catalog.DepNormal:
				if behavior == catalog.DropCascade {
					if err := walk(d.DependentOID); err != nil {
						return err
					}
				}
			case catalog.DepPin:
				return dbcodes.New(dbcodes.DependentObjectsStillExist,
					"cannot drop pinned object %d", oid)
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := walk(root); err != nil {
			return nil, err
		}
	}

	if behavior == catalog.DropRestrict {
		for oid := range pinned {
			deps, err := tx.ListDependents(ctx, oid)
			if err != nil {
				return nil, err
			}
			for _, d := range deps {
				if d.Kind == catalog.DepNormal && !pinned[d.DependentOID] {
					return nil, dbcodes.New(dbcodes.DependentObjectsStillExist,
						"cannot drop object %d because other objects depend on it", oid).
						WithHint("use CASCADE to drop the dependent objects too")
				}
			}
		}
	}

	// order was built depth-first on discovery, which is parent-before-
	// dependent; reverse it so dependents are deleted before what they
	// depend on.
	reversed := make([]catalog.OID, len(order))
	for i, oid := range order {
		reversed[len(order)-1-i] = oid
	}

	return &DropPlan{Targets: reversed}, nil
}

// Execute performs the planned deletions in order, removing dependency rows
// and inheritance edges alongside each relation (spec.md §3 Lifecycle: "one
// transaction").
func (p *DropPlan) Execute(ctx context.Context, tx catalog.Tx) error {
	for _, oid := range p.Targets {
		parents, err := tx.ListParents(ctx, oid)
		if err != nil {
			return err
		}
		for _, e := range parents {
			if err := tx.DeleteInherits(ctx, e.ChildOID, e.ParentOID); err != nil {
				return err
			}
		}
		if err := tx.DeleteDependenciesOf(ctx, oid); err != nil {
			return err
		}
		if err := tx.DeleteRelation(ctx, oid); err != nil {
			return err
		}
		if err := tx.Invalidate(ctx, oid); err != nil {
			return err
		}
	}
	return nil
}
