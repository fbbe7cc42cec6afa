// Package altercontrol implements C3, the ALTER Controller: three phases
// (Prep, Catalog Rewrite, Heap Rewrite/Validation) driving the sub-command
// work queue defined in internal/catalog (spec.md §4.3).
package altercontrol

import (
	"context"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
	"github.com/catalogmut/enginecore/internal/lockmgr"
)

// Statement is one ALTER TABLE statement's input: a target relation plus the
// ordered list of requested sub-commands, mirroring the parser's output
// before pass classification.
type Statement struct {
	RelName    string
	Namespace  catalog.OID
	Only       bool // ALTER TABLE ONLY: do not recurse to inheritance children
	SubCmds    []*catalog.SubCommand
}

// Plan is Phase 1's output: one AlteredTableInfo per affected relation
// (target plus recursed children/partitions), in parent-before-child order
// so Phase 2/3 never touch a child before its parent has been updated.
type Plan struct {
	Infos []*catalog.AlteredTableInfo
	Locks []lockRequest

	// NeedsTOAST lists relations whose attribute set now requires a TOAST
	// table, computed once Phase 2 completes (spec.md §4.3).
	NeedsTOAST []catalog.OID
}

type lockRequest struct {
	RelID catalog.OID
	Mode  lockmgr.Mode
}

// classify assigns cmd.Pass from its Kind, implementing the 11-bucket table
// in spec.md §4.3.
func classify(cmd *catalog.SubCommand) catalog.Pass {
	switch cmd.Kind {
	case catalog.CmdDropColumn, catalog.CmdDropConstraint:
		return catalog.PassDrop
	case catalog.CmdAlterColumnType:
		return catalog.PassAlterType
	case catalog.CmdSetNotNull, catalog.CmdDropNotNull, catalog.CmdSetDefault, catalog.CmdDropDefault:
		return catalog.PassColAttrs
	case catalog.CmdAddColumn:
		return catalog.PassAddCol
	case catalog.CmdAddConstraint:
		return catalog.PassAddConstr
	case catalog.CmdSetTablespace, catalog.CmdSetLogged, catalog.CmdSetUnlogged,
		catalog.CmdSetReplicaIdentity, catalog.CmdSetOptions, catalog.CmdOwnerTo,
		catalog.CmdInherit, catalog.CmdNoInherit:
		return catalog.PassMisc
	case catalog.CmdAttachPartition, catalog.CmdDetachPartition:
		return catalog.PassPartition
	default:
		return catalog.PassMisc
	}
}

// inheritable reports whether a sub-command recurses into inheritance
// children/partitions (spec.md §4.3 Phase 1 step ii). The answer depends on
// the sub-command kind alone; Prep does not consult cmd.Recurse.
func inheritable(cmd *catalog.SubCommand) bool {
	switch cmd.Kind {
	case catalog.CmdAddColumn, catalog.CmdDropColumn, catalog.CmdAlterColumnType,
		catalog.CmdAddConstraint, catalog.CmdDropConstraint,
		catalog.CmdSetNotNull, catalog.CmdDropNotNull:
		return true
	default:
		return false
	}
}

// Prep implements Phase 1 of spec.md §4.3: for the statement's direct target
// plus every inheritance/partition descendant (unless Only is set and the
// relation is not itself partitioned — partitions always recurse), build an
// AlteredTableInfo, classify each sub-command into its pass bucket, and
// compute the lock each relation needs.
func Prep(ctx context.Context, tx catalog.Tx, stmt *Statement) (*Plan, error) {
	target, err := tx.LookupRelationByName(ctx, stmt.Namespace, stmt.RelName)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, dbcodes.New(dbcodes.UndefinedTable, "relation %q does not exist", stmt.RelName)
	}

	relIDs := []catalog.OID{target.OID}
	recurse := !stmt.Only || target.PartitionKey != nil
	if recurse {
		descendants, err := allInheritors(ctx, tx, target.OID)
		if err != nil {
			return nil, err
		}
		relIDs = append(relIDs, descendants...)
	}

	plan := &Plan{}
	maxMode := lockmgr.AccessShareLock
	for _, cmd := range stmt.SubCmds {
		cmd.Pass = classify(cmd)
		maxMode = lockmgr.Max(maxMode, lockmgr.RequiredLockLevel(cmd.Kind))
	}

	for _, relID := range relIDs {
		rel, err := tx.GetRelation(ctx, relID)
		if err != nil {
			return nil, err
		}
		info := &catalog.AlteredTableInfo{RelID: relID, RelKind: rel.Kind, OldDesc: rel, Recursed: relID != target.OID}
		if relID == target.OID {
			for _, cmd := range stmt.SubCmds {
				info.Enqueue(cmd)
			}
		} else if recurse {
			for _, cmd := range stmt.SubCmds {
				if inheritable(cmd) {
					info.Enqueue(cmd)
				}
			}
		}
		plan.Infos = append(plan.Infos, info)
		plan.Locks = append(plan.Locks, lockRequest{RelID: relID, Mode: maxMode})
	}

	return plan, nil
}

// allInheritors implements find_all_inheritors / RelationGetAllPartitions:
// a breadth-first walk of pg_inherits children, parents before children.
func allInheritors(ctx context.Context, tx catalog.Tx, root catalog.OID) ([]catalog.OID, error) {
	var order []catalog.OID
	queue := []catalog.OID{root}
	seen := map[catalog.OID]bool{root: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		children, err := tx.ListChildren(ctx, cur)
		if err != nil {
			return nil, err
		}
		for _, edge := range children {
			if seen[edge.ChildOID] {
				continue
			}
			seen[edge.ChildOID] = true
			order = append(order, edge.ChildOID)
			queue = append(queue, edge.ChildOID)
		}
	}
	return order, nil
}

// AcquireLocks takes every lock Prep computed, children before parents are
// released but parents are locked first here (lock acquisition order is
// root-to-leaf; release order, handled by the caller at transaction end, is
// leaf-to-root per spec.md §5).
func AcquireLocks(ctx context.Context, locks *lockmgr.Table, owner uint64, plan *Plan) error {
	for _, lr := range plan.Locks {
		if err := locks.Acquire(ctx, uint32(lr.RelID), owner, lr.Mode); err != nil {
			return err
		}
	}
	return nil
}
