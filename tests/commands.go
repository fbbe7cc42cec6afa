package tests

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sync"

	"rsc.io/script"

	"github.com/catalogmut/enginecore/internal/altercontrol"
	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/catalog/sqlitestore"
	"github.com/catalogmut/enginecore/internal/inherit"
	"github.com/catalogmut/enginecore/internal/lockmgr"
	"github.com/catalogmut/enginecore/internal/oncommit"
	"github.com/catalogmut/enginecore/internal/relbuilder"
	"github.com/catalogmut/enginecore/internal/subcmd"
	"github.com/catalogmut/enginecore/internal/transform"
)

const testNamespace = catalog.OID(2200)

// storeRegistry hands out one sqlitestore.Store per script's $WORK directory
// so that script commands within the same scenario share catalog state while
// separate scenarios stay isolated.
type storeRegistry struct {
	mu     sync.Mutex
	stores map[string]*scriptStore
}

type scriptStore struct {
	cat      *sqlitestore.Store
	locks    *lockmgr.Table
	onCommit *oncommit.Registry
}

func newStoreRegistry() *storeRegistry {
	return &storeRegistry{stores: map[string]*scriptStore{}}
}

func (r *storeRegistry) get(workdir string) (*scriptStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[workdir]; ok {
		return s, nil
	}
	store, err := sqlitestore.Open(context.Background(), ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening catalog store: %w", err)
	}
	s := &scriptStore{cat: store, locks: lockmgr.NewTable(), onCommit: oncommit.New()}
	r.stores[workdir] = s
	return s, nil
}

func (r *storeRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		s.cat.Close()
	}
}

// withTx mirrors cmd/catalogctl's transaction helper: run fn, drain the
// on-commit registry's deferred TRUNCATE/DROP actions, then commit.
func (s *scriptStore) withTx(ctx context.Context, owner uint64, fn func(ctx context.Context, tx catalog.Tx) error) error {
	tx, err := s.cat.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer s.locks.ReleaseAll(owner)
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := s.onCommit.PreCommit(ctx, scriptDeleter{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("on-commit actions: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.onCommit.AtEndXact(true)
	return nil
}

type scriptDeleter struct{ tx catalog.Tx }

func (d scriptDeleter) TruncateRelations(ctx context.Context, relids []catalog.OID) error {
	for _, relid := range relids {
		if err := d.tx.Invalidate(ctx, relid); err != nil {
			return err
		}
	}
	return nil
}

func (d scriptDeleter) DropRelations(ctx context.Context, relids []catalog.OID) error {
	plan, err := inherit.PlanDrop(ctx, d.tx, relids, catalog.DropCascade)
	if err != nil {
		return err
	}
	return plan.Execute(ctx, d.tx)
}

func catalogCommands(reg *storeRegistry) map[string]script.Cmd {
	return map[string]script.Cmd{
		"create-table":     cmdCreateTable(reg),
		"alter-table":      cmdAlterTable(reg),
		"drop-table":       cmdDropTable(reg),
		"attach-partition": cmdAttachPartition(reg),
		"detach-partition": cmdDetachPartition(reg),
		"show-columns":         cmdShowColumns(reg),
		"show-partition-bound": cmdShowPartitionBound(reg),
	}
}

func cmdCreateTable(reg *storeRegistry) script.Cmd {
	return script.Command(
		script.CmdUsage{Summary: "create a relation from a JSON table definition", Args: "file.json"},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("usage: create-table file.json")
			}
			raw, err := os.ReadFile(s.Path(args[0]))
			if err != nil {
				return nil, err
			}
			var doc createTableDoc
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, err
			}

			store, err := reg.get(s.Getenv("WORK"))
			if err != nil {
				return nil, err
			}

			var result *relbuilder.Result
			err = store.withTx(s.Context(), 1, func(ctx context.Context, tx catalog.Tx) error {
				stmt, err := doc.toCreateStmt(testNamespace)
				if err != nil {
					return err
				}
				existing, err := tx.LookupRelationByName(ctx, stmt.Namespace, stmt.Name)
				if err != nil {
					return err
				}
				resolved, err := transform.TransformCreate(stmt, existing != nil)
				if err != nil {
					return err
				}
				deps := relbuilder.Dependencies{Locks: store.locks, OnCommit: store.onCommit, Owner: 1}
				result, err = relbuilder.DefineRelation(ctx, tx, deps, resolved, catalog.RelKindTable, "script")
				if err != nil {
					return err
				}
				for _, idxCons := range resolved.ImplicitIndexes {
					info := &catalog.AlteredTableInfo{RelID: result.OID}
					sc := &catalog.SubCommand{
						Kind: catalog.CmdAddConstraint,
						Pass: catalog.PassAddConstr,
						Constraint: &catalog.Constraint{
							Name: idxCons.Name, Kind: idxCons.Kind, RelID: result.OID, Expr: idxCons.Expr,
						},
					}
					if err := subcmd.AddConstraint(ctx, tx, info, sc, stmt.PartitionBy != nil, false, false, false); err != nil {
						return err
					}
				}
				for _, alter := range resolved.DeferredAlters {
					info := &catalog.AlteredTableInfo{RelID: result.OID}
					if err := subcmd.AddConstraint(ctx, tx, info, alter, false, false, false, false); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			out := fmt.Sprintf("created %s oid=%d\n", doc.Name, result.OID)
			return script.WaitFunc(func(*script.State) (string, string, error) { return out, "", nil }), nil
		},
	)
}

func cmdAlterTable(reg *storeRegistry) script.Cmd {
	return script.Command(
		script.CmdUsage{Summary: "run ALTER TABLE sub-commands from a JSON file", Args: "file.json"},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("usage: alter-table file.json")
			}
			raw, err := os.ReadFile(s.Path(args[0]))
			if err != nil {
				return nil, err
			}
			var doc alterTableDoc
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, err
			}

			store, err := reg.get(s.Getenv("WORK"))
			if err != nil {
				return nil, err
			}

			var plan *altercontrol.Plan
			err = store.withTx(s.Context(), 1, func(ctx context.Context, tx catalog.Tx) error {
				var rawSubs []transform.RawAlterSub
				for _, op := range doc.Ops {
					sc, err := op.toSubCommand()
					if err != nil {
						return err
					}
					rawSubs = append(rawSubs, transform.RawAlterSub{Cmd: sc})
				}
				target, err := tx.LookupRelationByName(ctx, testNamespace, doc.Name)
				if err != nil {
					return err
				}
				if target == nil {
					return fmt.Errorf("relation %q does not exist", doc.Name)
				}
				subs, err := transform.TransformAlter(target.OID, rawSubs, target.PartitionKey)
				if err != nil {
					return err
				}
				stmt := &altercontrol.Statement{RelName: doc.Name, Namespace: testNamespace, Only: doc.Only, SubCmds: subs}
				plan, err = altercontrol.ExecuteAlter(ctx, tx, stmt, altercontrol.RunOptions{Locks: store.locks, Owner: 1, Reparse: altercontrol.DefaultReparseHook})
				return err
			})
			if err != nil {
				return nil, err
			}
			out := fmt.Sprintf("altered %s (%d relation(s) touched)\n", doc.Name, len(plan.Infos))
			return script.WaitFunc(func(*script.State) (string, string, error) { return out, "", nil }), nil
		},
	)
}

func cmdDropTable(reg *storeRegistry) script.Cmd {
	return script.Command(
		script.CmdUsage{Summary: "drop a relation", Args: "name [-cascade]"},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			fs := flag.NewFlagSet("drop-table", flag.ContinueOnError)
			cascade := fs.Bool("cascade", false, "")
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			rest := fs.Args()
			if len(rest) != 1 {
				return nil, fmt.Errorf("usage: drop-table name [-cascade]")
			}
			name := rest[0]

			store, err := reg.get(s.Getenv("WORK"))
			if err != nil {
				return nil, err
			}

			var plan *inherit.DropPlan
			err = store.withTx(s.Context(), 1, func(ctx context.Context, tx catalog.Tx) error {
				rel, err := tx.LookupRelationByName(ctx, testNamespace, name)
				if err != nil {
					return err
				}
				if rel == nil {
					return fmt.Errorf("relation %q does not exist", name)
				}
				if err := store.locks.Acquire(ctx, uint32(rel.OID), 1, lockmgr.AccessExclusiveLock); err != nil {
					return err
				}
				behavior := catalog.DropRestrict
				if *cascade {
					behavior = catalog.DropCascade
				}
				plan, err = inherit.PlanDrop(ctx, tx, []catalog.OID{rel.OID}, behavior)
				if err != nil {
					return err
				}
				return plan.Execute(ctx, tx)
			})
			if err != nil {
				return nil, err
			}
			out := fmt.Sprintf("dropped %d relation(s)\n", len(plan.Targets))
			return script.WaitFunc(func(*script.State) (string, string, error) { return out, "", nil }), nil
		},
	)
}

func cmdAttachPartition(reg *storeRegistry) script.Cmd {
	return script.Command(
		script.CmdUsage{Summary: "attach a table as a partition", Args: "parent child bound.json"},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			if len(args) != 3 {
				return nil, fmt.Errorf("usage: attach-partition parent child bound.json")
			}
			parentName, childName := args[0], args[1]
			raw, err := os.ReadFile(s.Path(args[2]))
			if err != nil {
				return nil, err
			}
			var doc boundDoc
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, err
			}

			store, err := reg.get(s.Getenv("WORK"))
			if err != nil {
				return nil, err
			}

			var result *subcmd.AttachPartitionResult
			err = store.withTx(s.Context(), 1, func(ctx context.Context, tx catalog.Tx) error {
				parent, err := tx.LookupRelationByName(ctx, testNamespace, parentName)
				if err != nil {
					return err
				}
				if parent == nil {
					return fmt.Errorf("relation %q does not exist", parentName)
				}
				child, err := tx.LookupRelationByName(ctx, testNamespace, childName)
				if err != nil {
					return err
				}
				if child == nil {
					return fmt.Errorf("relation %q does not exist", childName)
				}
				if parent.PartitionKey == nil {
					return fmt.Errorf("relation %q is not partitioned", parentName)
				}
				bound, err := doc.transform(parent.PartitionKey.Strategy)
				if err != nil {
					return err
				}
				if err := store.locks.Acquire(ctx, uint32(parent.OID), 1, lockmgr.AccessExclusiveLock); err != nil {
					return err
				}
				if err := store.locks.Acquire(ctx, uint32(child.OID), 1, lockmgr.AccessExclusiveLock); err != nil {
					return err
				}
				result, err = subcmd.AttachPartition(ctx, tx, store.locks, 1, parent, child, bound)
				return err
			})
			if err != nil {
				return nil, err
			}
			out := fmt.Sprintf("attached %s to %s (needs_validation=%v needs_default_validation=%v)\n",
				childName, parentName, result.NeedsChildValidation, result.NeedsDefaultValidation)
			return script.WaitFunc(func(*script.State) (string, string, error) { return out, "", nil }), nil
		},
	)
}

func cmdDetachPartition(reg *storeRegistry) script.Cmd {
	return script.Command(
		script.CmdUsage{Summary: "detach a partition from its parent", Args: "parent child"},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("usage: detach-partition parent child")
			}
			parentName, childName := args[0], args[1]

			store, err := reg.get(s.Getenv("WORK"))
			if err != nil {
				return nil, err
			}

			err = store.withTx(s.Context(), 1, func(ctx context.Context, tx catalog.Tx) error {
				parent, err := tx.LookupRelationByName(ctx, testNamespace, parentName)
				if err != nil {
					return err
				}
				if parent == nil {
					return fmt.Errorf("relation %q does not exist", parentName)
				}
				child, err := tx.LookupRelationByName(ctx, testNamespace, childName)
				if err != nil {
					return err
				}
				if child == nil {
					return fmt.Errorf("relation %q does not exist", childName)
				}
				if err := store.locks.Acquire(ctx, uint32(parent.OID), 1, lockmgr.AccessExclusiveLock); err != nil {
					return err
				}
				if err := store.locks.Acquire(ctx, uint32(child.OID), 1, lockmgr.AccessExclusiveLock); err != nil {
					return err
				}
				return subcmd.DetachPartition(ctx, tx, parent, child)
			})
			if err != nil {
				return nil, err
			}
			out := fmt.Sprintf("detached %s from %s\n", childName, parentName)
			return script.WaitFunc(func(*script.State) (string, string, error) { return out, "", nil }), nil
		},
	)
}
