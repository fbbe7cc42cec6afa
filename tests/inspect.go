package tests

import (
	"context"
	"fmt"
	"sort"

	"rsc.io/script"

	"github.com/catalogmut/enginecore/internal/catalog"
)

func cmdShowColumns(reg *storeRegistry) script.Cmd {
	return script.Command(
		script.CmdUsage{Summary: "print a relation's columns, one per line, as name attnum inhcount=N islocal=bool", Args: "relname"},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("usage: show-columns relname")
			}
			store, err := reg.get(s.Getenv("WORK"))
			if err != nil {
				return nil, err
			}
			var out string
			err = store.withTx(context.Background(), 1, func(ctx context.Context, tx catalog.Tx) error {
				rel, err := tx.LookupRelationByName(ctx, testNamespace, args[0])
				if err != nil {
					return err
				}
				if rel == nil {
					return fmt.Errorf("relation %q does not exist", args[0])
				}
				attrs, err := tx.ListAttributes(ctx, rel.OID)
				if err != nil {
					return err
				}
				sort.Slice(attrs, func(i, j int) bool { return attrs[i].AttNum < attrs[j].AttNum })
				for _, a := range attrs {
					if a.Dropped {
						continue
					}
					out += fmt.Sprintf("%s attnum=%d inhcount=%d islocal=%v\n", a.Name, a.AttNum, a.InhCount, a.IsLocal)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			return script.WaitFunc(func(*script.State) (string, string, error) { return out, "", nil }), nil
		},
	)
}

func cmdShowPartitionBound(reg *storeRegistry) script.Cmd {
	return script.Command(
		script.CmdUsage{Summary: "print a partition's bound as default=bool or from=... to=...", Args: "relname"},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("usage: show-partition-bound relname")
			}
			store, err := reg.get(s.Getenv("WORK"))
			if err != nil {
				return nil, err
			}
			var out string
			err = store.withTx(context.Background(), 1, func(ctx context.Context, tx catalog.Tx) error {
				rel, err := tx.LookupRelationByName(ctx, testNamespace, args[0])
				if err != nil {
					return err
				}
				if rel == nil {
					return fmt.Errorf("relation %q does not exist", args[0])
				}
				if rel.PartitionBound == nil {
					out = "no-bound\n"
					return nil
				}
				b := rel.PartitionBound
				out = fmt.Sprintf("default=%v from=%v to=%v\n", b.IsDefault, b.RangeFrom, b.RangeTo)
				return nil
			})
			if err != nil {
				return nil, err
			}
			return script.WaitFunc(func(*script.State) (string, string, error) { return out, "", nil }), nil
		},
	)
}
