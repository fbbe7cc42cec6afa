package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dispatch"
	"github.com/catalogmut/enginecore/internal/inherit"
	"github.com/catalogmut/enginecore/internal/lockmgr"
)

var dropCascade bool

var dropTableCmd = &cobra.Command{
	Use:   "drop-table NAME",
	Short: "drop a relation, following its dependency graph (spec.md §4.6)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		var plan *inherit.DropPlan
		_, err := withTxDispatch(cmd.Context(), dispatch.ChangeDropTable, func(ctx context.Context, tx catalog.Tx) (catalog.OID, error) {
			rel, err := tx.LookupRelationByName(ctx, catalog.OID(namespaceID), name)
			if err != nil {
				return catalog.InvalidOID, err
			}
			if rel == nil {
				return catalog.InvalidOID, fmt.Errorf("relation %q does not exist", name)
			}
			if err := locks.Acquire(ctx, uint32(rel.OID), lockOwner, lockmgr.AccessExclusiveLock); err != nil {
				return catalog.InvalidOID, err
			}

			behavior := catalog.DropRestrict
			if dropCascade {
				behavior = catalog.DropCascade
			}
			plan, err = inherit.PlanDrop(ctx, tx, []catalog.OID{rel.OID}, behavior)
			if err != nil {
				return catalog.InvalidOID, err
			}
			if err := plan.Execute(ctx, tx); err != nil {
				return catalog.InvalidOID, err
			}
			return rel.OID, nil
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(map[string]any{"dropped": plan.Targets})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dropped %d relation(s)\n", len(plan.Targets))
		return nil
	},
}

func init() {
	dropTableCmd.Flags().BoolVar(&dropCascade, "cascade", false, "drop dependent objects too, instead of refusing")
	rootCmd.AddCommand(dropTableCmd)
}
