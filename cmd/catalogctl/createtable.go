package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dispatch"
	"github.com/catalogmut/enginecore/internal/relbuilder"
	"github.com/catalogmut/enginecore/internal/subcmd"
	"github.com/catalogmut/enginecore/internal/transform"
)

var createTableFile string

var createTableCmd = &cobra.Command{
	Use:   "create-table",
	Short: "define a new relation from a JSON table definition",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(createTableFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", createTableFile, err)
		}
		var doc createTableDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", createTableFile, err)
		}

		var result *relbuilder.Result
		_, err = withTxDispatch(cmd.Context(), dispatch.ChangeCreateTable, func(ctx context.Context, tx catalog.Tx) (catalog.OID, error) {
			stmt, err := doc.toCreateStmt(catalog.OID(namespaceID))
			if err != nil {
				return catalog.InvalidOID, err
			}
			existing, err := tx.LookupRelationByName(ctx, stmt.Namespace, stmt.Name)
			if err != nil {
				return catalog.InvalidOID, err
			}
			resolved, err := transform.TransformCreate(stmt, existing != nil)
			if err != nil {
				return catalog.InvalidOID, err
			}

			deps := relbuilder.Dependencies{Locks: locks, OnCommit: onCommit, Owner: lockOwner}
			result, err = relbuilder.DefineRelation(ctx, tx, deps, resolved, catalog.RelKindTable, owner)
			if err != nil {
				return catalog.InvalidOID, err
			}

			for _, idxCons := range resolved.ImplicitIndexes {
				info := &catalog.AlteredTableInfo{RelID: result.OID}
				cmd := &catalog.SubCommand{
					Kind: catalog.CmdAddConstraint,
					Pass: catalog.PassAddConstr,
					Constraint: &catalog.Constraint{
						Name:    idxCons.Name,
						Kind:    idxCons.Kind,
						RelID:   result.OID,
						Expr:    idxCons.Expr,
					},
				}
				if err := subcmd.AddConstraint(ctx, tx, info, cmd, stmt.PartitionBy != nil, false, false, false); err != nil {
					return catalog.InvalidOID, fmt.Errorf("adding implicit constraint %q: %w", idxCons.Name, err)
				}
			}
			for _, alter := range resolved.DeferredAlters {
				info := &catalog.AlteredTableInfo{RelID: result.OID}
				if err := subcmd.AddConstraint(ctx, tx, info, alter, false, false, false, false); err != nil {
					return catalog.InvalidOID, fmt.Errorf("adding deferred constraint %q: %w", alter.Constraint.Name, err)
				}
			}
			return result.OID, nil
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(map[string]any{"oid": result.OID, "namespace": result.Namespace})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created relation %q (oid=%d)\n", doc.Name, result.OID)
		return nil
	},
}

func init() {
	createTableCmd.Flags().StringVarP(&createTableFile, "file", "f", "", "path to a JSON table definition (required)")
	_ = createTableCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(createTableCmd)
}
