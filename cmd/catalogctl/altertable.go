package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/catalogmut/enginecore/internal/altercontrol"
	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dispatch"
	"github.com/catalogmut/enginecore/internal/transform"
)

// alterOpDoc is one sub-command in an alter-table JSON file. Exactly the
// fields its Kind needs are expected to be populated; the rest are ignored.
type alterOpDoc struct {
	Kind           string   `json:"kind"`
	Column         *columnDoc `json:"column"`
	ColumnName     string   `json:"column_name"`
	NewTypeOID     uint32   `json:"new_type_oid"`
	UsingExpr      string   `json:"using_expr"`
	ConstraintName string   `json:"constraint_name"`
	CheckExpr      string   `json:"check_expr"`
	Cascade        bool     `json:"cascade"`
	IfExists       bool     `json:"if_exists"`
	NewTablespace  uint32   `json:"new_tablespace"`
	NewOwner       string   `json:"new_owner"`
}

type alterTableDoc struct {
	Name string       `json:"name"`
	Only bool         `json:"only"`
	Ops  []alterOpDoc `json:"ops"`
}

func kindFromDoc(s string) (catalog.SubCommandKind, error) {
	switch s {
	case "add_column":
		return catalog.CmdAddColumn, nil
	case "drop_column":
		return catalog.CmdDropColumn, nil
	case "alter_column_type":
		return catalog.CmdAlterColumnType, nil
	case "set_not_null":
		return catalog.CmdSetNotNull, nil
	case "drop_not_null":
		return catalog.CmdDropNotNull, nil
	case "add_constraint":
		return catalog.CmdAddConstraint, nil
	case "drop_constraint":
		return catalog.CmdDropConstraint, nil
	case "set_tablespace":
		return catalog.CmdSetTablespace, nil
	case "owner_to":
		return catalog.CmdOwnerTo, nil
	default:
		return 0, fmt.Errorf("unknown alter-table op kind %q", s)
	}
}

func (doc *alterOpDoc) toSubCommand(relName string) (*catalog.SubCommand, error) {
	kind, err := kindFromDoc(doc.Kind)
	if err != nil {
		return nil, err
	}
	cmd := &catalog.SubCommand{Kind: kind, ColumnName: doc.ColumnName, IfExists: doc.IfExists}
	if doc.Cascade {
		cmd.Behavior = catalog.DropCascade
	}
	switch kind {
	case catalog.CmdAddColumn:
		if doc.Column == nil {
			return nil, fmt.Errorf("add_column requires a column definition")
		}
		cmd.Column = &catalog.Attribute{
			Name:       doc.Column.Name,
			TypeOID:    catalog.OID(doc.Column.TypeOID),
			TypMod:     doc.Column.TypMod,
			NotNull:    doc.Column.NotNull,
			HasDefault: doc.Column.Default != "",
			DefaultExpr: doc.Column.Default,
			IsLocal:    true,
		}
	case catalog.CmdAlterColumnType:
		cmd.NewTypeOID = catalog.OID(doc.NewTypeOID)
		cmd.UsingExpr = doc.UsingExpr
	case catalog.CmdAddConstraint:
		cmd.Constraint = &catalog.Constraint{
			Name: doc.ConstraintName,
			Kind: catalog.ConstraintCheck,
			Expr: doc.CheckExpr,
		}
	case catalog.CmdDropConstraint:
		cmd.ConstraintName = doc.ConstraintName
	case catalog.CmdSetTablespace:
		cmd.NewTablespace = catalog.OID(doc.NewTablespace)
	case catalog.CmdOwnerTo:
		cmd.NewOwner = doc.NewOwner
	}
	return cmd, nil
}

var alterTableFile string

var alterTableCmd = &cobra.Command{
	Use:   "alter-table",
	Short: "run a set of ALTER TABLE sub-commands from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(alterTableFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", alterTableFile, err)
		}
		var doc alterTableDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", alterTableFile, err)
		}

		var plan *altercontrol.Plan
		_, err = withTxDispatch(cmd.Context(), dispatch.ChangeAlterTable, func(ctx context.Context, tx catalog.Tx) (catalog.OID, error) {
			var rawSubs []transform.RawAlterSub
			for _, op := range doc.Ops {
				sc, err := op.toSubCommand(doc.Name)
				if err != nil {
					return catalog.InvalidOID, err
				}
				rawSubs = append(rawSubs, transform.RawAlterSub{Cmd: sc})
			}

			target, err := tx.LookupRelationByName(ctx, catalog.OID(namespaceID), doc.Name)
			if err != nil {
				return catalog.InvalidOID, err
			}
			if target == nil {
				return catalog.InvalidOID, fmt.Errorf("relation %q does not exist", doc.Name)
			}

			subs, err := transform.TransformAlter(target.OID, rawSubs, target.PartitionKey)
			if err != nil {
				return catalog.InvalidOID, err
			}

			stmt := &altercontrol.Statement{RelName: doc.Name, Namespace: catalog.OID(namespaceID), Only: doc.Only, SubCmds: subs}
			plan, err = altercontrol.ExecuteAlter(ctx, tx, stmt, altercontrol.RunOptions{
				Locks:             locks,
				Owner:             lockOwner,
				DistributionCheck: distReg,
				Reparse:           altercontrol.DefaultReparseHook,
			})
			if err != nil {
				return catalog.InvalidOID, err
			}
			return target.OID, nil
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(map[string]any{"relations_altered": len(plan.Infos), "needs_toast": plan.NeedsTOAST})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "altered %q and %d descendant relation(s)\n", doc.Name, len(plan.Infos)-1)
		return nil
	},
}

func init() {
	alterTableCmd.Flags().StringVarP(&alterTableFile, "file", "f", "", "path to a JSON alter-table op list (required)")
	_ = alterTableCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(alterTableCmd)
}
