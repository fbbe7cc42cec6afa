package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dispatch"
	"github.com/catalogmut/enginecore/internal/lockmgr"
	"github.com/catalogmut/enginecore/internal/subcmd"
	"github.com/catalogmut/enginecore/internal/transform"
)

// boundDoc is the friendly JSON shape for a FOR VALUES clause, translated
// into a transform.RawPartitionBound.
type boundDoc struct {
	Default bool      `json:"default"`
	List    [][]any   `json:"list"`
	From    []any     `json:"from"`
	To      []any     `json:"to"`
	Modulus int32     `json:"modulus"`
	Remainder int32   `json:"remainder"`
}

func (b *boundDoc) toRawBound(strategy catalog.PartitionStrategy) *transform.RawPartitionBound {
	raw := &transform.RawPartitionBound{Strategy: strategy, IsDefault: b.Default, Modulus: b.Modulus, Remainder: b.Remainder}
	raw.ListValues = b.List
	for _, v := range b.From {
		raw.RangeFrom = append(raw.RangeFrom, catalog.RangeDatum{Kind: catalog.BoundValue, Value: v})
	}
	for _, v := range b.To {
		raw.RangeTo = append(raw.RangeTo, catalog.RangeDatum{Kind: catalog.BoundValue, Value: v})
	}
	return raw
}

var (
	attachParentName string
	attachChildName  string
	attachBoundFile  string
)

var attachPartitionCmd = &cobra.Command{
	Use:   "attach-partition",
	Short: "attach an existing table as a partition of a partitioned parent",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(attachBoundFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", attachBoundFile, err)
		}
		var doc boundDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", attachBoundFile, err)
		}

		var result *subcmd.AttachPartitionResult
		_, err = withTxDispatch(cmd.Context(), dispatch.ChangeAttachPart, func(ctx context.Context, tx catalog.Tx) (catalog.OID, error) {
			parent, err := tx.LookupRelationByName(ctx, catalog.OID(namespaceID), attachParentName)
			if err != nil {
				return catalog.InvalidOID, err
			}
			if parent == nil {
				return catalog.InvalidOID, fmt.Errorf("relation %q does not exist", attachParentName)
			}
			child, err := tx.LookupRelationByName(ctx, catalog.OID(namespaceID), attachChildName)
			if err != nil {
				return catalog.InvalidOID, err
			}
			if child == nil {
				return catalog.InvalidOID, fmt.Errorf("relation %q does not exist", attachChildName)
			}
			if parent.PartitionKey == nil {
				return catalog.InvalidOID, fmt.Errorf("relation %q is not a partitioned table", attachParentName)
			}

			bound, err := transformBound(parent.PartitionKey.Strategy, &doc)
			if err != nil {
				return catalog.InvalidOID, err
			}
			if err := locks.Acquire(ctx, uint32(parent.OID), lockOwner, lockmgr.AccessExclusiveLock); err != nil {
				return catalog.InvalidOID, err
			}
			if err := locks.Acquire(ctx, uint32(child.OID), lockOwner, lockmgr.AccessExclusiveLock); err != nil {
				return catalog.InvalidOID, err
			}
			result, err = subcmd.AttachPartition(ctx, tx, locks, lockOwner, parent, child, bound)
			if err != nil {
				return catalog.InvalidOID, err
			}
			return parent.OID, nil
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "attached %q to %q (needs validation: child=%v default=%v)\n",
			attachChildName, attachParentName, result.NeedsChildValidation, result.NeedsDefaultValidation)
		return nil
	},
}

func transformBound(strategy catalog.PartitionStrategy, doc *boundDoc) (*catalog.PartitionBound, error) {
	raw := doc.toRawBound(strategy)
	key := &catalog.PartitionKeyDef{Strategy: strategy}
	return transform.TransformPartitionBound(key, raw)
}

var (
	detachParentName string
	detachChildName  string
)

var detachPartitionCmd = &cobra.Command{
	Use:   "detach-partition",
	Short: "detach a partition from its parent, leaving it as a standalone table",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := withTxDispatch(cmd.Context(), dispatch.ChangeDetachPart, func(ctx context.Context, tx catalog.Tx) (catalog.OID, error) {
			parent, err := tx.LookupRelationByName(ctx, catalog.OID(namespaceID), detachParentName)
			if err != nil {
				return catalog.InvalidOID, err
			}
			if parent == nil {
				return catalog.InvalidOID, fmt.Errorf("relation %q does not exist", detachParentName)
			}
			child, err := tx.LookupRelationByName(ctx, catalog.OID(namespaceID), detachChildName)
			if err != nil {
				return catalog.InvalidOID, err
			}
			if child == nil {
				return catalog.InvalidOID, fmt.Errorf("relation %q does not exist", detachChildName)
			}
			if err := locks.Acquire(ctx, uint32(parent.OID), lockOwner, lockmgr.AccessExclusiveLock); err != nil {
				return catalog.InvalidOID, err
			}
			if err := locks.Acquire(ctx, uint32(child.OID), lockOwner, lockmgr.AccessExclusiveLock); err != nil {
				return catalog.InvalidOID, err
			}
			if err := subcmd.DetachPartition(ctx, tx, parent, child); err != nil {
				return catalog.InvalidOID, err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "detached %q from %q\n", detachChildName, detachParentName)
			return parent.OID, nil
		})
		return err
	},
}

func init() {
	attachPartitionCmd.Flags().StringVar(&attachParentName, "parent", "", "partitioned parent table name (required)")
	attachPartitionCmd.Flags().StringVar(&attachChildName, "child", "", "table to attach as a partition (required)")
	attachPartitionCmd.Flags().StringVarP(&attachBoundFile, "file", "f", "", "path to a JSON FOR VALUES bound (required)")
	_ = attachPartitionCmd.MarkFlagRequired("parent")
	_ = attachPartitionCmd.MarkFlagRequired("child")
	_ = attachPartitionCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(attachPartitionCmd)

	detachPartitionCmd.Flags().StringVar(&detachParentName, "parent", "", "current parent table name (required)")
	detachPartitionCmd.Flags().StringVar(&detachChildName, "child", "", "partition to detach (required)")
	_ = detachPartitionCmd.MarkFlagRequired("parent")
	_ = detachPartitionCmd.MarkFlagRequired("child")
	rootCmd.AddCommand(detachPartitionCmd)
}
