package transform

import (
	"fmt"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
)

// RawAlterSub is one sub-command as produced by the out-of-scope parser,
// before type resolution (USING expression transformation, partition bound
// coercion).
type RawAlterSub struct {
	Cmd          *catalog.SubCommand
	RawBound     *RawPartitionBound // only for CmdAttachPartition
	TargetParent catalog.OID        // only for CmdAttachPartition
}

// TransformAlter implements transform_alter: for each ATTACH PARTITION
// sub-command it computes the bound via TransformPartitionBound and records
// the target parent. Every other sub-command, including ALTER COLUMN TYPE
// with its USING expression, is passed through unchanged.
func TransformAlter(relid catalog.OID, subs []RawAlterSub, parentKey *catalog.PartitionKeyDef) ([]*catalog.SubCommand, error) {
	out := make([]*catalog.SubCommand, 0, len(subs))
	for _, raw := range subs {
		cmd := raw.Cmd
		if cmd.Kind == catalog.CmdAttachPartition {
			if parentKey == nil {
				return nil, dbcodes.New(dbcodes.WrongObjectType, "relation %d is not a partitioned table", raw.TargetParent)
			}
			bound, err := TransformPartitionBound(parentKey, raw.RawBound)
			if err != nil {
				return nil, err
			}
			cmd.PartitionOf = raw.TargetParent
			cmd.PartitionBound = bound
		}
		out = append(out, cmd)
	}
	return out, nil
}

// TransformPartitionBound implements transform_partition_bound: strategy-
// specific coercion and validation of a raw partition-bound spec (spec.md
// §4.1).
func TransformPartitionBound(key *catalog.PartitionKeyDef, raw *RawPartitionBound) (*catalog.PartitionBound, error) {
	if raw.IsDefault {
		if key.Strategy == catalog.PartitionStrategyHash {
			return nil, dbcodes.New(dbcodes.InvalidObjectDefinition, "DEFAULT partitions are not allowed for HASH-partitioned tables")
		}
		return &catalog.PartitionBound{IsDefault: true, Strategy: key.Strategy}, nil
	}

	switch key.Strategy {
	case catalog.PartitionStrategyList:
		return transformListBound(raw)
	case catalog.PartitionStrategyRange, catalog.PartitionStrategyInterval:
		return transformRangeBound(raw)
	case catalog.PartitionStrategyHash:
		return transformHashBound(raw)
	default:
		return nil, dbcodes.New(dbcodes.FeatureNotSupported, "unsupported partition strategy")
	}
}

func transformListBound(raw *RawPartitionBound) (*catalog.PartitionBound, error) {
	seen := make(map[string]bool)
	var out [][]any
	for _, tuple := range raw.ListValues {
		for _, v := range tuple {
			if v == nil {
				return nil, dbcodes.New(dbcodes.InvalidObjectDefinition, "NULL is not allowed in a LIST partition bound")
			}
		}
		key := equalKey(tuple)
		if seen[key] {
			continue // drop duplicates by equal()
		}
		seen[key] = true
		out = append(out, tuple)
	}
	return &catalog.PartitionBound{Strategy: catalog.PartitionStrategyList, ListValues: out}, nil
}

func equalKey(tuple []any) string {
	s := ""
	for _, v := range tuple {
		s += fmt.Sprint(v) + "\x00"
	}
	return s
}

func transformRangeBound(raw *RawPartitionBound) (*catalog.PartitionBound, error) {
	if err := validateRangeTuple(raw.RangeFrom); err != nil {
		return nil, err
	}
	if err := validateRangeTuple(raw.RangeTo); err != nil {
		return nil, err
	}
	return &catalog.PartitionBound{
		Strategy:  catalog.PartitionStrategyRange,
		RangeFrom: raw.RangeFrom,
		RangeTo:   raw.RangeTo,
	}, nil
}

// validateRangeTuple enforces the "trailing-MINVALUE/MAXVALUE must be
// contiguous" rule (spec.md §4.1): once one element is MIN/MAX-VALUE, every
// element after it must share that kind. Plain VALUE elements may never be
// NULL.
func validateRangeTuple(tuple []catalog.RangeDatum) error {
	sawSpecial := catalog.BoundKind(0)
	for i, d := range tuple {
		if d.Kind == catalog.BoundValue && d.Value == nil {
			return dbcodes.New(dbcodes.InvalidObjectDefinition, "NULL is not allowed in a RANGE partition bound")
		}
		if sawSpecial != 0 && d.Kind != sawSpecial {
			return dbcodes.New(dbcodes.InvalidObjectDefinition,
				"every partition bound element after a MINVALUE/MAXVALUE must share its kind (position %d)", i)
		}
		if d.Kind != catalog.BoundValue {
			sawSpecial = d.Kind
		}
	}
	return nil
}

func transformHashBound(raw *RawPartitionBound) (*catalog.PartitionBound, error) {
	if raw.Modulus <= 0 {
		return nil, dbcodes.New(dbcodes.InvalidObjectDefinition, "hash partition modulus must be greater than zero")
	}
	if raw.Remainder < 0 || raw.Remainder >= raw.Modulus {
		return nil, dbcodes.New(dbcodes.InvalidObjectDefinition, "hash partition remainder must satisfy 0 <= remainder < modulus")
	}
	return &catalog.PartitionBound{
		Strategy:  catalog.PartitionStrategyHash,
		Modulus:   raw.Modulus,
		Remainder: raw.Remainder,
	}, nil
}
