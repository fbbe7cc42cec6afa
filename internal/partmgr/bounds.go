// Package partmgr implements C5: partition bound validation, overlap
// detection, default-partition constraint recomputation, and index
// propagation between a partitioned table and its partitions (spec.md
// §4.5).
package partmgr

import (
	"fmt"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
)

// Sibling pairs a partition's relation OID with the bound it was attached
// with, as seen by the overlap checker.
type Sibling struct {
	RelID catalog.OID
	Bound *catalog.PartitionBound
}

// CheckOverlap validates that candidate does not overlap any entry in
// siblings, dispatching on strategy per spec.md §4.5. A nil return means no
// overlap.
func CheckOverlap(strategy catalog.PartitionStrategy, candidate *catalog.PartitionBound, siblings []Sibling) error {
	if candidate.IsDefault {
		for _, s := range siblings {
			if s.Bound.IsDefault {
				return dbcodes.New(dbcodes.InvalidObjectDefinition, "partition already has a default partition")
			}
		}
		return nil
	}

	switch strategy {
	case catalog.PartitionStrategyList:
		return checkListOverlap(candidate, siblings)
	case catalog.PartitionStrategyRange, catalog.PartitionStrategyInterval:
		return checkRangeOverlap(candidate, siblings)
	case catalog.PartitionStrategyHash:
		return checkHashOverlap(candidate, siblings)
	default:
		return dbcodes.New(dbcodes.FeatureNotSupported, "unsupported partition strategy")
	}
}

func checkListOverlap(candidate *catalog.PartitionBound, siblings []Sibling) error {
	want := make(map[string]bool)
	for _, tuple := range candidate.ListValues {
		want[fmt.Sprint(tuple)] = true
	}
	for _, s := range siblings {
		if s.Bound.IsDefault {
			continue
		}
		for _, tuple := range s.Bound.ListValues {
			if want[fmt.Sprint(tuple)] {
				return dbcodes.New(dbcodes.InvalidObjectDefinition,
					"partition bound value %v is already covered by partition %d", tuple, s.RelID)
			}
		}
	}
	return nil
}

// rangeCompare orders MINVALUE < VALUE < MAXVALUE for comparison purposes at a
// fixed tuple position, matching spec.md §4.1's MINVALUE/MAXVALUE-act-as
// -infinity rule.
func rangeCompare(a, b catalog.RangeDatum, less func(x, y any) bool) int {
	rank := func(d catalog.RangeDatum) int {
		switch d.Kind {
		case catalog.BoundMinValue:
			return -1
		case catalog.BoundMaxValue:
			return 1
		default:
			return 0
		}
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if ra != 0 {
		return 0 // both MIN or both MAX
	}
	if less(a.Value, b.Value) {
		return -1
	}
	if less(b.Value, a.Value) {
		return 1
	}
	return 0
}

func tupleCompare(a, b []catalog.RangeDatum, less func(x, y any) bool) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := rangeCompare(a[i], b[i], less); c != 0 {
			return c
		}
	}
	return 0
}

// defaultLess handles the common scalar kinds the catalog's in-memory
// representation uses for test and CLI purposes; production code would
// delegate to the column type's comparison operator.
func defaultLess(x, y any) bool {
	switch xv := x.(type) {
	case int:
		return xv < y.(int)
	case int64:
		return xv < y.(int64)
	case float64:
		return xv < y.(float64)
	case string:
		return xv < y.(string)
	default:
		return fmt.Sprint(x) < fmt.Sprint(y)
	}
}

// checkRangeOverlap keeps things simple by doing an O(n) scan against the
// (small, in-memory) sibling set rather than maintaining a persistent
// sorted interval index; spec.md §4.5 describes the sorted-interval-set
// approach as an implementation detail, not an externally observable one.
func checkRangeOverlap(candidate *catalog.PartitionBound, siblings []Sibling) error {
	for _, s := range siblings {
		if s.Bound.IsDefault {
			continue
		}
		if rangesOverlap(candidate.RangeFrom, candidate.RangeTo, s.Bound.RangeFrom, s.Bound.RangeTo) {
			return dbcodes.New(dbcodes.InvalidObjectDefinition,
				"partition bound overlaps with partition %d", s.RelID)
		}
	}
	return nil
}

// rangesOverlap implements the half-open interval test [lo1,hi1) vs
// [lo2,hi2): they overlap iff lo1 < hi2 && lo2 < hi1. Two ranges that only
// touch at one's hi equal to the other's lo are adjacent, not overlapping,
// and are accepted; two ranges that share a lo (both containing that value)
// fail the test and are rejected as overlapping (B2).
func rangesOverlap(lo1, hi1, lo2, hi2 []catalog.RangeDatum) bool {
	return tupleCompare(lo1, hi2, defaultLess) < 0 && tupleCompare(lo2, hi1, defaultLess) < 0
}

func checkHashOverlap(candidate *catalog.PartitionBound, siblings []Sibling) error {
	if candidate.Modulus <= 0 {
		return dbcodes.New(dbcodes.InvalidObjectDefinition, "hash partition modulus must be positive")
	}
	if candidate.Remainder < 0 || candidate.Remainder >= candidate.Modulus {
		return dbcodes.New(dbcodes.InvalidObjectDefinition, "hash partition remainder must be in [0, modulus)")
	}
	for _, s := range siblings {
		if s.Bound.Modulus != candidate.Modulus {
			return dbcodes.New(dbcodes.InvalidObjectDefinition,
				"hash partition modulus %d is inconsistent with existing modulus %d", candidate.Modulus, s.Bound.Modulus)
		}
		if s.Bound.Remainder == candidate.Remainder {
			return dbcodes.New(dbcodes.InvalidObjectDefinition,
				"hash partition (modulus %d, remainder %d) already attached as partition %d",
				candidate.Modulus, candidate.Remainder, s.RelID)
		}
	}
	return nil
}
