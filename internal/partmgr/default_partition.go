package partmgr

import (
	"fmt"
	"strings"

	"github.com/catalogmut/enginecore/internal/catalog"
)

// DefaultPartitionConstraint computes the implicit constraint on a DEFAULT
// partition: the negation of the disjunction of every sibling bound, per
// spec.md §4.5. It is recomputed on every ATTACH/DETACH by the caller
// re-reading the full sibling set and passing it here; this function has no
// memory of prior computations.
//
// The result is a human-readable predicate string suitable for storing
// alongside the relation and for a Phase-3 scan to assert against (spec.md
// §4.2 step 7, §4.4.g).
func DefaultPartitionConstraint(keyExpr string, siblingBounds []*catalog.PartitionBound) string {
	if len(siblingBounds) == 0 {
		return "true"
	}
	parts := make([]string, 0, len(siblingBounds))
	for _, b := range siblingBounds {
		parts = append(parts, BoundPredicate(keyExpr, b))
	}
	return fmt.Sprintf("NOT (%s)", strings.Join(parts, " OR "))
}

// BoundPredicate renders a partition bound as the predicate text used both
// for attaching and for default-partition negation (spec.md §4.2's "bound
// predicate AND parent's own constraint" framing).
func BoundPredicate(keyExpr string, b *catalog.PartitionBound) string {
	if b == nil || b.IsDefault {
		return "true"
	}
	switch b.Strategy {
	case catalog.PartitionStrategyList:
		return fmt.Sprintf("%s IN %v", keyExpr, b.ListValues)
	case catalog.PartitionStrategyHash:
		return fmt.Sprintf("satisfies_hash_partition(%s, %d, %d)", keyExpr, b.Modulus, b.Remainder)
	default:
		return fmt.Sprintf("%s >= %v AND %s < %v", keyExpr, rangeTuple(b.RangeFrom), keyExpr, rangeTuple(b.RangeTo))
	}
}

func rangeTuple(datums []catalog.RangeDatum) []any {
	out := make([]any, len(datums))
	for i, d := range datums {
		switch d.Kind {
		case catalog.BoundMinValue:
			out[i] = "MINVALUE"
		case catalog.BoundMaxValue:
			out[i] = "MAXVALUE"
		default:
			out[i] = d.Value
		}
	}
	return out
}

// ImpliedBy is a minimal stand-in for predicate_implied_by (spec.md §4.4.g):
// it reports whether existingConstraints, taken together, already
// syntactically imply the candidate predicate, so the Phase-3 validation
// scan can be skipped. Real implication checking belongs to the
// (out-of-scope) expression planner; this only catches the common case of
// an identical predicate already present, which is enough to make the
// ATTACH-skip-scan optimization observable and testable.
func ImpliedBy(candidate string, existingConstraints []string) bool {
	for _, c := range existingConstraints {
		if c == candidate {
			return true
		}
	}
	return false
}
