package partmgr

import (
	"strconv"

	"github.com/catalogmut/enginecore/internal/catalog"
)

// IndexInfo is the subset of an index's shape used for the match test
// spec.md §4.5 describes: key columns, operator classes, collations, and
// predicate equality.
type IndexInfo struct {
	KeyColumns []int16
	OpClasses  []catalog.OID
	Collations []catalog.OID
	Predicate  string
	IsUnique   bool
}

// Matches reports whether two index shapes are the same index-info match
// spec.md §4.5 calls for when deciding whether to adopt an existing
// partition index instead of creating a fresh one.
func (a IndexInfo) Matches(b IndexInfo) bool {
	if a.Predicate != b.Predicate || a.IsUnique != b.IsUnique {
		return false
	}
	if len(a.KeyColumns) != len(b.KeyColumns) {
		return false
	}
	for i := range a.KeyColumns {
		if a.KeyColumns[i] != b.KeyColumns[i] {
			return false
		}
		if a.OpClasses[i] != b.OpClasses[i] {
			return false
		}
		if a.Collations[i] != b.Collations[i] {
			return false
		}
	}
	return true
}

// PartitionIndexPlan is the outcome of propagating a CREATE INDEX on a
// partitioned table down to each of its partitions.
type PartitionIndexPlan struct {
	Adopt  []catalog.OID // existing indexes to adopt (set ParentIndex)
	Create []catalog.OID // partitions needing a freshly created clone
}

// PlanIndexPropagation enumerates partitions and decides, for each, whether
// an already-matching index can be adopted or a fresh one must be created
// under the canonical name `{parent_index}_part_{i}` (spec.md §4.5).
// existingOnPartition maps partition relid to the IndexInfo of any
// candidate pre-existing index on that partition that might match parent.
func PlanIndexPropagation(parent IndexInfo, partitions []catalog.OID, existingOnPartition map[catalog.OID]IndexInfo) PartitionIndexPlan {
	var plan PartitionIndexPlan
	for _, p := range partitions {
		if existing, ok := existingOnPartition[p]; ok && existing.Matches(parent) {
			plan.Adopt = append(plan.Adopt, p)
			continue
		}
		plan.Create = append(plan.Create, p)
	}
	return plan
}

// CanonicalPartitionIndexName builds the `{parent_index}_part_{i}` name
// spec.md §4.5 specifies. Per spec.md §9's open question, uniqueness of the
// generated name is not independently enforced here: a caller that pre-
// created an object under this exact name will collide silently, matching
// the documented ambiguity in the original system.
func CanonicalPartitionIndexName(parentIndexName string, i int) string {
	return parentIndexName + "_part_" + strconv.Itoa(i)
}

// ValidPropagatesUp reports whether the parent index should become valid,
// per spec.md §4.5: true only when every partition's corresponding index is
// attached and valid. validityByPartition maps partition relid to whether
// its child index is attached+valid.
func ValidPropagatesUp(partitions []catalog.OID, validityByPartition map[catalog.OID]bool) bool {
	for _, p := range partitions {
		if !validityByPartition[p] {
			return false
		}
	}
	return true
}
