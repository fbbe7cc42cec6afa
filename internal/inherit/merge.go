// Package inherit implements C6: attribute/constraint merging from parents
// and the dependency-graph cascade used by DROP (spec.md §4.6).
package inherit

import (
	"context"
	"fmt"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
)

// MergeResult is the outcome of merging one parent's attribute list into a
// child's in-progress attribute set.
type MergeResult struct {
	Attributes []*catalog.Attribute
	// Notices carries "merging definition of column X" style notices,
	// matching spec.md §7's NOTICE-on-duplicate-name-union contract.
	Notices []string
}

// MergeAttributes merges each parent attribute into child either by adding a
// new child attribute or unioning with an existing same-named entry,
// implementing spec.md §4.2 step 3 / §4.4.e. poisonedDefaults collects
// column names whose inherited default text disagreed across parents (the
// child must override them or a later error fires).
func MergeAttributes(child []*catalog.Attribute, parentAttrs []*catalog.Attribute) (*MergeResult, map[string]bool, error) {
	byName := make(map[string]*catalog.Attribute, len(child))
	for _, a := range child {
		if !a.Dropped {
			byName[a.Name] = a
		}
	}

	result := &MergeResult{Attributes: child}
	poisoned := make(map[string]bool)
	seenDefault := make(map[string]string)
	sawDefault := make(map[string]bool)

	for _, pa := range parentAttrs {
		existing, ok := byName[pa.Name]
		if !ok {
			na := *pa
			na.IsLocal = false
			na.InhCount = 1
			result.Attributes = append(result.Attributes, &na)
			byName[pa.Name] = &na
			if pa.HasDefault {
				seenDefault[pa.Name] = pa.DefaultExpr
				sawDefault[pa.Name] = true
			}
			continue
		}

		if existing.TypeOID != pa.TypeOID || existing.TypMod != pa.TypMod || existing.CollationID != pa.CollationID {
			return nil, nil, dbcodes.New(dbcodes.DatatypeMismatch,
				"column %q has a conflicting type/typmod/collation with inherited definition", pa.Name)
		}

		result.Notices = append(result.Notices, fmt.Sprintf("merging multiple inherited definitions of column %q", pa.Name))
		existing.InhCount++

		if pa.HasDefault {
			if sawDefault[pa.Name] && seenDefault[pa.Name] != pa.DefaultExpr {
				poisoned[pa.Name] = true
			} else {
				seenDefault[pa.Name] = pa.DefaultExpr
				sawDefault[pa.Name] = true
				if !existing.HasDefault {
					existing.HasDefault = true
					existing.DefaultExpr = pa.DefaultExpr
				}
			}
		}
	}

	return result, poisoned, nil
}

// MergeCheckConstraints merges a parent's CHECK constraints into the
// child's set under the "same name => same expression" contract (spec.md
// §4.2 step 4 / §4.4.e): a same-named constraint must have an identical
// expression, else it's a conflicting definition. Only CHECK is
// inheritable, per spec.md §4.4.e.
func MergeCheckConstraints(child []*catalog.Constraint, parentConstraints []*catalog.Constraint) ([]*catalog.Constraint, error) {
	byName := make(map[string]*catalog.Constraint, len(child))
	for _, c := range child {
		byName[c.Name] = c
	}

	out := child
	for _, pc := range parentConstraints {
		if pc.Kind != catalog.ConstraintCheck {
			continue
		}
		existing, ok := byName[pc.Name]
		if !ok {
			nc := *pc
			nc.InhCount = 1
			out = append(out, &nc)
			byName[pc.Name] = &nc
			continue
		}
		if existing.Expr != pc.Expr {
			return nil, dbcodes.New(dbcodes.InvalidTableDefinition,
				"constraint %q conflicts with inherited definition", pc.Name)
		}
		existing.InhCount++
	}
	return out, nil
}

// IsDescendant reports whether candidate already appears among relid's
// transitive inheritance children, used to reject inheritance cycles (I8,
// spec.md §4.4.e).
func IsDescendant(ctx context.Context, tx catalog.Tx, relid, candidate catalog.OID) (bool, error) {
	visited := map[catalog.OID]bool{relid: true}
	queue := []catalog.OID{relid}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		children, err := tx.ListChildren(ctx, cur)
		if err != nil {
			return false, err
		}
		for _, edge := range children {
			if edge.ChildOID == candidate {
				return true, nil
			}
			if !visited[edge.ChildOID] {
				visited[edge.ChildOID] = true
				queue = append(queue, edge.ChildOID)
			}
		}
	}
	return false, nil
}

// RecheckAttInhCount recomputes I4 for one child column: attinhcount must
// equal the number of pg_inherits parents that currently define the column
// name. Returns the correct count so callers can compare against the
// attribute's stored value and flag a violation.
func RecheckAttInhCount(ctx context.Context, tx catalog.Tx, child catalog.OID, colName string) (int32, error) {
	parents, err := tx.ListParents(ctx, child)
	if err != nil {
		return 0, err
	}
	var count int32
	for _, edge := range parents {
		attrs, err := tx.ListAttributes(ctx, edge.ParentOID)
		if err != nil {
			return 0, err
		}
		for _, a := range attrs {
			if !a.Dropped && a.Name == colName {
				count++
				break
			}
		}
	}
	return count, nil
}
