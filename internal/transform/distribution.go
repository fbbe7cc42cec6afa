package transform

import "github.com/catalogmut/enginecore/internal/catalog"

// ResolveDistributionFallback implements the priority order spec.md §4.1
// documents for picking a distribution key when none is given explicitly:
// (1) replication if any FK forces it, (2) the first hash-distributable PK
// column, (3) the first UNIQUE-index column, (4) any hash-distributable
// declared column, (5) round-robin. Per spec.md §9's open question, this
// only encodes the documented priority order and does not attempt to
// reproduce the original's partially-dead macro-guarded branches.
func ResolveDistributionFallback(stmt *CreateStmt, primaries, uniques []ConstraintElement) *DistributionClause {
	if stmt.Distribution != nil && stmt.Distribution.Explicit {
		return stmt.Distribution
	}

	for _, c := range stmt.Constraints {
		if c.Kind != catalog.ConstraintForeign {
			continue
		}
		// Any FK present forces replication in the absence of an explicit
		// distribution clause, per spec.md §4.1 priority (1).
		return &DistributionClause{Locator: "replication"}
	}

	if len(primaries) == 1 && len(primaries[0].Columns) > 0 {
		if col := firstHashDistributable(stmt, primaries[0].Columns); col != "" {
			return &DistributionClause{Locator: "hash", Column: col}
		}
	}

	for _, u := range uniques {
		if len(u.Columns) > 0 {
			return &DistributionClause{Locator: "hash", Column: u.Columns[0]}
		}
	}

	if col := firstHashDistributable(stmt, allColumnNames(stmt)); col != "" {
		return &DistributionClause{Locator: "hash", Column: col}
	}

	return &DistributionClause{Locator: "roundrobin"}
}

func allColumnNames(stmt *CreateStmt) []string {
	names := make([]string, len(stmt.Columns))
	for i, c := range stmt.Columns {
		names[i] = c.Name
	}
	return names
}

// firstHashDistributable returns the first candidate column name that is
// eligible for hash distribution. Type-level eligibility (e.g. excluding
// types with no hash opclass) belongs to the out-of-scope type system; here
// every declared column is treated as eligible, which is sufficient for the
// documented priority ordering to be observable and testable.
func firstHashDistributable(stmt *CreateStmt, candidates []string) string {
	declared := make(map[string]bool, len(stmt.Columns))
	for _, c := range stmt.Columns {
		declared[c.Name] = true
	}
	for _, name := range candidates {
		if declared[name] {
			return name
		}
	}
	return ""
}
