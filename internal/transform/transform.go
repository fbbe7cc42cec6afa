// Package transform implements C1, the statement transformer: it consumes
// raw CREATE/ALTER table-element trees (produced by the out-of-scope SQL
// parser) and returns fully-resolved utility statements ready for C2/C3 to
// execute (spec.md §4.1).
package transform

import (
	"fmt"
	"sort"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/dbcodes"
)

// MaxColumns is the hard cap spec.md §4.1 names.
const MaxColumns = 1600

// ColumnElement is one column definition from a CREATE TABLE element list,
// already past serial/identity resolution is NOT assumed here —
// ResolveSerial performs that step.
type ColumnElement struct {
	Name        string
	TypeOID     catalog.OID
	TypMod      int32
	CollationID catalog.OID
	NotNull     bool
	HasDefault  bool
	DefaultExpr string
	IsSerial    bool   // serial/bigserial/smallserial sugar
	Identity    catalog.IdentityMode
	Storage     catalog.StorageMode
}

// ConstraintElement is one constraint from a CREATE TABLE element list,
// before bucket-sorting.
type ConstraintElement struct {
	Name       string
	Kind       catalog.ConstraintKind
	Columns    []string
	Expr       string
	Deferrable bool
	InitiallyDeferred bool
	ForeignRelName string
	ForeignColumns []string
}

// LikeElement is a `LIKE source_table [options]` table element.
type LikeElement struct {
	SourceRelID catalog.OID
	CopyDefaults   bool
	CopyStorage    bool
	CopyComments   bool
	CopyIndexes    bool
	CopyConstraints bool
}

// CreateStmt is the raw tree C1.transform_create consumes.
type CreateStmt struct {
	Namespace   catalog.OID
	Name        string
	IfNotExists bool
	Columns     []ColumnElement
	Constraints []ConstraintElement
	Likes       []LikeElement
	Inherits    []catalog.OID
	PartitionBy *catalog.PartitionKeyDef
	PartitionOf *PartitionOfClause
	Persistence catalog.Persistence
	OnCommit    catalog.OnCommitAction
	Tablespace  catalog.OID
	Reloptions  map[string]string
	Distribution *DistributionClause
}

// PartitionOfClause is a `PARTITION OF parent FOR VALUES ...` clause.
type PartitionOfClause struct {
	Parent   catalog.OID
	RawBound *RawPartitionBound
}

// RawPartitionBound is the unresolved bound spec before type coercion.
type RawPartitionBound struct {
	Strategy   catalog.PartitionStrategy
	IsDefault  bool
	ListValues [][]any
	RangeFrom  []catalog.RangeDatum
	RangeTo    []catalog.RangeDatum
	Modulus    int32
	Remainder  int32
}

// DistributionClause models the out-of-CORE distribution-layer hint that
// transform_alter/define_relation still need to read and pass through
// (spec.md §9 "Distribution layer").
type DistributionClause struct {
	Explicit bool
	Locator  string // "hash" | "modulo" | "shard" | "replication" | "roundrobin"
	Column   string
}

// ResolvedStmt is one member of the ordered list transform_create/
// transform_alter return.
type ResolvedStmt struct {
	Kind ResolvedKind
	// Exactly one of the following is populated, selected by Kind.
	Create   *ResolvedCreate
	AlterSub *catalog.SubCommand
}

// ResolvedKind tags a ResolvedStmt's payload.
type ResolvedKind int

const (
	ResolvedCreateKind ResolvedKind = iota
	ResolvedAlterSubKind
)

// ResolvedCreate is a CreateStmt after element-walk resolution: serial
// columns expanded, constraints bucketed, implicit indexes synthesized, FK
// constraints deferred to a follow-up ALTER, and distribution resolved.
type ResolvedCreate struct {
	Stmt            *CreateStmt
	ImplicitIndexes []*ConstraintElement // PK/UNIQUE/EXCLUSION, one index each
	DeferredAlters  []*catalog.SubCommand // FK constraints appended as ADD CONSTRAINT
	Distribution    *DistributionClause
}

// TransformCreate implements transform_create: namespace lookup (left to
// the caller's Catalog; this function assumes the caller already confirmed
// no existing relation occupies the name, or tolerates IfNotExists), column
// resolution, constraint bucketing, implicit index synthesis, FK deferral,
// and distribution fallback.
func TransformCreate(stmt *CreateStmt, existing bool) (*ResolvedCreate, error) {
	if existing {
		if stmt.IfNotExists {
			return nil, nil // caller should emit a NOTICE and skip
		}
		return nil, dbcodes.New(dbcodes.DuplicateTable, "relation %q already exists", stmt.Name)
	}

	if len(stmt.Columns) > MaxColumns {
		return nil, dbcodes.New(dbcodes.TooManyColumns, "tables can have at most %d columns", MaxColumns)
	}

	seen := make(map[string]bool, len(stmt.Columns))
	for i := range stmt.Columns {
		col := &stmt.Columns[i]
		if seen[col.Name] {
			return nil, dbcodes.New(dbcodes.DuplicateColumn, "column %q specified more than once", col.Name)
		}
		seen[col.Name] = true
		if col.IsSerial {
			ResolveSerial(col)
		}
	}

	var checks, uniques, primaries, foreigns, exclusions []ConstraintElement
	for _, c := range stmt.Constraints {
		switch c.Kind {
		case catalog.ConstraintCheck:
			checks = append(checks, c)
		case catalog.ConstraintUnique:
			uniques = append(uniques, c)
		case catalog.ConstraintPrimary:
			primaries = append(primaries, c)
		case catalog.ConstraintForeign:
			foreigns = append(foreigns, c)
		case catalog.ConstraintExclusion:
			exclusions = append(exclusions, c)
		}
	}
	_ = checks // retained in stmt.Constraints for the relation builder to re-walk

	if len(primaries) > 1 {
		return nil, dbcodes.New(dbcodes.InvalidTableDefinition, "multiple primary keys for table %q are not allowed", stmt.Name)
	}

	result := &ResolvedCreate{Stmt: stmt}

	for i := range primaries {
		pk := primaries[i]
		result.ImplicitIndexes = append(result.ImplicitIndexes, &pk)
		// PK implies NOT NULL on each key column.
		for _, colName := range pk.Columns {
			for ci := range stmt.Columns {
				if stmt.Columns[ci].Name == colName {
					stmt.Columns[ci].NotNull = true
				}
			}
		}
	}
	for i := range uniques {
		result.ImplicitIndexes = append(result.ImplicitIndexes, &uniques[i])
	}
	for i := range exclusions {
		result.ImplicitIndexes = append(result.ImplicitIndexes, &exclusions[i])
	}

	for i := range foreigns {
		fk := foreigns[i]
		result.DeferredAlters = append(result.DeferredAlters, &catalog.SubCommand{
			Kind: catalog.CmdAddConstraint,
			Pass: catalog.PassAddConstr,
			Constraint: &catalog.Constraint{
				Name: fk.Name,
				Kind: catalog.ConstraintForeign,
				Expr: fk.Expr,
			},
		})
	}

	result.Distribution = ResolveDistributionFallback(stmt, primaries, uniques)

	return result, nil
}

// ResolveSerial rewrites a serial column element to carry a NOT NULL flag,
// a nextval default expression and an identity mode (spec.md §4.1). No
// sequence relation is created, here or by the relation builder (C2); only
// the column element changes.
func ResolveSerial(col *ColumnElement) {
	col.NotNull = true
	col.HasDefault = true
	col.DefaultExpr = fmt.Sprintf("nextval('%s_%s_seq')", "__TABLE__", col.Name)
	if col.Identity == catalog.IdentityNone {
		col.Identity = catalog.IdentityDefault
	}
}

// LikeAttmap is the attmap[N_src]->N_dst array spec.md §9 describes: zero
// means "dropped in the source, substitute null", used whenever an
// expression copied from a LIKE source is remapped.
type LikeAttmap []int16

// BuildLikeAttmap builds the remap array from source attributes (ordered by
// AttNum) to the destination column list already assembled in dst.
func BuildLikeAttmap(src []*catalog.Attribute, dst []ColumnElement) LikeAttmap {
	maxSrc := int16(0)
	for _, a := range src {
		if a.AttNum > maxSrc {
			maxSrc = a.AttNum
		}
	}
	attmap := make(LikeAttmap, maxSrc+1)
	dstIndex := make(map[string]int16, len(dst))
	for i, c := range dst {
		dstIndex[c.Name] = int16(i + 1)
	}
	for _, a := range src {
		if a.Dropped {
			continue
		}
		if d, ok := dstIndex[a.Name]; ok {
			attmap[a.AttNum] = d
		}
	}
	return attmap
}

// RejectWholeRowRef returns an error if expr references the whole-row
// variable, which has no valid entry in an attmap (spec.md §9).
func RejectWholeRowRef(expr string, wholeRowMarker string) error {
	if wholeRowMarker != "" && containsToken(expr, wholeRowMarker) {
		return dbcodes.New(dbcodes.FeatureNotSupported, "whole-row references cannot be copied through LIKE")
	}
	return nil
}

func containsToken(s, token string) bool {
	for i := 0; i+len(token) <= len(s); i++ {
		if s[i:i+len(token)] == token {
			return true
		}
	}
	return false
}

// SortConstraintNames is a small helper used by tests to get deterministic
// constraint ordering out of TransformCreate's bucketing.
func SortConstraintNames(cs []ConstraintElement) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}
