// Package catalog defines the data model shared by every schema-mutation
// component: relations, attributes, constraints, indexes, partition keys and
// bounds, the per-statement AlteredTableInfo work queue, and the on-commit
// item shape. It also defines the Catalog interface that every executor
// takes as an injected transactional handle, so the planner/executor layers
// never talk to a concrete storage engine directly (see
// internal/catalog/sqlitestore and internal/catalog/doltstore for the two
// concrete backings).
package catalog

// OID is the opaque stable identifier assigned to every relation, index,
// constraint, and namespace row. Zero is never a valid assigned OID.
type OID uint32

// InvalidOID is returned by lookups that find nothing.
const InvalidOID OID = 0

// RelKind tags what kind of relation an OID names.
type RelKind byte

const (
	RelKindTable         RelKind = 'r'
	RelKindIndex         RelKind = 'i'
	RelKindView          RelKind = 'v'
	RelKindSequence      RelKind = 'S'
	RelKindForeignTable  RelKind = 'f'
	RelKindComposite     RelKind = 'c'
	RelKindPartitionedTable RelKind = 'p'
	RelKindPartitionedIndex RelKind = 'I'
	RelKindMatview       RelKind = 'm'
)

// Persistence controls WAL logging and session visibility.
type Persistence byte

const (
	PersistencePermanent Persistence = 'p'
	PersistenceUnlogged  Persistence = 'u'
	PersistenceTemp      Persistence = 't'
)

// ReplicaIdentity names which columns identify a row for logical replication.
type ReplicaIdentity byte

const (
	ReplicaIdentityDefault ReplicaIdentity = 'd'
	ReplicaIdentityFull    ReplicaIdentity = 'f'
	ReplicaIdentityNothing ReplicaIdentity = 'n'
	ReplicaIdentityIndex   ReplicaIdentity = 'i'
)

// PartitionStrategy is the partitioning method a partitioned table declares.
type PartitionStrategy byte

const (
	PartitionStrategyList     PartitionStrategy = 'l'
	PartitionStrategyRange    PartitionStrategy = 'r'
	PartitionStrategyHash     PartitionStrategy = 'h'
	PartitionStrategyInterval PartitionStrategy = 'n'
)

// Relation is a table/index/view/sequence/foreign-table/composite-type or
// partitioned table/index, identified by a stable OID (spec.md §3).
type Relation struct {
	OID             OID
	Name            string
	Namespace       OID
	Kind            RelKind
	Persistence     Persistence
	Owner           string
	Tablespace      OID
	HasOIDs         bool
	HasSubclass     bool // relhassubclass: true iff some row in pg_inherits names this relation as parent (I6)
	IsPartition     bool
	PartitionBound  *PartitionBound
	PartitionKey    *PartitionKeyDef
	ReplicaIdentity ReplicaIdentity
	ReplicaIdentityIndex OID // set when ReplicaIdentity == ReplicaIdentityIndex
	NAtts           int32   // relnatts: includes dropped columns (I1)
	Reloptions      map[string]string
	OnCommit        OnCommitAction // non-NOOP only valid when Persistence == PersistenceTemp
	RowSecurity     bool           // relrowsecurity
	ForceRowSecurity bool          // relforcerowsecurity: apply policies to the table owner too
}

// StorageMode controls TOAST behavior for a variable-length attribute.
type StorageMode byte

const (
	StoragePlain    StorageMode = 'p'
	StorageMain     StorageMode = 'm'
	StorageExtended StorageMode = 'x'
	StorageExternal StorageMode = 'e'
)

// IdentityMode distinguishes GENERATED ALWAYS/BY DEFAULT identity columns
// from ordinary columns (IdentityNone).
type IdentityMode byte

const (
	IdentityNone    IdentityMode = 0
	IdentityAlways  IdentityMode = 'a'
	IdentityDefault IdentityMode = 'd'
)

// Attribute is one column, ordered by AttNum (1..N; negative for system
// columns). Dropped columns retain their slot (I1): AttNum is never reused
// and never renumbered.
type Attribute struct {
	RelID       OID
	AttNum      int16
	Name        string
	TypeOID     OID
	TypMod      int32
	CollationID OID
	Storage     StorageMode
	NotNull     bool
	HasDefault  bool
	DefaultExpr string // raw expression text; cooked form lives in the catalog store
	Identity    IdentityMode
	Dropped     bool
	InhCount    int32 // attinhcount
	IsLocal     bool  // islocal
}

// ConstraintKind enumerates the constraint variants spec.md §3 lists.
type ConstraintKind byte

const (
	ConstraintCheck     ConstraintKind = 'c'
	ConstraintPrimary   ConstraintKind = 'p'
	ConstraintUnique    ConstraintKind = 'u'
	ConstraintExclusion ConstraintKind = 'x'
	ConstraintForeign   ConstraintKind = 'f'
	ConstraintNotNull   ConstraintKind = 'n'
	ConstraintDefault   ConstraintKind = 'd'
)

// Constraint is a named, relation+namespace-unique constraint. PK/UNIQUE/
// EXCLUSION constraints each own exactly one backing Index (IndexOID).
type Constraint struct {
	OID               OID
	Name              string
	Namespace         OID
	RelID             OID
	Kind              ConstraintKind
	Deferrable        bool
	InitiallyDeferred bool
	NoInherit         bool
	Validated         bool
	InhCount          int32 // coninhcount
	Expr              string
	IndexOID          OID   // set for PRIMARY/UNIQUE/EXCLUSION
	Columns           []int16
	ForeignRelID      OID    // set for FOREIGN
	ForeignColumns    []int16
	ForeignOnDelete   string
	ForeignOnUpdate   string
}

// Index is a relation whose IndRelID points to the table it indexes.
type Index struct {
	RelOID       OID // the index's own relation OID
	IndRelID     OID // owning table
	KeyColumns   []int16
	OpClasses    []OID
	Collations   []OID
	Predicate    string
	IsUnique     bool
	IsPrimary    bool
	IsValid      bool
	IsPartial    bool
	IsExpression bool
	ParentIndex  OID // set when this index is a partition's clone of a parent index
}

// PartitionKeyDef is the ordered key of a partitioned table.
type PartitionKeyDef struct {
	Strategy   PartitionStrategy
	Columns    []PartitionKeyColumn
}

// PartitionKeyColumn is one element of a partition key: either a plain
// column reference (AttNum != 0) or an expression (Expr != "").
type PartitionKeyColumn struct {
	AttNum   int16
	Expr     string
	OpClass  OID
	Collation OID
}

// BoundKind distinguishes a RANGE bound element's special values.
type BoundKind byte

const (
	BoundValue    BoundKind = 'v'
	BoundMinValue BoundKind = '-'
	BoundMaxValue BoundKind = '+'
)

// RangeDatum is one element of a RANGE partition's FROM/TO tuple.
type RangeDatum struct {
	Kind  BoundKind
	Value any
}

// PartitionBound describes how a partition's predicate is expressed, per
// spec.md §3: LIST{values}, RANGE{from,to}, HASH{modulus,remainder}, or
// DEFAULT.
type PartitionBound struct {
	IsDefault bool
	Strategy  PartitionStrategy

	// LIST
	ListValues [][]any // each element is a tuple over the (usually single) key column

	// RANGE
	RangeFrom []RangeDatum
	RangeTo   []RangeDatum

	// HASH
	Modulus   int32
	Remainder int32
}

// DependencyKind is one of the four kinds C6 tracks.
type DependencyKind byte

const (
	DepNormal   DependencyKind = 'n'
	DepAuto     DependencyKind = 'a'
	DepInternal DependencyKind = 'i'
	DepPin      DependencyKind = 'p'
)

// Dependency is one edge in pg_depend: Dependent relies on (or is owned by,
// for Internal) Referenced.
type Dependency struct {
	DependentOID   OID
	DependentSub   int16 // attnum, or 0 for whole-object dependency
	ReferencedOID  OID
	ReferencedSub  int16
	Kind           DependencyKind
}

// InheritsEdge is one row of pg_inherits: Child inherits from Parent at the
// given 1-based position in the child's declared parent list.
type InheritsEdge struct {
	ChildOID  OID
	ParentOID OID
	SeqNo     int32
}

// OnCommitAction is the end-of-transaction behavior for a TEMP relation.
type OnCommitAction byte

const (
	OnCommitNoop        OnCommitAction = 0
	OnCommitPreserveRows OnCommitAction = 'k'
	OnCommitDeleteRows  OnCommitAction = 'd'
	OnCommitDrop        OnCommitAction = 'D'
)

// OnCommitItem is one entry in the process-wide on-commit registry (C7).
type OnCommitItem struct {
	RelID        OID
	Action       OnCommitAction
	CreatingSubID  int32
	DeletingSubID  int32 // 0 means "not marked for removal"
}
