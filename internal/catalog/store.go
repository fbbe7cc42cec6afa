package catalog

import "context"

// Catalog is the transactional handle every executor in this module takes
// as an injected dependency (spec.md §9's "Catalog access" design note).
// Implementations live outside this package — internal/catalog/sqlitestore
// for a single-node development/test store and internal/catalog/doltstore
// for a distributed, versioned backing store — so the planner/executor
// layers can be tested without a real storage engine.
//
// Every method runs inside whatever transaction Begin returned; catalog
// visibility between related sub-steps is obtained by calling
// CommandCounterIncrement, mirroring the real system's command counter.
type Catalog interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one transactional session against the catalog store.
type Tx interface {
	// Relations
	InsertRelation(ctx context.Context, rel *Relation) error
	UpdateRelation(ctx context.Context, rel *Relation) error
	GetRelation(ctx context.Context, oid OID) (*Relation, error)
	LookupRelationByName(ctx context.Context, namespace OID, name string) (*Relation, error)
	DeleteRelation(ctx context.Context, oid OID) error

	// Attributes
	InsertAttribute(ctx context.Context, attr *Attribute) error
	UpdateAttribute(ctx context.Context, attr *Attribute) error
	ListAttributes(ctx context.Context, relid OID) ([]*Attribute, error)

	// Constraints
	InsertConstraint(ctx context.Context, c *Constraint) error
	UpdateConstraint(ctx context.Context, c *Constraint) error
	DeleteConstraint(ctx context.Context, oid OID) error
	ListConstraints(ctx context.Context, relid OID) ([]*Constraint, error)

	// Indexes
	InsertIndex(ctx context.Context, idx *Index) error
	UpdateIndex(ctx context.Context, idx *Index) error
	ListIndexes(ctx context.Context, relid OID) ([]*Index, error)

	// Inheritance
	InsertInherits(ctx context.Context, e *InheritsEdge) error
	DeleteInherits(ctx context.Context, child, parent OID) error
	ListParents(ctx context.Context, child OID) ([]*InheritsEdge, error)
	ListChildren(ctx context.Context, parent OID) ([]*InheritsEdge, error)

	// Dependencies
	InsertDependency(ctx context.Context, d *Dependency) error
	DeleteDependenciesOf(ctx context.Context, dependent OID) error
	ListDependents(ctx context.Context, referenced OID) ([]*Dependency, error)

	// NextOID allocates a fresh stable OID.
	NextOID(ctx context.Context) (OID, error)

	// CommandCounterIncrement makes all prior writes in this transaction
	// visible to subsequent reads in the same transaction (spec.md §4.2/§5).
	CommandCounterIncrement(ctx context.Context) error

	// Invalidate broadcasts a relcache invalidation for oid so every
	// session refreshes its cached relation descriptor (spec.md §5).
	Invalidate(ctx context.Context, oid OID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
