package catalog

// Pass is one of the NUM_PASSES ordered buckets every ALTER sub-command is
// classified into (spec.md §4.3). Sub-commands run in increasing Pass order,
// parent relations before children, so drops never collide with adds and
// ADD CONSTRAINT always runs after ADD COLUMN.
type Pass int

const (
	PassDrop Pass = iota
	PassAlterType
	PassOldIndex
	PassOldConstr
	PassColAttrs
	PassAddCol
	PassAddIndex
	PassAddConstr
	PassMisc
	PassDistrib
	PassPartition

	NumPasses
)

// RewriteFlag bits mark why a table needs a Phase-3 heap rewrite.
type RewriteFlag uint32

const (
	RewriteNone           RewriteFlag = 0
	RewriteColumnType     RewriteFlag = 1 << iota
	RewriteAddOIDs                    // dropping/adding the OID system column
	RewriteTablespace
	RewritePersistence
	RewriteDefaultVal
)

// SubCommand is a single ALTER TABLE sub-command queued against one
// relation's AlteredTableInfo. Exactly one of the typed payload fields is
// populated per sub-command; Kind selects which.
type SubCommand struct {
	Kind  SubCommandKind
	Pass  Pass

	// Populated depending on Kind.
	Column       *Attribute      // AddColumn / AlterColumnType / ColAttrs
	ColumnName   string          // DropColumn / AlterColumnType / ColAttrs / SetNotNull
	NewTypeOID   OID             // AlterColumnType
	NewTypMod    int32           // AlterColumnType
	UsingExpr    string          // AlterColumnType
	Constraint   *Constraint     // AddConstraint
	ConstraintName string        // DropConstraint
	Behavior     DropBehavior    // DropColumn / DropConstraint
	Recurse      bool            // whether to recurse into children
	IfExists     bool
	IfNotExists  bool
	NewTablespace OID            // SetTablespace
	NewPersistence Persistence   // SetLogged/SetUnlogged
	NewReplicaIdentity ReplicaIdentity
	NewReplicaIdentityIndex OID
	PartitionOf   OID            // AttachPartition: the parent
	PartitionBound *PartitionBound // AttachPartition
	PartitionName string         // DetachPartition
	Reloptions    map[string]string
	InheritParent OID            // Inherit / NoInherit
	NewOwner      string         // OwnerTo
}

// SubCommandKind enumerates the C4 sub-command executors.
type SubCommandKind int

const (
	CmdAddColumn SubCommandKind = iota
	CmdDropColumn
	CmdAlterColumnType
	CmdSetNotNull
	CmdDropNotNull
	CmdSetDefault
	CmdDropDefault
	CmdAddConstraint
	CmdDropConstraint
	CmdInherit
	CmdNoInherit
	CmdSetTablespace
	CmdSetLogged
	CmdSetUnlogged
	CmdSetReplicaIdentity
	CmdSetOptions
	CmdAttachPartition
	CmdDetachPartition
	CmdOwnerTo
)

// DropBehavior selects RESTRICT/CASCADE semantics for drops.
type DropBehavior int

const (
	DropRestrict DropBehavior = iota
	DropCascade
)

// NewValue is a per-row recompute queued by ALTER COLUMN TYPE: for every
// tuple scanned during the Phase-3 rewrite, Expr is evaluated to produce the
// new value for AttNum (spec.md §4.3/4.4.c).
type NewValue struct {
	AttNum int16
	Expr   string
	// NoOp is true when the expression was proved to be a no-op cast
	// (Var(attno)/RelabelType over an unconstrained domain); Phase 3 skips
	// recomputing these but still participates in the rewrite decision.
	NoOp bool
}

// AlteredTableInfo is the per-relation work-queue entry the ALTER Controller
// assembles during Phase 1 and drains during Phases 2-3 (spec.md §3).
type AlteredTableInfo struct {
	RelID   OID
	RelKind RelKind

	// SubCmds groups queued sub-commands by pass; index NumPasses-1 is the
	// last pass to run.
	SubCmds [NumPasses][]*SubCommand

	Constraints       []*Constraint
	NewVals           []*NewValue
	NewNotNull        bool
	RewriteFlags      RewriteFlag
	NewTableSpace     OID
	NewPersistence    Persistence
	PartitionConstraint string // simplified predicate text, or "" if none

	ChangedConstraints []OID // constraint OIDs whose definitions must be reparsed in Phase 2
	ChangedIndexes     []OID // index OIDs whose definitions must be reparsed in Phase 2

	// OldDesc is a snapshot of the relation as it existed when the
	// AlteredTableInfo was created, used by executors to detect
	// representation-compatible in-place type changes (B3).
	OldDesc *Relation

	// Recursed is true when this entry was reached by recursing from the
	// statement's direct target into an inheritance child or partition,
	// rather than being the target itself (spec.md §4.3 Phase 1 step ii).
	Recursed bool
}

// NeedsRewrite reports whether Phase 3 must build a new heap and scan the
// old one for this relation, per spec.md §4.3 Phase 3's trigger condition.
func (a *AlteredTableInfo) NeedsRewrite() bool {
	return a.RewriteFlags != RewriteNone ||
		len(a.Constraints) > 0 ||
		a.NewNotNull ||
		a.PartitionConstraint != ""
}

// Enqueue appends cmd to the work queue's bucket for cmd.Pass.
func (a *AlteredTableInfo) Enqueue(cmd *SubCommand) {
	a.SubCmds[cmd.Pass] = append(a.SubCmds[cmd.Pass], cmd)
}
