package lockmgr

import "github.com/catalogmut/enginecore/internal/catalog"

// RequiredLockLevel implements required_lock_level from spec.md §4.3: the
// strongest lock mode a given ALTER sub-command needs, per the modes
// enumerated in spec.md §5.
func RequiredLockLevel(kind catalog.SubCommandKind) Mode {
	switch kind {
	case catalog.CmdAddConstraint:
		// FK constraint addition only needs to block concurrent writers,
		// not concurrent readers (spec.md §5).
		return ShareRowExclusiveLock
	case catalog.CmdSetOptions:
		return ShareUpdateExclusiveLock
	case catalog.CmdDropColumn,
		catalog.CmdAlterColumnType,
		catalog.CmdAddColumn,
		catalog.CmdSetNotNull,
		catalog.CmdDropNotNull,
		catalog.CmdSetDefault,
		catalog.CmdDropDefault,
		catalog.CmdDropConstraint,
		catalog.CmdInherit,
		catalog.CmdNoInherit,
		catalog.CmdSetTablespace,
		catalog.CmdSetLogged,
		catalog.CmdSetUnlogged,
		catalog.CmdSetReplicaIdentity,
		catalog.CmdAttachPartition,
		catalog.CmdDetachPartition,
		catalog.CmdOwnerTo:
		return AccessExclusiveLock
	default:
		return AccessExclusiveLock
	}
}

// StatementLockLevel folds RequiredLockLevel across every sub-command in a
// statement, implementing the controller's "lock-level function": the
// overall lock held start-to-finish is the max across sub-commands.
func StatementLockLevel(kinds []catalog.SubCommandKind) Mode {
	level := AccessShareLock
	for _, k := range kinds {
		level = Max(level, RequiredLockLevel(k))
	}
	return level
}

// ParentLockLevel returns the lock a regular-inheritance parent needs while
// a child relation is being defined, vs. the stronger lock a partition
// parent needs because its partition descriptor mutates (spec.md §4.2 step 2).
func ParentLockLevel(isPartitionParent bool) Mode {
	if isPartitionParent {
		return AccessExclusiveLock
	}
	return ShareUpdateExclusiveLock
}
