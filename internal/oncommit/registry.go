// Package oncommit implements the process-wide end-of-transaction action
// registry (C7 in spec.md §4.7): every TEMP relation created with an
// ON COMMIT clause registers an item here, and the registry is drained at
// commit time (PRESERVE ROWS items are kept but trigger no action).
//
// Scope is deliberately process-wide, matching spec.md §9's instruction to
// model it as a session context handed to every entry point rather than a
// true package-level mutable — callers obtain a *Registry per session and
// pass it through explicitly; nothing in this package uses a bare global.
package oncommit

import (
	"context"
	"sync"

	"github.com/catalogmut/enginecore/internal/catalog"
)

// Registry is one session's list of on-commit items, living for the
// session's lifetime in the caller's memory (spec.md §4.7: "lives in cache
// memory context").
type Registry struct {
	mu    sync.Mutex
	items map[catalog.OID]*catalog.OnCommitItem
}

// New constructs an empty registry for one session.
func New() *Registry {
	return &Registry{items: make(map[catalog.OID]*catalog.OnCommitItem)}
}

// Register adds or replaces the on-commit item for relid, stamping it with
// the sub-transaction that created it.
func (r *Registry) Register(relid catalog.OID, action catalog.OnCommitAction, creatingSubID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[relid] = &catalog.OnCommitItem{
		RelID:         relid,
		Action:        action,
		CreatingSubID: creatingSubID,
	}
}

// Remove drops relid's on-commit item entirely, used when the relation is
// dropped directly before commit.
func (r *Registry) Remove(relid catalog.OID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, relid)
}

// Deleter performs the actual catalog mutation for a drained on-commit
// item: truncating a relation's rows, or dropping it (with the dependency
// cascade C6 implements) in one call for the whole DROP set.
type Deleter interface {
	TruncateRelations(ctx context.Context, relids []catalog.OID) error
	DropRelations(ctx context.Context, relids []catalog.OID) error
}

// PreCommit partitions registered items into oids_to_truncate (DELETE ROWS)
// and oids_to_drop (DROP), truncates first so cascading drops don't
// double-work, then deletes the DROP set as one call (spec.md §4.7). An
// entry already removed earlier in the transaction is skipped.
func (r *Registry) PreCommit(ctx context.Context, d Deleter) error {
	r.mu.Lock()
	var toTruncate, toDrop []catalog.OID
	for _, item := range r.items {
		switch item.Action {
		case catalog.OnCommitDeleteRows:
			toTruncate = append(toTruncate, item.RelID)
		case catalog.OnCommitDrop:
			toDrop = append(toDrop, item.RelID)
		}
	}
	r.mu.Unlock()

	if len(toTruncate) > 0 {
		if err := d.TruncateRelations(ctx, toTruncate); err != nil {
			return err
		}
	}
	if len(toDrop) > 0 {
		if err := d.DropRelations(ctx, toDrop); err != nil {
			return err
		}
	}
	return nil
}

// AtEndXact clears the registry at transaction end. On abort nothing was
// ever applied to the catalog, so the whole registry is simply discarded;
// on commit PreCommit has already drained it.
func (r *Registry) AtEndXact(isCommit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[catalog.OID]*catalog.OnCommitItem)
}

// AtEndSubxact implements sub-transaction rollback/commit handling (spec.md
// §4.7) for entries whose CreatingSubID is mySubID: on abort they are
// discarded, and on sub-commit their CreatingSubID is reparented to
// parentSubID. DeletingSubID is neither read nor changed, and because Remove
// is immediate, a removal made inside an aborted sub-transaction is not
// undone.
func (r *Registry) AtEndSubxact(isCommit bool, mySubID, parentSubID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for relid, item := range r.items {
		if item.CreatingSubID != mySubID {
			continue
		}
		if isCommit {
			item.CreatingSubID = parentSubID
		} else {
			delete(r.items, relid)
		}
	}
}

// Items returns a snapshot of the currently registered items, for testing
// and diagnostics.
func (r *Registry) Items() []*catalog.OnCommitItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*catalog.OnCommitItem, 0, len(r.items))
	for _, item := range r.items {
		cp := *item
		out = append(out, &cp)
	}
	return out
}
