// Package distribution exposes the out-of-CORE distribution hooks (spec.md
// §9): a CheckCmd callback that rejects unsupported patterns, and the
// Metadata/Change shapes it is given. Distribution metadata is not stored in
// the catalog; DefineRelation writes none. This package keeps the hook as an
// optional trait rather than a
// concrete implementation — a real distributed deployment plugs its own
// coordinator logic in via RegisterCheckCmd.
package distribution

import (
	"context"
	"sync"

	"github.com/catalogmut/enginecore/internal/catalog"
)

// Locator names the distribution strategy a table's rows are routed by,
// matching the DISTRIBUTE BY clause in spec.md §6's SQL surface.
type Locator byte

const (
	LocatorNone        Locator = 0
	LocatorHash        Locator = 'h'
	LocatorModulo      Locator = 'm'
	LocatorShard       Locator = 's'
	LocatorReplication Locator = 'r'
	LocatorRoundRobin  Locator = 'b'
)

// Metadata is the per-relation distribution descriptor carried inside a
// Change for CheckCmd. It is built by the caller (the ALTER controller) and
// is not persisted alongside the catalog row.
type Metadata struct {
	RelID      catalog.OID
	Locator    Locator
	KeyColumn  int16 // 0 when Locator has no key column (REPLICATION, ROUNDROBIN)
	Nodes      []string
	Group      string
}

// Change describes one ALTER sub-command about to run against a distributed
// relation, enough context for a CheckCmd implementation to decide whether
// the pattern is supported (spec.md §9).
type Change struct {
	RelID    catalog.OID
	Kind     catalog.SubCommandKind
	Existing Metadata
}

// CheckCmd rejects unsupported distribution-sensitive patterns: dropping the
// distribution key, hash-redistributing a cold-hot table, or any other
// deployment-specific policy. The CORE's default implementation (NoopCheck)
// allows everything; a real coordinator registers its own.
type CheckCmd interface {
	Check(ctx context.Context, change Change) error
}

// NoopCheck is the CORE's default CheckCmd: it permits every change,
// matching spec.md's framing of distribution as "out of the CORE but its
// hooks remain."
type NoopCheck struct{}

func (NoopCheck) Check(context.Context, Change) error { return nil }

// Registry holds the single process-wide CheckCmd hook, mirroring how
// internal/oncommit's registry is process-wide by design (spec.md §9's "ON
// COMMIT global state" note applies equally here: distribution policy is a
// deployment-wide concern, not a per-session one).
type Registry struct {
	mu    sync.RWMutex
	check CheckCmd
}

// NewRegistry constructs a Registry defaulting to NoopCheck.
func NewRegistry() *Registry {
	return &Registry{check: NoopCheck{}}
}

// RegisterCheckCmd swaps in a deployment-specific CheckCmd, e.g. a
// coordinator that knows its cluster's hot/cold table classification.
func (r *Registry) RegisterCheckCmd(c CheckCmd) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.check = c
}

// Check runs the currently registered CheckCmd.
func (r *Registry) Check(ctx context.Context, change Change) error {
	r.mu.RLock()
	c := r.check
	r.mu.RUnlock()
	return c.Check(ctx, change)
}
