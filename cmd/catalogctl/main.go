// Command catalogctl drives the schema-mutation engine from the command
// line: create-table, alter-table, drop-table, attach-partition and
// detach-partition, each opening one transaction against whichever catalog
// backend is configured and running it through the same C1-C7 pipeline a
// query-processor frontend would call in-process.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/catalog/doltstore"
	"github.com/catalogmut/enginecore/internal/catalog/sqlitestore"
	"github.com/catalogmut/enginecore/internal/dispatch"
	"github.com/catalogmut/enginecore/internal/distribution"
	"github.com/catalogmut/enginecore/internal/enginecfg"
	"github.com/catalogmut/enginecore/internal/enginelog"
	"github.com/catalogmut/enginecore/internal/lockmgr"
	"github.com/catalogmut/enginecore/internal/oncommit"
)

var (
	// Version is overridden by ldflags at build time.
	Version = "0.1.0"
	Build   = "dev"
)

var (
	dbPath      string
	backend     string
	namespaceID uint32
	owner       string
	jsonOutput  bool
	verboseFlag bool

	cat        catalog.Catalog
	closeStore func() error
	locks      = lockmgr.NewTable()
	onCommit   = oncommit.New()
	distReg    = distribution.NewRegistry()
	dispatcher = dispatch.New(logTransport{})
	distNodes  []string

	// lockOwner identifies this process's single session to the lock table;
	// a real multi-session deployment would mint one per connection.
	lockOwner uint64 = 1
)

// logTransport is the default dispatch.Transport: this module treats the
// worker-node RPC mechanism as an opaque external collaborator (spec.md §1),
// so there is no wire protocol to implement here. It logs what a real
// transport would send, giving every create/alter/drop/attach/detach command
// a live call site for internal/dispatch's retry-and-trace wrapper.
type logTransport struct{}

func (logTransport) Send(ctx context.Context, node string, change dispatch.Change) error {
	enginelog.Logf("dispatch: would push %s change for rel=%d to node %q (id=%s)", change.Kind, change.RelID, node, change.ID)
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "catalogctl drives CREATE/ALTER TABLE schema mutations against a catalog store",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := enginecfg.Initialize(); err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		enginelog.SetVerbose(verboseFlag)

		distNodes = enginecfg.GetStringSlice("distribution.nodes")

		if !cmd.Flags().Changed("backend") {
			backend = enginecfg.GetString("catalog.backend")
		}
		if backend == "" {
			backend = "sqlite"
		}

		ctx := context.Background()
		switch backend {
		case "sqlite":
			if dbPath == "" {
				dbPath = "catalog.db"
			}
			store, err := sqlitestore.Open(ctx, dbPath)
			if err != nil {
				return fmt.Errorf("opening sqlite catalog store: %w", err)
			}
			cat = store
			closeStore = store.Close
		case "dolt":
			cfg := &doltstore.Config{
				Path:       dbPath,
				Database:   enginecfg.GetString("dolt.database"),
				ServerHost: enginecfg.GetString("dolt.host"),
				ServerPort: enginecfg.GetInt("dolt.port"),
				ServerUser: enginecfg.GetString("dolt.user"),
				ServerMode: enginecfg.GetString("dolt.mode") == "server",
			}
			store, err := doltstore.Open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("opening dolt catalog store: %w", err)
			}
			cat = store
			closeStore = store.Close
		default:
			return fmt.Errorf("unknown catalog backend %q (want sqlite or dolt)", backend)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if closeStore != nil {
			return closeStore()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "catalog store location (sqlite file path, or dolt data directory)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "catalog backend: sqlite or dolt (default from config.toml)")
	rootCmd.PersistentFlags().Uint32Var(&namespaceID, "namespace", 2200, "namespace OID new relations are created in")
	rootCmd.PersistentFlags().StringVar(&owner, "owner", "catalogctl", "owner recorded on newly created relations")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose diagnostic logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withTxDispatch runs fn inside a fresh transaction against the configured
// catalog, committing on success and rolling back (and releasing every lock
// this process's session holds) on any error, then pushes the change to
// every configured distribution-layer node (spec.md §1's "opaque push
// catalog change to remote node" collaborator) via internal/dispatch. fn
// returns the OID of the relation the change concerns; a committed
// transaction with InvalidOID or no configured nodes skips dispatch
// entirely. Dispatch failures are logged, not propagated: the local catalog
// mutation already committed, and remote convergence is this module's
// boundary, not its atomicity guarantee.
func withTxDispatch(ctx context.Context, kind dispatch.ChangeKind, fn func(ctx context.Context, tx catalog.Tx) (catalog.OID, error)) (relID catalog.OID, err error) {
	tx, err := cat.Begin(ctx)
	if err != nil {
		return catalog.InvalidOID, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		locks.ReleaseAll(lockOwner)
	}()
	relID, err = fn(ctx, tx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return catalog.InvalidOID, err
	}
	if err := onCommit.PreCommit(ctx, txDeleter{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return catalog.InvalidOID, fmt.Errorf("on-commit actions: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return catalog.InvalidOID, fmt.Errorf("commit: %w", err)
	}
	onCommit.AtEndXact(true)

	if relID != catalog.InvalidOID && len(distNodes) > 0 {
		change := dispatch.NewChange(kind, relID, nil)
		if node, err := dispatcher.Broadcast(ctx, distNodes, change); err != nil {
			enginelog.Warnf("dispatch: %s for rel=%d did not reach %q: %v", kind, relID, node, err)
		}
	}
	return relID, nil
}
