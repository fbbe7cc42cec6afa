// Package tests drives end-to-end schema-mutation scenarios against a real
// sqlitestore.Store through rsc.io/script, the same scripted-scenario engine
// the teacher depends on for its own top-level tests/ package. Each scenario
// under testdata/script/*.txt is a short transcript of catalogctl-shaped
// operations (create-table, alter-table, attach-partition, ...) run against
// one store per script, with `stdout`/`stderr` checks for the interesting
// outcomes: inheritance attribute merges, partition bound overlap rejection,
// ON COMMIT DROP, and ALTER TYPE keeping the retyped column at its attnum.
package tests

import (
	"context"
	"testing"

	"rsc.io/script"
	"rsc.io/script/scripttest"
)

func TestScripts(t *testing.T) {
	ctx := context.Background()
	reg := newStoreRegistry()
	t.Cleanup(reg.closeAll)

	engine := &script.Engine{
		Cmds:  allCommands(reg),
		Conds: script.DefaultConds(),
	}
	scripttest.Test(t, ctx, engine, nil, "testdata/script/*.txt")
}

func allCommands(reg *storeRegistry) map[string]script.Cmd {
	cmds := script.DefaultCmds()
	for name, cmd := range catalogCommands(reg) {
		cmds[name] = cmd
	}
	return cmds
}
