// Package enginelog is the engine's thin, dependency-free logging surface:
// Logf writes to stderr only when verbose mode is on, the way
// internal/debug gates its Logf on an env var and a --verbose flag rather
// than pulling in a structured logging library.
package enginelog

import (
	"fmt"
	"os"
	"sync"
)

var (
	enabled = os.Getenv("ENGINECORE_DEBUG") != ""
	verbose bool
	mu      sync.Mutex
)

// SetVerbose turns verbose/debug output on or off, normally wired to
// cmd/catalogctl's --verbose flag.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// Enabled reports whether debug/verbose output is currently on.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled || verbose
}

// Logf writes a line to stderr, only when debug/verbose output is enabled.
// Used for retry attempts, lock waits, and phase transitions — the
// diagnostic trail an operator wants with -v, not the routine path.
func Logf(format string, args ...any) {
	if !Enabled() {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
	if len(format) == 0 || format[len(format)-1] != '\n' {
		fmt.Fprintln(os.Stderr)
	}
}

// Warnf always writes to stderr, regardless of verbose mode — used for
// conditions the operator should see even without -v (a retried dispatch
// giving up).
func Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format, args...)
	if len(format) == 0 || format[len(format)-1] != '\n' {
		fmt.Fprintln(os.Stderr)
	}
}
