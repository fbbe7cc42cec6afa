package doltstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/catalogmut/enginecore/internal/catalog"
	"github.com/catalogmut/enginecore/internal/catalog/doltstore/migrations"
)

// Store implements catalog.Catalog over a Dolt connection, either embedded
// (CGO, see store_embedded.go) or server mode (pure Go, connected here via
// go-sql-driver/mysql).
type Store struct {
	db         *sql.DB
	serverMode bool
	closed     atomic.Bool
	mu         sync.Mutex

	// embeddedCloser releases the embedded engine's filesystem locks; nil in
	// server mode.
	embeddedCloser interface{ Close() error }

	invalMu   sync.Mutex
	invalSubs []chan catalog.OID
}

// Open connects to Dolt per cfg: embedded mode (requires a cgo build; see
// store_embedded.go / store_noembedded.go) when cfg.ServerMode is false,
// server mode otherwise.
func Open(ctx context.Context, cfg *Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if cfg.ServerMode {
		return newServerMode(ctx, cfg)
	}
	return newEmbeddedMode(ctx, cfg)
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations.All {
		if err := m.Up(db); err != nil {
			return fmt.Errorf("doltstore: migration %q: %w", m.Name, err)
		}
	}
	return nil
}

// Subscribe registers a channel that receives every OID passed to a future
// Invalidate call, modeling the relcache-invalidation broadcast spec.md §5
// describes. Callers must drain the channel; Subscribe buffers a small
// amount so a slow subscriber doesn't block catalog writers indefinitely.
func (s *Store) Subscribe() <-chan catalog.OID {
	ch := make(chan catalog.OID, 64)
	s.invalMu.Lock()
	s.invalSubs = append(s.invalSubs, ch)
	s.invalMu.Unlock()
	return ch
}

func (s *Store) broadcastInvalidation(oid catalog.OID) {
	s.invalMu.Lock()
	defer s.invalMu.Unlock()
	for _, ch := range s.invalSubs {
		select {
		case ch <- oid:
		default:
		}
	}
}

// newServerMode dials a running dolt sql-server, pure Go, no CGO.
func newServerMode(ctx context.Context, cfg *Config) (*Store, error) {
	dsn := serverDSN(cfg)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("doltstore: open server connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("doltstore: ping server: %w", err)
	}
	s := &Store{db: db, serverMode: true}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func serverDSN(cfg *Config) string {
	tls := ""
	if cfg.ServerTLS {
		tls = "&tls=true"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true%s",
		cfg.ServerUser, cfg.ServerPassword, cfg.ServerHost, cfg.ServerPort, cfg.Database, tls)
}

// Close closes the underlying connection and, in embedded mode, releases the
// engine's filesystem locks.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.embeddedCloser != nil {
		if cerr := s.embeddedCloser.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Store) Begin(ctx context.Context) (catalog.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("doltstore: begin: %w", err)
	}
	return &doltTx{tx: tx, store: s}, nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "driver: bad connection"),
		strings.Contains(s, "invalid connection"),
		strings.Contains(s, "broken pipe"),
		strings.Contains(s, "connection reset"),
		strings.Contains(s, "connection refused"),
		strings.Contains(s, "database is read only"),
		strings.Contains(s, "lost connection"),
		strings.Contains(s, "gone away"),
		strings.Contains(s, "i/o timeout"),
		strings.Contains(s, "unknown database"):
		return true
	}
	return false
}

// withRetry retries op against the server-mode transient-error set. Embedded
// mode has driver-level retry on open and is otherwise a single local
// process, so no retry is applied there.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	if !s.serverMode {
		return op()
	}

	attempts := 0
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = serverRetryMaxElapsed
	err := backoff.Retry(func() error {
		attempts++
		opErr := op()
		if opErr != nil && isRetryableError(opErr) {
			return opErr
		}
		if opErr != nil {
			return backoff.Permanent(opErr)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if attempts > 1 {
		doltMetrics.retryCount.Add(ctx, int64(attempts-1))
	}
	return err
}

var doltTracer = otel.Tracer("github.com/catalogmut/enginecore/catalog/doltstore")

var doltMetrics struct {
	retryCount metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/catalogmut/enginecore/catalog/doltstore")
	doltMetrics.retryCount, _ = m.Int64Counter("enginecore.catalog.dolt_retry_count",
		metric.WithDescription("Catalog SQL operations retried due to server-mode transient errors"),
		metric.WithUnit("{retry}"),
	)
}

func (s *Store) doltSpanAttrs() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("db.system", "dolt"),
		attribute.Bool("db.server_mode", s.serverMode),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func spanSQL(q string) string {
	if len(q) > 300 {
		return q[:300] + "…"
	}
	return q
}

// execContext wraps (*sql.Tx).ExecContext with server-mode retry and an OTel
// span, mirroring internal/storage/dolt's execContext/queryContext wrappers.
func (t *doltTx) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span := doltTracer.Start(ctx, "dolt.exec",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(t.store.doltSpanAttrs(),
			attribute.String("db.operation", "exec"),
			attribute.String("db.statement", spanSQL(query)),
		)...),
	)
	var result sql.Result
	err := t.store.withRetry(ctx, func() error {
		var execErr error
		result, execErr = t.tx.ExecContext(ctx, query, args...)
		return execErr
	})
	endSpan(span, err)
	return result, err
}

func (t *doltTx) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span := doltTracer.Start(ctx, "dolt.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(t.store.doltSpanAttrs(),
			attribute.String("db.operation", "query"),
			attribute.String("db.statement", spanSQL(query)),
		)...),
	)
	var rows *sql.Rows
	err := t.store.withRetry(ctx, func() error {
		var queryErr error
		rows, queryErr = t.tx.QueryContext(ctx, query, args...)
		return queryErr
	})
	endSpan(span, err)
	return rows, err
}

func (t *doltTx) queryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	ctx, span := doltTracer.Start(ctx, "dolt.query_row",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(t.store.doltSpanAttrs(),
			attribute.String("db.operation", "query_row"),
			attribute.String("db.statement", spanSQL(query)),
		)...),
	)
	defer span.End()
	return t.tx.QueryRowContext(ctx, query, args...)
}
