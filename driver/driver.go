// Package driver declares the minimal transport contract the execution
// layer (component C6) needs from a Bolt/Cypher-speaking backend. It
// deliberately knows nothing about nodes, relationships, or the type
// registry — it moves parameterized Cypher text and raw records, the
// same separation the teacher draws between its
// infrastructure/persistence/abstractions (repository contracts) and
// infrastructure/persistence/dynamodb (the concrete backend).
package driver

import (
	"context"
)

// Record is one row of a query result, keyed by the compiler's chosen
// return aliases.
type Record map[string]any

// Driver is a pool of connections to a single graph database instance.
// Implementations must be safe for concurrent use.
type Driver interface {
	// NewSession opens a session bound to a database, honoring ctx for
	// cancellation of the acquire step itself (§5 "acquiring a session
	// or transaction from the pool is itself cancellable").
	NewSession(ctx context.Context, database string) (Session, error)

	// Close releases all pooled resources. Safe to call once, from any
	// goroutine, after all sessions are closed.
	Close(ctx context.Context) error

	// Verify checks connectivity (used by store.Open to fail fast).
	Verify(ctx context.Context) error
}

// Session is a logical conversation with the backend. A Session is NOT
// safe for concurrent use by multiple goroutines (mirrors Bolt session
// semantics); callers must serialize access or open multiple sessions.
type Session interface {
	// BeginTx starts an explicit transaction.
	BeginTx(ctx context.Context) (Tx, error)

	// Run executes a single auto-committed statement (used for reads
	// that don't need an explicit transaction).
	Run(ctx context.Context, cypher string, params map[string]any) (Cursor, error)

	Close(ctx context.Context) error
}

// Tx is an explicit, caller-managed transaction. Exactly one of Commit
// or Rollback must be called; Tx itself has no Close (exec.Transaction
// adds one that rolls back if neither has happened yet).
type Tx interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Cursor, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Cursor streams Records from a running or completed statement.
// Implementations must respect ctx cancellation on Next.
type Cursor interface {
	Next(ctx context.Context) (Record, error) // returns the io.EOF-like Done sentinel as the error at the end
	Keys() []string
	Close(ctx context.Context) error
}

// Done is returned by Cursor.Next (as the error) once no more records
// remain; callers check errors.Is(err, Done).
var Done = doneSentinel{}

type doneSentinel struct{}

func (doneSentinel) Error() string { return "driver: no more records" }
