// Package exec implements component C6: it runs compiled statements
// against a driver.Driver and streams the raw driver records back as
// query.Rows (decoding into Go types is left to the caller). Layer.Run
// wraps its statement call in a circuit breaker so a string of Transport
// failures opens the circuit and fails fast instead of queuing work
// behind a dying connection pool; session acquisition and explicit
// transactions (BeginTx, Transaction.Run/Commit/Rollback) are not
// guarded by the breaker.
//
// Grounded on the teacher's repository implementations in
// infrastructure/persistence/dynamodb (session/transaction lifecycle,
// zap logging around every call) and on 2lar-b2's sibling "backend"
// binary, which wraps its own downstream calls in
// github.com/sony/gobreaker — adopted here for the same purpose against
// the graph backend instead of an HTTP dependency.
package exec

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"graphmodel/driver"
	"graphmodel/log"
	"graphmodel/ogmerr"
	"graphmodel/query"
)

// Layer adapts a driver.Driver into a query.Executor and exposes the
// transaction-scoped entry points the graph facade (C7) needs.
type Layer struct {
	drv      driver.Driver
	database string
	logger   log.Logger
	breaker  *gobreaker.CircuitBreaker
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger overrides the no-op default logger.
func WithLogger(l log.Logger) Option {
	return func(e *Layer) { e.logger = l }
}

// New builds an execution layer over drv, bound to database.
func New(drv driver.Driver, database string, opts ...Option) *Layer {
	e := &Layer{drv: drv, database: database, logger: log.Nop}
	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-driver",
		MaxRequests: 1,
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit breaker state change", log.F("name", name), log.F("from", from.String()), log.F("to", to.String()))
		},
	})
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run executes a single auto-committed statement and returns a
// query.Rows that reads records lazily from the driver cursor (closing
// the Rows closes the cursor and its session), satisfying
// query.Executor for read-only builder
// terminators that don't need an explicit transaction.
func (e *Layer) Run(ctx context.Context, c query.Compiled) (query.Rows, error) {
	sess, err := e.openSession(ctx)
	if err != nil {
		return nil, err
	}

	cur, err := e.withBreaker(func() (driver.Cursor, error) {
		return sess.Run(ctx, c.Cypher, c.Params)
	})
	if err != nil {
		sess.Close(ctx)
		return nil, classifyDriverErr(err)
	}
	return &drainedRows{ctx: ctx, cursor: cur, session: sess}, nil
}

func (e *Layer) openSession(ctx context.Context) (driver.Session, error) {
	sess, err := e.drv.NewSession(ctx, e.database)
	if err != nil {
		return nil, classifyDriverErr(err)
	}
	return sess, nil
}

func (e *Layer) withBreaker(fn func() (driver.Cursor, error)) (driver.Cursor, error) {
	res, err := e.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ogmerr.Wrap(ogmerr.Transport, err, "circuit breaker rejected driver call")
		}
		return nil, err
	}
	return res.(driver.Cursor), nil
}

func classifyDriverErr(err error) error {
	if err == nil {
		return nil
	}
	var oe *ogmerr.Error
	if errors.As(err, &oe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ogmerr.Wrap(ogmerr.Cancelled, err, "operation cancelled")
	}
	return ogmerr.Wrap(ogmerr.Transport, err, "driver call failed")
}

// drainedRows adapts a driver.Cursor (plus the session that owns it) to
// query.Rows, translating the driver's Done sentinel into Rows' ok=false
// convention.
type drainedRows struct {
	ctx     context.Context
	cursor  driver.Cursor
	session driver.Session
}

func (r *drainedRows) Next(ctx context.Context) (map[string]any, bool, error) {
	rec, err := r.cursor.Next(ctx)
	if err != nil {
		if errors.Is(err, driver.Done) {
			return nil, false, nil
		}
		return nil, false, classifyDriverErr(err)
	}
	return rec, true, nil
}

func (r *drainedRows) Close(ctx context.Context) error {
	err1 := r.cursor.Close(ctx)
	err2 := r.session.Close(ctx)
	if err1 != nil {
		return classifyDriverErr(err1)
	}
	return classifyDriverErr(err2)
}

// Transaction is a caller-managed, scoped write/read transaction. The
// caller must call Commit or Rollback exactly once; Close rolls back if
// neither has happened (mirrors database/sql.Tx, and §5's "transactions
// are scoped resources guaranteed release on every exit path").
type Transaction struct {
	session driver.Session
	tx      driver.Tx
	done    bool
}

// BeginTx opens a session and starts an explicit transaction on it,
// cancellable at the session-acquire step per §5.
func (e *Layer) BeginTx(ctx context.Context) (*Transaction, error) {
	sess, err := e.openSession(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := sess.BeginTx(ctx)
	if err != nil {
		sess.Close(ctx)
		return nil, classifyDriverErr(err)
	}
	return &Transaction{session: sess, tx: tx}, nil
}

// Run executes one statement within the transaction.
func (t *Transaction) Run(ctx context.Context, c query.Compiled) (query.Rows, error) {
	cur, err := t.tx.Run(ctx, c.Cypher, c.Params)
	if err != nil {
		return nil, classifyDriverErr(err)
	}
	return &txRows{cursor: cur}, nil
}

type txRows struct {
	cursor driver.Cursor
}

func (r *txRows) Next(ctx context.Context) (map[string]any, bool, error) {
	rec, err := r.cursor.Next(ctx)
	if err != nil {
		if errors.Is(err, driver.Done) {
			return nil, false, nil
		}
		return nil, false, classifyDriverErr(err)
	}
	return rec, true, nil
}

func (r *txRows) Close(ctx context.Context) error { return classifyDriverErr(r.cursor.Close(ctx)) }

// Commit commits and releases the session.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.done {
		return ogmerr.New(ogmerr.InvalidInput, "transaction already finished")
	}
	t.done = true
	defer t.session.Close(ctx)
	return classifyDriverErr(t.tx.Commit(ctx))
}

// Rollback rolls back and releases the session.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.session.Close(ctx)
	return classifyDriverErr(t.tx.Rollback(ctx))
}

// Close rolls back if the transaction hasn't been finished yet — the
// deferred cleanup path callers should always register immediately
// after BeginTx succeeds.
func (t *Transaction) Close(ctx context.Context) error {
	if t.done {
		return nil
	}
	return t.Rollback(ctx)
}

// FanOut runs multiple compiled statements concurrently over separate
// sessions, collecting all results or the first error via
// golang.org/x/sync/errgroup. No package in this module calls it; it is
// exported for callers that batch independent reads.
func (e *Layer) FanOut(ctx context.Context, stmts []query.Compiled) ([][]map[string]any, error) {
	out := make([][]map[string]any, len(stmts))
	g, ctx := errgroup.WithContext(ctx)
	for i, c := range stmts {
		i, c := i, c
		g.Go(func() error {
			rows, err := e.Run(ctx, c)
			if err != nil {
				return err
			}
			defer rows.Close(ctx)
			var recs []map[string]any
			for {
				rec, ok, err := rows.Next(ctx)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				recs = append(recs, rec)
			}
			out[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
