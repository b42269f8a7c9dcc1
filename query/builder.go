package query

import (
	"context"
	"reflect"
)

// Compiler is the narrow interface the builder's terminators need from
// component C5, kept here (rather than importing query/cypher
// directly) to avoid a cyclic package dependency — the same inversion
// the teacher draws between application/ports/repositories.go (consumer
// interface) and its infrastructure implementations.
type Compiler interface {
	Compile(tree Tree) (Compiled, error)
}

// Compiled is a fully translated statement ready for the execution
// layer: parameterized Cypher text, its parameter map, and enough shape
// information for the caller to know how to decode each record.
type Compiled struct {
	Cypher     string
	Params     map[string]any
	ResultKind ResultKind
}

// ResultKind tells the execution layer (and graphstore) how to shape
// returned records: a full entity, a projection, or a scalar/aggregate.
type ResultKind int

const (
	ResultEntities ResultKind = iota
	ResultProjection
	ResultScalar
)

// Executor is the narrow interface the builder's async terminators need
// from component C6.
type Executor interface {
	Run(ctx context.Context, c Compiled) (Rows, error)
}

// Rows is a minimal forward cursor over decoded records, returned by
// Executor.Run.
type Rows interface {
	Next(ctx context.Context) (map[string]any, bool, error)
	Close(ctx context.Context) error
}

// NodeQuery is the typed, fluent builder for node queries rooted at T.
type NodeQuery[T any] struct {
	tree     Tree
	compiler Compiler
	exec     Executor
}

// NewNodeQuery starts a new query rooted at all nodes assignable to T.
func NewNodeQuery[T any](compiler Compiler, exec Executor) NodeQuery[T] {
	var zero T
	t := reflect.TypeOf(zero)
	return NodeQuery[T]{
		tree:     Tree{Root: t, Ops: []Op{{Kind: OpRootNodes, TargetType: t}}},
		compiler: compiler,
		exec:     exec,
	}
}

// TreeOf exposes a builder's accumulated operation tree, for compilers
// and tests that need to inspect it directly without a terminator.
func TreeOf[T any](q NodeQuery[T]) Tree { return q.tree }

// TraversalTreeOf is TreeOf for a Traversal builder.
func TraversalTreeOf[N any](t Traversal[N]) Tree { return t.tree }

// PathSegmentTreeOf is TreeOf for a PathSegmentQuery builder.
func PathSegmentTreeOf[S, R, N any](q PathSegmentQuery[S, R, N]) Tree { return q.tree }

func (q NodeQuery[T]) with(op Op) NodeQuery[T] {
	q.tree = q.tree.appended(op)
	return q
}

// Where appends a filter predicate.
func (q NodeQuery[T]) Where(p Predicate) NodeQuery[T] {
	return q.with(Op{Kind: OpWhere, Predicate: p})
}

// OrderBy appends the primary sort term.
func (q NodeQuery[T]) OrderBy(field string, descending bool) NodeQuery[T] {
	return q.with(Op{Kind: OpOrderBy, Sort: SortSpec{Field: field, Descending: descending}})
}

// ThenBy appends a secondary sort term.
func (q NodeQuery[T]) ThenBy(field string, descending bool) NodeQuery[T] {
	return q.with(Op{Kind: OpThenBy, Sort: SortSpec{Field: field, Descending: descending}})
}

// Skip appends a pagination offset.
func (q NodeQuery[T]) Skip(n int) NodeQuery[T] {
	return q.with(Op{Kind: OpSkip, Count: n})
}

// Take appends a pagination limit.
func (q NodeQuery[T]) Take(n int) NodeQuery[T] {
	return q.with(Op{Kind: OpTake, Count: n})
}

// Distinct deduplicates results.
func (q NodeQuery[T]) Distinct() NodeQuery[T] {
	return q.with(Op{Kind: OpDistinct})
}

// Select projects named fields instead of returning whole entities.
func (q NodeQuery[T]) Select(fields ...string) NodeQuery[T] {
	return q.with(Op{Kind: OpSelect, Fields: fields})
}

// GroupBy groups by the named fields, to be followed by Aggregate.
func (q NodeQuery[T]) GroupBy(fields ...string) NodeQuery[T] {
	return q.with(Op{Kind: OpGroupBy, GroupFields: fields})
}

// Aggregate appends an aggregate projection (count/sum/avg/min/max).
func (q NodeQuery[T]) Aggregate(fn string, args ...string) NodeQuery[T] {
	return q.with(Op{Kind: OpAggregate, AggregateFn: fn, AggregateArgs: args})
}

// Search appends a full-text search predicate against a declared index.
func (q NodeQuery[T]) Search(index, text string) NodeQuery[T] {
	return q.with(Op{Kind: OpSearch, SearchIndex: index, SearchText: text})
}

// WithTransaction binds the query to an explicit, caller-managed
// transaction (e.g. *exec.Transaction, which satisfies Executor
// structurally) instead of the pool's auto-committed execution, for a
// deferred query the caller wants to run as part of a larger unit of
// work.
func (q NodeQuery[T]) WithTransaction(tx Executor) NodeQuery[T] {
	q.exec = tx
	return q.with(Op{Kind: OpWithTransaction})
}

// Traverse moves from nodes of type T across relationship type R to
// neighbor type N, returning a Traversal builder for continued chaining.
func Traverse[T, R, N any](q NodeQuery[T], dir TraverseDirection, minDepth, maxDepth int) Traversal[N] {
	var relZero R
	var nZero N
	op := Op{
		Kind:       OpTraverse,
		RelType:    reflect.TypeOf(relZero),
		TargetType: reflect.TypeOf(nZero),
		Direction:  dir,
		MinDepth:   minDepth,
		MaxDepth:   maxDepth,
	}
	return Traversal[N]{tree: q.tree.appended(op), compiler: q.compiler, exec: q.exec}
}

// Traversal is the builder surface after a Traverse hop, rooted at the
// neighbor type N. It supports the same filter/sort/page operators as
// NodeQuery, plus further chained traversal via ThenTraverse.
type Traversal[N any] struct {
	tree     Tree
	compiler Compiler
	exec     Executor
}

func (t Traversal[N]) with(op Op) Traversal[N] {
	t.tree = t.tree.appended(op)
	return t
}

func (t Traversal[N]) Where(p Predicate) Traversal[N]             { return t.with(Op{Kind: OpWhere, Predicate: p}) }
func (t Traversal[N]) OrderBy(field string, desc bool) Traversal[N] {
	return t.with(Op{Kind: OpOrderBy, Sort: SortSpec{Field: field, Descending: desc}})
}
func (t Traversal[N]) Skip(n int) Traversal[N] { return t.with(Op{Kind: OpSkip, Count: n}) }
func (t Traversal[N]) Take(n int) Traversal[N] { return t.with(Op{Kind: OpTake, Count: n}) }

// WithTransaction binds the traversal to an explicit, caller-managed
// transaction instead of auto-committed execution.
func (t Traversal[N]) WithTransaction(tx Executor) Traversal[N] {
	t.exec = tx
	return t.with(Op{Kind: OpWithTransaction})
}

// ThenTraverse continues the path from N across relationship type R2 to
// type N2.
func ThenTraverse[N, R2, N2 any](t Traversal[N], dir TraverseDirection, minDepth, maxDepth int) Traversal[N2] {
	var relZero R2
	var n2Zero N2
	op := Op{
		Kind:       OpThenTraverse,
		RelType:    reflect.TypeOf(relZero),
		TargetType: reflect.TypeOf(n2Zero),
		Direction:  dir,
		MinDepth:   minDepth,
		MaxDepth:   maxDepth,
	}
	return Traversal[N2]{tree: t.tree.appended(op), compiler: t.compiler, exec: t.exec}
}

// RelationshipQuery is the typed, fluent builder for relationship
// queries rooted at R.
type RelationshipQuery[R any] struct {
	tree     Tree
	compiler Compiler
	exec     Executor
}

// NewRelationshipQuery starts a new query rooted at all relationships
// assignable to R.
func NewRelationshipQuery[R any](compiler Compiler, exec Executor) RelationshipQuery[R] {
	var zero R
	t := reflect.TypeOf(zero)
	return RelationshipQuery[R]{
		tree:     Tree{Root: t, Ops: []Op{{Kind: OpRootRelationships, TargetType: t}}},
		compiler: compiler,
		exec:     exec,
	}
}

func (q RelationshipQuery[R]) Where(p Predicate) RelationshipQuery[R] {
	q.tree = q.tree.appended(Op{Kind: OpWhere, Predicate: p})
	return q
}

func (q RelationshipQuery[R]) Skip(n int) RelationshipQuery[R] {
	q.tree = q.tree.appended(Op{Kind: OpSkip, Count: n})
	return q
}

func (q RelationshipQuery[R]) Take(n int) RelationshipQuery[R] {
	q.tree = q.tree.appended(Op{Kind: OpTake, Count: n})
	return q
}

// WithTransaction binds the query to an explicit, caller-managed
// transaction instead of auto-committed execution.
func (q RelationshipQuery[R]) WithTransaction(tx Executor) RelationshipQuery[R] {
	q.exec = tx
	q.tree = q.tree.appended(Op{Kind: OpWithTransaction})
	return q
}

// PathSegment is the triple a path-segment query element decodes into:
// the node a hop started from, the relationship it crossed, and the
// node it landed on.
type PathSegment[S, R, N any] struct {
	Start S
	Rel   R
	End   N
}

// PathSegmentQuery is the builder surface for nodes<S>().path_segments<R,N>(),
// rooted at the hop from S across R to N. Filters bind against whichever
// of start/rel/end the predicate's Field is qualified for; the compiler
// resolves that qualification (see cypher.handlePathSegments).
type PathSegmentQuery[S, R, N any] struct {
	tree     Tree
	compiler Compiler
	exec     Executor
}

// PathSegments starts a path-segment query from a rooted node query,
// hopping across relationship type R to neighbor type N.
func PathSegments[S, R, N any](q NodeQuery[S], dir TraverseDirection, minDepth, maxDepth int) PathSegmentQuery[S, R, N] {
	var relZero R
	var nZero N
	op := Op{
		Kind:       OpPathSegments,
		RelType:    reflect.TypeOf(relZero),
		TargetType: reflect.TypeOf(nZero),
		Direction:  dir,
		MinDepth:   minDepth,
		MaxDepth:   maxDepth,
	}
	return PathSegmentQuery[S, R, N]{tree: q.tree.appended(op), compiler: q.compiler, exec: q.exec}
}

func (q PathSegmentQuery[S, R, N]) with(op Op) PathSegmentQuery[S, R, N] {
	q.tree = q.tree.appended(op)
	return q
}

// Where appends a filter predicate; Field must be qualified as
// "start.<name>", "rel.<name>" or "end.<name>" to pick which of the
// segment's three participants it binds against.
func (q PathSegmentQuery[S, R, N]) Where(p Predicate) PathSegmentQuery[S, R, N] {
	return q.with(Op{Kind: OpWhere, Predicate: p})
}

func (q PathSegmentQuery[S, R, N]) Skip(n int) PathSegmentQuery[S, R, N] {
	return q.with(Op{Kind: OpSkip, Count: n})
}

func (q PathSegmentQuery[S, R, N]) Take(n int) PathSegmentQuery[S, R, N] {
	return q.with(Op{Kind: OpTake, Count: n})
}

// WithTransaction binds the path-segment query to an explicit,
// caller-managed transaction instead of auto-committed execution.
func (q PathSegmentQuery[S, R, N]) WithTransaction(tx Executor) PathSegmentQuery[S, R, N] {
	q.exec = tx
	return q.with(Op{Kind: OpWithTransaction})
}

// ToSlice executes the path-segment query, decoding each returned
// {start, rel, end} triple with decode.
func (q PathSegmentQuery[S, R, N]) ToSlice(ctx context.Context, decode func(map[string]any) (PathSegment[S, R, N], error)) ([]PathSegment[S, R, N], error) {
	rows, err := terminalRun(ctx, q.compiler, q.exec, q.tree)
	if err != nil {
		return nil, err
	}
	defer rows.Close(ctx)

	var out []PathSegment[S, R, N]
	for {
		rec, ok, err := rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		seg, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, nil
}

// To executes the traversal, decoding each reached neighbor node with
// decode — the "to()" completion operator.
func (t Traversal[N]) To(ctx context.Context, decode func(map[string]any) (N, error)) ([]N, error) {
	rows, err := terminalRun(ctx, t.compiler, t.exec, t.tree)
	if err != nil {
		return nil, err
	}
	defer rows.Close(ctx)

	var out []N
	for {
		rec, ok, err := rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		v, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Relationships executes the traversal, decoding each crossed
// relationship with decode instead of its destination node — the
// "relationships()" completion operator.
func (t Traversal[N]) Relationships(ctx context.Context, decode func(map[string]any) (any, error)) ([]any, error) {
	t2 := t.with(Op{Kind: OpSelect, Fields: []string{RelationshipProjectionMarker}})
	rows, err := terminalRun(ctx, t2.compiler, t2.exec, t2.tree)
	if err != nil {
		return nil, err
	}
	defer rows.Close(ctx)

	var out []any
	for {
		rec, ok, err := rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		v, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// RelationshipProjectionMarker is a sentinel field name the cypher
// compiler recognizes on a Select immediately following a traversal hop,
// switching the RETURN clause from the destination node to the
// relationship just crossed.
const RelationshipProjectionMarker = "__REL__"
