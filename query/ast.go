// Package query implements component C4: a deferred, strongly-typed
// query builder. Every With*/Where/Select-style call returns a new
// immutable builder wrapping an appended Op node — nothing executes
// until a terminator (First/ToSlice/Any/...) is reached, mirroring the
// fluent, immutable style of application/queries/node_queries.go's
// GetNodeQuery/ListNodesQuery With* methods, generalized from a fixed
// set of named queries into an open operation tree.
package query

import "reflect"

// OpKind enumerates every node the builder can append to the tree.
type OpKind int

const (
	OpRootNodes OpKind = iota
	OpRootRelationships
	OpWhere
	OpSelect
	OpOrderBy
	OpThenBy
	OpSkip
	OpTake
	OpDistinct
	OpGroupBy
	OpAggregate
	OpFirst
	OpSingle
	OpAny
	OpAll
	OpContains
	OpElementAt
	OpTraverse
	OpThenTraverse
	OpPathSegments
	OpSearch
	OpUnion
	OpJoin
	OpWithTransaction
)

// Predicate is an opaque, builder-internal representation of a single
// comparison. The compiler's Phase C translates Predicates into
// parameterized Cypher WHERE clauses; it never receives raw Go
// closures, since Go lacks expression trees — predicates are built
// explicitly through the typed Where* helpers in predicate.go.
type Predicate struct {
	Field    string
	Operator CompareOp
	Value    any
	And      []Predicate
	Or       []Predicate
	Not      *Predicate
}

// CompareOp is the set of comparison operators the compiler recognizes;
// anything else is rejected with Unsupported (§4.5 "strict failure on
// unrecognized operators").
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpIn
	OpContainsStr
	OpStartsWith
	OpEndsWith
	OpIsNull
	OpIsNotNull
)

// SortSpec is one ORDER BY term.
type SortSpec struct {
	Field      string
	Descending bool
}

// Op is one node of the immutable operation tree. Builders never mutate
// an Op in place — With*-style calls copy the parent's Ops slice and
// append, so a builder value can be safely reused as the base for
// multiple branches (spec §4.1 "deferred, immutable").
type Op struct {
	Kind OpKind

	// OpRootNodes / OpRootRelationships / OpTraverse / OpThenTraverse
	TargetType reflect.Type

	// OpWhere
	Predicate Predicate

	// OpSelect: projected field names, empty means "whole entity"
	Fields []string

	// OpOrderBy / OpThenBy
	Sort SortSpec

	// OpSkip / OpTake / OpElementAt
	Count int

	// OpGroupBy
	GroupFields []string

	// OpAggregate
	AggregateFn   string
	AggregateArgs []string

	// OpTraverse / OpThenTraverse
	RelType   reflect.Type
	Direction TraverseDirection
	MinDepth  int
	MaxDepth  int

	// OpSearch
	SearchIndex string
	SearchText  string

	// OpContains
	ContainsValue any

	// OpUnion / OpJoin: right-hand operand tree, always rejected by the
	// compiler (Open Question 4) but kept on the builder surface.
	Other []Op
}

// TraverseDirection mirrors schema.Direction at the query-builder layer
// so this package does not need to import schema for every call site.
type TraverseDirection int

const (
	DirOutgoing TraverseDirection = iota
	DirIncoming
	DirEither
)

// Tree is the immutable sequence of Ops built so far, plus the root
// entity type it begins from.
type Tree struct {
	Root reflect.Type
	Ops  []Op
}

func (t Tree) appended(op Op) Tree {
	next := make([]Op, len(t.Ops)+1)
	copy(next, t.Ops)
	next[len(t.Ops)] = op
	return Tree{Root: t.Root, Ops: next}
}

// AppendOp is appended, exported for callers outside this package that
// build their own typed wrapper over the operation tree — e.g.
// graphstore's untyped dynamic_nodes()/dynamic_relationships() query
// surface, which has no registered Go root type to route through
// NodeQuery[T].
func AppendOp(t Tree, op Op) Tree { return t.appended(op) }
