// Package cypher implements component C5: translation of an immutable
// query.Tree into parameterized Cypher text, a parameter map, and a
// result-shape descriptor. Translation is strictly phased (§4.5 Phases
// A-G, collapsed here into one ordered pass since Go builds the tree
// eagerly rather than lazily re-walking an expression tree), and each
// Op kind is dispatched through a lookup table the way the teacher
// dispatches commands/queries by reflect.Type in
// application/commands/bus/command_bus.go and
// application/queries/bus/query_bus.go — generalized here from
// reflect.Type keys to query.OpKind keys, since the operation tree is
// already a closed, enumerable node set rather than an open command
// registry.
package cypher

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"graphmodel/ogmerr"
	"graphmodel/query"
	"graphmodel/schema"
)

// Compiler compiles query.Tree values against a type registry, so it
// can resolve labels and polymorphic label sets for each root/traverse
// hop.
type Compiler struct {
	Registry *schema.Registry
}

// New creates a Compiler bound to reg.
func New(reg *schema.Registry) *Compiler {
	return &Compiler{Registry: reg}
}

// state threads the accumulating Cypher fragments, parameter map and
// alias counters through the single ordered pass over tree.Ops.
type state struct {
	reg *schema.Registry

	matches    []string
	wheres     []string
	withs      []string
	orderBy    []string
	returnExpr string
	distinct   bool
	skip       *int
	limit      *int
	groupBy    []string

	params map[string]any
	pCount int

	aliases   []string // stack of bound node/rel aliases, last is "current"
	resultKnd query.ResultKind
	hardLimit *int // used by First/Single/ElementAt terminators

	// lastStartAlias / lastRelAlias record the two endpoints of the most
	// recent traversal hop (or path-segment match), for predicates
	// qualified "start."/"rel." and for the Relationships() "__REL__"
	// projection marker — neither of which stays "current" once the
	// hop's destination node becomes the new current alias.
	lastStartAlias string
	lastRelAlias   string

	// currentIsNode is true while the current alias is bound to a node
	// (as opposed to a relationship or a projected triple), used to
	// decide whether build() should append the Phase F complex-property
	// collection sub-query to an entity-shaped RETURN.
	currentIsNode bool
}

func newState(reg *schema.Registry) *state {
	return &state{reg: reg, params: make(map[string]any)}
}

func (s *state) param(v any) string {
	name := fmt.Sprintf("p%d", s.pCount)
	s.pCount++
	s.params[name] = v
	return "$" + name
}

func (s *state) current() string {
	if len(s.aliases) == 0 {
		return ""
	}
	return s.aliases[len(s.aliases)-1]
}

func (s *state) newAlias(prefix string) string {
	a := fmt.Sprintf("%s%d", prefix, len(s.aliases))
	s.aliases = append(s.aliases, a)
	return a
}

// fieldExpr resolves a predicate's (possibly path-segment-qualified)
// field name to a concrete "alias.property" expression. A bare name
// binds against the current alias; "start."/"rel."/"end." prefixes
// bind against the three participants of the most recent traversal or
// path-segment hop, per spec.md's "filters expressed in terms of any
// of the three participants".
func (s *state) fieldExpr(name string) string {
	switch {
	case strings.HasPrefix(name, "start."):
		return s.lastStartAlias + "." + strings.TrimPrefix(name, "start.")
	case strings.HasPrefix(name, "rel."):
		return s.lastRelAlias + "." + strings.TrimPrefix(name, "rel.")
	case strings.HasPrefix(name, "end."):
		return s.current() + "." + strings.TrimPrefix(name, "end.")
	default:
		return s.current() + "." + name
	}
}

// opHandler translates a single Op against the accumulating state.
type opHandler func(s *state, op query.Op) error

var dispatch map[query.OpKind]opHandler

func init() {
	dispatch = map[query.OpKind]opHandler{
		query.OpRootNodes:         handleRootNodes,
		query.OpRootRelationships: handleRootRelationships,
		query.OpWhere:             handleWhere,
		query.OpOrderBy:           handleOrderBy,
		query.OpThenBy:            handleOrderBy,
		query.OpSkip:              handleSkip,
		query.OpTake:              handleTake,
		query.OpDistinct:          handleDistinct,
		query.OpSelect:            handleSelect,
		query.OpGroupBy:           handleGroupBy,
		query.OpAggregate:         handleAggregate,
		query.OpTraverse:          handleTraverse,
		query.OpThenTraverse:      handleTraverse,
		query.OpPathSegments:      handlePathSegments,
		query.OpSearch:            handleSearch,
		query.OpFirst:             handleTerminatorLimit(1),
		query.OpSingle:            handleTerminatorLimit(2),
		query.OpAny:               handleTerminatorLimit(1),
		query.OpAll:               handleTerminatorLimit(1),
		query.OpElementAt:         handleElementAt,
		query.OpContains:          handleContains,
		query.OpUnion:             handleUnsupported("UNION"),
		query.OpJoin:              handleUnsupported("JOIN"),
		query.OpWithTransaction:   handleNoop,
	}
}

// handleNoop acknowledges an Op that carries no compiler-visible data:
// OpWithTransaction only matters to the builder (which swaps the
// Executor), not to the generated Cypher text.
func handleNoop(s *state, op query.Op) error { return nil }

// Compile is the single entry point the query builders' terminators use
// to translate a tree; the execution layer (C6) receives only the
// resulting query.Compiled.
func (c *Compiler) Compile(tree query.Tree) (query.Compiled, error) {
	s := newState(c.Registry)
	s.resultKnd = query.ResultEntities

	for _, op := range tree.Ops {
		h, ok := dispatch[op.Kind]
		if !ok {
			return query.Compiled{}, ogmerr.Newf(ogmerr.Unsupported, "no compiler support for operation %d", op.Kind)
		}
		if err := h(s, op); err != nil {
			return query.Compiled{}, err
		}
	}

	return s.build(), nil
}

func handleUnsupported(name string) opHandler {
	return func(s *state, op query.Op) error {
		return ogmerr.Newf(ogmerr.Unsupported, "%s is not supported by the query compiler", name)
	}
}

func handleRootNodes(s *state, op query.Op) error {
	alias := s.newAlias("n")
	var labels []string
	if op.TargetType != nil {
		labels = s.reg.CompatibleLabels(op.TargetType)
	}
	s.matches = append(s.matches, fmt.Sprintf("MATCH (%s%s)", alias, labelClause(labels)))
	s.returnExpr = alias
	s.currentIsNode = true
	return nil
}

func handleRootRelationships(s *state, op query.Op) error {
	alias := s.newAlias("r")
	var labels []string
	if op.TargetType != nil {
		labels = s.reg.CompatibleLabels(op.TargetType)
	}
	s.matches = append(s.matches, fmt.Sprintf("MATCH ()-[%s%s]-()", alias, relTypeClause(labels)))
	s.returnExpr = alias
	s.currentIsNode = false
	return nil
}

func labelClause(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return ":" + strings.Join(labels, "|")
}

func relTypeClause(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return ":" + strings.Join(labels, "|")
}

func handleWhere(s *state, op query.Op) error {
	clause, err := translatePredicate(s, op.Predicate)
	if err != nil {
		return err
	}
	if clause != "" {
		s.wheres = append(s.wheres, clause)
	}
	return nil
}

var lowerCaser = cases.Lower(language.Und)

// translatePredicate recursively lowers a query.Predicate into a
// parameterized boolean Cypher expression; lowerCaser folds the CONTAINS
// operand the locale-aware way the rest of this module's dependency pack
// does (golang.org/x/text/cases), rather than strings.ToLower's
// context-free per-rune mapping,
// while the field side is folded with Cypher's toLower, so CONTAINS
// matches case-insensitively.
func translatePredicate(s *state, p query.Predicate) (string, error) {
	if len(p.And) > 0 {
		return combine(s, p.And, " AND ")
	}
	if len(p.Or) > 0 {
		return combine(s, p.Or, " OR ")
	}
	if p.Not != nil {
		inner, err := translatePredicate(s, *p.Not)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	}

	field := s.fieldExpr(p.Field)

	switch p.Operator {
	case query.OpEq:
		return fmt.Sprintf("%s = %s", field, s.param(p.Value)), nil
	case query.OpNeq:
		return fmt.Sprintf("%s <> %s", field, s.param(p.Value)), nil
	case query.OpLt:
		return fmt.Sprintf("%s < %s", field, s.param(p.Value)), nil
	case query.OpLte:
		return fmt.Sprintf("%s <= %s", field, s.param(p.Value)), nil
	case query.OpGt:
		return fmt.Sprintf("%s > %s", field, s.param(p.Value)), nil
	case query.OpGte:
		return fmt.Sprintf("%s >= %s", field, s.param(p.Value)), nil
	case query.OpIn:
		return fmt.Sprintf("%s IN %s", field, s.param(p.Value)), nil
	case query.OpContainsStr:
		return fmt.Sprintf("toLower(%s) CONTAINS %s", field, s.param(lowerCaser.String(fmt.Sprint(p.Value)))), nil
	case query.OpStartsWith:
		return fmt.Sprintf("%s STARTS WITH %s", field, s.param(p.Value)), nil
	case query.OpEndsWith:
		return fmt.Sprintf("%s ENDS WITH %s", field, s.param(p.Value)), nil
	case query.OpIsNull:
		return fmt.Sprintf("%s IS NULL", field), nil
	case query.OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", field), nil
	default:
		return "", ogmerr.Newf(ogmerr.Unsupported, "unrecognized comparison operator %d", p.Operator)
	}
}

func combine(s *state, preds []query.Predicate, joiner string) (string, error) {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		c, err := translatePredicate(s, p)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+c+")")
	}
	return strings.Join(parts, joiner), nil
}

func handleOrderBy(s *state, op query.Op) error {
	dir := ""
	if op.Sort.Descending {
		dir = " DESC"
	}
	s.orderBy = append(s.orderBy, fmt.Sprintf("%s.%s%s", s.current(), op.Sort.Field, dir))
	return nil
}

func handleSkip(s *state, op query.Op) error {
	n := op.Count
	s.skip = &n
	return nil
}

func handleTake(s *state, op query.Op) error {
	n := op.Count
	s.limit = &n
	return nil
}

func handleDistinct(s *state, op query.Op) error {
	s.distinct = true
	return nil
}

func handleSelect(s *state, op query.Op) error {
	if len(op.Fields) == 1 && op.Fields[0] == query.RelationshipProjectionMarker {
		s.returnExpr = s.lastRelAlias
		s.resultKnd = query.ResultEntities
		s.currentIsNode = false
		return nil
	}

	cur := s.current()
	parts := make([]string, 0, len(op.Fields))
	for _, f := range op.Fields {
		parts = append(parts, fmt.Sprintf("%s.%s AS %s", cur, f, f))
	}
	s.returnExpr = strings.Join(parts, ", ")
	s.resultKnd = query.ResultProjection
	s.currentIsNode = false
	return nil
}

func handleGroupBy(s *state, op query.Op) error {
	s.groupBy = op.GroupFields
	return nil
}

func handleAggregate(s *state, op query.Op) error {
	cur := s.current()
	fn := strings.ToLower(op.AggregateFn)
	var expr string
	switch fn {
	case "count":
		if len(op.AggregateArgs) == 0 {
			expr = fmt.Sprintf("count(%s)", cur)
		} else {
			expr = fmt.Sprintf("count(%s.%s)", cur, op.AggregateArgs[0])
		}
	case "sum", "avg", "min", "max":
		if len(op.AggregateArgs) == 0 {
			return ogmerr.Newf(ogmerr.InvalidInput, "%s requires a field argument", fn)
		}
		expr = fmt.Sprintf("%s(%s.%s)", fn, cur, op.AggregateArgs[0])
	default:
		return ogmerr.Newf(ogmerr.Unsupported, "unsupported aggregate function %q", op.AggregateFn)
	}

	var parts []string
	for _, g := range s.groupBy {
		parts = append(parts, fmt.Sprintf("%s.%s AS %s", cur, g, g))
	}
	parts = append(parts, expr+" AS "+fn)
	s.returnExpr = strings.Join(parts, ", ")
	s.resultKnd = query.ResultScalar
	return nil
}

func handleTraverse(s *state, op query.Op) error {
	from := s.current()
	relAlias := s.newAlias("rel")
	s.aliases = s.aliases[:len(s.aliases)-1] // rel alias isn't "current"
	toAlias := s.newAlias("n")

	relLabels := s.reg.CompatibleLabels(op.RelType)
	toLabels := s.reg.CompatibleLabels(op.TargetType)

	arrowL, arrowR := "-", "-"
	switch op.Direction {
	case query.DirOutgoing:
		arrowR = "->"
	case query.DirIncoming:
		arrowL = "<-"
	}

	depth := ""
	if op.MinDepth != 1 || op.MaxDepth != 1 {
		depth = fmt.Sprintf("*%d..%d", op.MinDepth, op.MaxDepth)
	}

	s.matches = append(s.matches, fmt.Sprintf(
		"MATCH (%s)%s[%s%s%s]%s(%s%s)",
		from, arrowL, relAlias, relTypeClause(relLabels), depth, arrowR, toAlias, labelClause(toLabels),
	))
	s.lastStartAlias = from
	s.lastRelAlias = relAlias
	s.returnExpr = toAlias
	s.currentIsNode = true
	return nil
}

// handlePathSegments matches a single hop exactly like handleTraverse
// but keeps all three participants bound and returns them as a
// {start, rel, end} triple instead of collapsing to the destination
// node (spec.md §"Path-segment semantics").
func handlePathSegments(s *state, op query.Op) error {
	startAlias := s.current()
	relAlias := s.newAlias("rel")
	s.aliases = s.aliases[:len(s.aliases)-1] // rel alias isn't "current"
	endAlias := s.newAlias("n")

	relLabels := s.reg.CompatibleLabels(op.RelType)
	endLabels := s.reg.CompatibleLabels(op.TargetType)

	arrowL, arrowR := "-", "-"
	switch op.Direction {
	case query.DirOutgoing:
		arrowR = "->"
	case query.DirIncoming:
		arrowL = "<-"
	}

	depth := ""
	if op.MinDepth != 1 || op.MaxDepth != 1 {
		depth = fmt.Sprintf("*%d..%d", op.MinDepth, op.MaxDepth)
	}

	s.matches = append(s.matches, fmt.Sprintf(
		"MATCH (%s)%s[%s%s%s]%s(%s%s)",
		startAlias, arrowL, relAlias, relTypeClause(relLabels), depth, arrowR, endAlias, labelClause(endLabels),
	))
	s.lastStartAlias = startAlias
	s.lastRelAlias = relAlias
	s.returnExpr = fmt.Sprintf("%s AS start, %s AS rel, %s AS end", startAlias, relAlias, endAlias)
	s.resultKnd = query.ResultProjection
	s.currentIsNode = false
	return nil
}

func handleSearch(s *state, op query.Op) error {
	cur := s.newAlias("n")
	s.matches = append(s.matches, fmt.Sprintf(
		"CALL db.index.fulltext.queryNodes(%s, %s) YIELD node AS %s",
		s.param(op.SearchIndex), s.param(op.SearchText), cur,
	))
	s.returnExpr = cur
	s.currentIsNode = true
	return nil
}

func handleTerminatorLimit(n int) opHandler {
	return func(s *state, op query.Op) error {
		lim := n
		s.hardLimit = &lim
		return nil
	}
}

func handleElementAt(s *state, op query.Op) error {
	lim := 1
	s.hardLimit = &lim
	return nil
}

func handleContains(s *state, op query.Op) error {
	cur := s.current()
	clause := fmt.Sprintf("%s.id = %s", cur, s.param(op.ContainsValue))
	s.wheres = append(s.wheres, clause)
	lim := 1
	s.hardLimit = &lim
	return nil
}

// phaseF reports whether build() should append the Phase F
// complex-property collection sub-query (spec.md §4.5): the result is
// still a whole node entity (not a projection, aggregate or relationship)
// and the current alias hasn't been replaced by something build() can't
// attach an OPTIONAL MATCH to.
func (s *state) phaseF() bool {
	return s.resultKnd == query.ResultEntities && s.currentIsNode && s.returnExpr == s.current()
}

func (s *state) build() query.Compiled {
	var b strings.Builder
	for _, m := range s.matches {
		b.WriteString(m)
		b.WriteByte('\n')
	}
	if len(s.wheres) > 0 {
		b.WriteString("WHERE ")
		b.WriteString(strings.Join(s.wheres, " AND "))
		b.WriteByte('\n')
	}

	phaseF := s.phaseF()
	cur := s.current()
	if phaseF {
		fmt.Fprintf(&b, "OPTIONAL MATCH (%s)-[pr]->(pc)\nWHERE type(pr) STARTS WITH '__PROPERTY__'\n", cur)
	}

	b.WriteString("RETURN ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	switch {
	case phaseF:
		fmt.Fprintf(&b, "%s, labels(%s) AS labels, [x IN collect({rel_type: type(pr), rel_props: properties(pr), node: properties(pc)}) WHERE x.node IS NOT NULL] AS related_nodes", cur, cur)
	case s.returnExpr == "":
		b.WriteString(s.current())
	default:
		b.WriteString(s.returnExpr)
	}
	if len(s.orderBy) > 0 {
		b.WriteString("\nORDER BY ")
		b.WriteString(strings.Join(s.orderBy, ", "))
	}
	limit := s.limit
	if s.hardLimit != nil && (limit == nil || *s.hardLimit < *limit) {
		limit = s.hardLimit
	}
	if s.skip != nil {
		fmt.Fprintf(&b, "\nSKIP %d", *s.skip)
	}
	if limit != nil {
		fmt.Fprintf(&b, "\nLIMIT %d", *limit)
	}

	return query.Compiled{
		Cypher:     b.String(),
		Params:     s.params,
		ResultKind: s.resultKnd,
	}
}
