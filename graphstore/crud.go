package graphstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"

	"graphmodel/ogmerr"
	"graphmodel/query"
	"graphmodel/schema"
	"graphmodel/serializer"
)

// enforceConstraints resolves T's schema and checks the §4.2 structural
// invariants (non-empty id/endpoint ids, no reference cycle) before any
// driver call, so a bad object never reaches a partial write.
func enforceConstraints[T any](reg *schema.Registry, obj *T) error {
	t := reflect.TypeOf(*new(T))
	s, ok := reg.SchemaOf(t)
	if !ok {
		return ogmerr.Newf(ogmerr.InvalidInput, "type %s is not registered", t)
	}
	return schema.EnforceConstraints(s, reflect.ValueOf(obj), reg.MaxComplexDepth())
}

func labelClause(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return ":" + strings.Join(labels, ":")
}

// CreateNode persists a new node, writing its simple properties
// directly and its complex properties as auxiliary carrier
// relationships (§4.3), all within a single statement-tree so the write
// is atomic from the driver's point of view.
func CreateNode[T any](ctx context.Context, g *Graph, obj *T) error {
	if err := enforceConstraints(g.store.registry, obj); err != nil {
		return err
	}
	e, err := serializer.Serialize(g.store.registry, obj)
	if err != nil {
		return err
	}
	cypher, params := buildCreateNodeStatement(e)
	rows, err := g.store.execLyr.Run(ctx, query.Compiled{Cypher: cypher, Params: params, ResultKind: query.ResultScalar})
	if err != nil {
		return err
	}
	defer rows.Close(ctx)
	_, _, err = rows.Next(ctx)
	return err
}

// CreateRelationship persists a new relationship between two already
// existing nodes, identified by id.
func CreateRelationship[R any](ctx context.Context, g *Graph, rel *R) error {
	if err := enforceConstraints(g.store.registry, rel); err != nil {
		return err
	}
	e, err := serializer.Serialize(g.store.registry, rel)
	if err != nil {
		return err
	}
	cypher, params := buildCreateRelationshipStatement(e)
	rows, err := g.store.execLyr.Run(ctx, query.Compiled{Cypher: cypher, Params: params, ResultKind: query.ResultScalar})
	if err != nil {
		return err
	}
	defer rows.Close(ctx)
	_, _, err = rows.Next(ctx)
	return err
}

// GetNode fetches a single node by id, resolving T to its most-derived
// registered subtype per the node's stored label set (§8 S3). The
// result is decoded into that most-derived Go type and then asserted
// back to *T. T must be a registered struct type, and the assertion
// only succeeds if the stored node's most-derived type is exactly T,
// since Go structs (unlike the attribute-driven base classes this
// generalizes) have no covariant substitutability: a node stored as a
// subtype of T is reported as a Serialization error, not returned as a
// *T. Interface-typed T is not supported.
func GetNode[T any](ctx context.Context, g *Graph, id string) (*T, error) {
	var zero T
	t := reflect.TypeOf(zero)
	labels := g.store.registry.CompatibleLabels(t)
	labelExpr := ""
	if len(labels) > 0 {
		labelExpr = ":" + strings.Join(labels, "|")
	}

	cypher := fmt.Sprintf(
		"MATCH (n%s {id: $id}) OPTIONAL MATCH (n)-[pr]->(pc) WHERE type(pr) STARTS WITH '__PROPERTY__' "+
			"RETURN n, labels(n) AS labels, [x IN collect({rel_type: type(pr), rel_props: properties(pr), node: properties(pc)}) WHERE x.node IS NOT NULL] AS related_nodes",
		labelExpr,
	)
	rows, err := g.store.execLyr.Run(ctx, query.Compiled{Cypher: cypher, Params: map[string]any{"id": id}})
	if err != nil {
		return nil, err
	}
	defer rows.Close(ctx)

	rec, ok, err := rows.Next(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ogmerr.Newf(ogmerr.NotFound, "no node with id %q", id)
	}

	e, err := recordToEntity(rec, "n", "labels")
	if err != nil {
		return nil, err
	}
	// recordToEntity only resolves the first hop of the carrier tree;
	// walk the rest (nested complex fields) with one query per node, up
	// to the registry's configured recursion bound.
	if err := loadNestedComplex(ctx, g, e.Complex, g.store.registry.MaxComplexDepth()-1); err != nil {
		return nil, err
	}
	out, err := serializer.Deserialize(g.store.registry, e, t)
	if err != nil {
		return nil, err
	}
	result, ok := out.(*T)
	if !ok {
		return nil, ogmerr.Newf(ogmerr.Serialization, "node %q has type %T, not assignable to %s", id, out, t)
	}
	return result, nil
}

// UpdateNode overwrites a node's properties in place, by id.
func UpdateNode[T any](ctx context.Context, g *Graph, obj *T) error {
	e, err := serializer.Serialize(g.store.registry, obj)
	if err != nil {
		return err
	}
	cypher, params := buildSetNodeStatement(e)
	rows, err := g.store.execLyr.Run(ctx, query.Compiled{Cypher: cypher, Params: params})
	if err != nil {
		return err
	}
	defer rows.Close(ctx)
	_, ok, err := rows.Next(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ogmerr.Newf(ogmerr.NotFound, "no node with id %q", e.ID)
	}
	return nil
}

// DeleteNode removes a node by id. If cascade is false and the node
// still has relationships, the backend's constraint rejects the delete,
// surfaced here as ConstraintViolation.
func DeleteNode(ctx context.Context, g *Graph, id string, cascade bool) error {
	verb := "DELETE"
	if cascade {
		verb = "DETACH DELETE"
	}
	// The carrier subtree (auxiliary __PROPERTY__*__ relationships and
	// the anonymous nodes they point to) is owned by n, not an
	// independent relationship a non-cascade delete should be blocked
	// by — it is always stripped along with n, regardless of cascade.
	cypher := fmt.Sprintf(
		"MATCH (n {id: $id}) OPTIONAL MATCH (n)-[cr*1..%d]->(cn) WHERE ALL(x IN cr WHERE type(x) STARTS WITH '__PROPERTY__') %s n, cn",
		g.store.registry.MaxComplexDepth(), verb,
	)
	rows, err := g.store.execLyr.Run(ctx, query.Compiled{Cypher: cypher, Params: map[string]any{"id": id}})
	if err != nil {
		if !cascade && ogmerr.KindOf(err) == ogmerr.Transport {
			return ogmerr.Wrap(ogmerr.ConstraintViolation, err, "node has remaining relationships; delete with cascade or remove them first")
		}
		return err
	}
	defer rows.Close(ctx)
	return nil
}

// DeleteRelationship removes a relationship by id.
func DeleteRelationship(ctx context.Context, g *Graph, id string) error {
	cypher := "MATCH ()-[r {id: $id}]-() DELETE r"
	rows, err := g.store.execLyr.Run(ctx, query.Compiled{Cypher: cypher, Params: map[string]any{"id": id}})
	if err != nil {
		return err
	}
	defer rows.Close(ctx)
	return nil
}

// carrierBuilder accumulates the auxiliary CREATE clauses (§4.3) for a
// node's complex properties, alongside the statement's own parameter
// map, so the whole object graph is written in the single Cypher
// statement CreateNode sends to the driver.
type carrierBuilder struct {
	lines  []string
	params map[string]any
	seq    int
}

func (cb *carrierBuilder) addValue(parentAlias, field string, value any) {
	n := cb.seq
	cb.seq++
	childAlias := fmt.Sprintf("c%d", n)
	paramName := fmt.Sprintf("cval%d", n)
	cb.params[paramName] = value
	cb.lines = append(cb.lines, fmt.Sprintf(
		"CREATE (%s)-[:%s {value: $%s}]->(%s)",
		parentAlias, serializer.CarrierRelType(field), paramName, childAlias,
	))
}

func (cb *carrierBuilder) addEntity(parentAlias, field string, sub *serializer.Entity) string {
	n := cb.seq
	cb.seq++
	childAlias := fmt.Sprintf("c%d", n)
	paramName := fmt.Sprintf("cprops%d", n)
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	cb.params[paramName] = flattenSimple(sub)
	cb.lines = append(cb.lines, fmt.Sprintf(
		"CREATE (%s)-[:%s]->(%s $%s)",
		parentAlias, serializer.CarrierRelType(field), childAlias, paramName,
	))
	return childAlias
}

// buildComplexCarrierClauses recurses into nested complex fields of
// each entity-shaped value, mirroring the recursive carrier encoding
// §4.3 describes. Fields are visited in sorted order so the generated
// Cypher text is deterministic.
func buildComplexCarrierClauses(cb *carrierBuilder, parentAlias string, complex map[string]serializer.Serialized) {
	fields := make([]string, 0, len(complex))
	for f := range complex {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		sv := complex[field]
		switch sv.Kind {
		case serializer.ValueSimple:
			cb.addValue(parentAlias, field, sv.Simple)
		case serializer.ValueSimpleCollection:
			cb.addValue(parentAlias, field, sv.SimpleColl)
		case serializer.ValueEntity:
			childAlias := cb.addEntity(parentAlias, field, sv.Entity)
			buildComplexCarrierClauses(cb, childAlias, sv.Entity.Complex)
		case serializer.ValueEntityCollection:
			for _, sub := range sv.EntityColl {
				childAlias := cb.addEntity(parentAlias, field, sub)
				buildComplexCarrierClauses(cb, childAlias, sub.Complex)
			}
		}
	}
}

func buildCreateNodeStatement(e *serializer.Entity) (string, map[string]any) {
	params := map[string]any{"props": flattenSimple(e)}
	cb := &carrierBuilder{params: params}
	buildComplexCarrierClauses(cb, "n", e.Complex)

	lines := make([]string, 0, len(cb.lines)+2)
	lines = append(lines, fmt.Sprintf("CREATE (n%s $props)", labelClause(e.Labels)))
	lines = append(lines, cb.lines...)
	lines = append(lines, "RETURN n.id AS id")
	return strings.Join(lines, "\n"), params
}

func buildCreateRelationshipStatement(e *serializer.Entity) (string, map[string]any) {
	relType := ""
	if len(e.Labels) > 0 {
		relType = e.Labels[0]
	}
	// Storage is always directed: an Incoming relationship is written
	// with its endpoints swapped.
	startID, endID := e.StartID, e.EndID
	if e.Direction == string(schema.Incoming) {
		startID, endID = endID, startID
	}
	cypher := fmt.Sprintf(
		"MATCH (a {id: $startId}), (b {id: $endId}) CREATE (a)-[r:%s $props]->(b) RETURN r.id AS id",
		relType,
	)
	return cypher, map[string]any{
		"startId": startID,
		"endId":   endID,
		"props":   flattenSimple(e),
	}
}

func buildSetNodeStatement(e *serializer.Entity) (string, map[string]any) {
	cypher := "MATCH (n {id: $id}) SET n += $props RETURN n.id AS id"
	return cypher, map[string]any{"id": e.ID, "props": flattenSimple(e)}
}

func flattenSimple(e *serializer.Entity) map[string]any {
	out := make(map[string]any, len(e.Simple)+1)
	out["id"] = e.ID
	for k, v := range e.Simple {
		out[k] = v
	}
	return out
}

func recordToEntity(rec map[string]any, nodeKey, labelsKey string) (*serializer.Entity, error) {
	props, ok := rec[nodeKey].(map[string]any)
	if !ok {
		return nil, ogmerr.Newf(ogmerr.Serialization, "record missing %q", nodeKey)
	}
	var labels []string
	if raw, ok := rec[labelsKey].([]any); ok {
		for _, l := range raw {
			if s, ok := l.(string); ok {
				labels = append(labels, s)
			}
		}
	}
	e := &serializer.Entity{
		Labels:  labels,
		Simple:  make(map[string]any),
		Complex: complexFromRelated(rec["related_nodes"]),
	}
	for k, v := range props {
		if k == "id" {
			e.ID = fmt.Sprint(v)
			continue
		}
		e.Simple[k] = v
	}
	return e, nil
}

// complexFromRelated decodes the one-hop "related_nodes" collection a
// Phase F query or GetNode's own query produces back into the
// Serialized shape serializer.Deserialize expects, grouping rows that
// share a field (a collection-of-complex carrier) together.
func complexFromRelated(raw any) map[string]serializer.Serialized {
	out := make(map[string]serializer.Serialized)
	items, _ := raw.([]any)
	if len(items) == 0 {
		return out
	}

	grouped := make(map[string][]map[string]any)
	var order []string
	for _, it := range items {
		row, ok := it.(map[string]any)
		if !ok {
			continue
		}
		relType, _ := row["rel_type"].(string)
		field, ok := serializer.FieldFromCarrierRelType(relType)
		if !ok {
			continue
		}
		if _, seen := grouped[field]; !seen {
			order = append(order, field)
		}
		grouped[field] = append(grouped[field], row)
	}

	for _, field := range order {
		rows := grouped[field]
		relProps, _ := rows[0]["rel_props"].(map[string]any)
		if val, hasValue := relProps["value"]; hasValue && len(rows) == 1 {
			if coll, ok := val.([]any); ok {
				out[field] = serializer.Serialized{Kind: serializer.ValueSimpleCollection, SimpleColl: coll}
			} else {
				out[field] = serializer.Serialized{Kind: serializer.ValueSimple, Simple: val}
			}
			continue
		}
		if len(rows) == 1 {
			out[field] = serializer.Serialized{Kind: serializer.ValueEntity, Entity: nodeRowToEntity(rows[0])}
			continue
		}
		coll := make([]*serializer.Entity, 0, len(rows))
		for _, r := range rows {
			coll = append(coll, nodeRowToEntity(r))
		}
		out[field] = serializer.Serialized{Kind: serializer.ValueEntityCollection, EntityColl: coll}
	}
	return out
}

func nodeRowToEntity(row map[string]any) *serializer.Entity {
	props, _ := row["node"].(map[string]any)
	e := &serializer.Entity{Simple: make(map[string]any), Complex: make(map[string]serializer.Serialized)}
	for k, v := range props {
		if k == "id" {
			e.ID = fmt.Sprint(v)
			continue
		}
		e.Simple[k] = v
	}
	return e
}

// loadNestedComplex resolves complex properties beyond the first hop:
// for every entity-shaped value already hydrated from a single query,
// it fetches that sub-entity's own carrier relationships (one query per
// node), recursing up to depth — the read-side counterpart to
// buildComplexCarrierClauses's recursive write.
func loadNestedComplex(ctx context.Context, g *Graph, complex map[string]serializer.Serialized, depth int) error {
	if depth <= 0 {
		return nil
	}
	for field, sv := range complex {
		switch sv.Kind {
		case serializer.ValueEntity:
			if err := hydrateSubEntity(ctx, g, sv.Entity, depth); err != nil {
				return err
			}
		case serializer.ValueEntityCollection:
			for _, sub := range sv.EntityColl {
				if err := hydrateSubEntity(ctx, g, sub, depth); err != nil {
					return err
				}
			}
		}
		complex[field] = sv
	}
	return nil
}

func hydrateSubEntity(ctx context.Context, g *Graph, sub *serializer.Entity, depth int) error {
	if sub.ID == "" {
		return nil
	}
	cypher := "MATCH (n {id: $id}) OPTIONAL MATCH (n)-[pr]->(pc) WHERE type(pr) STARTS WITH '__PROPERTY__' " +
		"RETURN [x IN collect({rel_type: type(pr), rel_props: properties(pr), node: properties(pc)}) WHERE x.node IS NOT NULL] AS related_nodes"
	rows, err := g.store.execLyr.Run(ctx, query.Compiled{Cypher: cypher, Params: map[string]any{"id": sub.ID}})
	if err != nil {
		return err
	}
	defer rows.Close(ctx)

	rec, ok, err := rows.Next(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	sub.Complex = complexFromRelated(rec["related_nodes"])
	return loadNestedComplex(ctx, g, sub.Complex, depth-1)
}
