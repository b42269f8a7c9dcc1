package graphstore

import (
	"context"
	"fmt"

	"graphmodel/ogmerr"
	"graphmodel/query"
	"graphmodel/serializer"
)

// DynamicNode is the untyped view of a node, for callers that don't
// have (or don't want) a registered Go type — e.g. exploratory queries
// against a schema the caller doesn't fully control.
type DynamicNode struct {
	ID         string
	Labels     []string
	Properties map[string]any
}

// GetDynamicNode fetches a node by id without requiring a registered Go
// type, normalizing every property value through
// serializer.CanonicalizeDynamic since there is no PropertyDescriptor to
// decode against.
func GetDynamicNode(ctx context.Context, g *Graph, id string) (*DynamicNode, error) {
	cypher := "MATCH (n {id: $id}) RETURN n, labels(n) AS labels"
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

	props := make(map[string]any, len(e.Simple))
	for k, v := range e.Simple {
		cv, err := serializer.CanonicalizeDynamic(v)
		if err != nil {
			return nil, ogmerr.Wrap(ogmerr.Serialization, err, fmt.Sprintf("canonicalizing property %q", k))
		}
		props[k] = cv
	}

	return &DynamicNode{ID: e.ID, Labels: e.Labels, Properties: props}, nil
}

// DynamicRelationship is the untyped view of a relationship, mirroring
// DynamicNode for callers with no registered Go type for the edge.
type DynamicRelationship struct {
	ID         string
	Type       string
	StartID    string
	EndID      string
	Properties map[string]any
}

// GetDynamicRelationship fetches a relationship by id without requiring
// a registered Go type, the relationship counterpart to GetDynamicNode.
func GetDynamicRelationship(ctx context.Context, g *Graph, id string) (*DynamicRelationship, error) {
	cypher := "MATCH (a)-[r {id: $id}]->(b) RETURN r, type(r) AS relType, a.id AS startId, b.id AS endId"
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
		return nil, ogmerr.Newf(ogmerr.NotFound, "no relationship with id %q", id)
	}

	relProps, ok := rec["r"].(map[string]any)
	if !ok {
		return nil, ogmerr.Newf(ogmerr.Serialization, "record missing %q", "r")
	}

	props := make(map[string]any, len(relProps))
	for k, v := range relProps {
		if k == "id" {
			continue
		}
		cv, err := serializer.CanonicalizeDynamic(v)
		if err != nil {
			return nil, ogmerr.Wrap(ogmerr.Serialization, err, fmt.Sprintf("canonicalizing property %q", k))
		}
		props[k] = cv
	}

	return &DynamicRelationship{
		ID:         id,
		Type:       fmt.Sprint(rec["relType"]),
		StartID:    fmt.Sprint(rec["startId"]),
		EndID:      fmt.Sprint(rec["endId"]),
		Properties: props,
	}, nil
}

// DynamicNodeQuery is the filterable, pageable query surface for
// dynamic_nodes() (Where, Skip and Take; it has no projection step):
// like a typed NodeQuery[T], but with no registered Go
// type to bind against — the builder counterpart to GetDynamicNode, for
// callers exploring a schema they don't fully control.
type DynamicNodeQuery struct {
	tree     query.Tree
	compiler query.Compiler
	exec     query.Executor
}

// DynamicNodes starts a query matching every node regardless of label.
func DynamicNodes(g *Graph) DynamicNodeQuery {
	return DynamicNodeQuery{
		tree:     query.Tree{Ops: []query.Op{{Kind: query.OpRootNodes}}},
		compiler: g.store.compiler,
		exec:     g.store.execLyr,
	}
}

func (q DynamicNodeQuery) Where(p query.Predicate) DynamicNodeQuery {
	q.tree = query.AppendOp(q.tree, query.Op{Kind: query.OpWhere, Predicate: p})
	return q
}

func (q DynamicNodeQuery) Skip(n int) DynamicNodeQuery {
	q.tree = query.AppendOp(q.tree, query.Op{Kind: query.OpSkip, Count: n})
	return q
}

func (q DynamicNodeQuery) Take(n int) DynamicNodeQuery {
	q.tree = query.AppendOp(q.tree, query.Op{Kind: query.OpTake, Count: n})
	return q
}

// ToSlice executes the query, applying the same dynamic property
// canonicalization GetDynamicNode does to every matched node. A
// root-only tree (no traversal) always binds its node to "n0", so
// decoding can rely on that alias directly.
func (q DynamicNodeQuery) ToSlice(ctx context.Context) ([]DynamicNode, error) {
	compiled, err := q.compiler.Compile(q.tree)
	if err != nil {
		return nil, err
	}
	rows, err := q.exec.Run(ctx, compiled)
	if err != nil {
		return nil, err
	}
	defer rows.Close(ctx)

	var out []DynamicNode
	for {
		rec, ok, err := rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		e, err := recordToEntity(rec, "n0", "labels")
		if err != nil {
			return nil, err
		}
		props := make(map[string]any, len(e.Simple))
		for k, v := range e.Simple {
			cv, err := serializer.CanonicalizeDynamic(v)
			if err != nil {
				return nil, ogmerr.Wrap(ogmerr.Serialization, err, fmt.Sprintf("canonicalizing property %q", k))
			}
			props[k] = cv
		}
		out = append(out, DynamicNode{ID: e.ID, Labels: e.Labels, Properties: props})
	}
	return out, nil
}

// DynamicRelationshipQuery is the relationship counterpart to
// DynamicNodeQuery, backing dynamic_relationships().
type DynamicRelationshipQuery struct {
	tree     query.Tree
	compiler query.Compiler
	exec     query.Executor
}

// DynamicRelationships starts a query matching every relationship
// regardless of type.
func DynamicRelationships(g *Graph) DynamicRelationshipQuery {
	return DynamicRelationshipQuery{
		tree:     query.Tree{Ops: []query.Op{{Kind: query.OpRootRelationships}}},
		compiler: g.store.compiler,
		exec:     g.store.execLyr,
	}
}

func (q DynamicRelationshipQuery) Where(p query.Predicate) DynamicRelationshipQuery {
	q.tree = query.AppendOp(q.tree, query.Op{Kind: query.OpWhere, Predicate: p})
	return q
}

func (q DynamicRelationshipQuery) Skip(n int) DynamicRelationshipQuery {
	q.tree = query.AppendOp(q.tree, query.Op{Kind: query.OpSkip, Count: n})
	return q
}

func (q DynamicRelationshipQuery) Take(n int) DynamicRelationshipQuery {
	q.tree = query.AppendOp(q.tree, query.Op{Kind: query.OpTake, Count: n})
	return q
}

// ToSlice executes the query. A root-only relationship tree always
// binds to "r0"; this path doesn't resolve the relationship's type or
// endpoint ids (the plain root MATCH doesn't project them), so Type,
// StartID and EndID come back empty — callers that need those should go
// through GetDynamicRelationship by id instead.
func (q DynamicRelationshipQuery) ToSlice(ctx context.Context) ([]DynamicRelationship, error) {
	compiled, err := q.compiler.Compile(q.tree)
	if err != nil {
		return nil, err
	}
	rows, err := q.exec.Run(ctx, compiled)
	if err != nil {
		return nil, err
	}
	defer rows.Close(ctx)

	var out []DynamicRelationship
	for {
		rec, ok, err := rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		relProps, _ := rec["r0"].(map[string]any)
		id, _ := relProps["id"].(string)
		props := make(map[string]any, len(relProps))
		for k, v := range relProps {
			if k == "id" {
				continue
			}
			cv, err := serializer.CanonicalizeDynamic(v)
			if err != nil {
				return nil, ogmerr.Wrap(ogmerr.Serialization, err, fmt.Sprintf("canonicalizing property %q", k))
			}
			props[k] = cv
		}
		out = append(out, DynamicRelationship{ID: id, Properties: props})
	}
	return out, nil
}
