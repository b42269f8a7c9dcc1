package cypher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmodel/query"
	"graphmodel/query/cypher"
	"graphmodel/schema"
)

type widget struct {
	schema.NodeBase
	ID   string `graph:",id"`
	Name string `graph:"name"`
}

type attachesTo struct {
	schema.RelationshipBase
	ID      string `graph:",id"`
	StartID string `graph:",start"`
	EndID   string `graph:",end"`
	Weight  int    `graph:"weight"`
}

func TestCompileSimpleFilterAndPaging(t *testing.T) {
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[widget](reg)
	require.NoError(t, err)

	c := cypher.New(reg)
	q := query.NewNodeQuery[widget](c, nil).
		Where(query.Eq("name", "Ada")).
		OrderBy("name", false).
		Skip(5).
		Take(10)

	compiled, err := c.Compile(extractTree(q))
	require.NoError(t, err)
	assert.Contains(t, compiled.Cypher, "MATCH (n0:widget)")
	assert.Contains(t, compiled.Cypher, "WHERE n0.name = $p0")
	assert.Contains(t, compiled.Cypher, "ORDER BY n0.name")
	assert.Contains(t, compiled.Cypher, "SKIP 5")
	assert.Contains(t, compiled.Cypher, "LIMIT 10")
	assert.Equal(t, "Ada", compiled.Params["p0"])
}

func TestCompilePathSegmentsBindsAllThreeParticipants(t *testing.T) {
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[widget](reg)
	require.NoError(t, err)
	_, err = schema.RegisterRelationship[attachesTo](reg)
	require.NoError(t, err)

	c := cypher.New(reg)
	q := query.NewNodeQuery[widget](c, nil)
	segs := query.PathSegments[widget, attachesTo, widget](q, query.DirOutgoing, 1, 1).
		Where(query.Gt("rel.weight", 0))

	compiled, err := c.Compile(query.PathSegmentTreeOf(segs))
	require.NoError(t, err)
	assert.Contains(t, compiled.Cypher, "MATCH (n0)-[rel1:attachesTo]->(n1:widget)")
	assert.Contains(t, compiled.Cypher, "WHERE rel1.weight > $p0")
	assert.Contains(t, compiled.Cypher, "RETURN n0 AS start, rel1 AS rel, n1 AS end")
}

func TestCompileTraverseReturnsDestinationNode(t *testing.T) {
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[widget](reg)
	require.NoError(t, err)
	_, err = schema.RegisterRelationship[attachesTo](reg)
	require.NoError(t, err)

	c := cypher.New(reg)
	q := query.NewNodeQuery[widget](c, nil)
	trav := query.Traverse[widget, attachesTo, widget](q, query.DirOutgoing, 1, 1)

	compiled, err := c.Compile(query.TraversalTreeOf(trav))
	require.NoError(t, err)
	assert.Contains(t, compiled.Cypher, "MATCH (n0)-[rel1:attachesTo]->(n1:widget)")
	assert.Contains(t, compiled.Cypher, "RETURN n1")
}

func TestCompileNodeQueryCollectsComplexPropertyCarriers(t *testing.T) {
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[widget](reg)
	require.NoError(t, err)

	c := cypher.New(reg)
	q := query.NewNodeQuery[widget](c, nil)

	compiled, err := c.Compile(extractTree(q))
	require.NoError(t, err)
	assert.Contains(t, compiled.Cypher, "OPTIONAL MATCH (n0)-[pr]->(pc)")
	assert.Contains(t, compiled.Cypher, "WHERE type(pr) STARTS WITH '__PROPERTY__'")
	assert.Contains(t, compiled.Cypher, "related_nodes")
}

func TestCompilePathSegmentsDoesNotCollectCarriers(t *testing.T) {
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[widget](reg)
	require.NoError(t, err)
	_, err = schema.RegisterRelationship[attachesTo](reg)
	require.NoError(t, err)

	c := cypher.New(reg)
	q := query.NewNodeQuery[widget](c, nil)
	segs := query.PathSegments[widget, attachesTo, widget](q, query.DirOutgoing, 1, 1)

	compiled, err := c.Compile(query.PathSegmentTreeOf(segs))
	require.NoError(t, err)
	assert.NotContains(t, compiled.Cypher, "related_nodes")
}

func TestCompileWithTransactionIsInvisibleInCypher(t *testing.T) {
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[widget](reg)
	require.NoError(t, err)

	c := cypher.New(reg)
	q := query.NewNodeQuery[widget](c, nil).WithTransaction(nil)

	compiled, err := c.Compile(extractTree(q))
	require.NoError(t, err)
	assert.Contains(t, compiled.Cypher, "MATCH (n0:widget)")
}

func TestCompileSearchUsesFullTextIndexCall(t *testing.T) {
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[widget](reg)
	require.NoError(t, err)

	c := cypher.New(reg)
	q := query.NewNodeQuery[widget](c, nil).Search("fts__widget__name", "Ada")

	compiled, err := c.Compile(extractTree(q))
	require.NoError(t, err)
	assert.Contains(t, compiled.Cypher, "CALL db.index.fulltext.queryNodes($p0, $p1) YIELD node AS n1")
	assert.Equal(t, "fts__widget__name", compiled.Params["p0"])
	assert.Equal(t, "Ada", compiled.Params["p1"])
	assert.Contains(t, compiled.Cypher, "OPTIONAL MATCH (n1)-[pr]->(pc)")
}

func TestCompileRejectsUnion(t *testing.T) {
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[widget](reg)
	require.NoError(t, err)

	c := cypher.New(reg)
	tree := query.Tree{Root: nil, Ops: []query.Op{{Kind: query.OpUnion}}}
	_, err = c.Compile(tree)
	require.Error(t, err)
}

// extractTree reaches into the unexported builder state via its public
// terminator-adjacent Compile path; tests live alongside the compiler
// so they exercise Tree values the same way NodeQuery's terminators do.
func extractTree[T any](q query.NodeQuery[T]) query.Tree {
	return query.TreeOf(q)
}
