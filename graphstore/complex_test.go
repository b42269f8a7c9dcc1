package graphstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmodel/config"
	"graphmodel/driver/drivertest"
	"graphmodel/graphstore"
	"graphmodel/schema"
)

// address is a complex (non-entity) property: a plain struct with only
// simple fields, carried as an auxiliary __PROPERTY__address__
// relationship to an anonymous node (§4.3).
type address struct {
	Street string `graph:"street"`
	City   string `graph:"city"`
}

type contact struct {
	schema.NodeBase
	ID      string   `graph:",id"`
	Name    string   `graph:"name"`
	Address address  `graph:"address"`
	Tags    []string `graph:"tags"`
}

func newComplexTestStore(t *testing.T) *graphstore.Graph {
	t.Helper()
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[contact](reg)
	require.NoError(t, err)

	fake := drivertest.New()
	cfg := &config.Config{Database: "neo4j", MaxPoolSize: 1, MaxComplexDepth: 5}
	store, err := graphstore.OpenWithOptions(context.Background(), fake, cfg, graphstore.WithRegistry(reg))
	require.NoError(t, err)
	return store.Graph()
}

// TestCreateAndGetNodeRoundTripsComplexProperty is the S1 scenario: a
// node with a complex (struct-valued) property and a simple-collection
// property must come back with both intact after a create/get round
// trip through the carrier-relationship encoding.
func TestCreateAndGetNodeRoundTripsComplexProperty(t *testing.T) {
	g := newComplexTestStore(t)
	ctx := context.Background()

	in := &contact{
		ID:      "c1",
		Name:    "Ada",
		Address: address{Street: "1 Analytical Engine Way", City: "London"},
		Tags:    []string{"math", "pioneer"},
	}
	require.NoError(t, graphstore.CreateNode(ctx, g, in))

	out, err := graphstore.GetNode[contact](ctx, g, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", out.Name)
	assert.Equal(t, "1 Analytical Engine Way", out.Address.Street)
	assert.Equal(t, "London", out.Address.City)
	assert.ElementsMatch(t, []string{"math", "pioneer"}, out.Tags)
}

type node struct {
	schema.NodeBase
	ID    string `graph:",id"`
	Value int    `graph:"value"`
}

// selfRef is a complex property that can reference an ancestor of the
// same dynamic type through a pointer field, the shape EnforceConstraints
// must reject when it genuinely cycles back on itself.
type selfRef struct {
	Label string   `graph:"label"`
	Next  *selfRef `graph:"next"`
}

type ring struct {
	schema.NodeBase
	ID   string  `graph:",id"`
	Head selfRef `graph:"head"`
}

// TestCreateNodeRejectsReferenceCycle is the S6 scenario: a complex
// property graph containing a true reference cycle must be rejected
// before any driver call, not silently written or left to loop forever.
func TestCreateNodeRejectsReferenceCycle(t *testing.T) {
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[ring](reg)
	require.NoError(t, err)

	fake := drivertest.New()
	cfg := &config.Config{Database: "neo4j", MaxPoolSize: 1, MaxComplexDepth: 5}
	store, err := graphstore.OpenWithOptions(context.Background(), fake, cfg, graphstore.WithRegistry(reg))
	require.NoError(t, err)
	g := store.Graph()
	ctx := context.Background()

	a := &selfRef{Label: "a"}
	b := &selfRef{Label: "b", Next: a}
	a.Next = b // a -> b -> a: a true cycle

	in := &ring{ID: "r1", Head: *a}
	err = graphstore.CreateNode(ctx, g, in)
	require.Error(t, err)

	_, getErr := graphstore.GetNode[ring](ctx, g, "r1")
	assert.Error(t, getErr, "a rejected create must not have reached the driver")
}

// TestCreateNodeRejectsEmptyID is the simpler half of §4.2's
// constraint-enforcement invariant: an empty id must never reach the
// driver, regardless of any complex property.
func TestCreateNodeRejectsEmptyID(t *testing.T) {
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[node](reg)
	require.NoError(t, err)

	fake := drivertest.New()
	cfg := &config.Config{Database: "neo4j", MaxPoolSize: 1, MaxComplexDepth: 5}
	store, err := graphstore.OpenWithOptions(context.Background(), fake, cfg, graphstore.WithRegistry(reg))
	require.NoError(t, err)
	g := store.Graph()

	err = graphstore.CreateNode(context.Background(), g, &node{ID: "", Value: 1})
	require.Error(t, err)
}
