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

type person struct {
	schema.NodeBase
	ID   string `graph:",id"`
	Name string `graph:"name"`
}

type manager struct {
	person
	TeamSize int `graph:"teamSize"`
}

func newTestStore(t *testing.T) (*graphstore.Store, *schema.Registry) {
	t.Helper()
	reg := schema.NewRegistry(5)
	_, err := schema.RegisterNode[person](reg)
	require.NoError(t, err)
	_, err = schema.RegisterNode[manager](reg)
	require.NoError(t, err)

	fake := drivertest.New()
	cfg := &config.Config{Database: "neo4j", MaxPoolSize: 1, MaxComplexDepth: 5}
	store, err := graphstore.OpenWithOptions(context.Background(), fake, cfg, graphstore.WithRegistry(reg))
	require.NoError(t, err)
	return store, reg
}

func TestCreateAndGetNode(t *testing.T) {
	store, _ := newTestStore(t)
	g := store.Graph()
	ctx := context.Background()

	in := &person{ID: "p1", Name: "Ada"}
	require.NoError(t, graphstore.CreateNode(ctx, g, in))

	out, err := graphstore.GetNode[person](ctx, g, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", out.Name)
}

// TestGetNodeResolvesMostDerivedType is the polymorphism contract: a
// node stored with label "manager" must come back as a *manager, with
// the fields it inherits from the embedded person type filled in.
func TestGetNodeResolvesMostDerivedType(t *testing.T) {
	store, _ := newTestStore(t)
	g := store.Graph()
	ctx := context.Background()

	in := &manager{person: person{ID: "m1", Name: "Grace"}, TeamSize: 5}
	require.NoError(t, graphstore.CreateNode(ctx, g, in))

	out, err := graphstore.GetNode[manager](ctx, g, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Grace", out.Name)
	assert.Equal(t, 5, out.TeamSize)
}

func TestUpdateAndDeleteNode(t *testing.T) {
	store, _ := newTestStore(t)
	g := store.Graph()
	ctx := context.Background()

	in := &person{ID: "p2", Name: "Ada"}
	require.NoError(t, graphstore.CreateNode(ctx, g, in))

	in.Name = "Ada Lovelace"
	require.NoError(t, graphstore.UpdateNode(ctx, g, in))

	out, err := graphstore.GetNode[person](ctx, g, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", out.Name)

	require.NoError(t, graphstore.DeleteNode(ctx, g, "p2", false))
	_, err = graphstore.GetNode[person](ctx, g, "p2")
	assert.Error(t, err)
}
