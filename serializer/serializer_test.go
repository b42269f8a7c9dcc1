package serializer_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmodel/schema"
	"graphmodel/serializer"
)

type address struct {
	City string `graph:"city"`
	Zip  string `graph:"zip"`
}

type employee struct {
	schema.NodeBase
	ID      string    `graph:",id"`
	Name    string    `graph:"name"`
	Tags    []string  `graph:"tags"`
	Home    address   `graph:"home"`
	Offices []address `graph:"offices"`
}

func TestSerializeRoundTrip(t *testing.T) {
	r := schema.NewRegistry(5)
	_, err := schema.RegisterNode[employee](r)
	require.NoError(t, err)

	in := &employee{
		ID:   "e1",
		Name: "Ada",
		Tags: []string{"eng", "lead"},
		Home: address{City: "London", Zip: "E1"},
		Offices: []address{
			{City: "London", Zip: "E1"},
			{City: "Paris", Zip: "75001"},
		},
	}

	e, err := serializer.Serialize(r, in)
	require.NoError(t, err)
	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, "Ada", e.Simple["name"])
	assert.ElementsMatch(t, []any{"eng", "lead"}, e.Simple["tags"])

	home, ok := e.Complex["home"]
	require.True(t, ok)
	require.NotNil(t, home.Entity)
	assert.Equal(t, "London", home.Entity.Simple["city"])

	offices, ok := e.Complex["offices"]
	require.True(t, ok)
	require.Len(t, offices.EntityColl, 2)

	out, err := serializer.Deserialize(r, e, reflect.TypeOf(employee{}))
	require.NoError(t, err)
	got := out.(*employee)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.Name, got.Name)
	assert.ElementsMatch(t, in.Tags, got.Tags)
	assert.Equal(t, in.Home, got.Home)
	assert.Equal(t, in.Offices, got.Offices)
}
