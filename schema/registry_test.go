package schema_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestRegisterNodeDerivesLabel(t *testing.T) {
	r := schema.NewRegistry(5)
	s, err := schema.RegisterNode[person](r)
	require.NoError(t, err)
	assert.Equal(t, "person", s.PrimaryLabel())
}

func TestMostDerivedPrefersSubtype(t *testing.T) {
	r := schema.NewRegistry(5)
	_, err := schema.RegisterNode[person](r)
	require.NoError(t, err)
	_, err = schema.RegisterNode[manager](r)
	require.NoError(t, err)

	target := reflect.TypeOf(person{})

	derived, ok := r.MostDerived(target, "manager")
	require.True(t, ok)
	assert.Equal(t, "manager", derived.Name())
}

func TestCompatibleLabelsIncludesSubtypes(t *testing.T) {
	r := schema.NewRegistry(5)
	_, err := schema.RegisterNode[person](r)
	require.NoError(t, err)
	_, err = schema.RegisterNode[manager](r)
	require.NoError(t, err)

	labels := r.CompatibleLabels(reflect.TypeOf(person{}))
	assert.Contains(t, labels, "person")
	assert.Contains(t, labels, "manager")
}
