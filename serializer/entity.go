// Package serializer implements component C3: the conversion between
// registered Go objects and the wire shape a Cypher statement actually
// carries — simple properties as statement parameters, complex
// properties and collections-of-complex encoded as auxiliary
// "__PROPERTY__{field}__" carrier relationships per §4.3.
//
// Grounded on infrastructure/persistence/dynamodb/graph_repository.go's
// item-shaping (struct <-> wire map) and on syssam-velox's use of
// github.com/vmihailenco/msgpack/v5 to canonicalize arbitrary values
// before further processing.
package serializer

import "reflect"

// Entity is the intermediate, backend-agnostic representation of one
// node or relationship instance after Serialize: simple properties
// destined for the statement's parameter map, and complex properties
// destined for auxiliary carrier relationships.
type Entity struct {
	GoType reflect.Type
	Labels []string
	ID     string

	// Relationship-only.
	StartID   string
	EndID     string
	Direction string

	Simple  map[string]any
	Complex map[string]Serialized
}

// ValueKind tags what a Serialized value actually holds.
type ValueKind int

const (
	ValueSimple ValueKind = iota
	ValueSimpleCollection
	ValueEntity
	ValueEntityCollection
)

// Serialized is a tagged union over the four property shapes §3 defines
// for a complex (carrier-relationship-encoded) property.
type Serialized struct {
	Kind       ValueKind
	Simple     any
	SimpleColl []any
	Entity     *Entity
	EntityColl []*Entity
}

// CarrierRelType returns the reserved auxiliary relationship type used
// to store a complex property named field, per §4.3.
func CarrierRelType(field string) string {
	return "__PROPERTY__" + field + "__"
}

// FieldFromCarrierRelType reverses CarrierRelType, returning ok=false if
// relType isn't a carrier relationship type.
func FieldFromCarrierRelType(relType string) (field string, ok bool) {
	const prefix, suffix = "__PROPERTY__", "__"
	if len(relType) < len(prefix)+len(suffix) {
		return "", false
	}
	if relType[:len(prefix)] != prefix || relType[len(relType)-len(suffix):] != suffix {
		return "", false
	}
	return relType[len(prefix) : len(relType)-len(suffix)], true
}
