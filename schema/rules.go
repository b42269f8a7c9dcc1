package schema

import (
	"net/url"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"graphmodel/ogmerr"
)

// Point is a minimal geographic point value. No third-party geo type
// appeared anywhere in the retrieved pack (see DESIGN.md), so this is a
// plain struct, classified as Simple like the rest of §3's scalar list.
type Point struct {
	X, Y float64
	SRID int
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	uuidType     = reflect.TypeOf(uuid.UUID{})
	decimalType  = reflect.TypeOf(decimal.Decimal{})
	pointType    = reflect.TypeOf(Point{})
	urlType      = reflect.TypeOf(url.URL{})
	byteSliceTy  = reflect.TypeOf([]byte(nil))
)

// IsSimpleScalar reports whether t (after unwrapping one pointer level)
// is one of the §3 "Simple" scalar types: it does not look inside
// collections or complex structs.
func IsSimpleScalar(t reflect.Type) bool {
	t = deref(t)
	switch t {
	case timeType, durationType, uuidType, decimalType, pointType, urlType:
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	}
	if t == byteSliceTy {
		return true
	}
	// Enums: any named type whose underlying kind is an integer or string
	// (and which isn't otherwise one of the kinds above, already caught).
	return false
}

// IsCollectionOfSimple reports whether t is an array or slice of a
// simple element type. Maps of any shape, including map[T]struct{}
// sets, are rejected.
func IsCollectionOfSimple(t reflect.Type) (elem reflect.Type, ok bool) {
	t = deref(t)
	if t == byteSliceTy {
		return nil, false // []byte is itself simple, not a collection
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		e := t.Elem()
		if IsSimpleScalar(e) {
			return e, true
		}
	}
	return nil, false
}

// IsCollectionOfComplex reports whether t is an array/slice of a complex
// element type.
func IsCollectionOfComplex(t reflect.Type, maxDepth int) (elem reflect.Type, ok bool) {
	t = deref(t)
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		e := t.Elem()
		if IsComplex(e, maxDepth) {
			return e, true
		}
	}
	return nil, false
}

// IsComplex reports whether t is a user-defined product type eligible to
// be a complex property: a struct, not itself a node/relationship, not a
// simple scalar. t's own fields are not inspected; maxDepth only gates
// the check (a maxDepth of zero or less reports false).
func IsComplex(t reflect.Type, maxDepth int) bool {
	t = deref(t)
	if maxDepth <= 0 {
		return false
	}
	if IsSimpleScalar(t) {
		return false
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	if implementsNodeOrRelationship(t) {
		return false // forbidden: navigation properties are not complex properties
	}
	return true
}

func implementsNodeOrRelationship(t reflect.Type) bool {
	nodeIface := reflect.TypeOf((*NodeEntity)(nil)).Elem()
	relIface := reflect.TypeOf((*RelationshipEntity)(nil)).Elem()
	return t.Implements(nodeIface) || t.Implements(relIface)
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Classify determines the PropertyDescriptor Kind, element type and
// nullability for a struct field's type, per §3's property-shape rules.
func Classify(t reflect.Type, maxDepth int) (kind Kind, elem reflect.Type, nullable bool, ok bool) {
	nullable = t.Kind() == reflect.Ptr
	bare := deref(t)

	if IsSimpleScalar(bare) {
		return KindSimple, nil, nullable, true
	}
	if e, isColl := IsCollectionOfSimple(bare); isColl {
		return KindSimpleCollection, e, nullable, true
	}
	if e, isColl := IsCollectionOfComplex(bare, maxDepth); isColl {
		return KindComplexCollection, e, nullable, true
	}
	if IsComplex(bare, maxDepth) {
		return KindComplex, nil, nullable, true
	}
	return 0, nil, false, false
}

// HasReferenceCycle performs the §4.2 DFS cycle check over a complex
// object graph using a current-path set (reference equality), removing
// each pointer again on backtrack. No separate visited set is kept, so a
// shared reference is walked once per path that reaches it. Shared
// references (a DAG) are allowed; only a true cycle trips it.
func HasReferenceCycle(v reflect.Value, maxDepth int) bool {
	inPath := make(map[uintptr]bool)
	return hasCycle(v, inPath, maxDepth)
}

// EnforceConstraints checks the §4.2 structural invariants that must
// hold before a node or relationship is persisted: a non-empty id, for
// relationships non-empty start/end endpoint ids, and no reference
// cycle among the object's complex properties (§8 S6). v may be a
// pointer or the bare struct value; pointers are dereferenced.
func EnforceConstraints(s *Schema, v reflect.Value, maxDepth int) error {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ogmerr.New(ogmerr.InvalidInput, "object must not be nil")
		}
		v = v.Elem()
	}

	if isEmptyID(v, s.IDField) {
		return ogmerr.New(ogmerr.InvalidInput, "id must not be empty")
	}
	if s.EntityKind == EntityKindRelationship {
		if isEmptyID(v, s.StartIDField) {
			return ogmerr.New(ogmerr.InvalidInput, "relationship start id must not be empty")
		}
		if isEmptyID(v, s.EndIDField) {
			return ogmerr.New(ogmerr.InvalidInput, "relationship end id must not be empty")
		}
	}
	if HasReferenceCycle(v, maxDepth) {
		return ogmerr.New(ogmerr.InvalidInput, "object graph contains a reference cycle")
	}
	return nil
}

func isEmptyID(v reflect.Value, idx []int) bool {
	if idx == nil {
		return true
	}
	f := v.FieldByIndex(idx)
	return f.Kind() == reflect.String && f.String() == ""
}

func hasCycle(v reflect.Value, inPath map[uintptr]bool, depthLeft int) bool {
	if depthLeft <= 0 {
		return false
	}
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return false
		}
		ptr := v.Pointer()
		if inPath[ptr] {
			return true
		}
		inPath[ptr] = true
		defer delete(inPath, ptr)
		v = v.Elem()
	}

	t := v.Type()
	if IsSimpleScalar(t) {
		return false
	}
	if _, isColl := IsCollectionOfSimple(t); isColl {
		return false
	}

	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if !f.CanInterface() {
				continue
			}
			if hasCycle(f, inPath, depthLeft-1) {
				return true
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if hasCycle(v.Index(i), inPath, depthLeft-1) {
				return true
			}
		}
	}
	return false
}
