package schema

import (
	"reflect"
	"strings"

	"graphmodel/ogmerr"
)

// tag is the parsed form of a `graph:"<wire_name>,<flags>"` struct tag.
// The flag vocabulary (id, start, end, direction, index, carrier, -)
// mirrors the attribute vocabulary spec §3/§4.1 describes, expressed the
// Go-native way: struct tags instead of attributes.
type tag struct {
	name      string
	skip      bool
	isID      bool
	isStart   bool
	isEnd     bool
	isDir     bool
	isIndex   bool
	isCarrier bool
}

func parseTag(field reflect.StructField) tag {
	raw, ok := field.Tag.Lookup("graph")
	t := tag{name: field.Name}
	if !ok {
		return t
	}
	parts := strings.Split(raw, ",")
	if parts[0] == "-" {
		t.skip = true
		return t
	}
	if parts[0] != "" {
		t.name = parts[0]
	}
	for _, flag := range parts[1:] {
		switch strings.TrimSpace(flag) {
		case "id":
			t.isID = true
		case "start":
			t.isStart = true
		case "end":
			t.isEnd = true
		case "direction":
			t.isDir = true
		case "index":
			t.isIndex = true
		case "carrier":
			t.isCarrier = true
		}
	}
	return t
}

// buildSchema reflects t's visible (embedding-flattened) fields into a
// Schema, classifying each by the C2 rules in rules.go.
func buildSchema(t reflect.Type, kind EntityKind, label string, extraLabels []string, maxDepth int) (*Schema, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, ogmerr.New(ogmerr.InvalidInput, "registered type must be a struct")
	}

	s := &Schema{
		GoType:     t,
		EntityKind: kind,
	}
	if kind == EntityKindNode {
		s.Labels = append([]string{label}, extraLabels...)
	} else {
		s.Labels = []string{label}
	}

	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		// reflect.VisibleFields lists both an anonymous embedded field
		// itself and, separately, the fields it promotes; walking the
		// promoted fields (which already carry the full Index path) is
		// enough, so the embedding markers themselves — NodeBase/
		// RelationshipBase included — are skipped here.
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			continue
		}

		tg := parseTag(f)
		if tg.skip {
			continue
		}

		idx := append([]int(nil), f.Index...)

		switch {
		case tg.isID:
			s.IDField = idx
			continue
		case tg.isStart && kind == EntityKindRelationship:
			s.StartIDField = idx
			continue
		case tg.isEnd && kind == EntityKindRelationship:
			s.EndIDField = idx
			continue
		case tg.isDir && kind == EntityKindRelationship:
			s.DirectionField = idx
			continue
		}

		pkind, elem, nullable, ok := Classify(f.Type, maxDepth)
		if !ok {
			return nil, ogmerr.Newf(ogmerr.Unsupported, "field %s.%s has an unsupported property shape %s", t.Name(), f.Name, f.Type)
		}
		if kind == EntityKindRelationship && (pkind == KindComplex || pkind == KindComplexCollection) {
			return nil, ogmerr.Newf(ogmerr.InvalidInput, "relationship type %s field %s: complex properties are forbidden on relationships", t.Name(), f.Name)
		}

		s.Properties = append(s.Properties, PropertyDescriptor{
			NameInCode:  f.Name,
			NameOnWire:  tg.name,
			Kind:        pkind,
			IsNullable:  nullable,
			IsIndexed:   tg.isIndex,
			Carrier:     tg.isCarrier,
			ElementType: elem,
			FieldIndex:  idx,
		})
	}

	if s.IDField == nil {
		return nil, ogmerr.Newf(ogmerr.InvalidInput, "type %s has no field tagged graph:\",id\"", t.Name())
	}
	if kind == EntityKindRelationship {
		if s.StartIDField == nil || s.EndIDField == nil {
			return nil, ogmerr.Newf(ogmerr.InvalidInput, "relationship type %s must tag start and end id fields", t.Name())
		}
	}

	return s, nil
}
