package serializer

import (
	"fmt"
	"reflect"

	"graphmodel/ogmerr"
	"graphmodel/schema"
)

// Serialize converts a registered Go object into its intermediate
// Entity form: simple properties bound for the statement parameter map,
// complex properties and collections-of-complex bound for auxiliary
// carrier relationships (§4.3).
func Serialize(reg *schema.Registry, obj any) (*Entity, error) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, ogmerr.New(ogmerr.InvalidInput, "cannot serialize a nil object")
		}
		v = v.Elem()
	}
	t := v.Type()

	s, ok := reg.SchemaOf(t)
	if !ok {
		return nil, ogmerr.Newf(ogmerr.InvalidInput, "type %s is not registered", t)
	}

	e := &Entity{
		GoType:  t,
		Labels:  s.Labels,
		Simple:  make(map[string]any),
		Complex: make(map[string]Serialized),
	}

	idVal := v.FieldByIndex(s.IDField)
	e.ID = fmt.Sprint(idVal.Interface())

	if s.EntityKind == schema.EntityKindRelationship {
		e.StartID = fmt.Sprint(v.FieldByIndex(s.StartIDField).Interface())
		e.EndID = fmt.Sprint(v.FieldByIndex(s.EndIDField).Interface())
		if s.DirectionField != nil {
			e.Direction = fmt.Sprint(v.FieldByIndex(s.DirectionField).Interface())
		} else {
			e.Direction = string(schema.Outgoing)
		}
	}

	for _, p := range s.Properties {
		fv := v.FieldByIndex(p.FieldIndex)
		if err := serializeProperty(reg, e, p, fv); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func serializeProperty(reg *schema.Registry, e *Entity, p schema.PropertyDescriptor, fv reflect.Value) error {
	if p.IsNullable && fv.Kind() == reflect.Ptr && fv.IsNil() {
		if p.Kind == schema.KindSimple && !p.Carrier {
			e.Simple[p.NameOnWire] = nil
		}
		return nil
	}

	switch p.Kind {
	case schema.KindSimple:
		sv, err := canonicalSimple(fv)
		if err != nil {
			return ogmerr.Wrap(ogmerr.Serialization, err, "serializing property "+p.NameInCode)
		}
		if p.Carrier {
			e.Complex[p.NameOnWire] = Serialized{Kind: ValueSimple, Simple: sv}
		} else {
			e.Simple[p.NameOnWire] = sv
		}

	case schema.KindSimpleCollection:
		bare := fv
		for bare.Kind() == reflect.Ptr {
			if bare.IsNil() {
				bare = reflect.Value{}
				break
			}
			bare = bare.Elem()
		}
		var out []any
		if bare.IsValid() {
			out = make([]any, bare.Len())
			for i := 0; i < bare.Len(); i++ {
				sv, err := canonicalSimple(bare.Index(i))
				if err != nil {
					return ogmerr.Wrap(ogmerr.Serialization, err, "serializing property "+p.NameInCode)
				}
				out[i] = sv
			}
		}
		if p.Carrier {
			e.Complex[p.NameOnWire] = Serialized{Kind: ValueSimpleCollection, SimpleColl: out}
		} else {
			e.Simple[p.NameOnWire] = out
		}

	case schema.KindComplex:
		bare := fv
		for bare.Kind() == reflect.Ptr {
			if bare.IsNil() {
				return nil
			}
			bare = bare.Elem()
		}
		sub, err := serializeComplexValue(reg, bare)
		if err != nil {
			return ogmerr.Wrap(ogmerr.Serialization, err, "serializing property "+p.NameInCode)
		}
		e.Complex[p.NameOnWire] = Serialized{Kind: ValueEntity, Entity: sub}

	case schema.KindComplexCollection:
		bare := fv
		for bare.Kind() == reflect.Ptr {
			if bare.IsNil() {
				bare = reflect.Value{}
				break
			}
			bare = bare.Elem()
		}
		var coll []*Entity
		if bare.IsValid() {
			coll = make([]*Entity, bare.Len())
			for i := 0; i < bare.Len(); i++ {
				el := bare.Index(i)
				for el.Kind() == reflect.Ptr {
					el = el.Elem()
				}
				sub, err := serializeComplexValue(reg, el)
				if err != nil {
					return ogmerr.Wrap(ogmerr.Serialization, err, "serializing property "+p.NameInCode)
				}
				coll[i] = sub
			}
		}
		e.Complex[p.NameOnWire] = Serialized{Kind: ValueEntityCollection, EntityColl: coll}

	default:
		return ogmerr.Newf(ogmerr.Unsupported, "unsupported property kind for %s", p.NameInCode)
	}
	return nil
}

// serializeComplexValue builds a carrier Entity for an unregistered
// struct value (a complex property, not itself a node/relationship
// type) by walking its exported fields directly, recursing for nested
// complex fields per §4.2's bounded-depth rule.
func serializeComplexValue(reg *schema.Registry, v reflect.Value) (*Entity, error) {
	t := v.Type()
	e := &Entity{
		GoType:  t,
		Simple:  make(map[string]any),
		Complex: make(map[string]Serialized),
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tg := parseComplexFieldTag(f)
		if tg.skip {
			continue
		}
		fv := v.Field(i)

		kind, _, nullable, ok := schema.Classify(f.Type, 5)
		if !ok {
			return nil, ogmerr.Newf(ogmerr.Unsupported, "field %s.%s has an unsupported property shape", t.Name(), f.Name)
		}
		desc := schemaDescriptorFor(f, tg, kind, nullable)
		if err := serializeProperty(reg, e, desc, fv); err != nil {
			return nil, err
		}
	}
	return e, nil
}

type complexFieldTag struct {
	name string
	skip bool
}

func parseComplexFieldTag(f reflect.StructField) complexFieldTag {
	raw, ok := f.Tag.Lookup("graph")
	t := complexFieldTag{name: f.Name}
	if !ok {
		return t
	}
	if raw == "-" {
		t.skip = true
		return t
	}
	if raw != "" {
		t.name = raw
	}
	return t
}

func schemaDescriptorFor(f reflect.StructField, tg complexFieldTag, kind schema.Kind, nullable bool) schema.PropertyDescriptor {
	_, elemType, _, _ := schema.Classify(f.Type, 5)
	return schema.PropertyDescriptor{
		NameInCode:  f.Name,
		NameOnWire:  tg.name,
		Kind:        kind,
		IsNullable:  nullable,
		ElementType: elemType,
	}
}
