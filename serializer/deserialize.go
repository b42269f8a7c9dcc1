package serializer

import (
	"reflect"

	"graphmodel/ogmerr"
	"graphmodel/schema"
)

// Deserialize reconstructs a Go value of requestedType from an Entity,
// resolving requestedType to the most-derived registered type that
// still matches the Entity's label when requestedType itself is a base
// type (§8 S3's "critical contract").
func Deserialize(reg *schema.Registry, e *Entity, requestedType reflect.Type) (any, error) {
	target := requestedType
	if len(e.Labels) > 0 {
		if derived, ok := reg.MostDerived(requestedType, e.Labels[0]); ok {
			target = derived
		}
	}

	s, ok := reg.SchemaOf(target)
	if !ok {
		return nil, ogmerr.Newf(ogmerr.NotFound, "type %s is not registered", target)
	}

	out := reflect.New(target).Elem()

	idField := out.FieldByIndex(s.IDField)
	if err := setField(idField, e.ID); err != nil {
		return nil, ogmerr.Wrap(ogmerr.Serialization, err, "setting id field")
	}

	if s.EntityKind == schema.EntityKindRelationship {
		if err := setField(out.FieldByIndex(s.StartIDField), e.StartID); err != nil {
			return nil, ogmerr.Wrap(ogmerr.Serialization, err, "setting start id field")
		}
		if err := setField(out.FieldByIndex(s.EndIDField), e.EndID); err != nil {
			return nil, ogmerr.Wrap(ogmerr.Serialization, err, "setting end id field")
		}
		if s.DirectionField != nil {
			if err := setField(out.FieldByIndex(s.DirectionField), schema.Direction(e.Direction)); err != nil {
				return nil, ogmerr.Wrap(ogmerr.Serialization, err, "setting direction field")
			}
		}
	}

	for _, p := range s.Properties {
		fv := out.FieldByIndex(p.FieldIndex)
		if err := deserializeProperty(reg, e, p, fv); err != nil {
			return nil, err
		}
	}

	return out.Addr().Interface(), nil
}

func setField(fv reflect.Value, val any) error {
	rv := reflect.ValueOf(val)
	if !rv.IsValid() {
		return nil
	}
	if !rv.Type().AssignableTo(fv.Type()) {
		if rv.Type().ConvertibleTo(fv.Type()) {
			rv = rv.Convert(fv.Type())
		} else {
			return ogmerr.Newf(ogmerr.Serialization, "cannot assign %T to %s", val, fv.Type())
		}
	}
	fv.Set(rv)
	return nil
}

func deserializeProperty(reg *schema.Registry, e *Entity, p schema.PropertyDescriptor, fv reflect.Value) error {
	switch p.Kind {
	case schema.KindSimple:
		if p.Carrier {
			sv, ok := e.Complex[p.NameOnWire]
			if !ok {
				return nil
			}
			return assignSimple(fv, sv.Simple, p.IsNullable)
		}
		raw, ok := e.Simple[p.NameOnWire]
		if !ok {
			return nil
		}
		return assignSimple(fv, raw, p.IsNullable)

	case schema.KindSimpleCollection:
		var raw []any
		if p.Carrier {
			sv, ok := e.Complex[p.NameOnWire]
			if !ok {
				return nil
			}
			raw = sv.SimpleColl
		} else {
			v, ok := e.Simple[p.NameOnWire]
			if !ok {
				return nil
			}
			raw, _ = v.([]any)
		}
		return assignSimpleCollection(fv, raw, p)

	case schema.KindComplex:
		sv, ok := e.Complex[p.NameOnWire]
		if !ok || sv.Entity == nil {
			return nil
		}
		sub, err := deserializeComplexValue(reg, sv.Entity, fv.Type())
		if err != nil {
			return err
		}
		assignComplexValue(fv, sub)
		return nil

	case schema.KindComplexCollection:
		sv, ok := e.Complex[p.NameOnWire]
		if !ok {
			return nil
		}
		elemType := p.ElementType
		slice := reflect.MakeSlice(derefSliceType(fv.Type()), 0, len(sv.EntityColl))
		for _, sub := range sv.EntityColl {
			val, err := deserializeComplexValue(reg, sub, elemType)
			if err != nil {
				return err
			}
			slice = reflect.Append(slice, val)
		}
		assignSliceValue(fv, slice)
		return nil
	}
	return nil
}

func derefSliceType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func assignSimple(fv reflect.Value, raw any, nullable bool) error {
	target := fv.Type()
	v, err := uncanonicalSimple(raw, target)
	if err != nil {
		return err
	}
	if !v.IsValid() {
		return nil
	}
	fv.Set(v)
	return nil
}

func assignSimpleCollection(fv reflect.Value, raw []any, p schema.PropertyDescriptor) error {
	sliceType := derefSliceType(fv.Type())
	out := reflect.MakeSlice(sliceType, len(raw), len(raw))
	for i, rv := range raw {
		v, err := uncanonicalSimple(rv, sliceType.Elem())
		if err != nil {
			return err
		}
		if v.IsValid() {
			out.Index(i).Set(v)
		}
	}
	assignSliceValue(fv, out)
	return nil
}

func assignSliceValue(fv reflect.Value, slice reflect.Value) {
	if fv.Kind() == reflect.Ptr {
		p := reflect.New(fv.Type().Elem())
		p.Elem().Set(slice)
		fv.Set(p)
		return
	}
	fv.Set(slice)
}

func assignComplexValue(fv reflect.Value, v reflect.Value) {
	if fv.Kind() == reflect.Ptr {
		p := reflect.New(fv.Type().Elem())
		p.Elem().Set(v)
		fv.Set(p)
		return
	}
	fv.Set(v)
}

// deserializeComplexValue reconstructs an unregistered complex-property
// struct value of type t from a carrier Entity.
func deserializeComplexValue(reg *schema.Registry, e *Entity, t reflect.Type) (reflect.Value, error) {
	bare := derefSliceType(t)
	out := reflect.New(bare).Elem()

	for i := 0; i < bare.NumField(); i++ {
		f := bare.Field(i)
		if !f.IsExported() {
			continue
		}
		tg := parseComplexFieldTag(f)
		if tg.skip {
			continue
		}
		kind, _, nullable, ok := schema.Classify(f.Type, 5)
		if !ok {
			continue
		}
		desc := schemaDescriptorFor(f, tg, kind, nullable)
		if err := deserializeProperty(reg, e, desc, out.Field(i)); err != nil {
			return reflect.Value{}, err
		}
	}
	return out, nil
}
