package serializer

import (
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"graphmodel/ogmerr"
	"graphmodel/schema"
)

// canonicalSimple converts a Go scalar value into the backend-neutral
// form carried in a statement's parameter map: decimals become their
// canonical string form (resolving Open Question 1 — string round trip
// beats float64 for exactness), times become RFC3339Nano strings,
// durations become nanosecond integers, and everything else passes
// through as-is.
func canonicalSimple(v reflect.Value) (any, error) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	iface := v.Interface()

	switch x := iface.(type) {
	case decimal.Decimal:
		return x.String(), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case time.Duration:
		return int64(x), nil
	case uuid.UUID:
		return x.String(), nil
	case url.URL:
		return x.String(), nil
	case schema.Point:
		return map[string]any{"x": x.X, "y": x.Y, "srid": x.SRID}, nil
	case []byte:
		return x, nil
	}
	return iface, nil
}

// uncanonicalSimple is the inverse of canonicalSimple, reconstructing a
// Go value of target's type from its wire-carried form.
func uncanonicalSimple(raw any, target reflect.Type) (reflect.Value, error) {
	bare := target
	ptr := bare.Kind() == reflect.Ptr
	if ptr {
		bare = bare.Elem()
	}

	if raw == nil {
		if ptr {
			return reflect.Zero(target), nil
		}
		return reflect.Zero(bare), nil
	}

	var out reflect.Value
	switch bare {
	case reflect.TypeOf(decimal.Decimal{}):
		s, ok := raw.(string)
		if !ok {
			return reflect.Value{}, ogmerr.Newf(ogmerr.Serialization, "expected string for decimal, got %T", raw)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return reflect.Value{}, ogmerr.Wrap(ogmerr.Serialization, err, "parsing decimal")
		}
		out = reflect.ValueOf(d)
	case reflect.TypeOf(time.Time{}):
		s, ok := raw.(string)
		if !ok {
			return reflect.Value{}, ogmerr.Newf(ogmerr.Serialization, "expected string for time, got %T", raw)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return reflect.Value{}, ogmerr.Wrap(ogmerr.Serialization, err, "parsing timestamp")
		}
		out = reflect.ValueOf(t)
	case reflect.TypeOf(time.Duration(0)):
		out = reflect.ValueOf(time.Duration(toInt64(raw)))
	case reflect.TypeOf(uuid.UUID{}):
		s, ok := raw.(string)
		if !ok {
			return reflect.Value{}, ogmerr.Newf(ogmerr.Serialization, "expected string for uuid, got %T", raw)
		}
		u, err := uuid.Parse(s)
		if err != nil {
			return reflect.Value{}, ogmerr.Wrap(ogmerr.Serialization, err, "parsing uuid")
		}
		out = reflect.ValueOf(u)
	case reflect.TypeOf(url.URL{}):
		s, ok := raw.(string)
		if !ok {
			return reflect.Value{}, ogmerr.Newf(ogmerr.Serialization, "expected string for url, got %T", raw)
		}
		u, err := url.Parse(s)
		if err != nil {
			return reflect.Value{}, ogmerr.Wrap(ogmerr.Serialization, err, "parsing url")
		}
		out = reflect.ValueOf(*u)
	case reflect.TypeOf(schema.Point{}):
		m, ok := raw.(map[string]any)
		if !ok {
			return reflect.Value{}, ogmerr.Newf(ogmerr.Serialization, "expected map for point, got %T", raw)
		}
		out = reflect.ValueOf(schema.Point{
			X:    toFloat64(m["x"]),
			Y:    toFloat64(m["y"]),
			SRID: int(toInt64(m["srid"])),
		})
	default:
		rv := reflect.ValueOf(raw)
		if !rv.Type().ConvertibleTo(bare) {
			return reflect.Value{}, ogmerr.Newf(ogmerr.Serialization, "cannot convert %T to %s", raw, bare)
		}
		out = rv.Convert(bare)
	}

	if ptr {
		p := reflect.New(bare)
		p.Elem().Set(out)
		return p, nil
	}
	return out, nil
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	default:
		return 0
	}
}

// CanonicalizeDynamic normalizes an arbitrary property value (as decoded
// straight off a driver record, with no registered Go type to guide it)
// into a stable map[string]any/[]any/scalar shape by round-tripping it
// through msgpack — the same normalization trick syssam-velox uses
// before comparing or hashing loosely-typed payloads. Used by dynamic
// (untyped) node/relationship reads, which have no PropertyDescriptor
// to decode against.
func CanonicalizeDynamic(v any) (any, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal: %w", err)
	}
	var out any
	if err := msgpack.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("msgpack unmarshal: %w", err)
	}
	return out, nil
}
