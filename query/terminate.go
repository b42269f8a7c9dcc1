package query

import (
	"context"

	"graphmodel/ogmerr"
)

// terminalRun compiles tree and runs it against exec, returning the raw
// decoded rows for a terminator to interpret.
func terminalRun(ctx context.Context, compiler Compiler, exec Executor, tree Tree, extra ...Op) (Rows, error) {
	for _, op := range extra {
		tree = tree.appended(op)
	}
	compiled, err := compiler.Compile(tree)
	if err != nil {
		return nil, err
	}
	return exec.Run(ctx, compiled)
}

// ToSlice executes the query and decodes every row with decode.
func ToSlice[T any](ctx context.Context, q NodeQuery[T], decode func(map[string]any) (T, error)) ([]T, error) {
	rows, err := terminalRun(ctx, q.compiler, q.exec, q.tree)
	if err != nil {
		return nil, err
	}
	defer rows.Close(ctx)

	var out []T
	for {
		rec, ok, err := rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		v, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// First returns the first matching element, or a NotFound error if none
// match.
func First[T any](ctx context.Context, q NodeQuery[T], decode func(map[string]any) (T, error)) (T, error) {
	var zero T
	rows, err := terminalRun(ctx, q.compiler, q.exec, q.tree, Op{Kind: OpFirst, Count: 1})
	if err != nil {
		return zero, err
	}
	defer rows.Close(ctx)

	rec, ok, err := rows.Next(ctx)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ogmerr.New(ogmerr.NotFound, "no matching element")
	}
	return decode(rec)
}

// Single returns the sole matching element, or ConstraintViolation if
// more than one match exists.
func Single[T any](ctx context.Context, q NodeQuery[T], decode func(map[string]any) (T, error)) (T, error) {
	var zero T
	rows, err := terminalRun(ctx, q.compiler, q.exec, q.tree, Op{Kind: OpSingle, Count: 2})
	if err != nil {
		return zero, err
	}
	defer rows.Close(ctx)

	rec, ok, err := rows.Next(ctx)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ogmerr.New(ogmerr.NotFound, "no matching element")
	}
	if _, ok2, err := rows.Next(ctx); err != nil {
		return zero, err
	} else if ok2 {
		return zero, ogmerr.New(ogmerr.ConstraintViolation, "more than one matching element")
	}
	return decode(rec)
}

// Any reports whether at least one element matches.
func Any[T any](ctx context.Context, q NodeQuery[T]) (bool, error) {
	rows, err := terminalRun(ctx, q.compiler, q.exec, q.tree, Op{Kind: OpAny, Count: 1})
	if err != nil {
		return false, err
	}
	defer rows.Close(ctx)
	_, ok, err := rows.Next(ctx)
	return ok, err
}

// All reports whether every element matches p, by negating and checking
// for absence of a counter-example.
func All[T any](ctx context.Context, q NodeQuery[T], p Predicate) (bool, error) {
	negQ := q.Where(Not(p))
	rows, err := terminalRun(ctx, negQ.compiler, negQ.exec, negQ.tree, Op{Kind: OpAll, Count: 1})
	if err != nil {
		return false, err
	}
	defer rows.Close(ctx)
	_, ok, err := rows.Next(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Count executes an aggregate count over the query.
func Count[T any](ctx context.Context, q NodeQuery[T]) (int64, error) {
	q2 := q.Aggregate("count")
	rows, err := terminalRun(ctx, q2.compiler, q2.exec, q2.tree)
	if err != nil {
		return 0, err
	}
	defer rows.Close(ctx)
	rec, ok, err := rows.Next(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	switch v := rec["count"].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, nil
	}
}

// ElementAt returns the element at the given zero-based index.
func ElementAt[T any](ctx context.Context, q NodeQuery[T], index int, decode func(map[string]any) (T, error)) (T, error) {
	var zero T
	q2 := q.Skip(index)
	rows, err := terminalRun(ctx, q2.compiler, q2.exec, q2.tree, Op{Kind: OpElementAt, Count: index})
	if err != nil {
		return zero, err
	}
	defer rows.Close(ctx)
	rec, ok, err := rows.Next(ctx)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ogmerr.Newf(ogmerr.NotFound, "no element at index %d", index)
	}
	return decode(rec)
}

// ToArray is ToSlice under the name the builder's to_array() terminator
// uses; Go has no fixed-size generic array return worth distinguishing
// from a slice here, so this is a direct alias.
func ToArray[T any](ctx context.Context, q NodeQuery[T], decode func(map[string]any) (T, error)) ([]T, error) {
	return ToSlice(ctx, q, decode)
}

// ToSet executes the query and de-duplicates results by whatever
// identity keyFn extracts (typically an element's id) — T itself need
// not be comparable, unlike a native Go map key.
func ToSet[T any, K comparable](ctx context.Context, q NodeQuery[T], decode func(map[string]any) (T, error), keyFn func(T) K) (map[K]T, error) {
	items, err := ToSlice(ctx, q, decode)
	if err != nil {
		return nil, err
	}
	out := make(map[K]T, len(items))
	for _, it := range items {
		out[keyFn(it)] = it
	}
	return out, nil
}

// ToDictionary executes the query and indexes results by keyFn,
// rejecting the result with ConstraintViolation if two elements share a
// key.
func ToDictionary[T any, K comparable](ctx context.Context, q NodeQuery[T], decode func(map[string]any) (T, error), keyFn func(T) K) (map[K]T, error) {
	items, err := ToSlice(ctx, q, decode)
	if err != nil {
		return nil, err
	}
	out := make(map[K]T, len(items))
	for _, it := range items {
		k := keyFn(it)
		if _, dup := out[k]; dup {
			return nil, ogmerr.New(ogmerr.ConstraintViolation, "duplicate key in ToDictionary")
		}
		out[k] = it
	}
	return out, nil
}

// Contains reports whether any element's id equals value.
func Contains[T any](ctx context.Context, q NodeQuery[T], value any) (bool, error) {
	rows, err := terminalRun(ctx, q.compiler, q.exec, q.tree, Op{Kind: OpContains, ContainsValue: value})
	if err != nil {
		return false, err
	}
	defer rows.Close(ctx)
	_, ok, err := rows.Next(ctx)
	return ok, err
}
