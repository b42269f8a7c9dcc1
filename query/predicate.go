package query

// Eq builds a field == value predicate.
func Eq(field string, value any) Predicate { return Predicate{Field: field, Operator: OpEq, Value: value} }

// Neq builds a field != value predicate.
func Neq(field string, value any) Predicate {
	return Predicate{Field: field, Operator: OpNeq, Value: value}
}

// Lt builds a field < value predicate.
func Lt(field string, value any) Predicate { return Predicate{Field: field, Operator: OpLt, Value: value} }

// Lte builds a field <= value predicate.
func Lte(field string, value any) Predicate {
	return Predicate{Field: field, Operator: OpLte, Value: value}
}

// Gt builds a field > value predicate.
func Gt(field string, value any) Predicate { return Predicate{Field: field, Operator: OpGt, Value: value} }

// Gte builds a field >= value predicate.
func Gte(field string, value any) Predicate {
	return Predicate{Field: field, Operator: OpGte, Value: value}
}

// In builds a field IN values predicate.
func In(field string, values ...any) Predicate {
	return Predicate{Field: field, Operator: OpIn, Value: values}
}

// ContainsStr builds a string-contains predicate.
func ContainsStr(field, substr string) Predicate {
	return Predicate{Field: field, Operator: OpContainsStr, Value: substr}
}

// StartsWith builds a string-prefix predicate.
func StartsWith(field, prefix string) Predicate {
	return Predicate{Field: field, Operator: OpStartsWith, Value: prefix}
}

// EndsWith builds a string-suffix predicate.
func EndsWith(field, suffix string) Predicate {
	return Predicate{Field: field, Operator: OpEndsWith, Value: suffix}
}

// IsNull builds a field IS NULL predicate.
func IsNull(field string) Predicate { return Predicate{Field: field, Operator: OpIsNull} }

// IsNotNull builds a field IS NOT NULL predicate.
func IsNotNull(field string) Predicate { return Predicate{Field: field, Operator: OpIsNotNull} }

// And combines predicates with logical AND.
func And(preds ...Predicate) Predicate { return Predicate{And: preds} }

// Or combines predicates with logical OR.
func Or(preds ...Predicate) Predicate { return Predicate{Or: preds} }

// Not negates a predicate.
func Not(p Predicate) Predicate { return Predicate{Not: &p} }
