package schema

import (
	"reflect"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"graphmodel/ogmerr"
)

// Registry is the process-wide type-metadata store (component C1): it
// reflects registered Go types into Schema values, indexes labels, and
// resolves most-derived types for polymorphic reads.
//
// Mutation (Register*) takes a single coarse write lock, matching §5
// ("a single coarse lock around insert is acceptable"); lookups
// (LabelOf/TypeOf/MostDerived/CompatibleLabels) take the read lock and
// are safe under concurrent inserts. MostDerived additionally collapses
// concurrent cache misses for the same (target, label) pair through
// golang.org/x/sync/singleflight, so a burst of identical polymorphic
// reads pays for one reflection walk, not N.
type Registry struct {
	mu              sync.RWMutex
	byType          map[reflect.Type]*Schema
	byLabel         map[string][]reflect.Type
	maxComplexDepth int

	mdCache sync.Map // mdKey -> mdResult
	sf      singleflight.Group
}

type mdKey struct {
	target reflect.Type
	label  string
}

type mdResult struct {
	typ reflect.Type
	ok  bool
}

// NewRegistry creates an empty registry. maxComplexDepth bounds recursive
// complex-property introspection (default 5 per §4.2).
func NewRegistry(maxComplexDepth int) *Registry {
	if maxComplexDepth <= 0 {
		maxComplexDepth = 5
	}
	return &Registry{
		byType:          make(map[reflect.Type]*Schema),
		byLabel:         make(map[string][]reflect.Type),
		maxComplexDepth: maxComplexDepth,
	}
}

// Default is the process-wide registry used by graphstore.Open when no
// explicit Registry is supplied (RegisterNode/RegisterRelationship always
// take their registry as an argument) — the idiomatic "default instance"
// shape also used by this module's log package (log.Nop) and by
// stdlib-adjacent libraries such as prometheus's DefaultRegisterer.
var Default = NewRegistry(5)

// Option configures a single Register* call.
type Option func(*registerConfig)

type registerConfig struct {
	label       string
	extraLabels []string
}

// WithLabel sets the declared label (node label or relationship type
// name) instead of deriving it from the Go type name.
func WithLabel(label string) Option {
	return func(c *registerConfig) { c.label = label }
}

// WithExtraLabels adds additional static labels to a node (a node may
// carry more than one label per §3).
func WithExtraLabels(labels ...string) Option {
	return func(c *registerConfig) { c.extraLabels = append(c.extraLabels, labels...) }
}

// RegisterNode reflects T into the registry as a node type. T (or an
// embedded NodeBase) must satisfy NodeEntity.
func RegisterNode[T NodeEntity](r *Registry, opts ...Option) (*Schema, error) {
	var zero T
	t := reflect.TypeOf(zero)
	return r.registerType(t, EntityKindNode, opts)
}

// RegisterRelationship reflects T into the registry as a relationship
// type. T (or an embedded RelationshipBase) must satisfy
// RelationshipEntity.
func RegisterRelationship[T RelationshipEntity](r *Registry, opts ...Option) (*Schema, error) {
	var zero T
	t := reflect.TypeOf(zero)
	return r.registerType(t, EntityKindRelationship, opts)
}

func (r *Registry) registerType(t reflect.Type, kind EntityKind, opts []Option) (*Schema, error) {
	cfg := &registerConfig{}
	for _, o := range opts {
		o(cfg)
	}
	label := cfg.label
	if label == "" {
		var err error
		label, err = defaultLabel(t)
		if err != nil {
			return nil, err
		}
	}

	s, err := buildSchema(t, kind, label, cfg.extraLabels, r.maxComplexDepth)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[t] = s
	r.byLabel[label] = appendUnique(r.byLabel[label], t)
	return s, nil
}

func appendUnique(ts []reflect.Type, t reflect.Type) []reflect.Type {
	for _, existing := range ts {
		if existing == t {
			return ts
		}
	}
	return append(ts, t)
}

// MaxComplexDepth returns the configured recursive complex-property
// introspection bound (§4.2, default 5), for callers that need to cap
// their own recursive reads/writes of the carrier-relationship tree to
// the same depth the registry classified against.
func (r *Registry) MaxComplexDepth() int { return r.maxComplexDepth }

// SchemaOf returns the Schema for an already-registered Go type.
func (r *Registry) SchemaOf(t reflect.Type) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byType[t]
	return s, ok
}

// LabelOf returns the declared label for a type: its registered primary
// label if known, otherwise the type's bare short name.
func (r *Registry) LabelOf(t reflect.Type) (string, error) {
	r.mu.RLock()
	s, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return s.PrimaryLabel(), nil
	}
	return defaultLabel(t)
}

// TypeOf scans known types for one whose primary label matches, lazily
// from the caller's point of view (the registry itself is populated
// eagerly at Register* time, but this is the first point a given label
// string is resolved to a Go type).
func (r *Registry) TypeOf(label string) (reflect.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.byLabel[label]
	if !ok || len(ts) == 0 {
		return nil, ogmerr.Newf(ogmerr.NotFound, "no type registered for label %q", label)
	}
	return ts[0], nil
}

// MostDerived returns the type T such that T is assignable to target
// (via Go struct embedding, emulating inheritance) and label_of(T) ==
// label. Results are cached by (target, label); concurrent misses for
// the same key collapse into a single lookup via singleflight.
func (r *Registry) MostDerived(target reflect.Type, label string) (reflect.Type, bool) {
	key := mdKey{target: target, label: label}
	if v, ok := r.mdCache.Load(key); ok {
		res := v.(mdResult)
		return res.typ, res.ok
	}

	sfKey := target.String() + "|" + label
	v, _, _ := r.sf.Do(sfKey, func() (any, error) {
		r.mu.RLock()
		candidates := r.byLabel[label]
		r.mu.RUnlock()

		var best reflect.Type
		for _, c := range candidates {
			if isAssignable(c, target) {
				if best == nil || embeddingDepth(c) > embeddingDepth(best) {
					best = c
				}
			}
		}
		res := mdResult{typ: best, ok: best != nil}
		r.mdCache.Store(key, res)
		return res, nil
	})
	res := v.(mdResult)
	return res.typ, res.ok
}

// CompatibleLabels returns the label of target plus the labels of every
// known non-abstract type assignable to target — used by the compiler
// to build label disjunctions for polymorphic queries (§4.1, §4.5 Phase
// B).
func (r *Registry) CompatibleLabels(target reflect.Type) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for t, s := range r.byType {
		if isAssignable(t, target) {
			label := s.PrimaryLabel()
			if !seen[label] {
				seen[label] = true
				out = append(out, label)
			}
		}
	}
	if targetLabel, err := r.labelOfLocked(target); err == nil && !seen[targetLabel] {
		out = append(out, targetLabel)
	}
	return out
}

func (r *Registry) labelOfLocked(t reflect.Type) (string, error) {
	if s, ok := r.byType[t]; ok {
		return s.PrimaryLabel(), nil
	}
	return defaultLabel(t)
}

// isAssignable reports whether sub "is-a" super: either the same type,
// or super appears as an anonymous (embedded) field of sub, recursively.
func isAssignable(sub, super reflect.Type) bool {
	if sub == super {
		return true
	}
	if sub.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < sub.NumField(); i++ {
		f := sub.Field(i)
		if f.Anonymous && isAssignable(f.Type, super) {
			return true
		}
	}
	return false
}

// embeddingDepth measures how many anonymous-embedding hops t is from
// its deepest base, used to break ties in MostDerived in favor of the
// most-specific (most-derived) registered candidate.
func embeddingDepth(t reflect.Type) int {
	if t.Kind() != reflect.Struct {
		return 0
	}
	max := 0
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			if d := embeddingDepth(f.Type) + 1; d > max {
				max = d
			}
		}
	}
	return max
}

func defaultLabel(t reflect.Type) (string, error) {
	name := t.Name()
	if name == "" {
		return "", ogmerr.New(ogmerr.InvalidInput, "type has no usable name")
	}
	// Strip Go generic instantiation suffixes ("Box[int]" -> "Box"), the
	// Go-native analog of spec §4.1's "backtick generics stripped".
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name, nil
}
