// Package graphstore implements component C7, the public facade over
// the whole OGM: Store opens a connection pool and owns the type
// registry; Graph (obtained from a Store) exposes the CRUD and query
// entry points application code actually calls.
//
// Grounded on infrastructure/di/wire.go's Container/SuperSet shape for
// Open's construction order (config -> driver -> execution layer ->
// facade) and on application/ports/repositories.go for the verb set
// (Get/List/Create/Update/Delete) the facade's methods generalize from
// fixed repository methods into generic, type-parameterized ones.
package graphstore

import (
	"context"

	"graphmodel/config"
	"graphmodel/driver"
	"graphmodel/exec"
	"graphmodel/log"
	"graphmodel/ogmerr"
	"graphmodel/query"
	"graphmodel/query/cypher"
	"graphmodel/schema"
)

// Store owns a driver connection pool, a type registry and a compiler.
// A Store is safe for concurrent use; Graph values borrowed from it
// share the same pool.
type Store struct {
	driver   driver.Driver
	database string
	registry *schema.Registry
	compiler *cypher.Compiler
	execLyr  *exec.Layer
	logger   log.Logger
}

// OpenOption configures Open.
type OpenOption func(*Store)

// WithRegistry overrides the default registry (schema.Default), useful
// for test isolation so tests don't pollute the process-wide registry.
func WithRegistry(r *schema.Registry) OpenOption {
	return func(s *Store) { s.registry = r }
}

// WithLogger overrides the no-op default logger.
func WithLogger(l log.Logger) OpenOption {
	return func(s *Store) { s.logger = l }
}

// Open connects drv (an already-constructed driver.Driver, typically
// wrapping a Bolt connection pool) and verifies connectivity before
// returning, the same fail-fast shape as the teacher's
// InitializeContainer wiring order.
func Open(ctx context.Context, drv driver.Driver, cfg *config.Config) (*Store, error) {
	if err := drv.Verify(ctx); err != nil {
		return nil, ogmerr.Wrap(ogmerr.Transport, err, "verifying driver connectivity")
	}

	s := &Store{
		driver:   drv,
		database: cfg.Database,
		registry: schema.Default,
		logger:   log.Nop,
	}
	s.compiler = cypher.New(s.registry)
	s.execLyr = exec.New(s.driver, s.database, exec.WithLogger(s.logger))
	return s, nil
}

// OpenWithOptions is Open plus functional options, split out so Open's
// signature stays stable for the common case (mirrors the teacher's
// layered config-then-override constructors).
func OpenWithOptions(ctx context.Context, drv driver.Driver, cfg *config.Config, opts ...OpenOption) (*Store, error) {
	s, err := Open(ctx, drv, cfg)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(s)
	}
	s.compiler = cypher.New(s.registry)
	s.execLyr = exec.New(s.driver, s.database, exec.WithLogger(s.logger))
	return s, nil
}

// Close releases the underlying driver's resources.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Registry exposes the store's type registry, e.g. for RegisterNode
// calls scoped to this store rather than the process-wide default.
func (s *Store) Registry() *schema.Registry { return s.registry }

// Graph returns the query/mutation facade bound to this store.
func (s *Store) Graph() *Graph {
	return &Graph{store: s}
}

// Graph is the day-to-day entry point: CRUD operations and query
// builder roots, all scoped to one Store's registry/compiler/executor.
type Graph struct {
	store *Store
}

// BeginTx starts an explicit, caller-managed transaction (§5 "scoped
// resource, guaranteed release on every exit path").
func (g *Graph) BeginTx(ctx context.Context) (*exec.Transaction, error) {
	return g.store.execLyr.BeginTx(ctx)
}

// Nodes starts a typed node query rooted at T.
func Nodes[T any](g *Graph) query.NodeQuery[T] {
	return query.NewNodeQuery[T](g.store.compiler, g.store.execLyr)
}

// Relationships starts a typed relationship query rooted at R.
func Relationships[R any](g *Graph) query.RelationshipQuery[R] {
	return query.NewRelationshipQuery[R](g.store.compiler, g.store.execLyr)
}
