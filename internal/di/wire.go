//go:build wireinject
// +build wireinject

// Package di wires together a graphstore.Store from configuration,
// using google/wire the same way infrastructure/di/wire.go builds its
// Container: a provider set plus one generated injector function. Run
// `wire ./internal/di` to regenerate wire_gen.go after changing
// ProviderSet.
package di

import (
	"context"

	"github.com/google/wire"

	"graphmodel/config"
	"graphmodel/driver"
	"graphmodel/graphstore"
)

// ProviderSet is the full set of constructors wire needs to assemble a
// Store from a Config and a caller-supplied Driver (the Driver itself
// is left out of the set, same as the teacher leaves its DynamoDB
// client construction to an explicit provider, since it depends on
// secrets the injector shouldn't hardcode).
var ProviderSet = wire.NewSet(
	graphstore.OpenWithOptions,
)

// InitializeStore builds a *graphstore.Store from a Config and an
// already-constructed Driver.
func InitializeStore(ctx context.Context, drv driver.Driver, cfg *config.Config) (*graphstore.Store, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
