// Hand-written stand-in for the file Wire generates from wire.go.

//go:generate go run github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"context"

	"graphmodel/config"
	"graphmodel/driver"
	"graphmodel/graphstore"
)

// InitializeStore builds a *graphstore.Store from a Config and an
// already-constructed Driver. Hand-expanded from internal/di/wire.go's
// injector, the same generated-by-hand shape infrastructure/di relies
// on until `wire` is run in a build environment with network access.
func InitializeStore(ctx context.Context, drv driver.Driver, cfg *config.Config) (*graphstore.Store, error) {
	return graphstore.OpenWithOptions(ctx, drv, cfg)
}
