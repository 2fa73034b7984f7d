//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/burugo/record"
)

// initializeApp creates the App with its dependencies.
func initializeApp(ctx context.Context, cfg *record.Config) (*App, func(), error) {
	wire.Build(
		provideLogger,
		provideResultCache,
		provideDatabase,
		provideUserModel,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
