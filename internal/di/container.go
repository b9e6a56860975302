// Package di provides dependency injection configuration for the dragon server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/tsundokudragon/dragon-server/internal/config"
	"github.com/tsundokudragon/dragon-server/internal/di/providers"
)

// NewContainer creates and configures the DI container with all providers.
// Nothing is opened until the first invoke.
func NewContainer(opts config.LoadOptions) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, opts)

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Business services
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideBattleService)
	do.Provide(injector, providers.ProvideSkillService)

	return injector
}
