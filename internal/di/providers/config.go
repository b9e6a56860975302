// Package providers contains dependency injection providers for the dragon server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/tsundokudragon/dragon-server/internal/config"
	"github.com/tsundokudragon/dragon-server/internal/logger"
	"github.com/tsundokudragon/dragon-server/internal/validation"
)

// ProvideConfig provides the application configuration.
// The load options must be registered as a value before the first invoke.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	opts := do.MustInvoke[config.LoadOptions](i)
	return config.Load(opts)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"store_backend", cfg.Store.Backend,
		"data_path", cfg.Store.DataPath,
	)

	return log, nil
}

// ProvideValidator provides the shared input validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
