// Package providers contains dependency injection providers for the mediatree server.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/mediatree/mediatree-server/internal/config"
	"github.com/mediatree/mediatree-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	// Validate has already rejected unknown levels.
	level, _ := logger.ParseLevel(cfg.Logger.Level)

	log := logger.New(logger.Config{
		Level:       level,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting mediatree server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Storage.DataPath,
		"meta_file", cfg.Storage.MetaFile,
		"media_dir", cfg.Storage.MediaDir,
	)

	return log, nil
}
