// Package di provides dependency injection configuration for the mediatree server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/mediatree/mediatree-server/internal/backup"
	"github.com/mediatree/mediatree-server/internal/config"
	"github.com/mediatree/mediatree-server/internal/di/providers"
	"github.com/mediatree/mediatree-server/internal/logger"
	"github.com/mediatree/mediatree-server/internal/service"
	"github.com/mediatree/mediatree-server/internal/store"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideMediaStore)
	do.Provide(injector, providers.ProvideStore)

	// Business services
	do.Provide(injector, providers.ProvideBackupService)
	do.Provide(injector, providers.ProvideCampaignService)

	// Workers
	do.Provide(injector, providers.ProvideFileWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.MediaStore](injector)
	_ = do.MustInvoke[*store.Store](injector)
	_ = do.MustInvoke[*backup.BackupService](injector)

	if _, err := do.Invoke[*service.CampaignService](injector); err != nil {
		return err
	}

	// Workers
	_ = do.MustInvoke[*providers.FileWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
