package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/mediatree/mediatree-server/internal/config"
	"github.com/mediatree/mediatree-server/internal/logger"
	"github.com/mediatree/mediatree-server/internal/service"
	"github.com/mediatree/mediatree-server/internal/watcher"
)

// FileWatcherHandle wraps the metadata watcher with shutdown capability.
// Watcher is nil when watching is disabled.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideFileWatcher provides the watcher that reloads the document when the
// metadata file is changed by another process.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	campaign := do.MustInvoke[*service.CampaignService](i)

	if !cfg.Storage.WatchMetadata {
		log.Info("Metadata watching disabled by configuration")
		return &FileWatcherHandle{}, nil
	}

	w, err := watcher.New(log.Logger, watcher.Options{IgnoreHidden: true})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(cfg.Storage.MetaFile); err != nil {
		return nil, err
	}

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	}()

	// Apply changes in background
	go campaign.Follow(ctx, w)

	log.Info("Watching metadata file", "path", cfg.Storage.MetaFile)

	return &FileWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
