package providers

import (
	"context"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/mediatree/mediatree-server/internal/config"
	"github.com/mediatree/mediatree-server/internal/logger"
	"github.com/mediatree/mediatree-server/internal/sse"
	"github.com/mediatree/mediatree-server/internal/store"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// ProvideStore provides the metadata document store.
func ProvideStore(i do.Injector) (*store.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	media := do.MustInvoke[*MediaStore](i)

	s, err := store.New(store.Config{
		Path:    cfg.Storage.MetaFile,
		Media:   media.Store,
		Emitter: sseHandle.Manager,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Document store ready", "path", s.Path())
	return s, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
