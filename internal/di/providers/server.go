package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/mediatree/mediatree-server/internal/api"
	"github.com/mediatree/mediatree-server/internal/config"
	"github.com/mediatree/mediatree-server/internal/logger"
	"github.com/mediatree/mediatree-server/internal/service"
)

// Version is reported in the OpenAPI document. Set at build time.
var Version = "dev"

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	media := do.MustInvoke[*MediaStore](i)
	campaign := do.MustInvoke[*service.CampaignService](i)

	handler := api.NewServer(campaign, media.Store, sseHandle.Manager, api.Config{
		Version:             Version,
		MaxUploadBytes:      cfg.Media.MaxUploadBytes(),
		UploadRatePerMinute: cfg.Media.UploadRatePerMinute,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
