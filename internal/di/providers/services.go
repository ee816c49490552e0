package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/mediatree/mediatree-server/internal/backup"
	"github.com/mediatree/mediatree-server/internal/config"
	"github.com/mediatree/mediatree-server/internal/logger"
	"github.com/mediatree/mediatree-server/internal/service"
	"github.com/mediatree/mediatree-server/internal/store"
)

// ProvideBackupService provides the backup service.
func ProvideBackupService(i do.Injector) (*backup.BackupService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	s := do.MustInvoke[*store.Store](i)

	return backup.NewBackupService(s, cfg.Storage.BackupDir, cfg.Storage.MediaDir, log.Logger), nil
}

// ProvideCampaignService provides the campaign service, loading the
// document or seeding the defaults.
func ProvideCampaignService(i do.Injector) (*service.CampaignService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	s := do.MustInvoke[*store.Store](i)
	media := do.MustInvoke[*MediaStore](i)
	backups := do.MustInvoke[*backup.BackupService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	svc, err := service.NewCampaignService(context.Background(), service.Config{
		Store:   s,
		Media:   media.Store,
		Backups: backups,
		Emitter: sseHandle.Manager,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	stats := svc.Statistics()
	log.Info("Campaign loaded",
		"campaign", svc.Campaign().Name,
		"ad_sets", stats.TotalAdSets,
		"ads", stats.TotalAds,
	)

	return svc, nil
}
