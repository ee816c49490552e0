package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mediatree/mediatree-server/internal/backup"
	"github.com/mediatree/mediatree-server/internal/config"
	"github.com/mediatree/mediatree-server/internal/logger"
	"github.com/mediatree/mediatree-server/internal/media/files"
	"github.com/mediatree/mediatree-server/internal/media/images"
	"github.com/mediatree/mediatree-server/internal/service"
	"github.com/mediatree/mediatree-server/internal/store"
)

type rootFlags struct {
	dataPath string
	envFile  string
	logLevel string
	json     bool
}

type commandContext struct {
	flags *rootFlags

	once    sync.Once
	config  *config.Config
	service *service.CampaignService
	err     error
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	overrides := config.Overrides{config.EnvLogLevel: c.flags.logLevel}
	if c.flags.dataPath != "" {
		overrides[config.EnvDataPath] = c.flags.dataPath
	}
	return config.Resolve(overrides, c.flags.envFile)
}

// campaign opens the document under the configured data path, seeding the
// defaults when none exists yet.
func (c *commandContext) campaign(cmd *cobra.Command) (*service.CampaignService, error) {
	c.once.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.err = err
			return
		}
		c.config = cfg

		level, _ := logger.ParseLevel(cfg.Logger.Level)
		log := logger.New(logger.Config{
			Writer:      cmd.ErrOrStderr(),
			Level:       level,
			Environment: cfg.App.Environment,
		})

		media, err := files.New(files.Config{
			MediaDir: cfg.Storage.MediaDir,
			ThumbDir: cfg.Storage.ThumbDir,
			Deriver:  images.NewThumbnailer(cfg.Media.ThumbWidth, cfg.Media.ThumbHeight, log.Logger),
		}, log.Logger)
		if err != nil {
			c.err = err
			return
		}

		s, err := store.New(store.Config{Path: cfg.Storage.MetaFile, Media: media}, log.Logger)
		if err != nil {
			c.err = err
			return
		}

		backups := backup.NewBackupService(s, cfg.Storage.BackupDir, cfg.Storage.MediaDir, log.Logger)

		c.service, c.err = service.NewCampaignService(commandCtx(cmd), service.Config{
			Store:   s,
			Media:   media,
			Backups: backups,
		}, log.Logger)
	})
	return c.service, c.err
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openOutput opens path for writing, or returns stdout for "" and "-".
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
