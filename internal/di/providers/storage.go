package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/mediatree/mediatree-server/internal/config"
	"github.com/mediatree/mediatree-server/internal/logger"
	"github.com/mediatree/mediatree-server/internal/media/files"
	"github.com/mediatree/mediatree-server/internal/media/images"
)

// MediaStore holds uploaded media files and their thumbnails.
type MediaStore struct {
	*files.Store
}

// ProvideMediaStore provides the media file store with its thumbnailer.
func ProvideMediaStore(i do.Injector) (*MediaStore, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	thumbnailer := images.NewThumbnailer(cfg.Media.ThumbWidth, cfg.Media.ThumbHeight, log.Logger)

	store, err := files.New(files.Config{
		MediaDir: cfg.Storage.MediaDir,
		ThumbDir: cfg.Storage.ThumbDir,
		Deriver:  thumbnailer,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Media storage ready",
		"media_dir", cfg.Storage.MediaDir,
		"thumb_dir", cfg.Storage.ThumbDir,
		"thumb_size", fmt.Sprintf("%dx%d", cfg.Media.ThumbWidth, cfg.Media.ThumbHeight),
	)

	return &MediaStore{Store: store}, nil
}
