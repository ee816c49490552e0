package service

import (
	"context"

	"github.com/mediatree/mediatree-server/internal/watcher"
)

// Follow reloads the document whenever w reports the metadata file was
// written, until ctx is canceled. Writes made by this process reload to an
// identical document and are ignored.
func (s *CampaignService) Follow(ctx context.Context, w *watcher.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.Errors():
			s.logger.Warn("metadata watcher error", "error", err)
		case ev := <-w.Events():
			if ev.Type != watcher.EventWritten {
				s.logger.Warn("metadata document removed; keeping in-memory copy", "path", ev.Path)
				continue
			}
			if _, err := s.Reload(ctx); err != nil {
				s.logger.Warn("failed to reload metadata document", "path", ev.Path, "error", err)
			}
		}
	}
}
