package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/mediatree/mediatree-server/internal/errors"
	"github.com/mediatree/mediatree-server/internal/media/files"
)

func (s *Server) registerMediaRoutes() {
	if s.media == nil {
		return
	}

	// Direct chi routes for media streaming; ServeContent handles ranges.
	s.router.Get("/api/v1/media/{file}", s.handleServeMedia)
	s.router.Get("/api/v1/media/{file}/thumbnail", s.handleServeThumbnail)
}

func (s *Server) handleServeMedia(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")

	f, info, err := s.media.Open(name)
	if err != nil {
		s.serveMediaError(w, name, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", files.MimeType(name))
	w.Header().Set("Cache-Control", CacheOneWeek)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// handleServeThumbnail leaves Content-Type to ServeContent, which sniffs it;
// thumbnails are not always encoded in their source's format.
func (s *Server) handleServeThumbnail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")

	f, info, err := s.media.OpenDerivative(name)
	if err != nil {
		s.serveMediaError(w, name, err)
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", CacheOneWeek)
	http.ServeContent(w, r, "", info.ModTime(), f)
}

func (s *Server) serveMediaError(w http.ResponseWriter, name string, err error) {
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		http.Error(w, "media not found", http.StatusNotFound)
		return
	}
	s.logger.Error("failed to open media", "file", name, "error", err)
	http.Error(w, "failed to open media", http.StatusInternalServerError)
}
