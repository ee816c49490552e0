// Package files stores uploaded media under generated names and keeps their
// thumbnails next to them in a separate directory.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	domainerrors "github.com/mediatree/mediatree-server/internal/errors"
	"github.com/mediatree/mediatree-server/internal/id"
	"github.com/mediatree/mediatree-server/internal/media/classify"
	"github.com/mediatree/mediatree-server/internal/media/images"
)

// ThumbPrefix prefixes the name of every derivative.
const ThumbPrefix = "thumb_"

const defaultMimeType = "application/octet-stream"

// mimeTypes covers the allow-list so results do not depend on the host's
// mime database.
var mimeTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"m4v":  "video/x-m4v",
	"flv":  "video/x-flv",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"aac":  "audio/aac",
	"m4a":  "audio/mp4",
}

// Deriver produces a thumbnail for a stored file.
type Deriver interface {
	Derive(ctx context.Context, srcPath string, category classify.Category, dstPath string) (*images.Derivative, error)
}

// Stored describes a file written by Save.
type Stored struct {
	Name     string
	Path     string
	MimeType string
	Category classify.Category
	BlurHash string
	Size     int64
}

// Store manages media files on disk.
// Thread-safe for concurrent operations.
type Store struct {
	mediaDir   string
	thumbDir   string
	classifier *classify.Classifier
	deriver    Deriver
	logger     *slog.Logger
	mu         sync.RWMutex
}

// Config configures a Store. Deriver may be nil to disable thumbnails.
type Config struct {
	MediaDir   string
	ThumbDir   string
	Classifier *classify.Classifier
	Deriver    Deriver
}

// New creates a Store, creating both directories if needed.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.MediaDir == "" {
		return nil, fmt.Errorf("media directory cannot be empty")
	}
	if cfg.ThumbDir == "" {
		return nil, fmt.Errorf("thumbnail directory cannot be empty")
	}
	for _, dir := range []string{cfg.MediaDir, cfg.ThumbDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if cfg.Classifier == nil {
		cfg.Classifier = classify.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		mediaDir:   cfg.MediaDir,
		thumbDir:   cfg.ThumbDir,
		classifier: cfg.Classifier,
		deriver:    cfg.Deriver,
		logger:     logger,
	}, nil
}

// MediaDir returns the directory holding primary files.
func (s *Store) MediaDir() string {
	return s.mediaDir
}

// Save writes data under a fresh name keeping originalFilename's extension.
// Images and audio get a derivative when the Deriver can produce one; a
// failed derivative is logged and does not fail the save.
func (s *Store) Save(ctx context.Context, data []byte, originalFilename string) (*Stored, error) {
	if !s.classifier.IsAllowed(originalFilename) {
		return nil, domainerrors.UnsupportedTypef("file type %q is not allowed (allowed: %s)",
			classify.Extension(originalFilename), strings.Join(s.classifier.Allowed(), ", "))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := id.FileToken() + filepath.Ext(originalFilename)
	path := filepath.Join(s.mediaDir, name)
	category := s.classifier.CategoryOf(originalFilename)

	s.mu.Lock()
	err := os.WriteFile(path, data, 0o644)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to write media file: %w", err)
	}

	stored := &Stored{
		Name:     name,
		Path:     path,
		MimeType: MimeType(originalFilename),
		Category: category,
		Size:     int64(len(data)),
	}

	if s.deriver != nil && (category == classify.CategoryImage || category == classify.CategoryAudio) {
		s.derive(ctx, stored)
	}

	s.logger.Info("media saved",
		"name", name,
		"original", originalFilename,
		"category", category.String(),
		"size", stored.Size)

	return stored, nil
}

func (s *Store) derive(ctx context.Context, stored *Stored) {
	dst := filepath.Join(s.thumbDir, ThumbPrefix+stored.Name)

	s.mu.Lock()
	d, err := s.deriver.Derive(ctx, stored.Path, stored.Category, dst)
	s.mu.Unlock()

	switch {
	case errors.Is(err, images.ErrNoDerivative):
		s.logger.Debug("no derivative", "name", stored.Name)
	case err != nil:
		s.logger.Warn("failed to create thumbnail", "name", stored.Name, "error", err)
	default:
		stored.BlurHash = d.BlurHash
	}
}

// DerivativePath returns the thumbnail path for storedPath if one exists.
// It never creates a derivative.
func (s *Store) DerivativePath(storedPath string) (string, bool) {
	if storedPath == "" {
		return "", false
	}
	path := filepath.Join(s.thumbDir, ThumbPrefix+filepath.Base(storedPath))

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Exists reports whether storedPath refers to an existing file.
func (s *Store) Exists(storedPath string) bool {
	if storedPath == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(storedPath)
	return err == nil && !info.IsDir()
}

// Delete removes the primary file and its derivative. Files that are already
// gone are not an error. Paths outside the media directory are refused with
// errors.ErrValidation.
func (s *Store) Delete(storedPath string) error {
	if storedPath == "" {
		return nil
	}
	if !Contains(s.mediaDir, storedPath) {
		return domainerrors.Validationf("media path %q is outside the media directory", storedPath)
	}
	thumb := filepath.Join(s.thumbDir, ThumbPrefix+filepath.Base(storedPath))

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, path := range []string{storedPath, thumb} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// Open opens a primary file by its stored name for serving.
func (s *Store) Open(name string) (io.ReadSeekCloser, os.FileInfo, error) {
	return s.open(s.mediaDir, name)
}

// OpenDerivative opens the thumbnail of a stored name for serving.
func (s *Store) OpenDerivative(name string) (io.ReadSeekCloser, os.FileInfo, error) {
	return s.open(s.thumbDir, ThumbPrefix+name)
}

func (s *Store) open(dir, name string) (io.ReadSeekCloser, os.FileInfo, error) {
	// Only bare names; anything with a separator could escape dir.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, nil, domainerrors.NotFoundf("media %q not found", name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, domainerrors.NotFoundf("media %q not found", name)
		}
		return nil, nil, fmt.Errorf("failed to open media: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat media: %w", err)
	}
	return f, info, nil
}

// Contains reports whether p names an entry strictly inside dir once both are
// made absolute and cleaned.
func Contains(dir, p string) bool {
	if dir == "" || p == "" {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// MimeType returns the MIME type for filename's extension, falling back to
// application/octet-stream.
func MimeType(filename string) string {
	ext := classify.Extension(filename)
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension("." + ext); t != "" {
		return t
	}
	return defaultMimeType
}
