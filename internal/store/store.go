// Package store persists the campaign document and implements the
// consistency rules of the media tree: every mutating operation validates,
// applies the change to the given document, and rewrites the whole document.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/errors"
	"github.com/mediatree/mediatree-server/internal/media/classify"
)

const lockRetryDelay = 25 * time.Millisecond

// MediaRemover deletes a stored media file and its derivative.
// Implemented by files.Store; used only for cascading ad deletes.
type MediaRemover interface {
	Delete(storedPath string) error
}

// Config configures a Store.
type Config struct {
	// Path is the metadata document location (e.g. media_tree_data/meta.json).
	Path string

	// Media is optional. Without it cascading deletes only remove metadata.
	Media MediaRemover

	// Classifier drives statistics and tree categories. Defaults to
	// classify.Default().
	Classifier *classify.Classifier

	// Emitter receives a Change after every successful save.
	Emitter EventEmitter

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Store reads and writes the metadata document.
//
// Store holds no document state of its own; callers pass the document they
// loaded into each operation. Concurrent writers race and the last Save wins.
type Store struct {
	path       string
	lock       *flock.Flock
	media      MediaRemover
	classifier *classify.Classifier
	emitter    EventEmitter
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Store for the document at cfg.Path, creating its parent
// directory if needed. The document itself is not touched.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.Validation("metadata path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classify.Default()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = NoopEmitter{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store{
		path:       cfg.Path,
		lock:       flock.New(cfg.Path + ".lock"),
		media:      cfg.Media,
		classifier: cfg.Classifier,
		emitter:    cfg.Emitter,
		now:        cfg.Now,
		logger:     logger,
	}, nil
}

// Path returns the metadata document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted document. A missing or unreadable document yields
// the default seeded document; parse failures are logged at warn level and
// never returned.
func (s *Store) Load(ctx context.Context) *domain.Document {
	doc, err := s.LoadStrict(ctx)
	if err != nil {
		s.logger.Warn("metadata document unreadable, using defaults",
			"path", s.path,
			"error", err)
		return domain.DefaultDocument(s.now())
	}
	return doc
}

// LoadStrict is Load without the silent fallback: a missing document still
// yields defaults, but corrupt content is reported as errors.ErrCorrupt.
func (s *Store) LoadStrict(_ context.Context) (*domain.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("metadata document missing, using defaults", "path", s.path)
		return domain.DefaultDocument(s.now()), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeCorrupt, "read %s", s.path)
	}

	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeCorrupt, "parse %s", s.path)
	}
	return doc, nil
}

// Initialize writes the default document when none exists yet and returns
// the document now on disk (or its default fallback).
func (s *Store) Initialize(ctx context.Context) (*domain.Document, error) {
	if _, err := os.Stat(s.path); err == nil {
		return s.Load(ctx), nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat metadata document: %w", err)
	}

	doc := domain.DefaultDocument(s.now())
	if err := s.Save(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("initialized metadata document", "path", s.path)
	return doc, nil
}

// Save replaces the persisted document with doc. The document is written to
// a temporary file, synced, and renamed over the original while holding an
// advisory lock, so readers never observe a partial write.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encode metadata document: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock metadata document: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock metadata document: %w", ctx.Err())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release metadata lock", "error", err)
		}
	}()

	tmp := s.path + ".tmp"
	if err := writeSynced(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write metadata document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace metadata document: %w", err)
	}

	s.logger.Debug("metadata document saved",
		"path", s.path,
		"ad_sets", doc.AdSets.Len(),
		"ads", doc.AdCount())
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeDocument renders doc in the persisted form: indented JSON with
// non-ASCII and HTML characters left unescaped.
func EncodeDocument(doc *domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeDocument parses a persisted or imported document. Both the
// "campaign" and "ad_sets" keys must be present; otherwise a schema error is
// returned.
func DecodeDocument(data []byte) (*domain.Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.Wrap(err, errors.CodeSchema, "metadata is not a JSON object")
	}
	for _, key := range []string{"campaign", "ad_sets"} {
		if _, ok := top[key]; !ok {
			return nil, errors.Schemaf("metadata is missing the %q key", key)
		}
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeSchema, "invalid metadata document")
	}
	return &doc, nil
}

// save persists doc and announces the change.
func (s *Store) save(ctx context.Context, doc *domain.Document, change Change) error {
	if err := s.Save(ctx, doc); err != nil {
		return err
	}
	change.At = s.now()
	s.emitter.Emit(change)
	return nil
}
