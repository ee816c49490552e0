// Package service holds the campaign document for long-running processes and
// serialises every operation on it.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/mediatree/mediatree-server/internal/backup"
	"github.com/mediatree/mediatree-server/internal/backup/export"
	"github.com/mediatree/mediatree-server/internal/domain"
	domainerrors "github.com/mediatree/mediatree-server/internal/errors"
	"github.com/mediatree/mediatree-server/internal/media/classify"
	"github.com/mediatree/mediatree-server/internal/media/files"
	"github.com/mediatree/mediatree-server/internal/store"
	"github.com/mediatree/mediatree-server/internal/tabular"
)

// CampaignService owns the in-memory document of one process. Every
// operation runs under a single mutex against the current document and
// persists through the store.
type CampaignService struct {
	store    *store.Store
	media    *files.Store
	backups  *backup.BackupService
	exporter *export.Exporter
	emitter  store.EventEmitter
	logger   *slog.Logger

	mu  sync.Mutex
	doc *domain.Document
}

// Config wires a CampaignService. Emitter receives reload notifications; the
// store announces its own saves.
type Config struct {
	Store   *store.Store
	Media   *files.Store
	Backups *backup.BackupService
	Emitter store.EventEmitter
}

// NewCampaignService loads (or initializes) the document and returns a
// service holding it.
func NewCampaignService(ctx context.Context, cfg Config, logger *slog.Logger) (*CampaignService, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Emitter == nil {
		cfg.Emitter = store.NoopEmitter{}
	}

	doc, err := cfg.Store.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document: %w", err)
	}

	return &CampaignService{
		store:    cfg.Store,
		media:    cfg.Media,
		backups:  cfg.Backups,
		exporter: export.New(cfg.Media.MediaDir(), logger),
		emitter:  cfg.Emitter,
		logger:   logger,
		doc:      doc,
	}, nil
}

// Document returns a deep copy of the current document.
func (s *CampaignService) Document() (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.doc)
}

func clone(doc *domain.Document) (*domain.Document, error) {
	data, err := store.EncodeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return store.DecodeDocument(data)
}

// Campaign returns the campaign settings.
func (s *CampaignService) Campaign() domain.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Campaign
}

// mutate runs fn against a copy of the current document and adopts the copy
// only when fn succeeds, so a rejected or unsaved change never lingers in
// memory. Callers hold s.mu.
func (s *CampaignService) mutate(fn func(work *domain.Document) error) error {
	work, err := clone(s.doc)
	if err != nil {
		return err
	}
	if err := fn(work); err != nil {
		return err
	}
	s.doc = work
	return nil
}

// SaveCampaign overwrites the campaign name and objective.
func (s *CampaignService) SaveCampaign(ctx context.Context, name, objective string) (domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.mutate(func(work *domain.Document) error {
		return s.store.SaveCampaign(ctx, work, name, objective)
	})
	if err != nil {
		return domain.Campaign{}, err
	}
	return s.doc.Campaign, nil
}

// ResetCampaign restores the default campaign settings.
func (s *CampaignService) ResetCampaign(ctx context.Context) (domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.mutate(func(work *domain.Document) error {
		return s.store.ResetCampaign(ctx, work)
	})
	if err != nil {
		return domain.Campaign{}, err
	}
	return s.doc.Campaign, nil
}

// CreateAdSet adds an empty ad set.
func (s *CampaignService) CreateAdSet(ctx context.Context, name, description string) (domain.AdSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created domain.AdSet
	err := s.mutate(func(work *domain.Document) error {
		set, err := s.store.CreateAdSet(ctx, work, name, description)
		if err != nil {
			return err
		}
		created = *set
		return nil
	})
	return created, err
}

// DeleteAdSet removes an empty ad set.
func (s *CampaignService) DeleteAdSet(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(func(work *domain.Document) error {
		return s.store.DeleteAdSet(ctx, work, name)
	})
}

// CreateAd adds an ad and returns it as stored.
func (s *CampaignService) CreateAd(ctx context.Context, adSetName string, fields domain.AdFields) (domain.Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createAd(ctx, adSetName, fields)
}

func (s *CampaignService) createAd(ctx context.Context, adSetName string, fields domain.AdFields) (domain.Ad, error) {
	var created domain.Ad
	err := s.mutate(func(work *domain.Document) error {
		adID, err := s.store.CreateAd(ctx, work, adSetName, fields)
		if err != nil {
			return err
		}
		ad, _ := work.Ad(adSetName, adID)
		created = *ad
		return nil
	})
	return created, err
}

// UpdateAd merges upd into an ad. The returned flag is false when the ad set
// or ad does not exist, in which case nothing changed.
func (s *CampaignService) UpdateAd(ctx context.Context, adSetName, adID string, upd domain.AdUpdate) (domain.Ad, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.mutate(func(work *domain.Document) error {
		return s.store.UpdateAd(ctx, work, adSetName, adID, upd)
	})
	if err != nil {
		return domain.Ad{}, false, err
	}
	ad, ok := s.doc.Ad(adSetName, adID)
	if !ok {
		return domain.Ad{}, false, nil
	}
	return *ad, true, nil
}

// DeleteAd removes an ad, optionally with its media file.
func (s *CampaignService) DeleteAd(ctx context.Context, adSetName, adID string, cascadeFile bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(func(work *domain.Document) error {
		return s.store.DeleteAd(ctx, work, adSetName, adID, cascadeFile)
	})
}

// MoveAd moves an ad between ad sets.
func (s *CampaignService) MoveAd(ctx context.Context, from, to, adID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(func(work *domain.Document) error {
		return s.store.MoveAd(ctx, work, from, to, adID)
	})
}

// BulkAddTags adds tags to every ad in an ad set and returns how many ads
// changed.
func (s *CampaignService) BulkAddTags(ctx context.Context, adSetName string, tags []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int
	err := s.mutate(func(work *domain.Document) error {
		n, err := s.store.BulkAddTags(ctx, work, adSetName, tags)
		changed = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// Upload stores data as a media file and creates an ad for it in adSetName.
// The ad set is checked first so a rejected upload leaves no file behind.
func (s *CampaignService) Upload(ctx context.Context, adSetName, filename string, data []byte, tags []string) (domain.Ad, error) {
	filename = filepath.Base(filename)
	if filename == "." || filename == string(filepath.Separator) {
		return domain.Ad{}, domainerrors.Validation("filename is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.AdSet(adSetName); !ok {
		return domain.Ad{}, domainerrors.NotFoundf("ad set %q not found", adSetName)
	}

	stored, err := s.media.Save(ctx, data, filename)
	if err != nil {
		return domain.Ad{}, err
	}

	ad, err := s.createAd(ctx, adSetName, domain.AdFields{
		Name:        filename,
		Description: "Uploaded from " + filename,
		Tags:        tags,
		FilePath:    stored.Path,
		MimeType:    stored.MimeType,
		BlurHash:    stored.BlurHash,
	})
	if err != nil {
		if delErr := s.media.Delete(stored.Path); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", "file", stored.Path, "error", delErr)
		}
		return domain.Ad{}, err
	}

	s.logger.Info("media uploaded",
		"ad_set", adSetName,
		"ad_id", ad.ID,
		"file", stored.Name,
		"size", stored.Size)
	return ad, nil
}

// Search returns ads matching query in document order. A non-empty category
// keeps only ads whose media file falls in it.
func (s *CampaignService) Search(query string, category classify.Category) []domain.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := s.store.Search(s.doc, query)
	if category != "" {
		results = s.store.FilterByCategory(results, category)
	}
	for i := range results {
		ad := *results[i].Ad
		results[i].Ad = &ad
	}
	return results
}

// Statistics aggregates the current document.
func (s *CampaignService) Statistics() domain.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Statistics(s.doc)
}

// Tree returns the diagram structure of the current document.
func (s *CampaignService) Tree() domain.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Tree(s.doc)
}

// ExportArchive writes the zip archive of the current document to w.
func (s *CampaignService) ExportArchive(ctx context.Context, w io.Writer) (export.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exporter.Export(ctx, s.doc, w)
}

// ExportTable writes the flattened CSV table to w.
func (s *CampaignService) ExportTable(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tabular.Export(s.doc, w)
}

// ExportSummary writes the per-ad-set summary CSV to w.
func (s *CampaignService) ExportSummary(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tabular.ExportSummary(s.doc, s.store.Statistics(s.doc), w)
}

// ImportTable applies a CSV import. On failure the current document is left
// as it was.
func (s *CampaignService) ImportTable(ctx context.Context, r io.Reader, mode tabular.Mode) (*tabular.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *tabular.ImportResult
	err := s.mutate(func(work *domain.Document) error {
		var err error
		result, err = s.store.ImportTable(ctx, work, r, mode)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ImportDocument replaces the document with a JSON metadata import.
func (s *CampaignService) ImportDocument(ctx context.Context, raw []byte) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.ImportDocument(ctx, raw)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return clone(doc)
}

// CreateBackup archives the current document into the backup directory.
func (s *CampaignService) CreateBackup(ctx context.Context) (*backup.BackupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backups.Create(ctx, s.doc)
}

// ListBackups returns available backups, newest first.
func (s *CampaignService) ListBackups(ctx context.Context) ([]backup.BackupInfo, error) {
	return s.backups.List(ctx)
}

// Backup returns a single backup by id.
func (s *CampaignService) Backup(ctx context.Context, id string) (*backup.BackupInfo, error) {
	return s.backups.Get(ctx, id)
}

// DeleteBackup removes a backup archive.
func (s *CampaignService) DeleteBackup(ctx context.Context, id string) error {
	return s.backups.Delete(ctx, id)
}

// RestoreBackup replaces the document with the snapshot in backup id.
func (s *CampaignService) RestoreBackup(ctx context.Context, id string) (*backup.RestoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, result, err := s.backups.Restore(ctx, id)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return result, nil
}

// Reload re-reads the persisted document and adopts it when it differs from
// the one in memory. Corrupt content is reported and the current document
// kept. Returns whether the document changed.
func (s *CampaignService) Reload(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.LoadStrict(ctx)
	if err != nil {
		return false, err
	}

	current, err := store.EncodeDocument(s.doc)
	if err != nil {
		return false, fmt.Errorf("encode document: %w", err)
	}
	loaded, err := store.EncodeDocument(doc)
	if err != nil {
		return false, fmt.Errorf("encode document: %w", err)
	}
	if bytes.Equal(current, loaded) {
		return false, nil
	}

	s.doc = doc
	s.emitter.Emit(store.Change{At: time.Now(), Kind: store.ChangeDocumentReloaded})
	s.logger.Info("metadata document reloaded",
		"ad_sets", doc.AdSets.Len(),
		"ads", doc.AdCount())
	return true, nil
}
