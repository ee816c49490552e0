package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mediatree/mediatree-server/internal/backup/export"
	backupimport "github.com/mediatree/mediatree-server/internal/backup/import"
	"github.com/mediatree/mediatree-server/internal/domain"
)

const (
	filePrefix = "campaign_backup_"
	fileSuffix = ".zip"
	timeLayout = "20060102_150405"
)

// DocumentReplacer persists a restored document. Implemented by store.Store.
type DocumentReplacer interface {
	Replace(ctx context.Context, doc *domain.Document) error
}

// BackupResult contains the outcome of a backup operation.
type BackupResult struct {
	ID       string        `json:"id"`
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Counts   export.Counts `json:"counts"`
	Duration time.Duration `json:"duration"`
	Checksum string        `json:"checksum"`
}

// BackupInfo describes an existing backup.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// RestoreResult contains the outcome of a restore.
type RestoreResult struct {
	ID       string        `json:"id"`
	AdSets   int           `json:"ad_sets"`
	Ads      int           `json:"ads"`
	Duration time.Duration `json:"duration"`
}

// BackupService manages backups in a single directory.
type BackupService struct {
	store     DocumentReplacer
	backupDir string
	exporter  *export.Exporter
	now       func() time.Time
	logger    *slog.Logger
}

// NewBackupService creates a BackupService. mediaDir is where archive media
// is looked up for ads whose stored path moved.
func NewBackupService(s DocumentReplacer, backupDir, mediaDir string, logger *slog.Logger) *BackupService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BackupService{
		store:     s,
		backupDir: backupDir,
		exporter:  export.New(mediaDir, logger),
		now:       time.Now,
		logger:    logger,
	}
}

// Create writes a new timestamped archive of doc.
func (s *BackupService) Create(ctx context.Context, doc *domain.Document) (*BackupResult, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	id := s.nextID()
	outputPath := s.GetPath(id)

	s.logger.Info("creating backup", "output", outputPath)

	result, err := s.exporter.ExportFile(ctx, doc, outputPath)
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"media", result.Counts.Media,
		"duration", result.Duration,
		"checksum", result.Checksum)

	return &BackupResult{
		ID:       id,
		Path:     result.Path,
		Size:     result.Size,
		Counts:   result.Counts,
		Duration: result.Duration,
		Checksum: result.Checksum,
	}, nil
}

// nextID returns a timestamp id, suffixed when a backup from the same second
// already exists.
func (s *BackupService) nextID() string {
	base := filePrefix + s.now().Format(timeLayout)
	id := base
	for n := 2; ; n++ {
		if _, err := os.Stat(s.GetPath(id)); os.IsNotExist(err) {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

// List returns all available backups, newest first.
func (s *BackupService) List(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		id := strings.TrimSuffix(name, fileSuffix)
		backups = append(backups, BackupInfo{
			ID:        id,
			Path:      filepath.Join(s.backupDir, name),
			Size:      info.Size(),
			CreatedAt: createdAt(id, info.ModTime()),
		})
	}

	// Sort by creation time, newest first
	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].ID > backups[j].ID
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// createdAt reads the timestamp encoded in id, falling back to modTime.
func createdAt(id string, modTime time.Time) time.Time {
	stamp := strings.TrimPrefix(id, filePrefix)
	if len(stamp) >= len(timeLayout) {
		if t, err := time.ParseInLocation(timeLayout, stamp[:len(timeLayout)], time.Local); err == nil {
			return t
		}
	}
	return modTime
}

// Get returns a backup by ID.
func (s *BackupService) Get(_ context.Context, id string) (*BackupInfo, error) {
	if !validID(id) {
		return nil, ErrInvalidBackupID
	}
	path := s.GetPath(id)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}

	return &BackupInfo{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: createdAt(id, info.ModTime()),
	}, nil
}

// Delete removes a backup.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(b.Path); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	s.logger.Info("backup deleted", "id", id)
	return nil
}

// Restore reads the backup's metadata snapshot and persists it as the whole
// document. Media files are not copied back.
func (s *BackupService) Restore(ctx context.Context, id string) (*domain.Document, *RestoreResult, error) {
	start := s.now()

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("starting restore", "id", id, "path", b.Path)

	doc, err := backupimport.ReadFile(b.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("persist restored document: %w", err)
	}

	result := &RestoreResult{
		ID:       id,
		AdSets:   doc.AdSets.Len(),
		Ads:      doc.AdCount(),
		Duration: s.now().Sub(start),
	}

	s.logger.Info("restore complete",
		"id", id,
		"ad_sets", result.AdSets,
		"ads", result.Ads,
		"duration", result.Duration)

	return doc, result, nil
}

// GetPath returns the file path for a backup ID.
func (s *BackupService) GetPath(id string) string {
	return filepath.Join(s.backupDir, id+fileSuffix)
}

func validID(id string) bool {
	return strings.HasPrefix(id, filePrefix) && id == filepath.Base(id) && !strings.ContainsAny(id, `/\`)
}
