// Package export writes portable campaign archives: the metadata document
// plus every referenced media file, grouped by ad set.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/media/files"
	"github.com/mediatree/mediatree-server/internal/store"
)

// Archive entry layout.
const (
	MetadataEntry = "campaign_metadata.json"
	MediaDir      = "media"
)

// Counts summarises what went into an archive.
type Counts struct {
	AdSets  int `json:"ad_sets"`
	Ads     int `json:"ads"`
	Media   int `json:"media"`
	Skipped int `json:"skipped"`
}

// Result contains the outcome of a file export.
type Result struct {
	Path     string
	Size     int64
	Counts   Counts
	Duration time.Duration
	Checksum string
}

// Exporter creates campaign archives.
type Exporter struct {
	mediaRoot string
	logger    *slog.Logger
}

// New creates an Exporter. mediaRoot owns every file an archive may contain;
// it is also searched by base name for ads whose stored path moved.
func New(mediaRoot string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{mediaRoot: mediaRoot, logger: logger}
}

// MediaEntry returns the archive path for a media file of an ad set. The ad
// set name becomes a single path segment so no entry leaves media/.
func MediaEntry(adSetName, storedPath string) string {
	return path.Join(MediaDir, entrySegment(adSetName), entrySegment(filepath.Base(storedPath)))
}

func entrySegment(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

// Export writes the archive to w. Ads whose file cannot be found are skipped.
// Neither the document nor the media files are modified.
func (e *Exporter) Export(ctx context.Context, doc *domain.Document, w io.Writer) (Counts, error) {
	counts := Counts{AdSets: doc.AdSets.Len(), Ads: doc.AdCount()}
	zw := zip.NewWriter(w)

	if err := writeMetadata(zw, doc); err != nil {
		return counts, fmt.Errorf("write metadata: %w", err)
	}

	written := make(map[string]bool)
	for setName, set := range doc.AdSets.All() {
		for _, ad := range set.Ads.All() {
			if ctx.Err() != nil {
				return counts, ctx.Err()
			}

			src, ok := e.resolve(ad.FilePath)
			if !ok {
				if ad.FilePath != "" {
					counts.Skipped++
					e.logger.Debug("media missing, skipping", "ad_set", setName, "ad_id", ad.ID, "path", ad.FilePath)
				}
				continue
			}

			entry := MediaEntry(setName, src)
			if written[entry] {
				// Several ads in one set share the file.
				continue
			}
			if err := copyFileToZip(zw, src, entry); err != nil {
				return counts, fmt.Errorf("add media %s: %w", ad.FilePath, err)
			}
			written[entry] = true
			counts.Media++
		}
	}

	if err := zw.Close(); err != nil {
		return counts, fmt.Errorf("close zip: %w", err)
	}
	return counts, nil
}

// ExportBytes returns the archive as a byte slice.
func (e *Exporter) ExportBytes(ctx context.Context, doc *domain.Document) ([]byte, Counts, error) {
	var buf bytes.Buffer
	counts, err := e.Export(ctx, doc, &buf)
	if err != nil {
		return nil, counts, err
	}
	return buf.Bytes(), counts, nil
}

// ExportFile writes the archive to outputPath via a temporary file.
func (e *Exporter) ExportFile(ctx context.Context, doc *domain.Document, outputPath string) (*Result, error) {
	start := time.Now()

	// Write to temp file, rename on success
	tmpPath := outputPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create archive file: %w", err)
	}
	defer os.Remove(tmpPath) // Clean up on failure
	defer f.Close()

	hash := sha256.New()
	counts, err := e.Export(ctx, doc, io.MultiWriter(f, hash))
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, fmt.Errorf("rename archive: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	return &Result{
		Path:     outputPath,
		Size:     info.Size(),
		Counts:   counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// resolve finds the file for a stored path: first as written, then by base
// name under the media root. Only files inside the media root qualify.
func (e *Exporter) resolve(storedPath string) (string, bool) {
	if storedPath == "" || e.mediaRoot == "" {
		return "", false
	}
	if files.Contains(e.mediaRoot, storedPath) && isFile(storedPath) {
		return storedPath, true
	}
	candidate := filepath.Join(e.mediaRoot, filepath.Base(storedPath))
	if isFile(candidate) {
		return candidate, true
	}
	return "", false
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func writeMetadata(zw *zip.Writer, doc *domain.Document) error {
	data, err := store.EncodeDocument(doc)
	if err != nil {
		return err
	}
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     MetadataEntry,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func copyFileToZip(zw *zip.Writer, srcPath, archivePath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = archivePath
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(dst, src)
	return err
}
