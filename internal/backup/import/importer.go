// Package backupimport reads campaign archives back into documents.
package backupimport

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mediatree/mediatree-server/internal/backup/export"
	"github.com/mediatree/mediatree-server/internal/domain"
	domainerrors "github.com/mediatree/mediatree-server/internal/errors"
	"github.com/mediatree/mediatree-server/internal/store"
)

// maxMetadataSize bounds the metadata entry read into memory.
const maxMetadataSize = 64 << 20

// ErrFileNotFound indicates an entry was not found in the archive.
var ErrFileNotFound = errors.New("file not found in archive")

// Contents describes what an archive holds.
type Contents struct {
	AdSets int      `json:"ad_sets"`
	Ads    int      `json:"ads"`
	Media  []string `json:"media"`
}

// OpenFile finds and opens an entry in a zip archive.
func OpenFile(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, ErrFileNotFound
}

// ReadSnapshot decodes the metadata entry of an archive. Media paths in the
// document are returned as written; they are not re-linked to the archive.
func ReadSnapshot(r io.ReaderAt, size int64) (*domain.Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeSchema, "not a campaign archive")
	}
	return readMetadata(zr)
}

// ReadFile opens the archive at path and decodes its metadata entry.
func ReadFile(path string) (*domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return ReadSnapshot(f, info.Size())
}

// Inspect reports the document counts and media entries of an archive.
func Inspect(r io.ReaderAt, size int64) (*Contents, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeSchema, "not a campaign archive")
	}
	doc, err := readMetadata(zr)
	if err != nil {
		return nil, err
	}

	c := &Contents{AdSets: doc.AdSets.Len(), Ads: doc.AdCount(), Media: []string{}}
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, export.MediaDir+"/") && !f.FileInfo().IsDir() {
			c.Media = append(c.Media, f.Name)
		}
	}
	return c, nil
}

func readMetadata(zr *zip.Reader) (*domain.Document, error) {
	rc, err := OpenFile(zr, export.MetadataEntry)
	if err != nil {
		return nil, domainerrors.Schemaf("archive has no %s", export.MetadataEntry)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxMetadataSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", export.MetadataEntry, err)
	}
	return store.DecodeDocument(data)
}
