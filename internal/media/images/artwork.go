package images

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/simonhull/audiometa"
)

// artwork extracts the first embedded cover from an audio file and decodes
// it. Files without artwork yield ErrNoDerivative.
func (t *Thumbnailer) artwork(ctx context.Context, audioPath string) (image.Image, error) {
	file, err := audiometa.OpenContext(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close() //nolint:errcheck // Nothing useful to do with a close error here.

	artworks, err := file.ExtractArtwork()
	if err != nil {
		return nil, fmt.Errorf("failed to extract artwork: %w", err)
	}
	if len(artworks) == 0 {
		t.logger.Debug("no embedded artwork",
			"path", audioPath,
			"format", file.Format.String(),
		)
		return nil, ErrNoDerivative
	}

	t.logger.Debug("extracted artwork",
		"path", audioPath,
		"count", len(artworks),
		"size", len(artworks[0].Data),
	)

	// The first artwork is typically the front cover.
	return decode(bytes.NewReader(artworks[0].Data))
}
