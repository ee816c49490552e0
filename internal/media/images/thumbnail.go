// Package images produces derivatives for stored media: scaled thumbnails
// and BlurHash placeholders for images, and cover-art thumbnails for audio.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/mediatree/mediatree-server/internal/media/classify"
)

// Default thumbnail bounding box.
const (
	DefaultWidth  = 200
	DefaultHeight = 150

	jpegQuality = 85
)

var (
	// ErrNoDerivative is returned for categories that never get a derivative
	// (video, unknown) and for audio files without embedded artwork.
	ErrNoDerivative = errors.New("no derivative for this media")

	// ErrUnsupportedImage is returned when an image cannot be decoded, e.g. SVG.
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// Derivative describes a produced thumbnail.
type Derivative struct {
	Path     string
	Width    int
	Height   int
	BlurHash string
}

// Thumbnailer scales media into a bounding box.
type Thumbnailer struct {
	width  int
	height int
	logger *slog.Logger
}

// NewThumbnailer creates a Thumbnailer fitting thumbnails into width×height.
// Non-positive sizes fall back to the defaults.
func NewThumbnailer(width, height int, logger *slog.Logger) *Thumbnailer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Thumbnailer{width: width, height: height, logger: logger}
}

// Derive writes a thumbnail of srcPath to dstPath. Images are decoded
// directly; audio files contribute their embedded cover art.
func (t *Thumbnailer) Derive(ctx context.Context, srcPath string, category classify.Category, dstPath string) (*Derivative, error) {
	var (
		img image.Image
		err error
	)

	switch category {
	case classify.CategoryImage:
		img, err = decodeFile(srcPath)
	case classify.CategoryAudio:
		img, err = t.artwork(ctx, srcPath)
	default:
		return nil, ErrNoDerivative
	}
	if err != nil {
		return nil, err
	}

	hash, err := BlurHash(img)
	if err != nil {
		// Placeholder only; the thumbnail is still useful without it.
		t.logger.Debug("blurhash failed", "path", srcPath, "error", err)
	}

	thumb := Fit(img, t.width, t.height)
	if err := writeImage(dstPath, thumb); err != nil {
		return nil, err
	}

	bounds := thumb.Bounds()
	t.logger.Debug("derivative written",
		"src", srcPath,
		"dst", dstPath,
		"width", bounds.Dx(),
		"height", bounds.Dy())

	return &Derivative{
		Path:     dstPath,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		BlurHash: hash,
	}, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Fit scales img down to fit within maxW×maxH, preserving aspect ratio.
// Images already inside the box are returned unchanged.
func Fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	// Scale by the tighter dimension.
	dw, dh := maxW, h*maxW/w
	if dh > maxH {
		dw, dh = w*maxH/h, maxH
	}
	dw = max(dw, 1)
	dh = max(dh, 1)

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// writeImage encodes img in the format implied by path's extension:
// png and webp become PNG, gif stays GIF, bmp stays BMP, and everything else
// (including cover art stored next to audio names) becomes JPEG.
func writeImage(path string, img image.Image) error {
	var buf bytes.Buffer
	var err error

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "png", "webp":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	return nil
}
