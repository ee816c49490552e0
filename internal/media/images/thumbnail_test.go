package images

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediatree/mediatree-server/internal/media/classify"
)

func setupTestThumbnailer(t *testing.T) *Thumbnailer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return NewThumbnailer(DefaultWidth, DefaultHeight, logger)
}

// writeTestPNG writes a w×h gradient PNG and returns its path.
func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func decodeConfig(t *testing.T, path string) (image.Config, string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg, format
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape", 800, 400, 200, 100},
		{"portrait", 300, 900, 50, 150},
		{"exact box ratio", 400, 300, 200, 150},
		{"already small", 120, 80, 120, 80},
		{"very thin", 4000, 1, 200, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			got := Fit(src, DefaultWidth, DefaultHeight)
			assert.Equal(t, tt.wantW, got.Bounds().Dx())
			assert.Equal(t, tt.wantH, got.Bounds().Dy())
		})
	}
}

func TestThumbnailer_DeriveImage(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "abc.png", 640, 480)
	dst := filepath.Join(dir, "thumb_abc.png")

	d, err := setupTestThumbnailer(t).Derive(context.Background(), src, classify.CategoryImage, dst)
	require.NoError(t, err)

	assert.Equal(t, dst, d.Path)
	assert.Equal(t, 200, d.Width)
	assert.Equal(t, 150, d.Height)
	assert.NotEmpty(t, d.BlurHash)

	cfg, format := decodeConfig(t, dst)
	assert.Equal(t, "png", format)
	assert.Equal(t, 200, cfg.Width)
}

func TestThumbnailer_DeriveEncodesJPEGForJPEGNames(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "photo.png", 300, 300)
	dst := filepath.Join(dir, "thumb_photo.jpg")

	_, err := setupTestThumbnailer(t).Derive(context.Background(), src, classify.CategoryImage, dst)
	require.NoError(t, err)

	cfg, format := decodeConfig(t, dst)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 150, cfg.Width)
	assert.Equal(t, 150, cfg.Height)
}

func TestThumbnailer_UnsupportedImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "logo.svg")
	require.NoError(t, os.WriteFile(src, []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), 0o644))
	dst := filepath.Join(dir, "thumb_logo.svg")

	_, err := setupTestThumbnailer(t).Derive(context.Background(), src, classify.CategoryImage, dst)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.NoFileExists(t, dst)
}

func TestThumbnailer_VideoHasNoDerivative(t *testing.T) {
	_, err := setupTestThumbnailer(t).Derive(context.Background(), "clip.mp4", classify.CategoryVideo, "thumb_clip.mp4")
	assert.ErrorIs(t, err, ErrNoDerivative)
}

func TestThumbnailer_InvalidAudio(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "voice.mp3")
	require.NoError(t, os.WriteFile(src, []byte("not an audio file"), 0o644))

	_, err := setupTestThumbnailer(t).Derive(context.Background(), src, classify.CategoryAudio, filepath.Join(dir, "thumb_voice.mp3"))
	assert.Error(t, err)
}

func TestThumbnailer_MissingAudio(t *testing.T) {
	_, err := setupTestThumbnailer(t).Derive(context.Background(), "/non/existent/file.mp3", classify.CategoryAudio, "/tmp/unused")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open audio file")
}

func TestComputeBlurHash(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "big.png", 500, 200)

	hash, err := ComputeBlurHash(path)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(hash), 20)

	again, err := ComputeBlurHash(path)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	_, err = ComputeBlurHash(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestNewThumbnailer_Defaults(t *testing.T) {
	th := NewThumbnailer(0, -1, nil)
	assert.Equal(t, DefaultWidth, th.width)
	assert.Equal(t, DefaultHeight, th.height)
}
