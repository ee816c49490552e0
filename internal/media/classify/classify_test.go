package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"banner.PNG", "png"},
		{"archive.tar.gz", "gz"},
		{"/data/media/abc123.mp4", "mp4"},
		{"noext", "noext"},
		{"trailingdot.", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Extension(tt.filename))
		})
	}
}

func TestClassifier_CategoryOf(t *testing.T) {
	c := Default()

	tests := []struct {
		filename string
		want     Category
	}{
		{"story.jpg", CategoryImage},
		{"story.JPEG", CategoryImage},
		{"logo.svg", CategoryImage},
		{"demo.mov", CategoryVideo},
		{"clip.webm", CategoryVideo},
		{"jingle.m4a", CategoryAudio},
		{"jingle.wav", CategoryAudio},
		{"notes.txt", CategoryUnknown},
		{"README", CategoryUnknown},
		{"", CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CategoryOf(tt.filename))
		})
	}
}

func TestClassifier_IsAllowed(t *testing.T) {
	c := Default()

	assert.True(t, c.IsAllowed("banner.webp"))
	assert.True(t, c.IsAllowed("promo.FLV"))
	assert.True(t, c.IsAllowed("voice.aac"))
	assert.False(t, c.IsAllowed("script.exe"))
	assert.False(t, c.IsAllowed("document.pdf"))
	assert.False(t, c.IsAllowed(""))
}

func TestClassifier_Allowed(t *testing.T) {
	c := Default()
	all := c.Allowed()

	assert.Len(t, all, len(ImageExtensions)+len(VideoExtensions)+len(AudioExtensions))
	assert.Equal(t, "png", all[0])
	assert.Equal(t, "m4a", all[len(all)-1])

	// Mutating the returned slice must not affect the classifier.
	all[0] = "exe"
	assert.False(t, c.IsAllowed("x.exe"))
}

func TestNew_FirstPartitionWins(t *testing.T) {
	c := New([]string{".PNG"}, []string{"png", "mp4"}, nil)

	assert.Equal(t, CategoryImage, c.CategoryOf("a.png"))
	assert.Equal(t, CategoryVideo, c.CategoryOf("a.mp4"))
}

func TestCategory_Plural(t *testing.T) {
	assert.Equal(t, "images", CategoryImage.Plural())
	assert.Equal(t, "videos", CategoryVideo.Plural())
	assert.Equal(t, "audio", CategoryAudio.Plural())
	assert.Equal(t, "other", CategoryUnknown.Plural())
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name string
		want Category
		ok   bool
	}{
		{"images", CategoryImage, true},
		{"Image", CategoryImage, true},
		{" VIDEOS ", CategoryVideo, true},
		{"audio", CategoryAudio, true},
		{"other", CategoryUnknown, true},
		{"unknown", CategoryUnknown, true},
		{"pdf", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCategory(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
