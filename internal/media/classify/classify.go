// Package classify maps filenames to media categories by extension.
// Classification never looks at file content.
package classify

import (
	"slices"
	"strings"
)

// Category is a media category derived from a filename extension.
type Category string

// Media categories.
const (
	CategoryImage   Category = "image"
	CategoryVideo   Category = "video"
	CategoryAudio   Category = "audio"
	CategoryUnknown Category = "unknown"
)

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// Plural returns the name used for statistics buckets ("images", "videos",
// "audio"). Unknown maps to "other".
func (c Category) Plural() string {
	switch c {
	case CategoryImage:
		return "images"
	case CategoryVideo:
		return "videos"
	case CategoryAudio:
		return "audio"
	default:
		return "other"
	}
}

// ParseCategory reads a category from its singular or plural name, ignoring
// case. "other" names CategoryUnknown.
func ParseCategory(name string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "image", "images":
		return CategoryImage, true
	case "video", "videos":
		return CategoryVideo, true
	case "audio":
		return CategoryAudio, true
	case "unknown", "other":
		return CategoryUnknown, true
	default:
		return "", false
	}
}

// Allowed upload extensions per category.
var (
	ImageExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp", "webp", "svg"}
	VideoExtensions = []string{"mp4", "mov", "avi", "mkv", "webm", "m4v", "flv"}
	AudioExtensions = []string{"mp3", "wav", "ogg", "aac", "m4a"}
)

// Classifier decides whether a filename may be uploaded and which category it
// belongs to.
type Classifier struct {
	byExt map[string]Category
	order []string
}

// New creates a Classifier with the given allow-list partitions.
func New(images, videos, audio []string) *Classifier {
	c := &Classifier{byExt: make(map[string]Category)}
	c.add(CategoryImage, images)
	c.add(CategoryVideo, videos)
	c.add(CategoryAudio, audio)
	return c
}

// Default returns a Classifier configured with the standard allow-list.
func Default() *Classifier {
	return New(ImageExtensions, VideoExtensions, AudioExtensions)
}

func (c *Classifier) add(cat Category, exts []string) {
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		if _, dup := c.byExt[ext]; dup {
			continue
		}
		c.byExt[ext] = cat
		c.order = append(c.order, ext)
	}
}

// Extension returns the lower-cased substring after the last '.' of filename.
// A name without a dot yields the whole name lower-cased; an empty name yields "".
func Extension(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		return strings.ToLower(filename[i+1:])
	}
	return strings.ToLower(filename)
}

// IsAllowed reports whether filename's extension is in the allow-list.
func (c *Classifier) IsAllowed(filename string) bool {
	_, ok := c.byExt[Extension(filename)]
	return ok
}

// CategoryOf returns the category containing filename's extension, or
// CategoryUnknown when nothing matches (including an empty path).
func (c *Classifier) CategoryOf(filename string) Category {
	if filename == "" {
		return CategoryUnknown
	}
	if cat, ok := c.byExt[Extension(filename)]; ok {
		return cat
	}
	return CategoryUnknown
}

// Allowed returns every allowed extension in configuration order.
func (c *Classifier) Allowed() []string {
	return slices.Clone(c.order)
}
