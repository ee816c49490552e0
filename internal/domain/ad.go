package domain

import (
	"slices"
	"strings"
	"time"
)

// AdFields are the caller-supplied attributes of a new ad. ID and CreatedAt
// are assigned by the store.
type AdFields struct {
	Name         string
	Description  string
	Tags         []string
	URL          string
	ScheduleDate *string
	FilePath     string
	MimeType     string
	BlurHash     string
}

// NewAd builds an Ad from fields with the given identity and creation time.
// Tags are normalized.
func NewAd(id string, f AdFields, now time.Time) *Ad {
	return &Ad{
		ID:           id,
		Name:         f.Name,
		Description:  f.Description,
		Tags:         NormalizeTags(f.Tags),
		URL:          f.URL,
		ScheduleDate: f.ScheduleDate,
		CreatedAt:    NewTimestamp(now),
		FilePath:     f.FilePath,
		MimeType:     f.MimeType,
		BlurHash:     f.BlurHash,
	}
}

// Optional holds a value that may be absent. The zero value is unset.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// AdUpdate is a partial update of an Ad. Only fields that are Set are
// written; everything else is left untouched. ID and CreatedAt are immutable
// and have no counterpart here.
type AdUpdate struct {
	Name         Optional[string]
	Description  Optional[string]
	Tags         Optional[[]string]
	URL          Optional[string]
	ScheduleDate Optional[*string]
	FilePath     Optional[string]
	MimeType     Optional[string]
}

// IsEmpty reports whether the update would change nothing.
func (u AdUpdate) IsEmpty() bool {
	return !u.Name.Set && !u.Description.Set && !u.Tags.Set && !u.URL.Set &&
		!u.ScheduleDate.Set && !u.FilePath.Set && !u.MimeType.Set
}

// Apply writes the set fields into ad.
func (u AdUpdate) Apply(ad *Ad) {
	if v, ok := u.Name.Get(); ok {
		ad.Name = v
	}
	if v, ok := u.Description.Get(); ok {
		ad.Description = v
	}
	if v, ok := u.Tags.Get(); ok {
		ad.Tags = NormalizeTags(v)
	}
	if v, ok := u.URL.Get(); ok {
		ad.URL = v
	}
	if v, ok := u.ScheduleDate.Get(); ok {
		ad.ScheduleDate = v
	}
	if v, ok := u.FilePath.Get(); ok {
		ad.FilePath = v
	}
	if v, ok := u.MimeType.Get(); ok {
		ad.MimeType = v
	}
}

// NormalizeTags trims each tag, drops empty ones and removes duplicates while
// keeping first-seen order. Comparison is case-sensitive. The result is never
// nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// MergeTags returns existing followed by every tag in add that is not
// already present.
func MergeTags(existing, add []string) []string {
	return NormalizeTags(slices.Concat(existing, add))
}

// ParseTagList splits comma-separated tags as typed into a single text field.
// Tabular files use a different delimiter; see the tabular package.
func ParseTagList(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}
