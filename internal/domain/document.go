// Package domain contains the campaign media tree: Campaign, AdSet, Ad and
// the Document that holds them, together with the in-memory operations that
// keep the tree consistent. Persistence lives in the store package.
package domain

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/mediatree/mediatree-server/internal/errors"
)

// Campaign is the singleton root of a document.
type Campaign struct {
	Name      string    `json:"name"`
	Objective string    `json:"objective"`
	CreatedAt Timestamp `json:"created_at"`
}

// AdSets holds ad sets keyed by name, in insertion order.
type AdSets = OrderedMap[AdSet]

// Ads holds ads keyed by id, in insertion order.
type Ads = OrderedMap[Ad]

// AdSet groups ads under a campaign. Name is the identity key.
type AdSet struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   Timestamp `json:"created_at"`
	Ads         Ads       `json:"ads"`
}

// Ad is a leaf of the tree. ID is unique across the whole document.
type Ad struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
	URL          string    `json:"url"`
	ScheduleDate *string   `json:"schedule_date"`
	CreatedAt    Timestamp `json:"created_at"`
	FilePath     string    `json:"file_path"`
	MimeType     string    `json:"mime_type"`
	BlurHash     string    `json:"blur_hash,omitempty"`
}

// MarshalJSON always writes tags as an array, never null.
func (a Ad) MarshalJSON() ([]byte, error) {
	type plain Ad
	p := plain(a)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return json.Marshal(p)
}

// HasFile reports whether the ad references a stored media file.
func (a *Ad) HasFile() bool {
	return a.FilePath != ""
}

// Document is the unit of persistence: one campaign and all of its ad sets.
type Document struct {
	Campaign Campaign `json:"campaign"`
	AdSets   AdSets   `json:"ad_sets"`
}

// UnmarshalJSON decodes a document and fills identity fields that older
// documents may omit (ad set name, ad id) from their keys.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Document(p)

	for name, set := range d.AdSets.All() {
		if set.Name == "" {
			set.Name = name
		}
		for adID, ad := range set.Ads.All() {
			if ad.ID == "" {
				ad.ID = adID
			}
		}
	}
	return nil
}

// AdSet returns the ad set with the given name.
func (d *Document) AdSet(name string) (*AdSet, bool) {
	return d.AdSets.Get(name)
}

// AdCount returns the number of ads across all ad sets.
func (d *Document) AdCount() int {
	n := 0
	for set := range d.AdSets.Values() {
		n += set.Ads.Len()
	}
	return n
}

// HasAd reports whether any ad set contains an ad with the given id.
func (d *Document) HasAd(adID string) bool {
	_, _, ok := d.FindAd(adID)
	return ok
}

// FindAd locates an ad by id anywhere in the document.
func (d *Document) FindAd(adID string) (adSetName string, ad *Ad, ok bool) {
	for name, set := range d.AdSets.All() {
		if ad, ok := set.Ads.Get(adID); ok {
			return name, ad, true
		}
	}
	return "", nil, false
}

// SetCampaign overwrites the campaign name and objective. CreatedAt is kept.
func (d *Document) SetCampaign(name, objective string) {
	d.Campaign.Name = name
	d.Campaign.Objective = objective
}

// AddAdSet inserts an empty ad set. The trimmed name must be non-empty and
// not already present (case-sensitive).
func (d *Document) AddAdSet(name, description string, now time.Time) (*AdSet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("ad set name is required")
	}
	if d.AdSets.Has(name) {
		return nil, errors.Validationf("ad set %q already exists", name)
	}

	set := &AdSet{
		Name:        name,
		Description: description,
		CreatedAt:   NewTimestamp(now),
	}
	d.AdSets.Set(name, set)
	return set, nil
}

// RemoveAdSet deletes an empty ad set. Ad sets that still contain ads are
// rejected, never cascaded.
func (d *Document) RemoveAdSet(name string) error {
	set, ok := d.AdSets.Get(name)
	if !ok {
		return errors.NotFoundf("ad set %q not found", name)
	}
	if n := set.Ads.Len(); n > 0 {
		return errors.NotEmptyf("ad set %q still has %d ads", name, n)
	}
	d.AdSets.Delete(name)
	return nil
}

// ClearAdSets removes every ad set.
func (d *Document) ClearAdSets() {
	d.AdSets.Clear()
}

// InsertAd adds a fully-formed ad to an ad set. The caller owns id
// generation; an id already used anywhere in the document is rejected.
func (d *Document) InsertAd(adSetName string, ad *Ad) error {
	set, ok := d.AdSets.Get(adSetName)
	if !ok {
		return errors.NotFoundf("ad set %q not found", adSetName)
	}
	if ad.ID == "" {
		return errors.Validation("ad id is required")
	}
	if d.HasAd(ad.ID) {
		return errors.Validationf("ad id %q already exists", ad.ID)
	}
	set.Ads.Set(ad.ID, ad)
	return nil
}

// Ad returns the ad with the given id inside the named ad set.
func (d *Document) Ad(adSetName, adID string) (*Ad, bool) {
	set, ok := d.AdSets.Get(adSetName)
	if !ok {
		return nil, false
	}
	return set.Ads.Get(adID)
}

// UpdateAd merges upd into the ad. Returns false, without error, when the ad
// set or ad does not exist.
func (d *Document) UpdateAd(adSetName, adID string, upd AdUpdate) bool {
	ad, ok := d.Ad(adSetName, adID)
	if !ok {
		return false
	}
	upd.Apply(ad)
	return true
}

// RemoveAd deletes an ad and returns it. Returns false when absent.
func (d *Document) RemoveAd(adSetName, adID string) (*Ad, bool) {
	set, ok := d.AdSets.Get(adSetName)
	if !ok {
		return nil, false
	}
	return set.Ads.Delete(adID)
}

// MoveAd moves an ad unchanged from one ad set to another. Moving within the
// same set is a no-op and reports false. Missing sets or a missing ad in the
// source set are NotFound errors; nothing is changed in that case.
func (d *Document) MoveAd(from, to, adID string) (bool, error) {
	if from == to {
		return false, nil
	}
	src, ok := d.AdSets.Get(from)
	if !ok {
		return false, errors.NotFoundf("ad set %q not found", from)
	}
	dst, ok := d.AdSets.Get(to)
	if !ok {
		return false, errors.NotFoundf("ad set %q not found", to)
	}
	ad, ok := src.Ads.Delete(adID)
	if !ok {
		return false, errors.NotFoundf("ad %q not found in ad set %q", adID, from)
	}
	dst.Ads.Set(adID, ad)
	return true, nil
}

// AddTags appends tags to every ad of an ad set, keeping existing order and
// skipping duplicates. Returns the number of ads whose tags changed.
func (d *Document) AddTags(adSetName string, tags []string) (int, error) {
	set, ok := d.AdSets.Get(adSetName)
	if !ok {
		return 0, errors.NotFoundf("ad set %q not found", adSetName)
	}

	changed := 0
	for ad := range set.Ads.Values() {
		merged := MergeTags(ad.Tags, tags)
		if !slices.Equal(merged, ad.Tags) {
			ad.Tags = merged
			changed++
		}
	}
	return changed, nil
}
