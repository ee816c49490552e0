package store

import (
	"context"
	"io"

	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/errors"
	"github.com/mediatree/mediatree-server/internal/id"
	"github.com/mediatree/mediatree-server/internal/tabular"
)

// SaveCampaign overwrites the campaign name and objective and persists.
func (s *Store) SaveCampaign(ctx context.Context, doc *domain.Document, name, objective string) error {
	doc.SetCampaign(name, objective)
	return s.save(ctx, doc, Change{Kind: ChangeCampaignUpdated})
}

// ResetCampaign restores the default campaign settings and persists.
// Ad sets are untouched and created_at is kept.
func (s *Store) ResetCampaign(ctx context.Context, doc *domain.Document) error {
	doc.ResetCampaign()
	return s.save(ctx, doc, Change{Kind: ChangeCampaignUpdated})
}

// CreateAdSet adds an empty ad set. Fails with a validation error if the
// trimmed name is empty or already used.
func (s *Store) CreateAdSet(ctx context.Context, doc *domain.Document, name, description string) (*domain.AdSet, error) {
	set, err := doc.AddAdSet(name, description, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, doc, Change{Kind: ChangeAdSetCreated, AdSet: set.Name}); err != nil {
		return nil, err
	}
	s.logger.Info("ad set created", "ad_set", set.Name)
	return set, nil
}

// DeleteAdSet removes an empty ad set. Ad sets with ads are rejected with
// errors.ErrNotEmpty; unknown names with errors.ErrNotFound.
func (s *Store) DeleteAdSet(ctx context.Context, doc *domain.Document, name string) error {
	if err := doc.RemoveAdSet(name); err != nil {
		return err
	}
	if err := s.save(ctx, doc, Change{Kind: ChangeAdSetDeleted, AdSet: name}); err != nil {
		return err
	}
	s.logger.Info("ad set deleted", "ad_set", name)
	return nil
}

// CreateAd adds a new ad to an existing ad set and returns its generated id.
func (s *Store) CreateAd(ctx context.Context, doc *domain.Document, adSetName string, fields domain.AdFields) (string, error) {
	if _, ok := doc.AdSet(adSetName); !ok {
		return "", errors.NotFoundf("ad set %q not found", adSetName)
	}

	adID := id.UniqueAdID(doc.HasAd)
	if err := doc.InsertAd(adSetName, domain.NewAd(adID, fields, s.now())); err != nil {
		return "", err
	}
	if err := s.save(ctx, doc, Change{Kind: ChangeAdCreated, AdSet: adSetName, AdID: adID}); err != nil {
		return "", err
	}
	s.logger.Debug("ad created", "ad_set", adSetName, "ad_id", adID)
	return adID, nil
}

// UpdateAd merges upd into an existing ad and persists. An unknown ad set or
// ad is a no-op, not an error.
func (s *Store) UpdateAd(ctx context.Context, doc *domain.Document, adSetName, adID string, upd domain.AdUpdate) error {
	if !doc.UpdateAd(adSetName, adID, upd) {
		s.logger.Debug("update of unknown ad ignored", "ad_set", adSetName, "ad_id", adID)
		return nil
	}
	return s.save(ctx, doc, Change{Kind: ChangeAdUpdated, AdSet: adSetName, AdID: adID})
}

// DeleteAd removes an ad. An unknown ad set or ad is a no-op. When
// cascadeFile is set and the ad references a file, the file and its
// derivative are removed once the document is saved; file removal failures
// are logged only.
func (s *Store) DeleteAd(ctx context.Context, doc *domain.Document, adSetName, adID string, cascadeFile bool) error {
	ad, ok := doc.RemoveAd(adSetName, adID)
	if !ok {
		return nil
	}

	if err := s.save(ctx, doc, Change{Kind: ChangeAdDeleted, AdSet: adSetName, AdID: adID}); err != nil {
		return err
	}

	if cascadeFile && ad.HasFile() && s.media != nil {
		if err := s.media.Delete(ad.FilePath); err != nil {
			s.logger.Warn("failed to delete media file",
				"ad_id", adID,
				"file", ad.FilePath,
				"error", err)
		}
	}
	return nil
}

// MoveAd moves an ad unchanged between ad sets. Moving within one ad set is
// a no-op. Missing ad sets, or an ad id not in the source set, fail with
// errors.ErrNotFound before anything changes.
func (s *Store) MoveAd(ctx context.Context, doc *domain.Document, from, to, adID string) error {
	moved, err := doc.MoveAd(from, to, adID)
	if err != nil || !moved {
		return err
	}
	return s.save(ctx, doc, Change{Kind: ChangeAdMoved, AdSet: from, ToAdSet: to, AdID: adID})
}

// BulkAddTags appends tags to every ad in an ad set, keeping each ad's tag
// order and skipping tags it already has. Returns the number of ads changed.
func (s *Store) BulkAddTags(ctx context.Context, doc *domain.Document, adSetName string, tags []string) (int, error) {
	tags = domain.NormalizeTags(tags)
	if len(tags) == 0 {
		return 0, errors.Validation("at least one tag is required")
	}

	changed, err := doc.AddTags(adSetName, tags)
	if err != nil {
		return 0, err
	}
	if changed == 0 {
		return 0, nil
	}
	if err := s.save(ctx, doc, Change{Kind: ChangeTagsAdded, AdSet: adSetName}); err != nil {
		return 0, err
	}
	return changed, nil
}

// ImportDocument replaces the persisted document with a JSON metadata
// import. The input must contain both "campaign" and "ad_sets"; otherwise a
// schema error is returned and nothing is written.
func (s *Store) ImportDocument(ctx context.Context, raw []byte) (*domain.Document, error) {
	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, doc, Change{Kind: ChangeDocumentReplaced}); err != nil {
		return nil, err
	}
	s.logger.Info("metadata document imported",
		"ad_sets", doc.AdSets.Len(),
		"ads", doc.AdCount())
	return doc, nil
}

// ImportTable applies a tabular import to doc and persists the result once.
// A missing required column fails with errors.ErrSchema before doc changes.
func (s *Store) ImportTable(ctx context.Context, doc *domain.Document, r io.Reader, mode tabular.Mode) (*tabular.ImportResult, error) {
	importer := tabular.NewImporter(s.logger, s.now)
	result, err := importer.Import(doc, r, mode)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, doc, Change{Kind: ChangeDocumentReplaced}); err != nil {
		return nil, err
	}
	s.logger.Info("table imported",
		"mode", mode,
		"rows", result.Rows,
		"ad_sets_created", result.AdSetsCreated,
		"ads_created", result.AdsCreated,
		"warnings", len(result.Warnings))
	return result, nil
}

// Replace persists doc as the whole new document, e.g. after a backup restore.
func (s *Store) Replace(ctx context.Context, doc *domain.Document) error {
	return s.save(ctx, doc, Change{Kind: ChangeDocumentReplaced})
}
