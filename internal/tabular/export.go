package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/media/classify"
)

// Export writes one row per (campaign, ad set, ad) with every field of all
// three. Ad sets without ads produce no rows.
func Export(doc *domain.Document, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	c := doc.Campaign
	for setName, set := range doc.AdSets.All() {
		for adID, ad := range set.Ads.All() {
			schedule := ""
			if ad.ScheduleDate != nil {
				schedule = *ad.ScheduleDate
			}
			row := []string{
				c.Name,
				c.Objective,
				c.CreatedAt.String(),
				setName,
				set.Description,
				set.CreatedAt.String(),
				adID,
				ad.Name,
				ad.Description,
				joinTags(ad.Tags),
				ad.URL,
				schedule,
				ad.CreatedAt.String(),
				ad.FilePath,
				ad.MimeType,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write row for ad %s: %w", adID, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportSummary writes one row per ad set of doc. Counts come from stats,
// which must have been computed over the same doc.
func ExportSummary(doc *domain.Document, stats domain.Stats, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for name, set := range doc.AdSets.All() {
		counts := stats.BySetCategory[name]
		row := []string{
			name,
			set.Description,
			set.CreatedAt.String(),
			strconv.Itoa(stats.BySet[name]),
			strconv.Itoa(counts[classify.CategoryImage.Plural()]),
			strconv.Itoa(counts[classify.CategoryVideo.Plural()]),
			strconv.Itoa(counts[classify.CategoryAudio.Plural()]),
			strconv.Itoa(counts[classify.CategoryUnknown.Plural()]),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write summary row for %q: %w", name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
