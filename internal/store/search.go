package store

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/media/classify"
)

// Search returns every ad whose name, description or tags contain query,
// ignoring case. Results follow document order: ad sets in insertion order,
// then ads within each set. A blank query matches nothing; otherwise the
// query is matched as given, surrounding spaces included.
func Search(doc *domain.Document, query string) []domain.SearchResult {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	// Caser values carry state and are not safe for concurrent use.
	fold := cases.Fold()
	needle := fold.String(query)

	var results []domain.SearchResult
	for setName, set := range doc.AdSets.All() {
		for adID, ad := range set.Ads.All() {
			if strings.Contains(fold.String(searchText(ad)), needle) {
				results = append(results, domain.SearchResult{
					AdSetName: setName,
					AdID:      adID,
					Ad:        ad,
				})
			}
		}
	}
	return results
}

func searchText(ad *domain.Ad) string {
	return ad.Name + " " + ad.Description + " " + strings.Join(ad.Tags, " ")
}

// Search runs Search over doc.
func (s *Store) Search(doc *domain.Document, query string) []domain.SearchResult {
	return Search(doc, query)
}

// FilterByCategory keeps the results whose media file falls in category.
// Ads without a file are unknown.
func (s *Store) FilterByCategory(results []domain.SearchResult, category classify.Category) []domain.SearchResult {
	var kept []domain.SearchResult
	for _, r := range results {
		if s.classifier.CategoryOf(r.Ad.FilePath) == category {
			kept = append(kept, r)
		}
	}
	return kept
}
