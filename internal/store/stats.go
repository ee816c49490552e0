package store

import (
	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/id"
	"github.com/mediatree/mediatree-server/internal/media/classify"
)

var statsCategories = []classify.Category{
	classify.CategoryImage,
	classify.CategoryVideo,
	classify.CategoryAudio,
	classify.CategoryUnknown,
}

// ComputeStatistics aggregates doc. Category counts classify each ad's
// file_path; ads without a file count toward totals only.
func ComputeStatistics(doc *domain.Document, c *classify.Classifier) domain.Stats {
	stats := domain.Stats{
		TotalAdSets: doc.AdSets.Len(),
		ByCategory:  make(map[string]int, len(statsCategories)),
		BySet:       make(map[string]int, doc.AdSets.Len()),

		BySetCategory: make(map[string]map[string]int, doc.AdSets.Len()),
	}
	for _, cat := range statsCategories {
		stats.ByCategory[cat.Plural()] = 0
	}

	for name, set := range doc.AdSets.All() {
		stats.BySet[name] = set.Ads.Len()
		stats.TotalAds += set.Ads.Len()
		perSet := make(map[string]int, len(statsCategories))
		for _, cat := range statsCategories {
			perSet[cat.Plural()] = 0
		}
		for ad := range set.Ads.Values() {
			if !ad.HasFile() {
				continue
			}
			plural := c.CategoryOf(ad.FilePath).Plural()
			stats.ByCategory[plural]++
			perSet[plural]++
		}
		stats.BySetCategory[name] = perSet
	}
	return stats
}

// Statistics aggregates doc with the store's classifier.
func (s *Store) Statistics(doc *domain.Document) domain.Stats {
	return ComputeStatistics(doc, s.classifier)
}

// Tree returns the diagram structure of doc: one campaign node, one node per
// ad set keyed by id.NodeID, and one node per ad.
func (s *Store) Tree(doc *domain.Document) domain.Tree {
	const campaignNode = "campaign"

	tree := domain.Tree{
		Nodes: []domain.TreeNode{{ID: campaignNode, Kind: domain.NodeCampaign, Label: doc.Campaign.Name}},
		Edges: []domain.TreeEdge{},
	}
	for name, set := range doc.AdSets.All() {
		setNode := id.NodeID(name)
		tree.Nodes = append(tree.Nodes, domain.TreeNode{ID: setNode, Kind: domain.NodeAdSet, Label: name})
		tree.Edges = append(tree.Edges, domain.TreeEdge{From: campaignNode, To: setNode})

		for adID, ad := range set.Ads.All() {
			adNode := "ad_" + adID
			tree.Nodes = append(tree.Nodes, domain.TreeNode{
				ID:       adNode,
				Kind:     domain.NodeAd,
				Label:    ad.Name,
				Category: s.classifier.CategoryOf(ad.FilePath).String(),
			})
			tree.Edges = append(tree.Edges, domain.TreeEdge{From: setNode, To: adNode})
		}
	}
	return tree
}
