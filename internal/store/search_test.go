package store

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/media/classify"
)

func searchDocument(t *testing.T) *domain.Document {
	t.Helper()
	doc := domain.DefaultDocument(fixedNow)
	_, err := doc.AddAdSet("Misc", "", fixedNow)
	require.NoError(t, err)
	require.NoError(t, doc.InsertAd("Misc", domain.NewAd("notags01", domain.AdFields{Name: "Plain", Description: "No tags here"}, fixedNow)))
	require.NoError(t, doc.InsertAd("Misc", domain.NewAd("umlaut01", domain.AdFields{Name: "STRASSE", Tags: []string{"Größe"}}, fixedNow)))
	return doc
}

func TestSearch_BlankQueryMatchesNothing(t *testing.T) {
	doc := searchDocument(t)
	assert.Empty(t, Search(doc, ""))
	assert.Empty(t, Search(doc, "   "))
}

func TestSearch_QueryIsNotTrimmed(t *testing.T) {
	doc := searchDocument(t)

	assert.Empty(t, Search(doc, " plain"))
	require.Len(t, Search(doc, "plain"), 1)
	require.Len(t, Search(doc, "plain no"), 1)
}

func TestFilterByCategory(t *testing.T) {
	env := setupTestStore(t)
	doc := emptyDocument()
	_, err := doc.AddAdSet("S", "", fixedNow)
	require.NoError(t, err)
	for id, file := range map[string]string{"img00001": "/m/a.PNG", "vid00001": "/m/b.mp4", "aud00001": "/m/c.mp3", "none0001": ""} {
		require.NoError(t, doc.InsertAd("S", domain.NewAd(id, domain.AdFields{Name: "spot " + id, FilePath: file}, fixedNow)))
	}
	results := env.store.Search(doc, "spot")
	require.Len(t, results, 4)

	ids := func(rs []domain.SearchResult) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.AdID)
		}
		return out
	}
	assert.Equal(t, []string{"img00001"}, ids(env.store.FilterByCategory(results, classify.CategoryImage)))
	assert.Equal(t, []string{"vid00001"}, ids(env.store.FilterByCategory(results, classify.CategoryVideo)))
	assert.Equal(t, []string{"aud00001"}, ids(env.store.FilterByCategory(results, classify.CategoryAudio)))
	assert.Equal(t, []string{"none0001"}, ids(env.store.FilterByCategory(results, classify.CategoryUnknown)))
	assert.Len(t, results, 4, "input is not modified")
}

func TestSearch_TraversalOrder(t *testing.T) {
	doc := searchDocument(t)

	results := Search(doc, "e")
	var ids []string
	for _, r := range results {
		ids = append(ids, r.AdID)
	}
	assert.Equal(t, []string{"demo001", "demo002", "demo003", "notags01", "umlaut01"}, ids)
}

func TestSearch_MatchesTagsAndDescription(t *testing.T) {
	doc := searchDocument(t)

	results := Search(doc, "TEXT-AD")
	require.Len(t, results, 1)
	assert.Equal(t, "Google Ads", results[0].AdSetName)

	results = Search(doc, "no tags")
	require.Len(t, results, 1)
	assert.Equal(t, "notags01", results[0].AdID)

	results = Search(doc, "GRÖSSE")
	require.Len(t, results, 1, "Unicode case folding")
	assert.Equal(t, "umlaut01", results[0].AdID)
}

// Every ad whose name, description or any tag contains the query, ignoring
// case, is returned; no other ad is.
func TestSearch_Correctness(t *testing.T) {
	doc := searchDocument(t)
	queries := []string{"a", "VIDEO", "sum", "product", "google", "zzz", "Story", "plain", "t"}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			want := map[string]bool{}
			for set := range doc.AdSets.Values() {
				for adID, ad := range set.Ads.All() {
					lq := strings.ToLower(q)
					hit := strings.Contains(strings.ToLower(ad.Name), lq) ||
						strings.Contains(strings.ToLower(ad.Description), lq)
					for _, tag := range ad.Tags {
						hit = hit || strings.Contains(strings.ToLower(tag), lq)
					}
					if hit {
						want[adID] = true
					}
				}
			}

			got := map[string]bool{}
			for _, r := range Search(doc, q) {
				got[r.AdID] = true
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestComputeStatistics(t *testing.T) {
	doc := domain.DefaultDocument(fixedNow)
	_, err := doc.AddAdSet("Files", "", fixedNow)
	require.NoError(t, err)
	files := []string{"a.png", "b.JPG", "c.mp4", "d.mp3", "e.txt", ""}
	for i, f := range files {
		require.NoError(t, doc.InsertAd("Files", domain.NewAd(fmt.Sprintf("file%04d", i), domain.AdFields{FilePath: f}, fixedNow)))
	}

	stats := ComputeStatistics(doc, classify.Default())

	assert.Equal(t, 3, stats.TotalAdSets)
	assert.Equal(t, 9, stats.TotalAds)
	assert.Equal(t, map[string]int{"images": 2, "videos": 1, "audio": 1, "other": 1}, stats.ByCategory)
	assert.Equal(t, map[string]int{"Social Media Ads": 2, "Google Ads": 1, "Files": 6}, stats.BySet)
	assert.Equal(t, map[string]int{"images": 2, "videos": 1, "audio": 1, "other": 1}, stats.BySetCategory["Files"])
	assert.Equal(t, map[string]int{"images": 0, "videos": 0, "audio": 0, "other": 0}, stats.BySetCategory["Google Ads"])
}

func TestComputeStatistics_Empty(t *testing.T) {
	stats := ComputeStatistics(&domain.Document{}, classify.Default())

	assert.Equal(t, 0, stats.TotalAds)
	assert.Equal(t, map[string]int{"images": 0, "videos": 0, "audio": 0, "other": 0}, stats.ByCategory)
	assert.Empty(t, stats.BySet)
	assert.Empty(t, stats.BySetCategory)
}

func TestTree(t *testing.T) {
	env := setupTestStore(t)
	doc := domain.DefaultDocument(fixedNow)
	ad, _ := doc.Ad("Social Media Ads", "demo002")
	ad.FilePath = "media/clip.mp4"

	tree := env.store.Tree(doc)

	require.Len(t, tree.Nodes, 1+2+3)
	assert.Len(t, tree.Edges, 2+3)
	assert.Equal(t, domain.NodeCampaign, tree.Nodes[0].Kind)
	assert.Equal(t, domain.DefaultCampaignName, tree.Nodes[0].Label)

	setNode := tree.Nodes[1]
	assert.Equal(t, domain.NodeAdSet, setNode.Kind)
	assert.True(t, strings.HasPrefix(setNode.ID, "adset_"))
	assert.Equal(t, setNode.ID, env.store.Tree(doc).Nodes[1].ID, "node ids are stable")

	assert.Equal(t, "ad_demo001", tree.Nodes[2].ID)
	assert.Equal(t, "unknown", tree.Nodes[2].Category)
	assert.Equal(t, "video", tree.Nodes[3].Category)
	assert.Equal(t, domain.TreeEdge{From: setNode.ID, To: "ad_demo001"}, tree.Edges[1])
}
