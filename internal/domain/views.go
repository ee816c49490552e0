package domain

// SearchResult is one match returned by a search, in document order.
type SearchResult struct {
	AdSetName string `json:"ad_set_name"`
	AdID      string `json:"ad_id"`
	Ad        *Ad    `json:"ad"`
}

// Stats aggregates a document.
type Stats struct {
	TotalAdSets int `json:"total_ad_sets"`
	TotalAds    int `json:"total_ads"`
	// ByCategory counts ads per media category ("images", "videos", "audio",
	// "other"). Ads without a file are not counted here.
	ByCategory map[string]int `json:"by_category"`
	// BySet counts ads per ad set name.
	BySet map[string]int `json:"by_set"`
	// BySetCategory breaks ByCategory down per ad set name.
	BySetCategory map[string]map[string]int `json:"by_set_category"`
}

// Node kinds in a campaign tree.
const (
	NodeCampaign = "campaign"
	NodeAdSet    = "ad_set"
	NodeAd       = "ad"
)

// TreeNode is a vertex of the campaign diagram.
type TreeNode struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
}

// TreeEdge links a parent node to a child node.
type TreeEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Tree is the diagram structure of a document. It carries no layout.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
	Edges []TreeEdge `json:"edges"`
}
