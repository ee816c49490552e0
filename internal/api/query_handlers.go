package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/media/classify"
)

func (s *Server) registerQueryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchAds",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search ads",
		Description: "Case-insensitive substring match over ad name, description and tags",
		Tags:        []string{"Query"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Get statistics",
		Description: "Counts ad sets and ads, by media category and by ad set",
		Tags:        []string{"Query"},
	}, s.handleStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTree",
		Method:      http.MethodGet,
		Path:        "/api/v1/tree",
		Summary:     "Get tree",
		Description: "Returns the campaign hierarchy as nodes and edges",
		Tags:        []string{"Query"},
	}, s.handleTree)
}

// === DTOs ===

// SearchInput contains the search query and an optional media type filter.
type SearchInput struct {
	Query string `query:"q" doc:"Search text; blank matches nothing"`
	Type  string `query:"type" enum:"all,images,videos,audio" default:"all" doc:"Only ads whose media file is of this type"`
}

// SearchHit is a single search match.
type SearchHit struct {
	AdSet string     `json:"ad_set" doc:"Ad set containing the ad"`
	Ad    AdResponse `json:"ad"`
}

// SearchResponse contains search matches in document order.
type SearchResponse struct {
	Query   string      `json:"query" doc:"The query as received"`
	Total   int         `json:"total" doc:"Number of matches"`
	Results []SearchHit `json:"results"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// StatsOutput wraps statistics for Huma.
type StatsOutput struct {
	Body domain.Stats
}

// TreeOutput wraps the tree for Huma.
type TreeOutput struct {
	Body domain.Tree
}

// === Handlers ===

func (s *Server) handleSearch(_ context.Context, input *SearchInput) (*SearchOutput, error) {
	var category classify.Category
	if input.Type != "all" {
		category, _ = classify.ParseCategory(input.Type)
	}
	results := s.campaign.Search(input.Query, category)

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{AdSet: r.AdSetName, Ad: s.adResponse(r.Ad)})
	}

	return &SearchOutput{Body: SearchResponse{
		Query:   input.Query,
		Total:   len(hits),
		Results: hits,
	}}, nil
}

func (s *Server) handleStats(_ context.Context, _ *struct{}) (*StatsOutput, error) {
	return &StatsOutput{Body: s.campaign.Statistics()}, nil
}

func (s *Server) handleTree(_ context.Context, _ *struct{}) (*TreeOutput, error) {
	return &TreeOutput{Body: s.campaign.Tree()}, nil
}
