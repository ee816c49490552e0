package api

import (
	"net/url"
	"path/filepath"

	"github.com/mediatree/mediatree-server/internal/domain"
)

// AdResponse contains ad data in API responses.
type AdResponse struct {
	ID           string   `json:"id" doc:"Ad ID"`
	Name         string   `json:"name" doc:"Ad name"`
	Description  string   `json:"description" doc:"Ad description"`
	Tags         []string `json:"tags" doc:"Tags in insertion order"`
	URL          string   `json:"url" doc:"Landing page URL"`
	ScheduleDate *string  `json:"schedule_date" doc:"Scheduled date (YYYY-MM-DD) or null"`
	CreatedAt    string   `json:"created_at" doc:"Creation time"`
	FilePath     string   `json:"file_path" doc:"Stored media path, empty for placeholder ads"`
	MimeType     string   `json:"mime_type" doc:"MIME type of the media file"`
	BlurHash     string   `json:"blur_hash,omitempty" doc:"BlurHash placeholder for images"`
	MediaURL     string   `json:"media_url,omitempty" doc:"Where the media file is served"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty" doc:"Where the thumbnail is served"`
}

// AdSetResponse contains ad set data in API responses.
type AdSetResponse struct {
	Name        string       `json:"name" doc:"Ad set name"`
	Description string       `json:"description" doc:"Ad set description"`
	CreatedAt   string       `json:"created_at" doc:"Creation time"`
	Ads         []AdResponse `json:"ads" doc:"Ads in insertion order"`
}

// CampaignResponse contains campaign settings in API responses.
type CampaignResponse struct {
	Name      string `json:"name" doc:"Campaign name"`
	Objective string `json:"objective" doc:"Campaign objective"`
	CreatedAt string `json:"created_at" doc:"Creation time"`
}

// DocumentResponse is the whole campaign tree.
type DocumentResponse struct {
	Campaign CampaignResponse `json:"campaign"`
	AdSets   []AdSetResponse  `json:"ad_sets" doc:"Ad sets in insertion order"`
}

// MessageResponse is a simple acknowledgement.
type MessageResponse struct {
	Message string `json:"message" doc:"Human-readable result"`
}

// MessageOutput wraps a message for Huma.
type MessageOutput struct {
	Body MessageResponse
}

func campaignResponse(c domain.Campaign) CampaignResponse {
	return CampaignResponse{
		Name:      c.Name,
		Objective: c.Objective,
		CreatedAt: c.CreatedAt.String(),
	}
}

func (s *Server) adResponse(ad *domain.Ad) AdResponse {
	resp := AdResponse{
		ID:           ad.ID,
		Name:         ad.Name,
		Description:  ad.Description,
		Tags:         ad.Tags,
		URL:          ad.URL,
		ScheduleDate: ad.ScheduleDate,
		CreatedAt:    ad.CreatedAt.String(),
		FilePath:     ad.FilePath,
		MimeType:     ad.MimeType,
		BlurHash:     ad.BlurHash,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}

	if ad.HasFile() && s.media != nil {
		name := url.PathEscape(filepath.Base(ad.FilePath))
		resp.MediaURL = "/api/v1/media/" + name
		if _, ok := s.media.DerivativePath(ad.FilePath); ok {
			resp.ThumbnailURL = "/api/v1/media/" + name + "/thumbnail"
		}
	}
	return resp
}

func (s *Server) adSetResponse(set *domain.AdSet) AdSetResponse {
	resp := AdSetResponse{
		Name:        set.Name,
		Description: set.Description,
		CreatedAt:   set.CreatedAt.String(),
		Ads:         make([]AdResponse, 0, set.Ads.Len()),
	}
	for _, ad := range set.Ads.All() {
		resp.Ads = append(resp.Ads, s.adResponse(ad))
	}
	return resp
}

func (s *Server) documentResponse(doc *domain.Document) DocumentResponse {
	resp := DocumentResponse{
		Campaign: campaignResponse(doc.Campaign),
		AdSets:   make([]AdSetResponse, 0, doc.AdSets.Len()),
	}
	for _, set := range doc.AdSets.All() {
		resp.AdSets = append(resp.AdSets, s.adSetResponse(set))
	}
	return resp
}
