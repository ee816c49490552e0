package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mediatree/mediatree-server/internal/domain"
)

func (s *Server) registerAdSetRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createAdSet",
		Method:        http.MethodPost,
		Path:          "/api/v1/ad-sets",
		Summary:       "Create ad set",
		Description:   "Creates an empty ad set; names must be unique",
		Tags:          []string{"Ad Sets"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateAdSet)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteAdSet",
		Method:        http.MethodDelete,
		Path:          "/api/v1/ad-sets/{name}",
		Summary:       "Delete ad set",
		Description:   "Deletes an ad set; rejected while it still has ads",
		Tags:          []string{"Ad Sets"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteAdSet)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createAd",
		Method:        http.MethodPost,
		Path:          "/api/v1/ad-sets/{name}/ads",
		Summary:       "Create ad",
		Description:   "Adds an ad without uploading media",
		Tags:          []string{"Ads"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateAd)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateAd",
		Method:      http.MethodPatch,
		Path:        "/api/v1/ad-sets/{name}/ads/{id}",
		Summary:     "Update ad",
		Description: "Merges the given fields into an ad; unknown ads are left alone",
		Tags:        []string{"Ads"},
	}, s.handleUpdateAd)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteAd",
		Method:        http.MethodDelete,
		Path:          "/api/v1/ad-sets/{name}/ads/{id}",
		Summary:       "Delete ad",
		Description:   "Deletes an ad, optionally with its media file",
		Tags:          []string{"Ads"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteAd)

	huma.Register(s.api, huma.Operation{
		OperationID:   "moveAd",
		Method:        http.MethodPost,
		Path:          "/api/v1/ad-sets/{name}/ads/{id}/move",
		Summary:       "Move ad",
		Description:   "Moves an ad unchanged into another ad set",
		Tags:          []string{"Ads"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleMoveAd)

	huma.Register(s.api, huma.Operation{
		OperationID:   "uploadMedia",
		Method:        http.MethodPost,
		Path:          "/api/v1/ad-sets/{name}/uploads",
		Summary:       "Upload media",
		Description:   "Stores the request body as a media file and creates an ad for it",
		Tags:          []string{"Ads", "Media"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  s.cfg.MaxUploadBytes,
		Middlewares:   huma.Middlewares{s.limitUploads},
	}, s.handleUpload)

	huma.Register(s.api, huma.Operation{
		OperationID: "addTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/ad-sets/{name}/tags",
		Summary:     "Add tags",
		Description: "Adds tags to every ad in an ad set",
		Tags:        []string{"Ad Sets"},
	}, s.handleAddTags)
}

// === DTOs ===

// CreateAdSetRequest is the request body for creating an ad set.
type CreateAdSetRequest struct {
	Name        string `json:"name" validate:"notblank,max=200" doc:"Unique ad set name"`
	Description string `json:"description,omitempty" validate:"max=2000" doc:"Ad set description"`
}

// CreateAdSetInput wraps the create ad set request for Huma.
type CreateAdSetInput struct {
	Body CreateAdSetRequest
}

// AdSetOutput wraps an ad set for Huma.
type AdSetOutput struct {
	Body AdSetResponse
}

// AdSetPathInput identifies an ad set.
type AdSetPathInput struct {
	Name string `path:"name" doc:"Ad set name"`
}

// CreateAdRequest is the request body for creating an ad.
type CreateAdRequest struct {
	Name         string   `json:"name" validate:"max=500" doc:"Ad name"`
	Description  string   `json:"description,omitempty" doc:"Ad description"`
	Tags         []string `json:"tags,omitempty" validate:"dive,nocomma" doc:"Tags"`
	URL          string   `json:"url,omitempty" validate:"omitempty,url" doc:"Landing page URL"`
	ScheduleDate *string  `json:"schedule_date,omitempty" validate:"omitempty,datetime=2006-01-02" doc:"Scheduled date (YYYY-MM-DD)"`
	FilePath     string   `json:"file_path,omitempty" doc:"Existing stored media path"`
	MimeType     string   `json:"mime_type,omitempty" doc:"MIME type of the media file"`
}

// CreateAdInput wraps the create ad request for Huma.
type CreateAdInput struct {
	Name string `path:"name" doc:"Ad set name"`
	Body CreateAdRequest
}

// AdOutput wraps an ad for Huma.
type AdOutput struct {
	Body AdResponse
}

// UpdateAdRequest is the request body for updating an ad. Omitted fields are
// left untouched.
type UpdateAdRequest struct {
	Name              *string   `json:"name,omitempty" validate:"omitempty,max=500" doc:"Ad name"`
	Description       *string   `json:"description,omitempty" doc:"Ad description"`
	Tags              *[]string `json:"tags,omitempty" validate:"omitempty,dive,nocomma" doc:"Replacement tag list"`
	URL               *string   `json:"url,omitempty" validate:"omitempty,url" doc:"Landing page URL"`
	ScheduleDate      *string   `json:"schedule_date,omitempty" validate:"omitempty,datetime=2006-01-02" doc:"Scheduled date (YYYY-MM-DD)"`
	ClearScheduleDate bool      `json:"clear_schedule_date,omitempty" doc:"Set the schedule date to null"`
	FilePath          *string   `json:"file_path,omitempty" doc:"Stored media path"`
	MimeType          *string   `json:"mime_type,omitempty" doc:"MIME type"`
}

// UpdateAdInput wraps the update ad request for Huma.
type UpdateAdInput struct {
	Name string `path:"name" doc:"Ad set name"`
	ID   string `path:"id" doc:"Ad ID"`
	Body UpdateAdRequest
}

// UpdateAdResponse reports the outcome of an update.
type UpdateAdResponse struct {
	Updated bool        `json:"updated" doc:"False when the ad set or ad does not exist"`
	Ad      *AdResponse `json:"ad,omitempty" doc:"The ad after the update"`
}

// UpdateAdOutput wraps the update result for Huma.
type UpdateAdOutput struct {
	Body UpdateAdResponse
}

// DeleteAdInput identifies an ad to delete.
type DeleteAdInput struct {
	Name    string `path:"name" doc:"Ad set name"`
	ID      string `path:"id" doc:"Ad ID"`
	Cascade bool   `query:"cascade" doc:"Also delete the media file and thumbnail"`
}

// MoveAdRequest is the request body for moving an ad.
type MoveAdRequest struct {
	To string `json:"to" validate:"notblank" doc:"Destination ad set name"`
}

// MoveAdInput wraps the move request for Huma.
type MoveAdInput struct {
	Name string `path:"name" doc:"Source ad set name"`
	ID   string `path:"id" doc:"Ad ID"`
	Body MoveAdRequest
}

// UploadInput carries an uploaded file as the raw request body.
type UploadInput struct {
	Name     string `path:"name" doc:"Ad set name"`
	Filename string `query:"filename" required:"true" doc:"Original filename; its extension selects the media type"`
	Tags     string `query:"tags" doc:"Tags for the new ad, comma-separated"`
	RawBody  []byte `contentType:"application/octet-stream"`
}

// AddTagsRequest is the request body for bulk tagging.
type AddTagsRequest struct {
	Tags []string `json:"tags" validate:"min=1,dive,nocomma" doc:"Tags to add"`
}

// AddTagsInput wraps the bulk tag request for Huma.
type AddTagsInput struct {
	Name string `path:"name" doc:"Ad set name"`
	Body AddTagsRequest
}

// AddTagsResponse reports how many ads gained a tag.
type AddTagsResponse struct {
	Updated int `json:"updated" doc:"Number of ads that changed"`
}

// AddTagsOutput wraps the bulk tag result for Huma.
type AddTagsOutput struct {
	Body AddTagsResponse
}

// === Handlers ===

func (s *Server) handleCreateAdSet(ctx context.Context, input *CreateAdSetInput) (*AdSetOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, s.fail(err, "invalid ad set")
	}

	set, err := s.campaign.CreateAdSet(ctx, input.Body.Name, input.Body.Description)
	if err != nil {
		return nil, s.fail(err, "failed to create ad set")
	}
	return &AdSetOutput{Body: s.adSetResponse(&set)}, nil
}

func (s *Server) handleDeleteAdSet(ctx context.Context, input *AdSetPathInput) (*struct{}, error) {
	if err := s.campaign.DeleteAdSet(ctx, input.Name); err != nil {
		return nil, s.fail(err, "failed to delete ad set")
	}
	return nil, nil
}

func (s *Server) handleCreateAd(ctx context.Context, input *CreateAdInput) (*AdOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, s.fail(err, "invalid ad")
	}

	b := input.Body
	ad, err := s.campaign.CreateAd(ctx, input.Name, domain.AdFields{
		Name:         b.Name,
		Description:  b.Description,
		Tags:         b.Tags,
		URL:          b.URL,
		ScheduleDate: b.ScheduleDate,
		FilePath:     b.FilePath,
		MimeType:     b.MimeType,
	})
	if err != nil {
		return nil, s.fail(err, "failed to create ad")
	}
	return &AdOutput{Body: s.adResponse(&ad)}, nil
}

func (s *Server) handleUpdateAd(ctx context.Context, input *UpdateAdInput) (*UpdateAdOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, s.fail(err, "invalid ad update")
	}

	ad, ok, err := s.campaign.UpdateAd(ctx, input.Name, input.ID, toAdUpdate(input.Body))
	if err != nil {
		return nil, s.fail(err, "failed to update ad")
	}
	if !ok {
		return &UpdateAdOutput{Body: UpdateAdResponse{Updated: false}}, nil
	}

	resp := s.adResponse(&ad)
	return &UpdateAdOutput{Body: UpdateAdResponse{Updated: true, Ad: &resp}}, nil
}

func toAdUpdate(b UpdateAdRequest) domain.AdUpdate {
	var upd domain.AdUpdate
	if b.Name != nil {
		upd.Name = domain.Some(*b.Name)
	}
	if b.Description != nil {
		upd.Description = domain.Some(*b.Description)
	}
	if b.Tags != nil {
		upd.Tags = domain.Some(*b.Tags)
	}
	if b.URL != nil {
		upd.URL = domain.Some(*b.URL)
	}
	switch {
	case b.ClearScheduleDate:
		upd.ScheduleDate = domain.Some[*string](nil)
	case b.ScheduleDate != nil:
		upd.ScheduleDate = domain.Some(b.ScheduleDate)
	}
	if b.FilePath != nil {
		upd.FilePath = domain.Some(*b.FilePath)
	}
	if b.MimeType != nil {
		upd.MimeType = domain.Some(*b.MimeType)
	}
	return upd
}

func (s *Server) handleDeleteAd(ctx context.Context, input *DeleteAdInput) (*struct{}, error) {
	if err := s.campaign.DeleteAd(ctx, input.Name, input.ID, input.Cascade); err != nil {
		return nil, s.fail(err, "failed to delete ad")
	}
	return nil, nil
}

func (s *Server) handleMoveAd(ctx context.Context, input *MoveAdInput) (*struct{}, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, s.fail(err, "invalid move")
	}

	if err := s.campaign.MoveAd(ctx, input.Name, input.Body.To, input.ID); err != nil {
		return nil, s.fail(err, "failed to move ad")
	}
	return nil, nil
}

func (s *Server) handleUpload(ctx context.Context, input *UploadInput) (*AdOutput, error) {
	ad, err := s.campaign.Upload(ctx, input.Name, input.Filename, input.RawBody, domain.ParseTagList(input.Tags))
	if err != nil {
		return nil, s.fail(err, "failed to upload media")
	}
	return &AdOutput{Body: s.adResponse(&ad)}, nil
}

func (s *Server) handleAddTags(ctx context.Context, input *AddTagsInput) (*AddTagsOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, s.fail(err, "invalid tags")
	}

	n, err := s.campaign.BulkAddTags(ctx, input.Name, input.Body.Tags)
	if err != nil {
		return nil, s.fail(err, "failed to add tags")
	}
	return &AddTagsOutput{Body: AddTagsResponse{Updated: n}}, nil
}
