package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerCampaignRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getDocument",
		Method:      http.MethodGet,
		Path:        "/api/v1/document",
		Summary:     "Get document",
		Description: "Returns the whole campaign tree",
		Tags:        []string{"Campaign"},
	}, s.handleGetDocument)

	huma.Register(s.api, huma.Operation{
		OperationID:  "importDocument",
		Method:       http.MethodPost,
		Path:         "/api/v1/document/import",
		Summary:      "Import document",
		Description:  "Replaces the whole document with a JSON metadata export",
		Tags:         []string{"Campaign", "Import"},
		MaxBodyBytes: MaxImportSize,
	}, s.handleImportDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCampaign",
		Method:      http.MethodGet,
		Path:        "/api/v1/campaign",
		Summary:     "Get campaign",
		Description: "Returns the campaign settings",
		Tags:        []string{"Campaign"},
	}, s.handleGetCampaign)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveCampaign",
		Method:      http.MethodPut,
		Path:        "/api/v1/campaign",
		Summary:     "Save campaign",
		Description: "Overwrites the campaign name and objective",
		Tags:        []string{"Campaign"},
	}, s.handleSaveCampaign)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetCampaign",
		Method:      http.MethodPost,
		Path:        "/api/v1/campaign/reset",
		Summary:     "Reset campaign",
		Description: "Restores the default campaign name and objective; ad sets are untouched",
		Tags:        []string{"Campaign"},
	}, s.handleResetCampaign)
}

// === DTOs ===

// DocumentOutput wraps the document for Huma.
type DocumentOutput struct {
	Body DocumentResponse
}

// ImportDocumentInput carries a raw JSON document.
type ImportDocumentInput struct {
	RawBody []byte `contentType:"application/json"`
}

// CampaignOutput wraps campaign settings for Huma.
type CampaignOutput struct {
	Body CampaignResponse
}

// SaveCampaignRequest is the request body for saving campaign settings.
type SaveCampaignRequest struct {
	Name      string `json:"name" validate:"max=200" doc:"Campaign name"`
	Objective string `json:"objective" validate:"max=2000" doc:"Campaign objective"`
}

// SaveCampaignInput wraps the save campaign request for Huma.
type SaveCampaignInput struct {
	Body SaveCampaignRequest
}

// === Handlers ===

func (s *Server) handleGetDocument(_ context.Context, _ *struct{}) (*DocumentOutput, error) {
	doc, err := s.campaign.Document()
	if err != nil {
		return nil, s.fail(err, "failed to read document")
	}
	return &DocumentOutput{Body: s.documentResponse(doc)}, nil
}

func (s *Server) handleImportDocument(ctx context.Context, input *ImportDocumentInput) (*DocumentOutput, error) {
	doc, err := s.campaign.ImportDocument(ctx, input.RawBody)
	if err != nil {
		return nil, s.fail(err, "failed to import document")
	}
	return &DocumentOutput{Body: s.documentResponse(doc)}, nil
}

func (s *Server) handleGetCampaign(_ context.Context, _ *struct{}) (*CampaignOutput, error) {
	return &CampaignOutput{Body: campaignResponse(s.campaign.Campaign())}, nil
}

func (s *Server) handleSaveCampaign(ctx context.Context, input *SaveCampaignInput) (*CampaignOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, s.fail(err, "invalid campaign")
	}

	c, err := s.campaign.SaveCampaign(ctx, input.Body.Name, input.Body.Objective)
	if err != nil {
		return nil, s.fail(err, "failed to save campaign")
	}
	return &CampaignOutput{Body: campaignResponse(c)}, nil
}

func (s *Server) handleResetCampaign(ctx context.Context, _ *struct{}) (*CampaignOutput, error) {
	c, err := s.campaign.ResetCampaign(ctx)
	if err != nil {
		return nil, s.fail(err, "failed to reset campaign")
	}
	return &CampaignOutput{Body: campaignResponse(c)}, nil
}
