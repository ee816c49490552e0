package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mediatree/mediatree-server/internal/tabular"
)

func (s *Server) registerTransferRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "exportArchive",
		Method:      http.MethodGet,
		Path:        "/api/v1/export/archive",
		Summary:     "Export archive",
		Description: "Downloads a zip with the document and every referenced media file",
		Tags:        []string{"Export"},
	}, s.handleExportArchive)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportTable",
		Method:      http.MethodGet,
		Path:        "/api/v1/export/table",
		Summary:     "Export table",
		Description: "Downloads one CSV row per ad, with a row for every empty ad set",
		Tags:        []string{"Export"},
	}, s.handleExportTable)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportSummary",
		Method:      http.MethodGet,
		Path:        "/api/v1/export/summary",
		Summary:     "Export summary",
		Description: "Downloads one CSV row per ad set with counts by media category",
		Tags:        []string{"Export"},
	}, s.handleExportSummary)

	huma.Register(s.api, huma.Operation{
		OperationID:  "importTable",
		Method:       http.MethodPost,
		Path:         "/api/v1/import/table",
		Summary:      "Import table",
		Description:  "Imports a CSV table, merging into or replacing the existing ad sets",
		Tags:         []string{"Import"},
		MaxBodyBytes: MaxImportSize,
	}, s.handleImportTable)
}

// === DTOs ===

// ImportTableInput carries a raw CSV table.
type ImportTableInput struct {
	Mode    string `query:"mode" enum:"merge,replace" default:"merge" doc:"merge keeps existing ad sets; replace clears them first"`
	RawBody []byte `contentType:"text/csv"`
}

// ImportTableOutput wraps the import result for Huma.
type ImportTableOutput struct {
	Body *tabular.ImportResult
}

// === Handlers ===

func (s *Server) handleExportArchive(ctx context.Context, _ *struct{}) (*huma.StreamResponse, error) {
	var buf bytes.Buffer
	counts, err := s.campaign.ExportArchive(ctx, &buf)
	if err != nil {
		return nil, s.fail(err, "failed to export archive")
	}

	s.logger.Info("archive exported",
		"ad_sets", counts.AdSets,
		"ads", counts.Ads,
		"media", counts.Media,
		"skipped", counts.Skipped)

	filename := "campaign_" + time.Now().Format("20060102_150405") + ".zip"
	return download(buf.Bytes(), "application/zip", filename), nil
}

func (s *Server) handleExportTable(_ context.Context, _ *struct{}) (*huma.StreamResponse, error) {
	var buf bytes.Buffer
	if err := s.campaign.ExportTable(&buf); err != nil {
		return nil, s.fail(err, "failed to export table")
	}
	return download(buf.Bytes(), "text/csv; charset=utf-8", "campaign_table.csv"), nil
}

func (s *Server) handleExportSummary(_ context.Context, _ *struct{}) (*huma.StreamResponse, error) {
	var buf bytes.Buffer
	if err := s.campaign.ExportSummary(&buf); err != nil {
		return nil, s.fail(err, "failed to export summary")
	}
	return download(buf.Bytes(), "text/csv; charset=utf-8", "campaign_summary.csv"), nil
}

func (s *Server) handleImportTable(ctx context.Context, input *ImportTableInput) (*ImportTableOutput, error) {
	mode, err := tabular.ParseMode(input.Mode)
	if err != nil {
		return nil, s.fail(err, "invalid import mode")
	}

	result, err := s.campaign.ImportTable(ctx, bytes.NewReader(input.RawBody), mode)
	if err != nil {
		return nil, s.fail(err, "failed to import table")
	}
	return &ImportTableOutput{Body: result}, nil
}

// download streams a fully rendered attachment.
func download(data []byte, contentType, filename string) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			ctx.SetHeader("Content-Type", contentType)
			ctx.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			ctx.SetHeader("Content-Length", strconv.Itoa(len(data)))
			ctx.SetHeader("Cache-Control", CacheNoStore)
			_, _ = ctx.BodyWriter().Write(data)
		},
	}
}
