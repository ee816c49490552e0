package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerBackupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBackups",
		Method:      http.MethodGet,
		Path:        "/api/v1/backups",
		Summary:     "List backups",
		Description: "Lists backup archives, newest first",
		Tags:        []string{"Backup"},
	}, s.handleListBackups)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBackup",
		Method:        http.MethodPost,
		Path:          "/api/v1/backups",
		Summary:       "Create backup",
		Description:   "Writes an archive of the current document and its media to the backup directory",
		Tags:          []string{"Backup"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "downloadBackup",
		Method:      http.MethodGet,
		Path:        "/api/v1/backups/{id}/download",
		Summary:     "Download backup",
		Description: "Downloads a backup archive",
		Tags:        []string{"Backup"},
	}, s.handleDownloadBackup)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBackup",
		Method:        http.MethodDelete,
		Path:          "/api/v1/backups/{id}",
		Summary:       "Delete backup",
		Description:   "Removes a backup archive",
		Tags:          []string{"Backup"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "restoreBackup",
		Method:      http.MethodPost,
		Path:        "/api/v1/backups/{id}/restore",
		Summary:     "Restore backup",
		Description: "Replaces the document with the one stored in a backup; media files are not touched",
		Tags:        []string{"Backup"},
	}, s.handleRestoreBackup)
}

// === DTOs ===

// BackupResponse describes a backup archive.
type BackupResponse struct {
	ID        string    `json:"id" doc:"Backup ID"`
	Size      int64     `json:"size" doc:"Archive size in bytes"`
	CreatedAt time.Time `json:"created_at" doc:"When the backup was taken"`
}

// ListBackupsOutput wraps the backup list for Huma.
type ListBackupsOutput struct {
	Body struct {
		Backups []BackupResponse `json:"backups"`
	}
}

// CreateBackupResponse reports a new backup.
type CreateBackupResponse struct {
	ID       string `json:"id" doc:"Backup ID"`
	Size     int64  `json:"size" doc:"Archive size in bytes"`
	AdSets   int    `json:"ad_sets" doc:"Ad sets archived"`
	Ads      int    `json:"ads" doc:"Ads archived"`
	Media    int    `json:"media" doc:"Media files archived"`
	Skipped  int    `json:"skipped" doc:"Referenced media files that were missing"`
	Duration string `json:"duration" doc:"Time taken"`
	Checksum string `json:"checksum" doc:"SHA-256 of the archive"`
}

// CreateBackupOutput wraps the new backup for Huma.
type CreateBackupOutput struct {
	Body CreateBackupResponse
}

// BackupIDInput identifies a backup.
type BackupIDInput struct {
	ID string `path:"id" doc:"Backup ID"`
}

// RestoreBackupResponse reports a restore and the document it produced.
type RestoreBackupResponse struct {
	ID       string           `json:"id" doc:"Backup ID"`
	AdSets   int              `json:"ad_sets" doc:"Ad sets restored"`
	Ads      int              `json:"ads" doc:"Ads restored"`
	Duration string           `json:"duration" doc:"Time taken"`
	Document DocumentResponse `json:"document" doc:"The restored document"`
}

// RestoreBackupOutput wraps the restore result for Huma.
type RestoreBackupOutput struct {
	Body RestoreBackupResponse
}

// === Handlers ===

func (s *Server) handleListBackups(ctx context.Context, _ *struct{}) (*ListBackupsOutput, error) {
	backups, err := s.campaign.ListBackups(ctx)
	if err != nil {
		return nil, s.fail(err, "failed to list backups")
	}

	out := &ListBackupsOutput{}
	out.Body.Backups = make([]BackupResponse, 0, len(backups))
	for _, b := range backups {
		out.Body.Backups = append(out.Body.Backups, BackupResponse{
			ID:        b.ID,
			Size:      b.Size,
			CreatedAt: b.CreatedAt,
		})
	}
	return out, nil
}

func (s *Server) handleCreateBackup(ctx context.Context, _ *struct{}) (*CreateBackupOutput, error) {
	result, err := s.campaign.CreateBackup(ctx)
	if err != nil {
		return nil, s.fail(err, "failed to create backup")
	}

	return &CreateBackupOutput{Body: CreateBackupResponse{
		ID:       result.ID,
		Size:     result.Size,
		AdSets:   result.Counts.AdSets,
		Ads:      result.Counts.Ads,
		Media:    result.Counts.Media,
		Skipped:  result.Counts.Skipped,
		Duration: result.Duration.String(),
		Checksum: result.Checksum,
	}}, nil
}

func (s *Server) handleDownloadBackup(ctx context.Context, input *BackupIDInput) (*huma.StreamResponse, error) {
	b, err := s.campaign.Backup(ctx, input.ID)
	if err != nil {
		return nil, s.fail(err, "failed to get backup")
	}

	f, err := os.Open(b.Path)
	if err != nil {
		return nil, s.fail(err, "failed to open backup file")
	}

	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			defer f.Close()
			ctx.SetHeader("Content-Type", "application/zip")
			ctx.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.ID+".zip"))
			if _, err := io.Copy(ctx.BodyWriter(), f); err != nil {
				s.logger.Warn("backup download interrupted", "id", b.ID, "error", err)
			}
		},
	}, nil
}

func (s *Server) handleDeleteBackup(ctx context.Context, input *BackupIDInput) (*struct{}, error) {
	if err := s.campaign.DeleteBackup(ctx, input.ID); err != nil {
		return nil, s.fail(err, "failed to delete backup")
	}
	return nil, nil
}

func (s *Server) handleRestoreBackup(ctx context.Context, input *BackupIDInput) (*RestoreBackupOutput, error) {
	result, err := s.campaign.RestoreBackup(ctx, input.ID)
	if err != nil {
		return nil, s.fail(err, "failed to restore backup")
	}

	doc, err := s.campaign.Document()
	if err != nil {
		return nil, s.fail(err, "failed to read restored document")
	}

	return &RestoreBackupOutput{Body: RestoreBackupResponse{
		ID:       result.ID,
		AdSets:   result.AdSets,
		Ads:      result.Ads,
		Duration: result.Duration.String(),
		Document: s.documentResponse(doc),
	}}, nil
}
