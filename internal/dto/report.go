package dto

import (
	"time"

	"github.com/noah-isme/ctos-api/internal/models"
)

// ExportRequest captures the POST /reports/exports payload. Filters carries
// the document list filters (tab, scope, status, ...) the export should honour.
type ExportRequest struct {
	Type    models.ReportType   `json:"type" validate:"required"`
	Format  models.ReportFormat `json:"format" validate:"required"`
	Filters map[string]string   `json:"filters,omitempty"`
}

// ReportJobResponse is returned after enqueueing an export.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Type     models.ReportType   `json:"type"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID         string              `json:"id"`
	Type       models.ReportType   `json:"type"`
	Format     models.ReportFormat `json:"format"`
	Status     models.ReportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	ResultURL  *string             `json:"result_url,omitempty"`
	Error      *string             `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// NewReportStatusResponse maps a job row to its API view.
func NewReportStatusResponse(job models.ReportJob) ReportStatusResponse {
	resp := ReportStatusResponse{
		ID:         job.ID,
		Type:       job.Type,
		Format:     job.Params.Format,
		Status:     job.Status,
		Progress:   job.Progress,
		ResultURL:  job.ResultURL,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp
}
