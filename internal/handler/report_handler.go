package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ctos-api/internal/dto"
	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/service"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
	"github.com/noah-isme/ctos-api/pkg/response"
)

type reportService interface {
	Summary(ctx context.Context, actor service.Actor) (*models.ReportSummary, error)
	CreateJob(ctx context.Context, actor service.Actor, req dto.ExportRequest) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, actor service.Actor, id string) (*dto.ReportStatusResponse, error)
	ListJobs(ctx context.Context, actor service.Actor, limit int) ([]dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes the reports dashboard and export jobs.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Summary godoc
// @Summary Reports dashboard
// @Description Site enrollment, document totals and completion across scopes
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// CreateExport godoc
// @Summary Queue an export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/exports [post]
func (h *ReportHandler) CreateExport(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	job, err := h.service.CreateJob(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// ListExports godoc
// @Summary My recent exports
// @Tags Reports
// @Produce json
// @Param limit query int false "Maximum jobs returned"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/exports [get]
func (h *ReportHandler) ListExports(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		response.Error(c, err)
		return
	}
	jobs, err := h.service.ListJobs(c.Request.Context(), actor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.service.GetStatus(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	result, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	info, err := result.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}
	contentType := "text/csv"
	if result.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, result.File, nil)
}
