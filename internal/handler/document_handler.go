package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ctos-api/internal/middleware"
	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/query"
	"github.com/noah-isme/ctos-api/internal/service"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
	"github.com/noah-isme/ctos-api/pkg/response"
)

// listingKeys are the non-filter parameters a document listing accepts.
var listingKeys = []string{"sort", "order", "page", "page_size", "offset", "limit"}

type documentService interface {
	List(ctx context.Context, actor service.Actor, raw map[string]string) (*service.DocumentPage, error)
	Stats(ctx context.Context, actor service.Actor) (*models.DocumentStats, error)
	Completeness(ctx context.Context, actor service.Actor) ([]models.ScopeCompleteness, error)
	Sections(ctx context.Context, actor service.Actor, scope string, all bool) ([]models.DocumentSection, error)
	Get(ctx context.Context, actor service.Actor, id string) (*models.Document, error)
	DownloadLink(ctx context.Context, actor service.Actor, id string) (*models.DocumentDownload, error)
	OpenFile(ctx context.Context, token string) (*os.File, *models.Document, error)
	Upload(ctx context.Context, actor service.Actor, req models.UploadDocumentRequest, file service.UploadFile) (*models.Document, error)
	Certify(ctx context.Context, actor service.Actor, id string) (*models.Document, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
}

// DocumentHandler exposes the regulatory document endpoints.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// List godoc
// @Summary List documents
// @Description Filtered, sorted and paginated document listing
// @Tags Documents
// @Produce json
// @Param tab query string false "all, my, missing, by-site or by-stage"
// @Param scope query string false "TMF, IF or ISF"
// @Param section query string false "Section ID"
// @Param site query string false "Site ID"
// @Param status query string false "Comma separated statuses"
// @Param stage query string false "before, during or after"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Param search query string false "Full text search"
// @Param mine query bool false "Only documents uploaded by the caller"
// @Param sort query string false "created_at, updated_at, document_name or version"
// @Param order query string false "asc or desc"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	values := c.Request.URL.Query()
	raw := query.FromURLValues(values)
	for _, key := range listingKeys {
		if value := values.Get(key); value != "" {
			raw[key] = value
		}
	}

	page, err := h.service.List(c.Request.Context(), actor, raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, page.Cached)
	response.JSON(c, http.StatusOK, page.Items, page.Pagination, withMeta(c, map[string]interface{}{
		"filters":   page.Filters,
		"cache_hit": page.Cached,
	}))
}

// Stats godoc
// @Summary Document counters
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/stats [get]
func (h *DocumentHandler) Stats(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Completeness godoc
// @Summary Required section completeness per scope
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/completeness [get]
func (h *DocumentHandler) Completeness(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.service.Completeness(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Sections godoc
// @Summary Document sections
// @Tags Documents
// @Produce json
// @Param scope query string false "TMF, IF or ISF"
// @Param all query bool false "Include subsections"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/sections [get]
func (h *DocumentHandler) Sections(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	all, err := queryBool(c, "all")
	if err != nil {
		response.Error(c, err)
		return
	}
	sections, err := h.service.Sections(c.Request.Context(), actor, c.Query("scope"), all != nil && *all)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// Get godoc
// @Summary Get document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// DownloadLink godoc
// @Summary Issue a signed download link
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) DownloadLink(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.service.DownloadLink(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// File godoc
// @Summary Download a document file
// @Description Streams the file behind a signed download link
// @Tags Documents
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /documents/files/{token} [get]
func (h *DocumentHandler) File(c *gin.Context) {
	file, doc, err := h.service.OpenFile(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat document file"))
		return
	}
	contentType := "application/octet-stream"
	if doc.FileType != nil && *doc.FileType != "" {
		contentType = *doc.FileType
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(doc.FilePath)))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}

// Upload godoc
// @Summary Upload document
// @Description Files a new document, fills a missing placeholder or supersedes a prior version
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param scope formData string true "TMF, IF or ISF"
// @Param section_id formData string true "Section ID"
// @Param site_id formData string false "Site ID"
// @Param document_name formData string true "Document name"
// @Param document_type formData string false "Document type"
// @Param version formData string true "Version"
// @Param supersedes_id formData string false "Document this upload replaces"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	doc, err := h.service.Upload(c.Request.Context(), actor, req, service.UploadFile{
		Name:        fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     src,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Certify godoc
// @Summary Certify document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/certify [post]
func (h *DocumentHandler) Certify(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.service.Certify(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Delete godoc
// @Summary Delete document
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
