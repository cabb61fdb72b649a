package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	"github.com/noah-isme/ctos-api/internal/query"
	"github.com/noah-isme/ctos-api/internal/repository"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
	"github.com/noah-isme/ctos-api/pkg/storage"
)

type documentRepository interface {
	Execute(ctx context.Context, desc query.QueryDescriptor) ([]models.Document, error)
	Count(ctx context.Context, desc query.QueryDescriptor) (int, error)
	FindByID(ctx context.Context, id string, asOf time.Time) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	CreateVersion(ctx context.Context, doc *models.Document) error
	Fulfill(ctx context.Context, doc *models.Document) error
	Certify(ctx context.Context, id, userID string, at time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, asOf time.Time) (*models.DocumentStats, error)
	Completeness(ctx context.Context) ([]models.ScopeCompleteness, error)
}

type sectionRepository interface {
	FindByID(ctx context.Context, id string) (*models.DocumentSection, error)
	List(ctx context.Context, scope *models.DocumentScope, rootsOnly bool) ([]models.DocumentSection, error)
}

type siteLookup interface {
	FindByID(ctx context.Context, id string) (*models.Site, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type fileStore interface {
	SaveStream(filename string, r io.Reader, limit int64) (int64, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type urlSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

// DocumentServiceConfig tunes listing and upload behaviour.
type DocumentServiceConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	ListCacheTTL    time.Duration
	MaxFileSize     int64
	AllowedMIMEs    []string
	DownloadPath    string
}

// DocumentPage is one page of a document listing.
type DocumentPage struct {
	Items      []models.Document  `json:"items"`
	Pagination *models.Pagination `json:"-"`
	Filters    map[string]string  `json:"filters"`
	Cached     bool               `json:"-"`
}

// UploadFile is the binary part of an upload.
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

type cachedDocumentPage struct {
	Items []models.Document `json:"items"`
	Total int               `json:"total"`
}

const documentCacheNamespace = "documents"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DocumentService runs document listings through the filter normalizer, query
// builder and repository, and guards document mutations with the role policy.
type DocumentService struct {
	docs      documentRepository
	sections  sectionRepository
	sites     siteLookup
	audit     auditRecorder
	files     fileStore
	signer    urlSigner
	cache     *CacheService
	metrics   *MetricsService
	builder   *query.Builder
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DocumentServiceConfig
	now       func() time.Time
}

// NewDocumentService wires the document use cases.
func NewDocumentService(
	docs documentRepository,
	sections sectionRepository,
	sites siteLookup,
	audit auditRecorder,
	files fileStore,
	signer urlSigner,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg DocumentServiceConfig,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 25
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = query.DefaultMaxLimit
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/api/v1/documents/files/"
	}
	return &DocumentService{
		docs:      docs,
		sections:  sections,
		sites:     sites,
		audit:     audit,
		files:     files,
		signer:    signer,
		cache:     cache,
		metrics:   metrics,
		builder:   query.NewBuilder(cfg.MaxPageSize),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock overrides the clock; used by tests.
func (s *DocumentService) WithClock(now func() time.Time) *DocumentService {
	s.now = now
	s.builder = s.builder.WithClock(now)
	return s
}

// List normalizes raw filter parameters, builds a descriptor and returns one
// page of matching documents with the total count.
func (s *DocumentService) List(ctx context.Context, actor Actor, raw map[string]string) (*DocumentPage, error) {
	if err := actor.Can(policy.CapViewDocuments); err != nil {
		return nil, err
	}
	desc, criteria, err := s.Describe(actor, raw)
	if err != nil {
		return nil, err
	}

	key := Key(documentCacheNamespace, "list", string(actor.Role), desc.Key())
	var cached cachedDocumentPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &DocumentPage{
			Items:      cached.Items,
			Pagination: models.NewPagination(desc.Offset(), desc.Limit(), cached.Total),
			Filters:    criteria.Values(),
			Cached:     true,
		}, nil
	}

	start := time.Now()
	items, err := s.docs.Execute(ctx, desc)
	s.metrics.ObserveDBQuery("documents_list", time.Since(start), err)
	if err != nil {
		return nil, s.storageFailure(err, "failed to list documents", zap.Any("descriptor", desc))
	}

	start = time.Now()
	total, err := s.docs.Count(ctx, desc.WithoutPagination())
	s.metrics.ObserveDBQuery("documents_count", time.Since(start), err)
	if err != nil {
		return nil, s.storageFailure(err, "failed to count documents", zap.Any("descriptor", desc))
	}
	if items == nil {
		items = []models.Document{}
	}

	_ = s.cache.Set(ctx, key, cachedDocumentPage{Items: items, Total: total}, s.cfg.ListCacheTTL)

	return &DocumentPage{
		Items:      items,
		Pagination: models.NewPagination(desc.Offset(), desc.Limit(), total),
		Filters:    criteria.Values(),
	}, nil
}

// Describe turns raw parameters into the descriptor a listing would execute.
// Exports reuse it so they obey the listing rules.
func (s *DocumentService) Describe(actor Actor, raw map[string]string) (query.QueryDescriptor, query.FilterCriteria, error) {
	var userID *string
	if actor.UserID != "" {
		userID = &actor.UserID
	}
	criteria, err := query.Normalize(raw, userID)
	if err != nil {
		return query.QueryDescriptor{}, query.FilterCriteria{}, err
	}
	sort, err := query.ParseSort(raw["sort"], raw["order"])
	if err != nil {
		return query.QueryDescriptor{}, query.FilterCriteria{}, err
	}
	page, err := query.ParsePage(raw, s.cfg.DefaultPageSize)
	if err != nil {
		return query.QueryDescriptor{}, query.FilterCriteria{}, err
	}
	desc, err := s.builder.Build(criteria, sort, page)
	if err != nil {
		return query.QueryDescriptor{}, query.FilterCriteria{}, err
	}
	return desc, criteria, nil
}

// Stats returns dashboard counters.
func (s *DocumentService) Stats(ctx context.Context, actor Actor) (*models.DocumentStats, error) {
	if err := actor.Can(policy.CapViewDocuments); err != nil {
		return nil, err
	}
	return s.stats(ctx)
}

func (s *DocumentService) stats(ctx context.Context) (*models.DocumentStats, error) {
	asOf := s.asOf()
	key := Key(documentCacheNamespace, "stats", asOf.Format(query.DateLayout))
	var cached models.DocumentStats
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	stats, err := s.docs.Stats(ctx, asOf)
	s.metrics.ObserveDBQuery("documents_stats", time.Since(start), err)
	if err != nil {
		return nil, s.storageFailure(err, "failed to load document stats")
	}
	_ = s.cache.Set(ctx, key, stats, s.cfg.ListCacheTTL)
	return stats, nil
}

// Completeness reports per scope completion of required sections.
func (s *DocumentService) Completeness(ctx context.Context, actor Actor) ([]models.ScopeCompleteness, error) {
	if err := actor.Can(policy.CapViewDocuments); err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := s.docs.Completeness(ctx)
	s.metrics.ObserveDBQuery("documents_completeness", time.Since(start), err)
	if err != nil {
		return nil, s.storageFailure(err, "failed to load completeness")
	}
	if rows == nil {
		rows = []models.ScopeCompleteness{}
	}
	return rows, nil
}

// Sections lists the filing plan, optionally for one scope. Only root
// sections are returned unless all is set.
func (s *DocumentService) Sections(ctx context.Context, actor Actor, scope string, all bool) ([]models.DocumentSection, error) {
	if err := actor.Can(policy.CapViewDocuments); err != nil {
		return nil, err
	}
	var scopeFilter *models.DocumentScope
	if scope != "" {
		criteria, err := query.Normalize(map[string]string{query.KeyScope: scope}, nil)
		if err != nil {
			return nil, err
		}
		scopeFilter = criteria.Scope
	}
	sections, err := s.sections.List(ctx, scopeFilter, !all)
	if err != nil {
		return nil, s.storageFailure(err, "failed to list sections")
	}
	if sections == nil {
		sections = []models.DocumentSection{}
	}
	return sections, nil
}

// Get returns a single document.
func (s *DocumentService) Get(ctx context.Context, actor Actor, id string) (*models.Document, error) {
	if err := actor.Can(policy.CapViewDocuments); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

func (s *DocumentService) find(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	doc, err := s.docs.FindByID(ctx, id, s.asOf())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, s.storageFailure(err, "failed to load document")
	}
	return doc, nil
}

// DownloadLink issues a signed, short lived URL for the document file.
func (s *DocumentService) DownloadLink(ctx context.Context, actor Actor, id string) (*models.DocumentDownload, error) {
	if err := actor.Can(policy.CapViewDocuments); err != nil {
		return nil, err
	}
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.FilePath == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document has no file attached")
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "document downloads are not configured")
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, doc.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	s.recordAudit(ctx, actor, models.AuditActionDownload, doc.ID, map[string]interface{}{"version": doc.Version})
	s.metrics.RecordDocumentEvent(models.AuditActionDownload)

	return &models.DocumentDownload{DocumentID: doc.ID, URL: s.cfg.DownloadPath + token, ExpiresAt: expiresAt}, nil
}

// OpenFile resolves a signed download token to the stored file.
func (s *DocumentService) OpenFile(ctx context.Context, token string) (*os.File, *models.Document, error) {
	if s.signer == nil || s.files == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "document downloads are not configured")
	}
	docID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "download link expired")
		}
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "download link invalid")
	}
	doc, err := s.find(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	if doc.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document file changed, request a new link")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "document file not found")
	}
	return file, doc, nil
}

// Upload stores a new document. Uploading against a missing placeholder fills
// it; uploading with supersedes_id creates a new version and marks the
// previous one superseded.
func (s *DocumentService) Upload(ctx context.Context, actor Actor, req models.UploadDocumentRequest, file UploadFile) (*models.Document, error) {
	if err := actor.Can(policy.CapUploadDocument); err != nil {
		return nil, err
	}
	req.Scope = models.DocumentScope(strings.ToUpper(strings.TrimSpace(string(req.Scope))))
	req.DocumentName = strings.TrimSpace(req.DocumentName)
	req.Version = strings.TrimSpace(req.Version)
	req.SiteID = trimmedOrNil(req.SiteID)
	req.SupersedesID = trimmedOrNil(req.SupersedesID)
	req.DocumentType = trimmedOrNil(req.DocumentType)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	if s.files == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "document storage is not configured")
	}

	contentType, err := s.checkFile(file)
	if err != nil {
		return nil, err
	}

	if actor.Role == models.RoleSiteCoordinator && actor.SiteID != nil {
		if req.SiteID == nil {
			req.SiteID = actor.SiteID
		} else if *req.SiteID != *actor.SiteID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "coordinators may only file documents for their own site")
		}
	}

	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section does not exist")
		}
		return nil, s.storageFailure(err, "failed to load section")
	}
	if section.Scope != req.Scope {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section belongs to %s, not %s", section.Scope, req.Scope))
	}

	if req.SiteID != nil {
		site, err := s.sites.FindByID(ctx, *req.SiteID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "site does not exist")
			}
			return nil, s.storageFailure(err, "failed to load site")
		}
		if !site.IsActive() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "documents cannot be filed for an inactive site")
		}
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		Scope:        req.Scope,
		SectionID:    req.SectionID,
		SiteID:       req.SiteID,
		DocumentName: req.DocumentName,
		DocumentType: req.DocumentType,
		Version:      req.Version,
		Status:       models.StatusCurrent,
		FileType:     &contentType,
		UploadedBy:   actor.UserID,
	}

	var previous *models.Document
	if req.SupersedesID != nil {
		previous, err = s.find(ctx, *req.SupersedesID)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "superseded document does not exist")
			}
			return nil, err
		}
		if previous.SectionID != req.SectionID || previous.Scope != req.Scope {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a new version must be filed in the same section")
		}
		switch previous.Status {
		case models.StatusMissing:
			doc.ID = previous.ID
			doc.SupersedesID = nil
			doc.DueDate = previous.DueDate
			doc.SiteID = previous.SiteID
		case models.StatusSuperseded:
			return nil, appErrors.Clone(appErrors.ErrConflict, "document was already superseded by a newer version")
		default:
			doc.SupersedesID = &previous.ID
		}
	}

	doc.FilePath = path.Join("documents", string(doc.Scope), doc.ID, uuid.NewString()[:8]+"-"+safeFileName(file.Name))
	size, err := s.files.SaveStream(doc.FilePath, file.Content, s.cfg.MaxFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSize))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document file")
	}
	doc.FileSize = &size

	start := time.Now()
	switch {
	case previous != nil && previous.Status == models.StatusMissing:
		err = s.docs.Fulfill(ctx, doc)
	case doc.SupersedesID != nil:
		err = s.docs.CreateVersion(ctx, doc)
	default:
		err = s.docs.Create(ctx, doc)
	}
	s.metrics.ObserveDBQuery("documents_upload", time.Since(start), err)
	if err != nil {
		if removeErr := s.files.Delete(doc.FilePath); removeErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", doc.FilePath), zap.Error(removeErr))
		}
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "document changed while uploading, retry")
		}
		return nil, s.storageFailure(err, "failed to save document")
	}

	doc.Derive(s.asOf())
	s.recordAudit(ctx, actor, models.AuditActionUpload, doc.ID, map[string]interface{}{
		"scope":         doc.Scope,
		"section_id":    doc.SectionID,
		"version":       doc.Version,
		"supersedes_id": doc.SupersedesID,
		"size":          size,
	})
	s.metrics.RecordDocumentEvent(models.AuditActionUpload)
	s.invalidate(ctx)
	return doc, nil
}

// Certify marks a current document certified by the actor.
func (s *DocumentService) Certify(ctx context.Context, actor Actor, id string) (*models.Document, error) {
	if err := actor.Can(policy.CapCertifyDocument); err != nil {
		return nil, err
	}
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if err := s.docs.Certify(ctx, doc.ID, actor.UserID, at); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a %s document cannot be certified", doc.EffectiveStatus))
		}
		return nil, s.storageFailure(err, "failed to certify document")
	}

	doc.Status = models.StatusCertified
	doc.IsCertified = true
	doc.CertifiedBy = &actor.UserID
	doc.CertifiedDate = &at
	doc.UpdatedAt = at
	doc.Derive(s.asOf())

	s.recordAudit(ctx, actor, models.AuditActionUpdate, doc.ID, map[string]interface{}{"certified": true})
	s.metrics.RecordDocumentEvent(models.AuditActionUpdate)
	s.invalidate(ctx)
	return doc, nil
}

// Delete removes a document and its file.
func (s *DocumentService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := actor.Can(policy.CapDeleteDocument); err != nil {
		return err
	}
	doc, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return s.storageFailure(err, "failed to delete document")
	}
	if doc.FilePath != "" && s.files != nil {
		if err := s.files.Delete(doc.FilePath); err != nil {
			s.logger.Warn("failed to delete document file", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}

	s.recordAudit(ctx, actor, models.AuditActionDelete, doc.ID, map[string]interface{}{
		"document_name": doc.DocumentName,
		"version":       doc.Version,
	})
	s.metrics.RecordDocumentEvent(models.AuditActionDelete)
	s.invalidate(ctx)
	return nil
}

func (s *DocumentService) checkFile(file UploadFile) (string, error) {
	if file.Content == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if s.cfg.MaxFileSize > 0 && file.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSize))
	}
	contentType := "application/octet-stream"
	if file.ContentType != "" {
		parsed, _, err := mime.ParseMediaType(file.ContentType)
		if err != nil {
			return "", appErrors.Clone(appErrors.ErrValidation, "invalid file content type")
		}
		contentType = parsed
	}
	if len(s.cfg.AllowedMIMEs) == 0 {
		return contentType, nil
	}
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(allowed, contentType) {
			return contentType, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", contentType))
}

func (s *DocumentService) recordAudit(ctx context.Context, actor Actor, action models.AuditAction, documentID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(details)
	if err != nil {
		payload = nil
	}
	entry := &models.AuditLog{
		UserID:       &actor.UserID,
		Action:       action,
		ResourceType: "document",
		ResourceID:   &documentID,
		Details:      payload,
		IPAddress:    actor.IP,
		UserAgent:    actor.UserAgent,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record document audit log", zap.String("action", string(action)), zap.String("document_id", documentID), zap.Error(err))
	}
}

func (s *DocumentService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, documentCacheNamespace+":*")
	_ = s.cache.Invalidate(ctx, reportCacheNamespace+":*")
}

func (s *DocumentService) storageFailure(err error, message string, fields ...zap.Field) error {
	s.logger.Error(message, append(fields, zap.Error(err))...)
	return internalOrStorage(err, message)
}

func (s *DocumentService) asOf() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func safeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Trim(unsafeFileChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "document"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return base
}
