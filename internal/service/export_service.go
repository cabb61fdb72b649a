package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	"github.com/noah-isme/ctos-api/internal/query"
	"github.com/noah-isme/ctos-api/pkg/export"
	"github.com/noah-isme/ctos-api/pkg/jobs"
)

type documentPlanner interface {
	Describe(actor Actor, raw map[string]string) (query.QueryDescriptor, query.FilterCriteria, error)
}

type documentRunner interface {
	Execute(ctx context.Context, desc query.QueryDescriptor) ([]models.Document, error)
}

type siteLister interface {
	List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(dir string, ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	BatchSize int
	MaxRows   int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	Rows         int
	ExpiresAt    time.Time
}

const exportDir = "exports"

var documentExportHeaders = []string{"Scope", "Document", "Type", "Version", "Status", "Site", "Due Date", "Certified", "Updated At"}

var siteExportHeaders = []string{"Site Number", "Site Name", "Principal Investigator", "Country", "Status", "Enrollment", "Target", "Enrollment (%)"}

// ExportService renders export jobs. Document exports run through the same
// normalizer and builder as listings, in batches, under the requester's role.
type ExportService struct {
	planner documentPlanner
	docs    documentRunner
	sites   siteLister
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  urlSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(planner documentPlanner, docs documentRunner, sites siteLister, storage fileStorage, signer urlSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 50000
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		planner: planner,
		docs:    docs,
		sites:   sites,
		storage: storage,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate builds the dataset of a job and stores the rendered export.
// Failures that a retry cannot fix are returned as permanent job errors.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, jobs.Permanent(fmt.Errorf("job nil"))
	}
	actor := Actor{UserID: job.CreatedBy, Role: job.Params.Role, SiteID: job.Params.SiteID}
	if err := actor.Can(policy.CapExportReports); err != nil {
		return nil, jobs.Permanent(err)
	}

	dataset, title, err := s.buildDataset(ctx, actor, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, jobs.Permanent(fmt.Errorf("unsupported format %s", job.Params.Format))
	}
	if err != nil {
		return nil, jobs.Permanent(err)
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, jobs.Permanent(err)
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export generated",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Int("rows", len(dataset.Rows)),
		zap.String("path", relPath),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		Rows:         len(dataset.Rows),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes export files older than ttl (the configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(exportDir, ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return path.Join(exportDir, fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), sanitizeFilename(job.ID), timestamp, job.Params.Format))
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, actor Actor, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeDocumentInventory:
		return s.buildDocumentDataset(ctx, actor, job.Params.Filters, "Document Inventory")
	case models.ReportTypeMissingDocuments:
		filters := copyFilters(job.Params.Filters)
		filters[query.KeyTab] = string(query.TabMissing)
		return s.buildDocumentDataset(ctx, actor, filters, "Missing Documents")
	case models.ReportTypeSiteEnrollment:
		return s.buildSiteDataset(ctx)
	default:
		return export.Dataset{}, "", jobs.Permanent(fmt.Errorf("unsupported report type %s", job.Type))
	}
}

func (s *ExportService) buildDocumentDataset(ctx context.Context, actor Actor, filters map[string]string, title string) (export.Dataset, string, error) {
	filters = copyFilters(filters)
	delete(filters, "page")
	delete(filters, "page_size")
	delete(filters, "offset")
	delete(filters, "limit")
	desc, _, err := s.planner.Describe(actor, filters)
	if err != nil {
		return export.Dataset{}, "", jobs.Permanent(err)
	}

	rows := make([]map[string]string, 0)
	for offset := 0; offset < s.cfg.MaxRows; offset += s.cfg.BatchSize {
		limit := s.cfg.BatchSize
		if remaining := s.cfg.MaxRows - offset; remaining < limit {
			limit = remaining
		}
		batch, err := s.docs.Execute(ctx, desc.WithPage(offset, limit))
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, doc := range batch {
			rows = append(rows, documentRow(doc))
		}
		if len(batch) < limit {
			break
		}
	}

	heading := fmt.Sprintf("%s as of %s", title, desc.AsOf().Format(query.DateLayout))
	return export.Dataset{Headers: documentExportHeaders, Rows: rows}, heading, nil
}

func (s *ExportService) buildSiteDataset(ctx context.Context) (export.Dataset, string, error) {
	sites, err := s.sites.List(ctx, models.SiteFilter{IncludeInactive: true})
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(sites))
	for _, site := range sites {
		percent := ""
		if site.EnrollmentTarget > 0 {
			percent = fmt.Sprintf("%.1f", float64(site.CurrentEnrollment)*100/float64(site.EnrollmentTarget))
		}
		rows = append(rows, map[string]string{
			"Site Number":            site.SiteNumber,
			"Site Name":              site.SiteName,
			"Principal Investigator": deref(site.PrincipalInvestigator),
			"Country":                deref(site.Country),
			"Status":                 string(site.Status),
			"Enrollment":             strconv.Itoa(site.CurrentEnrollment),
			"Target":                 strconv.Itoa(site.EnrollmentTarget),
			"Enrollment (%)":         percent,
		})
	}
	title := fmt.Sprintf("Site Enrollment %s", s.now().UTC().Format(query.DateLayout))
	return export.Dataset{Headers: siteExportHeaders, Rows: rows}, title, nil
}

func documentRow(doc models.Document) map[string]string {
	status := doc.EffectiveStatus
	if status == "" {
		status = doc.Status
	}
	certified := "no"
	if doc.IsCertified {
		certified = "yes"
	}
	due := ""
	if doc.DueDate != nil {
		due = doc.DueDate.UTC().Format(query.DateLayout)
	}
	return map[string]string{
		"Scope":      string(doc.Scope),
		"Document":   doc.DocumentName,
		"Type":       deref(doc.DocumentType),
		"Version":    doc.Version,
		"Status":     string(status),
		"Site":       deref(doc.SiteID),
		"Due Date":   due,
		"Certified":  certified,
		"Updated At": doc.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func copyFilters(filters map[string]string) map[string]string {
	out := make(map[string]string, len(filters)+1)
	for k, v := range filters {
		out[k] = v
	}
	return out
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
