package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ctos-api/internal/dto"
	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	"github.com/noah-isme/ctos-api/internal/query"
	"github.com/noah-isme/ctos-api/internal/repository"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
	"github.com/noah-isme/ctos-api/pkg/jobs"
)

const reportCacheNamespace = "reports"

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListByCreator(ctx context.Context, userID string, limit int) ([]models.ReportJob, error)
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type reportDocumentSource interface {
	Stats(ctx context.Context, asOf time.Time) (*models.DocumentStats, error)
	Completeness(ctx context.Context) ([]models.ScopeCompleteness, error)
	CountByScopeStatus(ctx context.Context, asOf time.Time) ([]models.StatusCount, error)
}

type reportSiteSource interface {
	Summary(ctx context.Context) (*models.SitesSummary, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportServiceConfig governs summary caching, queue recovery and cleanup.
type ReportServiceConfig struct {
	SummaryTTL      time.Duration
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService serves the reports dashboard and the export job lifecycle.
type ReportService struct {
	repo     reportJobStore
	docs     reportDocumentSource
	sites    reportSiteSource
	planner  documentPlanner
	queue    jobDispatcher
	exporter *ExportService
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ReportServiceConfig
	now      func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(
	repo reportJobStore,
	docs reportDocumentSource,
	sites reportSiteSource,
	planner documentPlanner,
	queue jobDispatcher,
	exporter *ExportService,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ReportServiceConfig,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ReportService{
		repo:     repo,
		docs:     docs,
		sites:    sites,
		planner:  planner,
		queue:    queue,
		exporter: exporter,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Summary aggregates site enrollment and document progress for the dashboard.
func (s *ReportService) Summary(ctx context.Context, actor Actor) (*models.ReportSummary, error) {
	if err := actor.Can(policy.CapViewReports); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	asOf := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	key := Key(reportCacheNamespace, "summary", asOf.Format(query.DateLayout))

	var cached models.ReportSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	sites, err := s.sites.Summary(ctx)
	s.metrics.ObserveDBQuery("reports_sites", time.Since(start), err)
	if err != nil {
		return nil, s.storageFailure(err, "failed to summarize sites")
	}

	start = time.Now()
	stats, err := s.docs.Stats(ctx, asOf)
	s.metrics.ObserveDBQuery("reports_documents", time.Since(start), err)
	if err != nil {
		return nil, s.storageFailure(err, "failed to load document stats")
	}

	start = time.Now()
	completeness, err := s.docs.Completeness(ctx)
	s.metrics.ObserveDBQuery("reports_completeness", time.Since(start), err)
	if err != nil {
		return nil, s.storageFailure(err, "failed to load completeness")
	}

	start = time.Now()
	byStatus, err := s.docs.CountByScopeStatus(ctx, asOf)
	s.metrics.ObserveDBQuery("reports_by_status", time.Since(start), err)
	if err != nil {
		return nil, s.storageFailure(err, "failed to count documents by status")
	}

	if completeness == nil {
		completeness = []models.ScopeCompleteness{}
	}
	if byStatus == nil {
		byStatus = []models.StatusCount{}
	}
	summary := &models.ReportSummary{
		Sites:             *sites,
		Documents:         *stats,
		CompletionPercent: completionPercent(completeness),
		Completeness:      completeness,
		ByStatus:          byStatus,
		GeneratedAt:       now,
	}
	_ = s.cache.Set(ctx, key, summary, s.cfg.SummaryTTL)
	return summary, nil
}

func completionPercent(rows []models.ScopeCompleteness) float64 {
	var required, filed int
	for _, row := range rows {
		required += row.RequiredSections
		filed += row.FiledSections
	}
	if required == 0 {
		return 0
	}
	return float64(filed) * 100 / float64(required)
}

// CreateJob validates the request, persists the job and enqueues it. Document
// filters are checked now so a bad filter fails the request, not the job.
func (s *ReportService) CreateJob(ctx context.Context, actor Actor, req dto.ExportRequest) (*dto.ReportJobResponse, error) {
	if err := actor.Can(policy.CapExportReports); err != nil {
		return nil, err
	}
	if !isValidReportType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	if !isValidFormat(req.Format) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}

	var filters map[string]string
	if req.Type != models.ReportTypeSiteEnrollment {
		raw := copyFilters(req.Filters)
		if req.Type == models.ReportTypeMissingDocuments {
			raw[query.KeyTab] = string(query.TabMissing)
		}
		_, criteria, err := s.planner.Describe(actor, raw)
		if err != nil {
			return nil, err
		}
		filters = criteria.Values()
	}

	job := &models.ReportJob{
		Type: req.Type,
		Params: models.ReportJobParams{
			Format:  req.Format,
			Role:    actor.Role,
			Filters: filters,
			SiteID:  actor.SiteID,
		},
		Status:    models.ReportStatusQueued,
		Progress:  0,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, s.storageFailure(err, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := s.now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.logger.Info("export job queued", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("user_id", actor.UserID))
	return &dto.ReportJobResponse{ID: job.ID, Type: job.Type, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata. Only the requester or an admin may read it.
func (s *ReportService) GetStatus(ctx context.Context, actor Actor, id string) (*dto.ReportStatusResponse, error) {
	if err := actor.Can(policy.CapExportReports); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, s.storageFailure(err, "failed to load report job")
	}
	if job.CreatedBy != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	resp := dto.NewReportStatusResponse(*job)
	return &resp, nil
}

// ListJobs returns the actor's latest export jobs.
func (s *ReportService) ListJobs(ctx context.Context, actor Actor, limit int) ([]dto.ReportStatusResponse, error) {
	if err := actor.Can(policy.CapExportReports); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByCreator(ctx, actor.UserID, limit)
	if err != nil {
		return nil, s.storageFailure(err, "failed to list report jobs")
	}
	out := make([]dto.ReportStatusResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.NewReportStatusResponse(row))
	}
	return out, nil
}

// ResolveDownload validates token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, s.storageFailure(err, "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file no longer available")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a process restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued report jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	for {
		expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		for _, job := range expired {
			if job.ResultURL == nil {
				continue
			}
			token := extractToken(*job.ResultURL)
			if token == "" {
				continue
			}
			_, relPath, _, err := s.exporter.ParseToken(token, true)
			if err != nil {
				continue
			}
			if err := s.exporter.Delete(relPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
			}
		}
		if len(expired) < 100 {
			break
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func (s *ReportService) storageFailure(err error, message string) error {
	s.logger.Error(message, zap.Error(err))
	return internalOrStorage(err, message)
}

func isValidReportType(t models.ReportType) bool {
	switch t {
	case models.ReportTypeDocumentInventory, models.ReportTypeMissingDocuments, models.ReportTypeSiteEnrollment:
		return true
	default:
		return false
	}
}

func isValidFormat(f models.ReportFormat) bool {
	return f == models.ReportFormatCSV || f == models.ReportFormatPDF
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorker bridges queue jobs to ExportService.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jobs.Permanent(err)
		}
		return err
	}
	if record.Status == models.ReportStatusFinished {
		return nil
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}
	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if jobs.IsPermanent(err) || job.Attempt >= w.maxRetries {
			failed := models.ReportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
			w.metrics.RecordExportJob(record.Type, models.ReportStatusFailed)
		} else {
			queued := models.ReportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}
	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	w.metrics.RecordExportJob(record.Type, models.ReportStatusFinished)
	return nil
}
