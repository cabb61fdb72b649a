package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

type siteRepository interface {
	FindByID(ctx context.Context, id string) (*models.Site, error)
	List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error)
	Summary(ctx context.Context) (*models.SitesSummary, error)
}

// SitesOverview is the sites page payload.
type SitesOverview struct {
	Sites   []models.Site       `json:"sites"`
	Summary models.SitesSummary `json:"summary"`
}

// SiteService serves the sites overview.
type SiteService struct {
	repo    siteRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewSiteService constructs the service.
func NewSiteService(repo siteRepository, metrics *MetricsService, logger *zap.Logger) *SiteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiteService{repo: repo, metrics: metrics, logger: logger}
}

// Overview lists sites together with enrollment totals. Inactive sites are
// hidden unless includeInactive is set; the summary always covers every site.
func (s *SiteService) Overview(ctx context.Context, actor Actor, search string, includeInactive bool) (*SitesOverview, error) {
	if err := actor.Can(policy.CapViewSitesOverview); err != nil {
		return nil, err
	}

	start := time.Now()
	sites, err := s.repo.List(ctx, models.SiteFilter{Search: strings.TrimSpace(search), IncludeInactive: includeInactive})
	s.metrics.ObserveDBQuery("sites_list", time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to list sites", zap.Error(err))
		return nil, internalOrStorage(err, "failed to list sites")
	}

	start = time.Now()
	summary, err := s.repo.Summary(ctx)
	s.metrics.ObserveDBQuery("sites_summary", time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to summarize sites", zap.Error(err))
		return nil, internalOrStorage(err, "failed to summarize sites")
	}

	if sites == nil {
		sites = []models.Site{}
	}
	return &SitesOverview{Sites: sites, Summary: *summary}, nil
}

// Get returns a single site. Coordinators may read their own site without
// the overview capability.
func (s *SiteService) Get(ctx context.Context, actor Actor, id string) (*models.Site, error) {
	if err := actor.Can(policy.CapViewSitesOverview); err != nil {
		if actor.UserID == "" || actor.SiteID == nil || *actor.SiteID != id {
			return nil, err
		}
	}
	site, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "site not found")
		}
		return nil, internalOrStorage(err, "failed to load site")
	}
	return site, nil
}
