package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ctos-api/internal/models"
)

const siteColumns = `id, site_number, site_name, principal_investigator, address, city, state, zip_code, country, phone, email, status, enrollment_target, current_enrollment, start_date, coordinator_name, coordinator_email, coordinator_phone, created_at, updated_at`

// SiteRepository provides database access for investigational sites.
type SiteRepository struct {
	db *sqlx.DB
}

// NewSiteRepository constructs the repository.
func NewSiteRepository(db *sqlx.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// FindByID returns a site by identifier.
func (r *SiteRepository) FindByID(ctx context.Context, id string) (*models.Site, error) {
	q := fmt.Sprintf("SELECT %s FROM sites WHERE id = $1 LIMIT 1", siteColumns)
	var site models.Site
	if err := r.db.GetContext(ctx, &site, q, id); err != nil {
		return nil, storageError(err, "find site")
	}
	return &site, nil
}

func siteConditions(filter models.SiteFilter) (string, []interface{}) {
	baseQuery := `FROM sites WHERE 1=1`
	var conditions []string
	var args []interface{}

	if !filter.IncludeInactive {
		conditions = append(conditions, "status = 'active'")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(search))+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(site_name) LIKE $%d OR LOWER(COALESCE(principal_investigator, '')) LIKE $%d OR LOWER(COALESCE(city, '')) LIKE $%d OR LOWER(COALESCE(state, '')) LIKE $%d OR site_number LIKE $%d)", n, n, n, n, n))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	return baseQuery, args
}

// List returns sites matching the filter ordered by site number.
func (r *SiteRepository) List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error) {
	baseQuery, args := siteConditions(filter)
	q := fmt.Sprintf("SELECT %s %s ORDER BY site_number ASC", siteColumns, baseQuery)
	var sites []models.Site
	if err := r.db.SelectContext(ctx, &sites, q, args...); err != nil {
		return nil, storageError(err, "list sites")
	}
	return sites, nil
}

// Summary aggregates enrollment across every site.
func (r *SiteRepository) Summary(ctx context.Context) (*models.SitesSummary, error) {
	const q = `SELECT COUNT(*) FILTER (WHERE status = 'active') AS active_sites,
COUNT(*) AS total_sites,
COALESCE(SUM(current_enrollment), 0) AS current_enrollment,
COALESCE(SUM(enrollment_target), 0) AS enrollment_target,
COUNT(DISTINCT country) AS countries
FROM sites`
	var summary models.SitesSummary
	if err := r.db.GetContext(ctx, &summary, q); err != nil {
		return nil, storageError(err, "summarize sites")
	}
	return &summary, nil
}
