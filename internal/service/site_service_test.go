package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ctos-api/internal/models"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

func TestSiteServiceOverview(t *testing.T) {
	repo := newTestSites()
	repo.summary = &models.SitesSummary{ActiveSites: 2, TotalSites: 3, CurrentEnrollment: 35, EnrollmentTarget: 60, Countries: 1}
	svc := NewSiteService(repo, NewMetricsService(), nil)

	overview, err := svc.Overview(context.Background(), monitorActor(), "  boston ", false)
	require.NoError(t, err)
	assert.Len(t, overview.Sites, 2)
	assert.Equal(t, 3, overview.Summary.TotalSites)
	assert.Equal(t, models.SiteFilter{Search: "boston"}, repo.listed[0])

	overview, err = svc.Overview(context.Background(), sponsorActor(), "", true)
	require.NoError(t, err)
	assert.Len(t, overview.Sites, 3)
}

func TestSiteServiceOverviewRequiresCapability(t *testing.T) {
	svc := NewSiteService(newTestSites(), nil, nil)

	_, err := svc.Overview(context.Background(), coordinatorActor("site-001"), "", false)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestSiteServiceOverviewStorageFailure(t *testing.T) {
	repo := newTestSites()
	repo.summaryErr = appErrors.Clone(appErrors.ErrPermissionDenied, "summarize sites: permission denied by storage")
	svc := NewSiteService(repo, nil, nil)

	_, err := svc.Overview(context.Background(), sponsorActor(), "", false)
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))
}

func TestSiteServiceGet(t *testing.T) {
	svc := NewSiteService(newTestSites(), nil, nil)

	site, err := svc.Get(context.Background(), coordinatorActor("site-001"), "site-001")
	require.NoError(t, err)
	assert.Equal(t, "Boston General", site.SiteName)

	_, err = svc.Get(context.Background(), coordinatorActor("site-001"), "site-002")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Get(context.Background(), monitorActor(), "site-999")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
