package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

type stubDocumentCounter struct {
	stats *models.DocumentStats
	err   error
}

func (s stubDocumentCounter) Stats(ctx context.Context, actor Actor) (*models.DocumentStats, error) {
	if err := actor.Can(policy.CapViewDocuments); err != nil {
		return nil, err
	}
	return s.stats, s.err
}

type stubQuestionCounter struct {
	count int
	err   error
}

func (s stubQuestionCounter) UnansweredCount(ctx context.Context) (int, error) {
	return s.count, s.err
}

func navKeys(entries []NavEntry) []string {
	keys := make([]string, len(entries))
	for i, entry := range entries {
		keys[i] = entry.Key
	}
	return keys
}

func TestSessionServiceViewCoordinator(t *testing.T) {
	site := "site-001"
	svc := NewSessionService(stubDocumentCounter{stats: &models.DocumentStats{Missing: 7}}, stubQuestionCounter{count: 3}, nil)

	view, err := svc.View(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleSiteCoordinator, SiteID: &site})
	require.NoError(t, err)

	assert.False(t, view.CanSwitchRole)
	assert.Equal(t, []models.UserRole{models.RoleSiteCoordinator}, view.AvailableRoles)
	assert.Equal(t, []string{"view_documents", "upload_document"}, view.Capabilities)
	assert.Equal(t, []string{"dashboard", "documents", "missing", "community", "knowledge-base"}, navKeys(view.Navigation))

	for _, entry := range view.Navigation {
		switch entry.Badge {
		case policy.BadgeOutstandingDocs:
			require.NotNil(t, entry.Count)
			assert.Equal(t, 7, *entry.Count)
		case policy.BadgeUnansweredQuestion:
			require.NotNil(t, entry.Count)
			assert.Equal(t, 3, *entry.Count)
		default:
			assert.Nil(t, entry.Count)
		}
	}
}

func TestSessionServiceViewSwitchedSponsor(t *testing.T) {
	svc := NewSessionService(nil, nil, nil)

	view, err := svc.View(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleSponsor, ActiveRole: models.RoleSiteMonitor})
	require.NoError(t, err)

	assert.Equal(t, models.RoleSponsor, view.Role)
	assert.Equal(t, models.RoleSiteMonitor, view.ActiveRole)
	assert.True(t, view.CanSwitchRole)
	assert.Equal(t, []models.UserRole{models.RoleSponsor, models.RoleSiteMonitor, models.RoleSiteCoordinator}, view.AvailableRoles)
	assert.NotContains(t, view.AvailableRoles, models.RoleAdmin)
	assert.NotContains(t, view.Capabilities, "export_reports")
	assert.NotContains(t, navKeys(view.Navigation), "admin")
	for _, entry := range view.Navigation {
		assert.Nil(t, entry.Count)
	}
}

func TestSessionServiceViewToleratesCounterFailure(t *testing.T) {
	svc := NewSessionService(stubDocumentCounter{err: appErrors.ErrStorageUnavailable}, stubQuestionCounter{count: 2}, nil)

	view, err := svc.View(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Contains(t, navKeys(view.Navigation), "admin")
	for _, entry := range view.Navigation {
		if entry.Badge == policy.BadgeOutstandingDocs {
			assert.Nil(t, entry.Count)
		}
		if entry.Badge == policy.BadgeUnansweredQuestion {
			require.NotNil(t, entry.Count)
			assert.Equal(t, 2, *entry.Count)
		}
	}
}

func TestSessionServiceViewRejectsUnknownRole(t *testing.T) {
	svc := NewSessionService(nil, nil, nil)

	_, err := svc.View(context.Background(), nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthenticated))

	_, err = svc.View(context.Background(), &models.JWTClaims{UserID: "u1", Role: "investigator"})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthenticated))
}
