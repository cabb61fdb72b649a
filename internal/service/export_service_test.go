package service

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/query"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
	"github.com/noah-isme/ctos-api/pkg/export"
	"github.com/noah-isme/ctos-api/pkg/jobs"
	"github.com/noah-isme/ctos-api/pkg/storage"
)

type exportFixture struct {
	svc   *ExportService
	docs  *fakeDocumentRepo
	store *storage.LocalStorage
}

func newExportServiceForTest(t *testing.T) exportFixture {
	t.Helper()
	documents := newDocumentFixture(t, nil)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour, BatchSize: 2, MaxRows: 5}
	svc := NewExportService(documents.svc, documents.docs, newTestSites(), store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	svc.now = testClock
	return exportFixture{svc: svc, docs: documents.docs, store: store}
}

func exportJob(id string, reportType models.ReportType, format models.ReportFormat, role models.UserRole) *models.ReportJob {
	return &models.ReportJob{
		ID:        id,
		Type:      reportType,
		Params:    models.ReportJobParams{Format: format, Role: role},
		CreatedBy: "user-1",
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportServiceDocumentInventoryCSVInBatches(t *testing.T) {
	fx := newExportServiceForTest(t)
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Protocol", "=HYPERLINK(\"x\")", "Brochure"} {
		fx.docs.items = append(fx.docs.items, models.Document{
			ID:           string(rune('a' + i)),
			Scope:        models.ScopeTMF,
			DocumentName: name,
			Version:      "1.0",
			Status:       models.StatusMissing,
			DueDate:      &due,
		})
	}
	job := exportJob("job-1", models.ReportTypeDocumentInventory, models.ReportFormatCSV, models.RoleSponsor)
	job.Params.Filters = map[string]string{"scope": "TMF", "page": "9"}

	result, err := fx.svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rows)
	assert.True(t, strings.HasPrefix(result.RelativePath, "exports/document_inventory_job-1_20240315_103000"))
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))

	require.Len(t, fx.docs.executed, 2)
	assert.Equal(t, 0, fx.docs.executed[0].Offset())
	assert.Equal(t, 2, fx.docs.executed[1].Offset())
	assert.Equal(t, query.FieldScope, fx.docs.executed[0].Predicates()[0].Field)

	records := readCSV(t, fx.store.Path(result.RelativePath))
	require.Len(t, records, 4)
	assert.Equal(t, documentExportHeaders, records[0])
	assert.Equal(t, "Protocol", records[1][1])
	assert.Equal(t, "'=HYPERLINK(\"x\")", records[2][1])
	assert.Equal(t, "2024-01-10", records[1][6])
}

func TestExportServiceMissingDocumentsForcesMissingTab(t *testing.T) {
	fx := newExportServiceForTest(t)
	job := exportJob("job-2", models.ReportTypeMissingDocuments, models.ReportFormatPDF, models.RoleAdmin)

	result, err := fx.svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Rows)

	require.Len(t, fx.docs.executed, 1)
	predicates := fx.docs.executed[0].Predicates()
	require.Len(t, predicates, 1)
	assert.Equal(t, []string{"missing", "overdue"}, predicates[0].Values)

	info, err := os.Stat(fx.store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceStopsAtMaxRows(t *testing.T) {
	fx := newExportServiceForTest(t)
	for i := 0; i < 9; i++ {
		fx.docs.items = append(fx.docs.items, models.Document{ID: string(rune('a' + i)), Status: models.StatusCurrent})
	}

	result, err := fx.svc.Generate(context.Background(), exportJob("job-3", models.ReportTypeDocumentInventory, models.ReportFormatCSV, models.RoleSponsor))
	require.NoError(t, err)
	assert.Equal(t, 5, result.Rows)
	require.Len(t, fx.docs.executed, 3)
	assert.Equal(t, 1, fx.docs.executed[2].Limit())
}

func TestExportServiceSiteEnrollment(t *testing.T) {
	fx := newExportServiceForTest(t)

	result, err := fx.svc.Generate(context.Background(), exportJob("job-4", models.ReportTypeSiteEnrollment, models.ReportFormatCSV, models.RoleSponsor))
	require.NoError(t, err)

	records := readCSV(t, fx.store.Path(result.RelativePath))
	require.Len(t, records, 4)
	assert.Equal(t, []string{"001", "Boston General", "", "US", "active", "30", "40", "75.0"}, records[1])
	assert.Equal(t, "inactive", records[3][4])
}

func TestExportServicePermanentFailures(t *testing.T) {
	fx := newExportServiceForTest(t)

	_, err := fx.svc.Generate(context.Background(), exportJob("job-5", models.ReportTypeDocumentInventory, models.ReportFormatCSV, models.RoleSiteMonitor))
	require.Error(t, err)
	assert.True(t, jobs.IsPermanent(err))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	job := exportJob("job-6", models.ReportTypeDocumentInventory, models.ReportFormatCSV, models.RoleSponsor)
	job.Params.Filters = map[string]string{"status": "archived"}
	_, err = fx.svc.Generate(context.Background(), job)
	assert.True(t, jobs.IsPermanent(err))

	_, err = fx.svc.Generate(context.Background(), exportJob("job-7", "grades", models.ReportFormatCSV, models.RoleSponsor))
	assert.True(t, jobs.IsPermanent(err))
}

func TestExportServiceTransientFailureIsRetryable(t *testing.T) {
	fx := newExportServiceForTest(t)
	fx.docs.executeErr = appErrors.ErrStorageUnavailable

	_, err := fx.svc.Generate(context.Background(), exportJob("job-8", models.ReportTypeDocumentInventory, models.ReportFormatCSV, models.RoleSponsor))
	require.Error(t, err)
	assert.False(t, jobs.IsPermanent(err))
}

func TestExportServiceCleanup(t *testing.T) {
	fx := newExportServiceForTest(t)
	result, err := fx.svc.Generate(context.Background(), exportJob("job-9", models.ReportTypeSiteEnrollment, models.ReportFormatCSV, models.RoleSponsor))
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(fx.store.Path(result.RelativePath), old, old))

	removed, err := fx.svc.Cleanup(0)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	_, statErr := os.Stat(fx.store.Path(result.RelativePath))
	assert.True(t, os.IsNotExist(statErr))
}
