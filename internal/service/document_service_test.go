package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/query"
	"github.com/noah-isme/ctos-api/internal/repository"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
	"github.com/noah-isme/ctos-api/pkg/storage"
)

const (
	testSectionTMF = "11111111-1111-4111-8111-111111111111"
	testSectionISF = "22222222-2222-4222-8222-222222222222"
	testDocID      = "33333333-3333-4333-8333-333333333333"
)

var testClock = func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }

type fakeDocumentRepo struct {
	docs       map[string]*models.Document
	items      []models.Document
	total      int
	executed   []query.QueryDescriptor
	counted    []query.QueryDescriptor
	executeErr error
	createErr  error
	certifyErr error
	created    []*models.Document
	versioned  []*models.Document
	fulfilled  []*models.Document
	deleted    []string
	certified  []string
	stats      *models.DocumentStats
	statsErr   error
	byStatus   []models.StatusCount
	complete   []models.ScopeCompleteness
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: map[string]*models.Document{}}
}

func (f *fakeDocumentRepo) Execute(ctx context.Context, desc query.QueryDescriptor) ([]models.Document, error) {
	f.executed = append(f.executed, desc)
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	start := desc.Offset()
	if start >= len(f.items) {
		return []models.Document{}, nil
	}
	end := start + desc.Limit()
	if end > len(f.items) {
		end = len(f.items)
	}
	return append([]models.Document(nil), f.items[start:end]...), nil
}

func (f *fakeDocumentRepo) Count(ctx context.Context, desc query.QueryDescriptor) (int, error) {
	f.counted = append(f.counted, desc)
	return f.total, nil
}

func (f *fakeDocumentRepo) FindByID(ctx context.Context, id string, asOf time.Time) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *doc
	clone.Derive(asOf)
	return &clone, nil
}

func (f *fakeDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentRepo) CreateVersion(ctx context.Context, doc *models.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.versioned = append(f.versioned, doc)
	f.docs[doc.ID] = doc
	if prev, ok := f.docs[*doc.SupersedesID]; ok {
		prev.Status = models.StatusSuperseded
	}
	return nil
}

func (f *fakeDocumentRepo) Fulfill(ctx context.Context, doc *models.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.fulfilled = append(f.fulfilled, doc)
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentRepo) Certify(ctx context.Context, id, userID string, at time.Time) error {
	if f.certifyErr != nil {
		return f.certifyErr
	}
	f.certified = append(f.certified, id)
	return nil
}

func (f *fakeDocumentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return repository.ErrNoRowsAffected
	}
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDocumentRepo) Stats(ctx context.Context, asOf time.Time) (*models.DocumentStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	if f.stats == nil {
		return &models.DocumentStats{}, nil
	}
	stats := *f.stats
	return &stats, nil
}

func (f *fakeDocumentRepo) CountByScopeStatus(ctx context.Context, asOf time.Time) ([]models.StatusCount, error) {
	return f.byStatus, nil
}

func (f *fakeDocumentRepo) Completeness(ctx context.Context) ([]models.ScopeCompleteness, error) {
	return f.complete, nil
}

type fakeSectionRepo struct {
	sections map[string]*models.DocumentSection
}

func (f *fakeSectionRepo) FindByID(ctx context.Context, id string) (*models.DocumentSection, error) {
	section, ok := f.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return section, nil
}

func (f *fakeSectionRepo) List(ctx context.Context, scope *models.DocumentScope, rootsOnly bool) ([]models.DocumentSection, error) {
	var out []models.DocumentSection
	for _, section := range f.sections {
		if scope != nil && section.Scope != *scope {
			continue
		}
		if rootsOnly && section.ParentID != nil {
			continue
		}
		out = append(out, *section)
	}
	return out, nil
}

type fakeSiteRepo struct {
	sites      map[string]*models.Site
	listed     []models.SiteFilter
	summary    *models.SitesSummary
	summaryErr error
}

func (f *fakeSiteRepo) FindByID(ctx context.Context, id string) (*models.Site, error) {
	site, ok := f.sites[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return site, nil
}

func (f *fakeSiteRepo) List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error) {
	f.listed = append(f.listed, filter)
	var out []models.Site
	for _, id := range []string{"site-001", "site-002", "site-003"} {
		site, ok := f.sites[id]
		if !ok {
			continue
		}
		if !filter.IncludeInactive && !site.IsActive() {
			continue
		}
		out = append(out, *site)
	}
	return out, nil
}

func (f *fakeSiteRepo) Summary(ctx context.Context) (*models.SitesSummary, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	if f.summary == nil {
		return &models.SitesSummary{}, nil
	}
	return f.summary, nil
}

type auditSink struct {
	logs []*models.AuditLog
}

func (a *auditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditSink) actions() []models.AuditAction {
	out := make([]models.AuditAction, len(a.logs))
	for i, log := range a.logs {
		out[i] = log.Action
	}
	return out
}

func newTestSites() *fakeSiteRepo {
	country := "US"
	return &fakeSiteRepo{sites: map[string]*models.Site{
		"site-001": {ID: "site-001", SiteNumber: "001", SiteName: "Boston General", Country: &country, Status: models.SiteStatusActive, EnrollmentTarget: 40, CurrentEnrollment: 30},
		"site-002": {ID: "site-002", SiteNumber: "002", SiteName: "Lakeside Clinic", Status: models.SiteStatusActive, EnrollmentTarget: 20, CurrentEnrollment: 5},
		"site-003": {ID: "site-003", SiteNumber: "003", SiteName: "Closed Site", Status: models.SiteStatusInactive},
	}}
}

type documentFixture struct {
	svc   *DocumentService
	docs  *fakeDocumentRepo
	audit *auditSink
	files *storage.LocalStorage
}

func newDocumentFixture(t *testing.T, cache *CacheService) documentFixture {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	docs := newFakeDocumentRepo()
	sections := &fakeSectionRepo{sections: map[string]*models.DocumentSection{
		testSectionTMF: {ID: testSectionTMF, Scope: models.ScopeTMF, SectionNumber: "01", SectionName: "Trial Management", IsRequired: true},
		testSectionISF: {ID: testSectionISF, Scope: models.ScopeISF, SectionNumber: "05", SectionName: "Site Files", IsRequired: true},
	}}
	audit := &auditSink{}
	signer := storage.NewSignedURLSigner("download-secret", 10*time.Minute)
	svc := NewDocumentService(docs, sections, newTestSites(), audit, files, signer, cache, nil, nil, zap.NewNop(), DocumentServiceConfig{
		DefaultPageSize: 2,
		MaxPageSize:     50,
		MaxFileSize:     1024,
		AllowedMIMEs:    []string{"application/pdf", "text/plain"},
	}).WithClock(testClock)
	return documentFixture{svc: svc, docs: docs, audit: audit, files: files}
}

func sponsorActor() Actor {
	return Actor{UserID: "user-sponsor", Role: models.RoleSponsor, IP: "10.0.0.1", UserAgent: "test"}
}

func coordinatorActor(site string) Actor {
	return Actor{UserID: "user-coordinator", Role: models.RoleSiteCoordinator, SiteID: &site}
}

func monitorActor() Actor {
	return Actor{UserID: "user-monitor", Role: models.RoleSiteMonitor}
}

func textFile(name, content string) UploadFile {
	return UploadFile{Name: name, Size: int64(len(content)), ContentType: "text/plain; charset=utf-8", Content: strings.NewReader(content)}
}

func uploadRequest(section string, scope models.DocumentScope) models.UploadDocumentRequest {
	return models.UploadDocumentRequest{Scope: scope, SectionID: section, DocumentName: "Protocol v2", Version: "2.0"}
}

func TestDocumentServiceListMissingTab(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	fx.docs.items = []models.Document{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	fx.docs.total = 3

	page, err := fx.svc.List(context.Background(), monitorActor(), map[string]string{"tab": "missing", "page": "2"})
	require.NoError(t, err)

	require.Len(t, fx.docs.executed, 1)
	desc := fx.docs.executed[0]
	assert.Equal(t, 2, desc.Offset())
	assert.Equal(t, 2, desc.Limit())
	require.Len(t, desc.Predicates(), 1)
	assert.Equal(t, query.FieldStatus, desc.Predicates()[0].Field)
	assert.Equal(t, []string{"missing", "overdue"}, desc.Predicates()[0].Values)

	require.Len(t, fx.docs.counted, 1)
	assert.False(t, fx.docs.counted[0].Paginated())

	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].ID)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, "missing", page.Filters["tab"])
	assert.False(t, page.Cached)
}

func TestDocumentServiceListClampsPageSizeBeforeOffset(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	fx.docs.total = 120

	page, err := fx.svc.List(context.Background(), sponsorActor(), map[string]string{"page": "2", "page_size": "500"})
	require.NoError(t, err)

	require.Len(t, fx.docs.executed, 1)
	desc := fx.docs.executed[0]
	assert.Equal(t, 50, desc.Limit())
	assert.Equal(t, 50, desc.Offset())
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 50, page.Pagination.PageSize)
	assert.Equal(t, 3, page.Pagination.TotalPages)
}

func TestDocumentServiceListRejectsInvalidFilter(t *testing.T) {
	fx := newDocumentFixture(t, nil)

	_, err := fx.svc.List(context.Background(), sponsorActor(), map[string]string{"status": "archived"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidFilterValue))
	assert.Empty(t, fx.docs.executed)
}

func TestDocumentServiceListRequiresAuthentication(t *testing.T) {
	fx := newDocumentFixture(t, nil)

	_, err := fx.svc.List(context.Background(), Actor{}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthenticated))

	_, err = fx.svc.List(context.Background(), Actor{UserID: "u", Role: "auditor"}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidRole))
}

func TestDocumentServiceListStorageUnavailable(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	fx.docs.executeErr = appErrors.Clone(appErrors.ErrStorageUnavailable, "list documents: storage unavailable")

	_, err := fx.svc.List(context.Background(), sponsorActor(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorageUnavailable))
	assert.True(t, appErrors.IsRetryable(err))
}

func TestDocumentServiceListUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCacheService(repository.NewCacheRepository(client, zap.NewNop()), nil, time.Minute, zap.NewNop(), true)

	fx := newDocumentFixture(t, cache)
	fx.docs.items = []models.Document{{ID: "a", DocumentName: "Protocol"}}
	fx.docs.total = 1

	first, err := fx.svc.List(context.Background(), sponsorActor(), nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := fx.svc.List(context.Background(), sponsorActor(), nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "Protocol", second.Items[0].DocumentName)
	assert.Len(t, fx.docs.executed, 1)

	fx.docs.docs[testDocID] = &models.Document{ID: testDocID, Scope: models.ScopeTMF, SectionID: testSectionTMF, Status: models.StatusCurrent}
	_, err = fx.svc.Certify(context.Background(), monitorActor(), testDocID)
	require.NoError(t, err)

	third, err := fx.svc.List(context.Background(), sponsorActor(), nil)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Len(t, fx.docs.executed, 2)
}

func TestDocumentServiceUploadCreatesDocument(t *testing.T) {
	fx := newDocumentFixture(t, nil)

	doc, err := fx.svc.Upload(context.Background(), sponsorActor(), uploadRequest(testSectionTMF, "tmf"), textFile("../protocol v2.txt", "hello"))
	require.NoError(t, err)

	require.Len(t, fx.docs.created, 1)
	assert.Equal(t, models.ScopeTMF, doc.Scope)
	assert.Equal(t, models.StatusCurrent, doc.EffectiveStatus)
	assert.Equal(t, "text/plain", *doc.FileType)
	assert.Equal(t, int64(5), *doc.FileSize)
	assert.True(t, strings.HasPrefix(doc.FilePath, "documents/TMF/"+doc.ID+"/"))
	assert.True(t, strings.HasSuffix(doc.FilePath, "-protocol_v2.txt"))

	data, err := os.ReadFile(fx.files.Path(doc.FilePath))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, []models.AuditAction{models.AuditActionUpload}, fx.audit.actions())
}

func TestDocumentServiceUploadValidation(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		req     func() models.UploadDocumentRequest
		file    UploadFile
		wantErr *appErrors.Error
	}{
		{
			name:    "section belongs to another scope",
			actor:   sponsorActor(),
			req:     func() models.UploadDocumentRequest { return uploadRequest(testSectionISF, models.ScopeTMF) },
			file:    textFile("a.txt", "x"),
			wantErr: appErrors.ErrValidation,
		},
		{
			name:  "unknown section",
			actor: sponsorActor(),
			req: func() models.UploadDocumentRequest {
				return uploadRequest("44444444-4444-4444-8444-444444444444", models.ScopeTMF)
			},
			file:    textFile("a.txt", "x"),
			wantErr: appErrors.ErrValidation,
		},
		{
			name:  "inactive site",
			actor: sponsorActor(),
			req: func() models.UploadDocumentRequest {
				req := uploadRequest(testSectionISF, models.ScopeISF)
				site := "site-003"
				req.SiteID = &site
				return req
			},
			file:    textFile("a.txt", "x"),
			wantErr: appErrors.ErrValidation,
		},
		{
			name:  "coordinator filing for another site",
			actor: coordinatorActor("site-001"),
			req: func() models.UploadDocumentRequest {
				req := uploadRequest(testSectionISF, models.ScopeISF)
				site := "site-002"
				req.SiteID = &site
				return req
			},
			file:    textFile("a.txt", "x"),
			wantErr: appErrors.ErrForbidden,
		},
		{
			name:    "monitor cannot upload",
			actor:   monitorActor(),
			req:     func() models.UploadDocumentRequest { return uploadRequest(testSectionTMF, models.ScopeTMF) },
			file:    textFile("a.txt", "x"),
			wantErr: appErrors.ErrForbidden,
		},
		{
			name:    "disallowed content type",
			actor:   sponsorActor(),
			req:     func() models.UploadDocumentRequest { return uploadRequest(testSectionTMF, models.ScopeTMF) },
			file:    UploadFile{Name: "a.exe", Size: 1, ContentType: "application/x-msdownload", Content: strings.NewReader("x")},
			wantErr: appErrors.ErrValidation,
		},
		{
			name:  "missing name",
			actor: sponsorActor(),
			req: func() models.UploadDocumentRequest {
				req := uploadRequest(testSectionTMF, models.ScopeTMF)
				req.DocumentName = "  "
				return req
			},
			file:    textFile("a.txt", "x"),
			wantErr: appErrors.ErrValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := newDocumentFixture(t, nil)
			_, err := fx.svc.Upload(context.Background(), tc.actor, tc.req(), tc.file)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
			assert.Empty(t, fx.docs.created)
			assert.Empty(t, fx.audit.logs)
		})
	}
}

func TestDocumentServiceUploadCoordinatorDefaultsToOwnSite(t *testing.T) {
	fx := newDocumentFixture(t, nil)

	doc, err := fx.svc.Upload(context.Background(), coordinatorActor("site-001"), uploadRequest(testSectionISF, models.ScopeISF), textFile("a.txt", "x"))
	require.NoError(t, err)
	require.NotNil(t, doc.SiteID)
	assert.Equal(t, "site-001", *doc.SiteID)
}

func TestDocumentServiceUploadTooLargeLeavesNoFile(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	content := strings.Repeat("x", 2048)
	file := UploadFile{Name: "big.txt", ContentType: "text/plain", Content: strings.NewReader(content)}

	_, err := fx.svc.Upload(context.Background(), sponsorActor(), uploadRequest(testSectionTMF, models.ScopeTMF), file)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	entries, _ := os.ReadDir(fx.files.Path("documents/TMF"))
	for _, entry := range entries {
		inner, _ := os.ReadDir(fx.files.Path("documents/TMF/" + entry.Name()))
		assert.Empty(t, inner)
	}
	assert.Empty(t, fx.docs.created)
}

func TestDocumentServiceUploadRemovesFileOnStorageFailure(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	fx.docs.createErr = fmt.Errorf("insert failed")

	_, err := fx.svc.Upload(context.Background(), sponsorActor(), uploadRequest(testSectionTMF, models.ScopeTMF), textFile("a.txt", "x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))

	var found []string
	_ = walkFiles(fx.files.Path("documents"), &found)
	assert.Empty(t, found)
}

func walkFiles(dir string, out *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		full := dir + string(os.PathSeparator) + entry.Name()
		if entry.IsDir() {
			_ = walkFiles(full, out)
			continue
		}
		*out = append(*out, full)
	}
	return nil
}

func TestDocumentServiceUploadFulfillsMissingPlaceholder(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	site := "site-001"
	fx.docs.docs[testDocID] = &models.Document{ID: testDocID, Scope: models.ScopeTMF, SectionID: testSectionTMF, SiteID: &site, Status: models.StatusMissing, DueDate: &due}

	req := uploadRequest(testSectionTMF, models.ScopeTMF)
	id := testDocID
	req.SupersedesID = &id
	doc, err := fx.svc.Upload(context.Background(), sponsorActor(), req, textFile("a.txt", "x"))
	require.NoError(t, err)

	require.Len(t, fx.docs.fulfilled, 1)
	assert.Empty(t, fx.docs.versioned)
	assert.Equal(t, testDocID, doc.ID)
	assert.Nil(t, doc.SupersedesID)
	assert.Equal(t, &due, doc.DueDate)
	assert.Equal(t, models.StatusCurrent, doc.EffectiveStatus)
}

func TestDocumentServiceUploadNewVersionSupersedesPrevious(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	fx.docs.docs[testDocID] = &models.Document{ID: testDocID, Scope: models.ScopeTMF, SectionID: testSectionTMF, Status: models.StatusCertified}

	req := uploadRequest(testSectionTMF, models.ScopeTMF)
	id := testDocID
	req.SupersedesID = &id
	doc, err := fx.svc.Upload(context.Background(), sponsorActor(), req, textFile("a.txt", "x"))
	require.NoError(t, err)

	require.Len(t, fx.docs.versioned, 1)
	assert.NotEqual(t, testDocID, doc.ID)
	require.NotNil(t, doc.SupersedesID)
	assert.Equal(t, testDocID, *doc.SupersedesID)
	assert.Equal(t, models.StatusSuperseded, fx.docs.docs[testDocID].Status)

	_, err = fx.svc.Upload(context.Background(), sponsorActor(), req, textFile("b.txt", "y"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestDocumentServiceUploadConcurrentVersionConflict(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	fx.docs.docs[testDocID] = &models.Document{ID: testDocID, Scope: models.ScopeTMF, SectionID: testSectionTMF, Status: models.StatusCurrent}
	fx.docs.createErr = fmt.Errorf("supersede %s: %w", testDocID, repository.ErrNoRowsAffected)

	req := uploadRequest(testSectionTMF, models.ScopeTMF)
	id := testDocID
	req.SupersedesID = &id
	_, err := fx.svc.Upload(context.Background(), sponsorActor(), req, textFile("a.txt", "x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestDocumentServiceCertify(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	fx.docs.docs[testDocID] = &models.Document{ID: testDocID, Scope: models.ScopeTMF, SectionID: testSectionTMF, Status: models.StatusCurrent}

	_, err := fx.svc.Certify(context.Background(), coordinatorActor("site-001"), testDocID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	doc, err := fx.svc.Certify(context.Background(), monitorActor(), testDocID)
	require.NoError(t, err)
	assert.True(t, doc.IsCertified)
	assert.Equal(t, models.StatusCertified, doc.EffectiveStatus)
	assert.Equal(t, "user-monitor", *doc.CertifiedBy)
	assert.Equal(t, []string{testDocID}, fx.docs.certified)
	assert.Equal(t, []models.AuditAction{models.AuditActionUpdate}, fx.audit.actions())
}

func TestDocumentServiceCertifyRejectsMissingDocument(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	fx.docs.docs[testDocID] = &models.Document{ID: testDocID, Status: models.StatusMissing}
	fx.docs.certifyErr = fmt.Errorf("certify: %w", repository.ErrNoRowsAffected)

	_, err := fx.svc.Certify(context.Background(), sponsorActor(), testDocID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, fx.audit.logs)
}

func TestDocumentServiceGetUnknownIDs(t *testing.T) {
	fx := newDocumentFixture(t, nil)

	_, err := fx.svc.Get(context.Background(), sponsorActor(), "not-a-uuid")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = fx.svc.Get(context.Background(), sponsorActor(), testDocID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDocumentServiceDelete(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	doc, err := fx.svc.Upload(context.Background(), sponsorActor(), uploadRequest(testSectionTMF, models.ScopeTMF), textFile("a.txt", "x"))
	require.NoError(t, err)

	err = fx.svc.Delete(context.Background(), coordinatorActor("site-001"), doc.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, fx.svc.Delete(context.Background(), sponsorActor(), doc.ID))
	assert.Equal(t, []string{doc.ID}, fx.docs.deleted)
	_, statErr := os.Stat(fx.files.Path(doc.FilePath))
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, []models.AuditAction{models.AuditActionUpload, models.AuditActionDelete}, fx.audit.actions())
}

func TestDocumentServiceDownloadRoundTrip(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	doc, err := fx.svc.Upload(context.Background(), sponsorActor(), uploadRequest(testSectionTMF, models.ScopeTMF), textFile("a.txt", "payload"))
	require.NoError(t, err)

	link, err := fx.svc.DownloadLink(context.Background(), coordinatorActor("site-001"), doc.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link.URL, "/api/v1/documents/files/"))

	token := strings.TrimPrefix(link.URL, "/api/v1/documents/files/")
	file, opened, err := fx.svc.OpenFile(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, doc.ID, opened.ID)
	assert.Contains(t, fx.audit.actions(), models.AuditActionDownload)

	fx.docs.docs[doc.ID].FilePath = "documents/TMF/other.txt"
	_, _, err = fx.svc.OpenFile(context.Background(), token)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, _, err = fx.svc.OpenFile(context.Background(), token+"x")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDocumentServiceStatsAndSections(t *testing.T) {
	fx := newDocumentFixture(t, nil)
	fx.docs.stats = &models.DocumentStats{Total: 10, Missing: 3, Overdue: 1}

	stats, err := fx.svc.Stats(context.Background(), monitorActor())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Missing)

	sections, err := fx.svc.Sections(context.Background(), monitorActor(), "isf", false)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, testSectionISF, sections[0].ID)

	_, err = fx.svc.Sections(context.Background(), monitorActor(), "XYZ", false)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidFilterValue))
}
