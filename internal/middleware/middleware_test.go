package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "invalid token")
	}
	return v.claims, nil
}

type recorderStub struct {
	logs []*models.AuditLog
	err  error
}

func (r *recorderStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return r.err
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
	o.statuses = append(o.statuses, status)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/items/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items/42?scope=TMF", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	router := newRouter(JWT(validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleSponsor}}))

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer bad").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer good").Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	var seen *models.JWTClaims
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(OptionalJWT(validatorStub{claims: &models.JWTClaims{UserID: "u1"}}))
	router.GET("/", func(c *gin.Context) {
		seen = Claims(c)
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, seen)

	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer good")
	router.ServeHTTP(recorder, req)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
}

func TestRequireCapabilityUsesActiveRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleSponsor, ActiveRole: models.RoleSiteCoordinator}
	router := newRouter(JWT(validatorStub{claims: claims}), RequireCapability(policy.CapViewDocuments, policy.CapViewReports))
	assert.Equal(t, http.StatusForbidden, serve(router, "Bearer good").Code)

	claims.ActiveRole = models.RoleSiteMonitor
	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer good").Code)

	unauthenticated := newRouter(RequireCapability(policy.CapViewDocuments))
	assert.Equal(t, http.StatusUnauthorized, serve(unauthenticated, "").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	recorder := &recorderStub{}
	router := newRouter(JWT(validatorStub{claims: &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}}), Audit(recorder, models.AuditActionRead, "user", nil))

	serve(router, "Bearer good")
	require.Len(t, recorder.logs, 1)
	entry := recorder.logs[0]
	assert.Equal(t, models.AuditActionRead, entry.Action)
	assert.Equal(t, "user", entry.ResourceType)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "admin-1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "42", *entry.ResourceID)
	assert.Contains(t, string(entry.Details), `"query":"scope=TMF"`)

	serve(router, "Bearer bad")
	assert.Len(t, recorder.logs, 1)

	recorder.err = errors.New("insert failed")
	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer good").Code)
}

func TestMetricsFoldsUnmatchedRoutes(t *testing.T) {
	observer := &observerStub{}
	router := newRouter(Metrics(observer))

	serve(router, "")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/nope/123", nil))

	assert.Equal(t, []string{"/items/:id", "unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNotFound}, observer.statuses)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetMeta(c, "as_of", "2024-03-15")
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, "2024-03-15", meta["as_of"])
	assert.Contains(t, meta, "processing_time_ms")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))
	SetCacheHit(c, false)
	assert.Equal(t, false, ExtractMeta(c)["cache_hit"])
}
