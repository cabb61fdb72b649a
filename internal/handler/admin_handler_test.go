package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/service"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

type userServiceMock struct {
	params   service.UserListParams
	created  service.CreateUserRequest
	auditArg string
	limit    int
}

func (m *userServiceMock) List(ctx context.Context, actor service.Actor, params service.UserListParams) ([]models.User, *models.Pagination, error) {
	m.params = params
	return []models.User{}, &models.Pagination{Page: params.Page, PageSize: params.PageSize}, nil
}

func (m *userServiceMock) Get(ctx context.Context, actor service.Actor, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (m *userServiceMock) Create(ctx context.Context, actor service.Actor, req service.CreateUserRequest) (*models.User, error) {
	m.created = req
	if req.Email == "taken@example.com" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return &models.User{ID: "new-user", Email: req.Email}, nil
}

func (m *userServiceMock) Update(ctx context.Context, actor service.Actor, id string, req service.UpdateUserRequest) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (m *userServiceMock) Delete(ctx context.Context, actor service.Actor, id string) error {
	return nil
}

func (m *userServiceMock) AuditTrail(ctx context.Context, actor service.Actor, resourceType string, limit int) ([]models.AuditLog, error) {
	m.auditArg = resourceType
	m.limit = limit
	return []models.AuditLog{}, nil
}

type communityServiceMock struct {
	params service.CommunityListParams
	asked  models.CreateQuestionRequest
}

func (m *communityServiceMock) List(ctx context.Context, actor service.Actor, params service.CommunityListParams) ([]models.Question, *models.Pagination, error) {
	m.params = params
	return []models.Question{}, &models.Pagination{Page: 1}, nil
}

func (m *communityServiceMock) Get(ctx context.Context, actor service.Actor, id string) (*models.Question, error) {
	return &models.Question{ID: id}, nil
}

func (m *communityServiceMock) Ask(ctx context.Context, actor service.Actor, req models.CreateQuestionRequest) (*models.Question, error) {
	m.asked = req
	return &models.Question{ID: "q-1", Title: req.Title}, nil
}

func (m *communityServiceMock) Answer(ctx context.Context, actor service.Actor, questionID string, req models.CreateAnswerRequest) (*models.Answer, error) {
	return &models.Answer{ID: "a-1", QuestionID: questionID}, nil
}

func (m *communityServiceMock) Upvote(ctx context.Context, actor service.Actor, questionID string) (*models.Question, error) {
	return nil, appErrors.Clone(appErrors.ErrConflict, "already voted")
}

func (m *communityServiceMock) AcceptAnswer(ctx context.Context, actor service.Actor, answerID string) (*models.Answer, error) {
	return nil, appErrors.Clone(appErrors.ErrForbidden, "only the question author can accept an answer")
}

type authServiceMock struct {
	loggedOut string
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if req.Password != "secret123" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "token"}, nil
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "token"}, nil
}

func (m *authServiceMock) Logout(ctx context.Context, userID string, req models.LogoutRequest, ip, userAgent string) error {
	m.loggedOut = userID
	return nil
}

func (m *authServiceMock) Me(ctx context.Context, claims *models.JWTClaims) (*models.UserInfo, error) {
	return &models.UserInfo{ID: claims.UserID, Role: claims.Role, ActiveRole: claims.EffectiveRole()}, nil
}

func TestUserHandlerListParsesQuery(t *testing.T) {
	svc := &userServiceMock{}
	handler := NewUserHandler(svc)

	c, w := newTestContext(http.MethodGet, "/admin/users?role=sponsor&site=site-001&active=false&search=ann&page=3&page_size=5", nil)
	withClaims(c, models.RoleAdmin)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sponsor", svc.params.Role)
	assert.Equal(t, "site-001", svc.params.SiteID)
	require.NotNil(t, svc.params.Active)
	assert.False(t, *svc.params.Active)
	assert.Equal(t, 3, svc.params.Page)
	assert.Equal(t, 5, svc.params.PageSize)

	c, w = newTestContext(http.MethodGet, "/admin/users?active=maybe", nil)
	withClaims(c, models.RoleAdmin)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandlerCreateConflict(t *testing.T) {
	handler := NewUserHandler(&userServiceMock{})
	c, w := newTestContext(http.MethodPost, "/admin/users", bytes.NewReader([]byte(`{"email":"taken@example.com","full_name":"A","role":"sponsor","password":"longenough"}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	withClaims(c, models.RoleAdmin)

	handler.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUserHandlerAuditTrail(t *testing.T) {
	svc := &userServiceMock{}
	handler := NewUserHandler(svc)
	c, w := newTestContext(http.MethodGet, "/admin/audit?resource_type=document", nil)
	withClaims(c, models.RoleAdmin)

	handler.AuditTrail(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "document", svc.auditArg)
	assert.Equal(t, 50, svc.limit)
}

func TestCommunityHandlerList(t *testing.T) {
	svc := &communityServiceMock{}
	handler := NewCommunityHandler(svc)

	c, w := newTestContext(http.MethodGet, "/community/questions?category=Regulatory&sort=popular&mine=true&unanswered=1&page=2", nil)
	withClaims(c, models.RoleSiteCoordinator)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.CommunityListParams{Category: "Regulatory", Sort: "popular", Mine: true, Unanswered: true, Page: 2}, svc.params)

	c, w = newTestContext(http.MethodGet, "/community/questions?page=two", nil)
	withClaims(c, models.RoleSiteCoordinator)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommunityHandlerMutations(t *testing.T) {
	svc := &communityServiceMock{}
	handler := NewCommunityHandler(svc)

	c, w := newTestContext(http.MethodPost, "/community/questions", bytes.NewReader([]byte(`{"title":"How to file the 1572?","content":"Details","category":"Regulatory","tags":["fda"]}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	withClaims(c, models.RoleSiteCoordinator)
	handler.Ask(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"fda"}, svc.asked.Tags)

	c, w = newTestContext(http.MethodPost, "/community/questions/q-1/upvote", nil)
	withClaims(c, models.RoleSiteCoordinator)
	handler.Upvote(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	c, w = newTestContext(http.MethodPost, "/community/answers/a-1/accept", nil)
	withClaims(c, models.RoleSiteCoordinator)
	handler.AcceptAnswer(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthHandlerLoginAndLogout(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newTestContext(http.MethodPost, "/auth/login", bytes.NewReader([]byte(`{"email":"a@example.com","password":"wrong"}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodPost, "/auth/login", bytes.NewReader([]byte(`{"email":"a@example.com","password":"secret123"}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	handler.Login(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, _ = newTestContext(http.MethodPost, "/auth/logout", bytes.NewReader([]byte(`{"refresh_token":"r"}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	withClaims(c, models.RoleSponsor)
	handler.Logout(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "user-1", svc.loggedOut)

	c, w = newTestContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	healthy := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	c, w := newTestContext(http.MethodGet, "/ready", nil)
	healthy.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	degraded := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	c, w = newTestContext(http.MethodGet, "/ready", nil)
	degraded.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	c, _ = newTestContext(http.MethodGet, "/metrics", nil)
	degraded.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, c.Writer.Status())
}
