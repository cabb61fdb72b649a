package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ctos-api/internal/models"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail         *models.User
	userByID            *models.User
	findByEmailErr      error
	findByIDErr         error
	refreshTokens       map[string]*models.RefreshToken
	refreshTokenErr     error
	createRefreshErr    error
	revokeRefreshErr    error
	revokeUserTokensErr error
	auditLogs           []*models.AuditLog
	lastLoginUpdated    bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if m.refreshTokenErr != nil {
		return nil, m.refreshTokenErr
	}
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.revokeRefreshErr != nil {
		return m.revokeRefreshErr
	}
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type memoryPreferences struct {
	roles  map[string]models.UserRole
	getErr error
}

func (m *memoryPreferences) Get(ctx context.Context, userID string) (models.UserRole, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	role, ok := m.roles[userID]
	return role, ok, nil
}

func (m *memoryPreferences) Set(ctx context.Context, userID string, role models.UserRole) error {
	if m.roles == nil {
		m.roles = map[string]models.UserRole{}
	}
	m.roles[userID] = role
	return nil
}

var testAuthConfig = AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: 24 * time.Hour, Issuer: "ctos-api"}

func newUserWithPassword(t *testing.T, role models.UserRole, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "u1", Email: "user@example.com", FullName: "Test User", PasswordHash: string(hash), Active: true, Role: role}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: newUserWithPassword(t, models.RoleAdmin, "password")}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleAdmin, res.User.ActiveRole)
	assert.True(t, repo.lastLoginUpdated)
	assert.NotEmpty(t, repo.refreshTokens)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
	assert.Equal(t, "auth", repo.auditLogs[0].ResourceType)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: newUserWithPassword(t, models.RoleSponsor, "password")}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, nil, validator.New(), zap.NewNop(), testAuthConfig)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "x"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	user := newUserWithPassword(t, models.RoleSiteMonitor, "password")
	user.Active = false
	svc := NewAuthService(&mockAuthRepo{userByEmail: user}, nil, validator.New(), zap.NewNop(), testAuthConfig)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceLoginStorageUnavailable(t *testing.T) {
	repo := &mockAuthRepo{findByEmailErr: appErrors.Clone(appErrors.ErrStorageUnavailable, "find user: storage unavailable")}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)
	assert.True(t, appErrors.IsRetryable(err))
}

func TestAuthServiceLoginRestoresRolePreference(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: newUserWithPassword(t, models.RoleSponsor, "password")}
	prefs := &memoryPreferences{roles: map[string]models.UserRole{"u1": models.RoleSiteCoordinator}}
	svc := NewAuthService(repo, prefs, validator.New(), zap.NewNop(), testAuthConfig)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSponsor, res.User.Role)
	assert.Equal(t, models.RoleSiteCoordinator, res.User.ActiveRole)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSiteCoordinator, claims.EffectiveRole())
}

func TestAuthServiceLoginIgnoresPreferenceForFixedRoles(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: newUserWithPassword(t, models.RoleSiteMonitor, "password")}
	prefs := &memoryPreferences{roles: map[string]models.UserRole{"u1": models.RoleAdmin}}
	svc := NewAuthService(repo, prefs, validator.New(), zap.NewNop(), testAuthConfig)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSiteMonitor, res.User.ActiveRole)
}

func TestAuthServiceLoginDropsPreferenceAboveAccountRole(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: newUserWithPassword(t, models.RoleSponsor, "password")}
	prefs := &memoryPreferences{roles: map[string]models.UserRole{"u1": models.RoleAdmin}}
	svc := NewAuthService(repo, prefs, validator.New(), zap.NewNop(), testAuthConfig)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSponsor, res.User.ActiveRole)
}

func TestAuthServiceLoginPreferenceStoreDown(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: newUserWithPassword(t, models.RoleAdmin, "password")}
	prefs := &memoryPreferences{getErr: errors.New("redis down")}
	svc := NewAuthService(repo, prefs, validator.New(), zap.NewNop(), testAuthConfig)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.User.ActiveRole)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: make(map[string]*models.RefreshToken)}
	user := &models.User{ID: "u1", Email: "user@example.com", PasswordHash: "hash", Active: true, Role: models.RoleAdmin}
	repo.userByID = user
	token := &models.RefreshToken{ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	repo.refreshTokens[token.Token] = token

	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceRefreshTokenRevoked(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(time.Hour), Revoked: true},
	}}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig)

	err := svc.Logout(context.Background(), "u2", models.LogoutRequest{RefreshToken: "token"}, "", "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.Logout(context.Background(), "u1", models.LogoutRequest{RefreshToken: "token"}, "127.0.0.1", "test"))
	assert.True(t, repo.refreshTokens["token"].Revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogout, repo.auditLogs[0].Action)
}

func TestAuthServiceSwitchRole(t *testing.T) {
	user := &models.User{ID: "u1", Email: "sponsor@example.com", Active: true, Role: models.RoleSponsor}
	prefs := &memoryPreferences{}
	svc := NewAuthService(&mockAuthRepo{userByID: user}, prefs, validator.New(), zap.NewNop(), testAuthConfig)

	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleSponsor}
	res, err := svc.SwitchRole(context.Background(), claims, "Site_Monitor")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSiteMonitor, res.ActiveRole)
	assert.Equal(t, models.RoleSiteMonitor, prefs.roles["u1"])

	parsed, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSponsor, parsed.Role)
	assert.Equal(t, models.RoleSiteMonitor, parsed.EffectiveRole())

	res, err = svc.SwitchRole(context.Background(), parsed, "sponsor")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSponsor, res.ActiveRole)
	assert.Equal(t, models.RoleSponsor, prefs.roles["u1"])
}

func TestAuthServiceSponsorCannotActAsAdmin(t *testing.T) {
	user := &models.User{ID: "u1", Email: "sponsor@example.com", Active: true, Role: models.RoleSponsor}
	prefs := &memoryPreferences{}
	svc := NewAuthService(&mockAuthRepo{userByID: user}, prefs, validator.New(), zap.NewNop(), testAuthConfig)

	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleSponsor, ActiveRole: models.RoleSiteMonitor}
	res, err := svc.SwitchRole(context.Background(), claims, "admin")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Nil(t, res)
	assert.Empty(t, prefs.roles)
}

func TestAuthServiceSwitchRoleRefused(t *testing.T) {
	user := &models.User{ID: "u1", Active: true, Role: models.RoleSiteCoordinator}
	prefs := &memoryPreferences{}
	svc := NewAuthService(&mockAuthRepo{userByID: user}, prefs, validator.New(), zap.NewNop(), testAuthConfig)

	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleSiteCoordinator}
	_, err := svc.SwitchRole(context.Background(), claims, "admin")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.SwitchRole(context.Background(), claims, "site_coordinator")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.SwitchRole(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, "principal")
	assert.ErrorIs(t, err, appErrors.ErrInvalidRole)

	_, err = svc.SwitchRole(context.Background(), nil, "admin")
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
	assert.Empty(t, prefs.roles)
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, nil, validator.New(), zap.NewNop(), testAuthConfig)
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleAdmin}
	token, _, err := svc.generateAccessToken(user, models.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	other := NewAuthService(&mockAuthRepo{}, nil, validator.New(), zap.NewNop(), AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}
