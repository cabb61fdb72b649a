package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type rolePreferenceStore interface {
	Get(ctx context.Context, userID string) (models.UserRole, bool, error)
	Set(ctx context.Context, userID string, role models.UserRole) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
	SingleSession      bool
}

// SwitchRoleResponse is returned after the active role changed.
type SwitchRoleResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   int64           `json:"expires_in"`
	ActiveRole  models.UserRole `json:"active_role"`
}

// AuthService provides authentication and session role use cases.
type AuthService struct {
	repo        authUserRepository
	preferences rolePreferenceStore
	validator   *validator.Validate
	logger      *zap.Logger
	config      AuthConfig
	now         func() time.Time
}

// NewAuthService constructs an AuthService instance. preferences may be nil, in
// which case role switches last for the access token lifetime only.
func NewAuthService(repo authUserRepository, preferences rolePreferenceStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, preferences: preferences, validator: validate, logger: logger, config: config, now: time.Now}
}

// Login authenticates a user and returns issued tokens.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, internalOrStorage(err, "failed to fetch user")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if s.config.SingleSession {
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke previous refresh tokens", zap.Error(err))
		}
	}

	activeRole := s.restoreRole(ctx, user)
	accessToken, _, err := s.generateAccessToken(user, activeRole)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshToken, err := s.issueRefreshToken(ctx, user.ID, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	s.audit(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		ResourceID: &user.ID,
		Details:    []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	})

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     s.now().UTC(),
		User:         userInfo(user, activeRole),
	}, nil
}

// RefreshToken exchanges a refresh token for a new access token pair.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	storedToken, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "refresh token not found")
		}
		return nil, internalOrStorage(err, "failed to fetch refresh token")
	}

	if !storedToken.Usable(s.now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "refresh token is expired or revoked")
	}

	user, err := s.repo.FindByID(ctx, storedToken.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "associated user no longer exists")
		}
		return nil, internalOrStorage(err, "failed to load user")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := s.repo.RevokeRefreshToken(ctx, storedToken.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to revoke used refresh token", zap.Error(err))
	}

	accessToken, _, err := s.generateAccessToken(user, s.restoreRole(ctx, user))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate access token")
	}

	newRefresh, err := s.issueRefreshToken(ctx, user.ID, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	return &models.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefresh.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     s.now().UTC(),
	}, nil
}

// Logout revokes the provided refresh token.
func (s *AuthService) Logout(ctx context.Context, userID string, req models.LogoutRequest, ip, userAgent string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid logout payload")
	}

	storedToken, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthenticated, "refresh token not found")
		}
		return internalOrStorage(err, "failed to load refresh token")
	}

	if storedToken.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}

	if err := s.repo.RevokeRefreshToken(ctx, storedToken.ID, s.now().UTC()); err != nil {
		return internalOrStorage(err, "failed to revoke refresh token")
	}

	s.audit(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionLogout,
		ResourceID: &userID,
		Details:    []byte(`{"status":"logout"}`),
		IPAddress:  ip,
		UserAgent:  userAgent,
	})
	return nil
}

// Me returns the profile of the authenticated session.
func (s *AuthService) Me(ctx context.Context, claims *models.JWTClaims) (*models.UserInfo, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "user no longer exists")
		}
		return nil, internalOrStorage(err, "failed to load user")
	}
	info := userInfo(user, claims.EffectiveRole())
	return &info, nil
}

// SwitchRole changes the active role of the session and issues a new access
// token. Only roles allowed to switch may do so; the choice is persisted so the
// next login starts in the same role.
func (s *AuthService) SwitchRole(ctx context.Context, claims *models.JWTClaims, target string) (*SwitchRoleResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	targetRole, err := policy.ParseRole(target)
	if err != nil {
		return nil, err
	}
	activeRole, err := policy.SwitchRole(claims.Role, targetRole)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "user no longer exists")
		}
		return nil, internalOrStorage(err, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	if user.Role != claims.Role {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "account role changed, sign in again")
	}

	if s.preferences != nil {
		if err := s.preferences.Set(ctx, user.ID, activeRole); err != nil {
			s.logger.Warn("failed to persist role preference", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	token, _, err := s.generateAccessToken(user, activeRole)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("role switched", zap.String("user_id", user.ID), zap.String("from", string(claims.EffectiveRole())), zap.String("to", string(activeRole)))
	return &SwitchRoleResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		ActiveRole:  activeRole,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthenticated.Code, appErrors.ErrUnauthenticated.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "invalid token claims")
	}
	if _, err := policy.CapabilitiesFor(claims.EffectiveRole()); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "token carries an unknown role")
	}

	return claims, nil
}

// restoreRole returns the persisted preference when the account may switch
// roles, and the account role otherwise.
func (s *AuthService) restoreRole(ctx context.Context, user *models.User) models.UserRole {
	if s.preferences == nil || !policy.CanSwitchRole(user.Role) {
		return user.Role
	}
	preferred, ok, err := s.preferences.Get(ctx, user.ID)
	if err != nil {
		s.logger.Warn("failed to load role preference", zap.String("user_id", user.ID), zap.Error(err))
		return user.Role
	}
	if !ok {
		return user.Role
	}
	if _, err := policy.SwitchRole(user.Role, preferred); err != nil {
		return user.Role
	}
	return preferred
}

func (s *AuthService) issueRefreshToken(ctx context.Context, userID, ip, userAgent string) (*models.RefreshToken, error) {
	value, err := s.generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	now := s.now().UTC()
	token := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     value,
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateRefreshToken(ctx, token); err != nil {
		return nil, internalOrStorage(err, "failed to persist refresh token")
	}
	return token, nil
}

func (s *AuthService) audit(ctx context.Context, entry *models.AuditLog) {
	entry.ResourceType = "auth"
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", string(entry.Action)), zap.Error(err))
	}
}

func (s *AuthService) generateAccessToken(user *models.User, activeRole models.UserRole) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:     user.ID,
		Role:       user.Role,
		ActiveRole: activeRole,
		Email:      user.Email,
		FullName:   user.FullName,
		SiteID:     user.AssignedSiteID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func userInfo(user *models.User, activeRole models.UserRole) models.UserInfo {
	if activeRole == "" {
		activeRole = user.Role
	}
	return models.UserInfo{
		ID:             user.ID,
		Email:          user.Email,
		FullName:       user.FullName,
		Role:           user.Role,
		ActiveRole:     activeRole,
		AssignedSiteID: user.AssignedSiteID,
	}
}

// internalOrStorage keeps typed repository failures (storage unavailable,
// permission denied, conflicts) and wraps anything else as internal.
func internalOrStorage(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
