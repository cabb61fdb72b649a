package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	"github.com/noah-isme/ctos-api/internal/repository"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter repository.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListAuditLogs(ctx context.Context, resourceType string, limit int) ([]models.AuditLog, error)
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email          string          `json:"email" validate:"required,email"`
	FullName       string          `json:"full_name" validate:"required,max=255"`
	Role           models.UserRole `json:"role" validate:"required,oneof=sponsor site_monitor site_coordinator admin"`
	AssignedSiteID *string         `json:"assigned_site_id,omitempty" validate:"omitempty,max=64"`
	Active         bool            `json:"active"`
	Password       string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	FullName       string          `json:"full_name" validate:"required,max=255"`
	Role           models.UserRole `json:"role" validate:"required,oneof=sponsor site_monitor site_coordinator admin"`
	AssignedSiteID *string         `json:"assigned_site_id,omitempty" validate:"omitempty,max=64"`
	Active         *bool           `json:"active"`
}

// UserListParams are the raw listing options of the admin user list.
type UserListParams struct {
	Role     string
	SiteID   string
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// UserService handles account administration. Every operation requires the
// manage_admin capability.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	hashCost  int
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger, hashCost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost; used by tests.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.hashCost = cost
	return s
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, actor Actor, params UserListParams) ([]models.User, *models.Pagination, error) {
	if err := actor.Can(policy.CapManageAdmin); err != nil {
		return nil, nil, err
	}
	filter := repository.UserFilter{
		Active:   params.Active,
		Search:   strings.TrimSpace(params.Search),
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	if params.Role != "" {
		role, err := policy.ParseRole(params.Role)
		if err != nil {
			return nil, nil, err
		}
		filter.Role = &role
	}
	if site := strings.TrimSpace(params.SiteID); site != "" {
		filter.SiteID = &site
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, nil, internalOrStorage(err, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, models.NewPagination((filter.Page-1)*filter.PageSize, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, actor Actor, id string) (*models.User, error) {
	if err := actor.Can(policy.CapManageAdmin); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

// Create adds a new user.
func (s *UserService) Create(ctx context.Context, actor Actor, req CreateUserRequest) (*models.User, error) {
	if err := actor.Can(policy.CapManageAdmin); err != nil {
		return nil, err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.AssignedSiteID = trimmedOrNil(req.AssignedSiteID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	if err := checkSiteAssignment(req.Role, req.AssignedSiteID); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalOrStorage(err, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:             uuid.NewString(),
		Email:          req.Email,
		FullName:       req.FullName,
		Role:           req.Role,
		AssignedSiteID: req.AssignedSiteID,
		Active:         req.Active,
		PasswordHash:   string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, internalOrStorage(err, "failed to create user")
	}

	s.recordAudit(ctx, actor, models.AuditActionCreate, user.ID, map[string]interface{}{"email": user.Email, "role": user.Role})
	return user, nil
}

// Update modifies the user attributes. Changing the role or deactivating the
// account revokes its refresh tokens.
func (s *UserService) Update(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*models.User, error) {
	if err := actor.Can(policy.CapManageAdmin); err != nil {
		return nil, err
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.AssignedSiteID = trimmedOrNil(req.AssignedSiteID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	if err := checkSiteAssignment(req.Role, req.AssignedSiteID); err != nil {
		return nil, err
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID == actor.UserID && (req.Role != user.Role || (req.Active != nil && !*req.Active)) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "you cannot change your own role or deactivate yourself")
	}

	before := map[string]interface{}{"role": user.Role, "active": user.Active, "assigned_site_id": user.AssignedSiteID}
	roleChanged := user.Role != req.Role

	user.FullName = req.FullName
	user.Role = req.Role
	user.AssignedSiteID = req.AssignedSiteID
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, internalOrStorage(err, "failed to update user")
	}
	if roleChanged || !user.Active {
		s.revokeSessions(ctx, user.ID)
	}

	s.recordAudit(ctx, actor, models.AuditActionUpdate, user.ID, map[string]interface{}{
		"before": before,
		"after":  map[string]interface{}{"role": user.Role, "active": user.Active, "assigned_site_id": user.AssignedSiteID},
	})
	return user, nil
}

// Delete performs a soft delete (inactive) on a user.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := actor.Can(policy.CapManageAdmin); err != nil {
		return err
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if user.ID == actor.UserID {
		return appErrors.Clone(appErrors.ErrConflict, "you cannot deactivate yourself")
	}
	if err := s.repo.Deactivate(ctx, user.ID); err != nil {
		return internalOrStorage(err, "failed to deactivate user")
	}
	s.revokeSessions(ctx, user.ID)
	s.recordAudit(ctx, actor, models.AuditActionDelete, user.ID, map[string]interface{}{"active": false})
	return nil
}

// AuditTrail returns the latest audit entries, optionally for one resource type.
func (s *UserService) AuditTrail(ctx context.Context, actor Actor, resourceType string, limit int) ([]models.AuditLog, error) {
	if err := actor.Can(policy.CapManageAdmin); err != nil {
		return nil, err
	}
	logs, err := s.repo.ListAuditLogs(ctx, strings.TrimSpace(resourceType), limit)
	if err != nil {
		return nil, internalOrStorage(err, "failed to list audit logs")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return logs, nil
}

func (s *UserService) find(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalOrStorage(err, "failed to load user")
	}
	return user, nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID string) {
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *UserService) recordAudit(ctx context.Context, actor Actor, action models.AuditAction, userID string, details map[string]interface{}) {
	payload, _ := json.Marshal(details)
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:       &actor.UserID,
		Action:       action,
		ResourceType: "user",
		ResourceID:   &userID,
		Details:      payload,
		IPAddress:    actor.IP,
		UserAgent:    actor.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", string(action)), zap.Error(err))
	}
}

// checkSiteAssignment requires coordinators to be bound to a site.
func checkSiteAssignment(role models.UserRole, siteID *string) error {
	if role == models.RoleSiteCoordinator && siteID == nil {
		return appErrors.Clone(appErrors.ErrValidation, "site coordinators need an assigned site")
	}
	return nil
}
