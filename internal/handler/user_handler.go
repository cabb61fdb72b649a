package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/service"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
	"github.com/noah-isme/ctos-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, actor service.Actor, params service.UserListParams) ([]models.User, *models.Pagination, error)
	Get(ctx context.Context, actor service.Actor, id string) (*models.User, error)
	Create(ctx context.Context, actor service.Actor, req service.CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, actor service.Actor, id string, req service.UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
	AuditTrail(ctx context.Context, actor service.Actor, resourceType string, limit int) ([]models.AuditLog, error)
}

// UserHandler handles account administration endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description List users with pagination and filtering
// @Tags Admin
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param site query string false "Assigned site filter"
// @Param active query bool false "Active filter"
// @Param search query string false "Search in email and name"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	pageSize, err := queryInt(c, "page_size", 20)
	if err != nil {
		response.Error(c, err)
		return
	}
	active, err := queryBool(c, "active")
	if err != nil {
		response.Error(c, err)
		return
	}

	users, pagination, err := h.service.List(c.Request.Context(), actor, service.UserListParams{
		Role:     c.Query("role"),
		SiteID:   c.Query("site"),
		Active:   active,
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, pagination)
}

// Get godoc
// @Summary Get user
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

// Create godoc
// @Summary Create user
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.CreateUserRequest true "Create user payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	user, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body service.UpdateUserRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	user, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Deactivate user
// @Description Soft delete user by marking inactive and revoking sessions
// @Tags Admin
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// AuditTrail godoc
// @Summary Audit trail
// @Tags Admin
// @Produce json
// @Param resource_type query string false "document, user, question, ..."
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/audit [get]
func (h *UserHandler) AuditTrail(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		response.Error(c, err)
		return
	}
	logs, err := h.service.AuditTrail(c.Request.Context(), actor, c.Query("resource_type"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
