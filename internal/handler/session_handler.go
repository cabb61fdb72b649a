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

type sessionService interface {
	View(ctx context.Context, claims *models.JWTClaims) (*service.SessionView, error)
}

type roleSwitcher interface {
	SwitchRole(ctx context.Context, claims *models.JWTClaims, target string) (*service.SwitchRoleResponse, error)
}

// SwitchRoleRequest selects the role the session acts as.
type SwitchRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SessionHandler exposes navigation and role switching for the current user.
type SessionHandler struct {
	sessions sessionService
	switcher roleSwitcher
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionService, switcher roleSwitcher) *SessionHandler {
	return &SessionHandler{sessions: sessions, switcher: switcher}
}

// Navigation godoc
// @Summary Session navigation
// @Description Capabilities, sidebar items with badge counts and switchable roles of the active role
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /me/navigation [get]
func (h *SessionHandler) Navigation(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	view, err := h.sessions.View(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SwitchRole godoc
// @Summary Switch active role
// @Description Admins and sponsors may act as any role; a new access token is issued
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body SwitchRoleRequest true "Target role"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /me/role [post]
func (h *SessionHandler) SwitchRole(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	var req SwitchRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "role is required"))
		return
	}
	res, err := h.switcher.SwitchRole(c.Request.Context(), claims, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
