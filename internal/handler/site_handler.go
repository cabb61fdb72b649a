package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/service"
	"github.com/noah-isme/ctos-api/pkg/response"
)

type siteService interface {
	Overview(ctx context.Context, actor service.Actor, search string, includeInactive bool) (*service.SitesOverview, error)
	Get(ctx context.Context, actor service.Actor, id string) (*models.Site, error)
}

// SiteHandler exposes the sites overview.
type SiteHandler struct {
	service siteService
}

// NewSiteHandler constructs the handler.
func NewSiteHandler(svc siteService) *SiteHandler {
	return &SiteHandler{service: svc}
}

// Overview godoc
// @Summary Sites overview
// @Description Sites with enrollment progress and the trial wide summary
// @Tags Sites
// @Produce json
// @Param search query string false "Name, investigator, city or state"
// @Param include_inactive query bool false "Include inactive sites"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /sites [get]
func (h *SiteHandler) Overview(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	includeInactive, err := queryBool(c, "include_inactive")
	if err != nil {
		response.Error(c, err)
		return
	}
	overview, err := h.service.Overview(c.Request.Context(), actor, c.Query("search"), includeInactive != nil && *includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// Get godoc
// @Summary Get site
// @Tags Sites
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /sites/{id} [get]
func (h *SiteHandler) Get(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	site, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, site, nil)
}
