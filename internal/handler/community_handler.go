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

type communityService interface {
	List(ctx context.Context, actor service.Actor, params service.CommunityListParams) ([]models.Question, *models.Pagination, error)
	Get(ctx context.Context, actor service.Actor, id string) (*models.Question, error)
	Ask(ctx context.Context, actor service.Actor, req models.CreateQuestionRequest) (*models.Question, error)
	Answer(ctx context.Context, actor service.Actor, questionID string, req models.CreateAnswerRequest) (*models.Answer, error)
	Upvote(ctx context.Context, actor service.Actor, questionID string) (*models.Question, error)
	AcceptAnswer(ctx context.Context, actor service.Actor, answerID string) (*models.Answer, error)
}

// CommunityHandler exposes the community Q&A feed.
type CommunityHandler struct {
	service communityService
}

// NewCommunityHandler constructs the handler.
func NewCommunityHandler(svc communityService) *CommunityHandler {
	return &CommunityHandler{service: svc}
}

// List godoc
// @Summary List questions
// @Tags Community
// @Produce json
// @Param category query string false "Category or all"
// @Param search query string false "Search in title and content"
// @Param sort query string false "recent or popular"
// @Param mine query bool false "Only my questions"
// @Param unanswered query bool false "Only questions without answers"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /community/questions [get]
func (h *CommunityHandler) List(c *gin.Context) {
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
	pageSize, err := queryInt(c, "page_size", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	mine, err := queryBool(c, "mine")
	if err != nil {
		response.Error(c, err)
		return
	}
	unanswered, err := queryBool(c, "unanswered")
	if err != nil {
		response.Error(c, err)
		return
	}

	questions, pagination, err := h.service.List(c.Request.Context(), actor, service.CommunityListParams{
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		Sort:       c.Query("sort"),
		Mine:       mine != nil && *mine,
		Unanswered: unanswered != nil && *unanswered,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, pagination)
}

// Get godoc
// @Summary Get question with answers
// @Tags Community
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /community/questions/{id} [get]
func (h *CommunityHandler) Get(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	question, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, question, nil)
}

// Ask godoc
// @Summary Ask a question
// @Tags Community
// @Accept json
// @Produce json
// @Param payload body models.CreateQuestionRequest true "Question"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /community/questions [post]
func (h *CommunityHandler) Ask(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid question payload"))
		return
	}
	question, err := h.service.Ask(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, question)
}

// Answer godoc
// @Summary Answer a question
// @Tags Community
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body models.CreateAnswerRequest true "Answer"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /community/questions/{id}/answers [post]
func (h *CommunityHandler) Answer(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.CreateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answer payload"))
		return
	}
	answer, err := h.service.Answer(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, answer)
}

// Upvote godoc
// @Summary Upvote a question
// @Tags Community
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /community/questions/{id}/upvote [post]
func (h *CommunityHandler) Upvote(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	question, err := h.service.Upvote(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, question, nil)
}

// AcceptAnswer godoc
// @Summary Accept an answer
// @Description Only the author of the question may accept
// @Tags Community
// @Produce json
// @Param id path string true "Answer ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /community/answers/{id}/accept [post]
func (h *CommunityHandler) AcceptAnswer(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	answer, err := h.service.AcceptAnswer(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, answer, nil)
}
