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

	"github.com/noah-isme/ctos-api/internal/models"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

type questionRepository interface {
	List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error)
	FindByID(ctx context.Context, id string) (*models.Question, error)
	IncrementViews(ctx context.Context, id string) error
	Create(ctx context.Context, q *models.Question) error
	CreateAnswer(ctx context.Context, a *models.Answer) error
	Upvote(ctx context.Context, questionID, userID string) (bool, error)
	FindAnswer(ctx context.Context, id string) (*models.Answer, error)
	AcceptAnswer(ctx context.Context, questionID, answerID string) error
	CountUnanswered(ctx context.Context) (int, error)
}

// CommunityListParams are the raw feed options of a request.
type CommunityListParams struct {
	Category   string
	Search     string
	Sort       string
	Mine       bool
	Unanswered bool
	Page       int
	PageSize   int
}

// CommunityConfig bounds feed pagination.
type CommunityConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// CommunityService manages the Q&A feed. Every authenticated role may read
// and post; accepting an answer is reserved to the question author.
type CommunityService struct {
	repo      questionRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cfg       CommunityConfig
}

// NewCommunityService constructs the service.
func NewCommunityService(repo questionRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, cfg CommunityConfig) *CommunityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 50
	}
	return &CommunityService{repo: repo, audit: audit, validator: validate, logger: logger, cfg: cfg}
}

// List returns a page of questions.
func (s *CommunityService) List(ctx context.Context, actor Actor, params CommunityListParams) ([]models.Question, *models.Pagination, error) {
	if actor.UserID == "" {
		return nil, nil, appErrors.ErrUnauthenticated
	}
	filter := models.QuestionFilter{
		Search:     strings.TrimSpace(params.Search),
		Unanswered: params.Unanswered,
		Page:       params.Page,
		PageSize:   params.PageSize,
	}

	category := strings.TrimSpace(params.Category)
	if category != "" && !strings.EqualFold(category, "all") {
		canonical, ok := canonicalCategory(category)
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidFilterValue, "unknown category "+category)
		}
		filter.Category = canonical
	}

	switch models.QuestionSort(strings.ToLower(strings.TrimSpace(params.Sort))) {
	case "", models.QuestionSortRecent:
		filter.Sort = models.QuestionSortRecent
	case models.QuestionSortPopular:
		filter.Sort = models.QuestionSortPopular
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidFilterValue, "sort must be recent or popular")
	}

	if params.Mine {
		filter.AuthorID = &actor.UserID
	}
	if filter.Page < 0 || filter.PageSize < 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidPagination, "page and page_size must not be negative")
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = s.cfg.DefaultPageSize
	}
	if filter.PageSize > s.cfg.MaxPageSize {
		filter.PageSize = s.cfg.MaxPageSize
	}

	questions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list questions", zap.Error(err))
		return nil, nil, internalOrStorage(err, "failed to list questions")
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return questions, models.NewPagination((filter.Page-1)*filter.PageSize, filter.PageSize, total), nil
}

// Get returns a question with its answers and counts the view.
func (s *CommunityService) Get(ctx context.Context, actor Actor, id string) (*models.Question, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthenticated
	}
	question, err := s.findQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViews(ctx, question.ID); err != nil {
		s.logger.Warn("failed to count question view", zap.String("question_id", question.ID), zap.Error(err))
	} else {
		question.ViewCount++
	}
	if question.Answers == nil {
		question.Answers = []models.Answer{}
	}
	return question, nil
}

// Ask posts a new question.
func (s *CommunityService) Ask(ctx context.Context, actor Actor, req models.CreateQuestionRequest) (*models.Question, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthenticated
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Tags = normalizeTags(req.Tags)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}
	category, ok := canonicalCategory(req.Category)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category "+req.Category)
	}

	question := &models.Question{
		AuthorID:   actor.UserID,
		AuthorRole: actor.Role,
		SiteID:     actor.SiteID,
		Title:      req.Title,
		Content:    req.Content,
		Category:   category,
		Tags:       req.Tags,
		Answers:    []models.Answer{},
	}
	if err := s.repo.Create(ctx, question); err != nil {
		s.logger.Error("failed to create question", zap.Error(err))
		return nil, internalOrStorage(err, "failed to create question")
	}
	s.recordAudit(ctx, actor, models.AuditActionCreate, "question", question.ID, map[string]interface{}{"category": category})
	return question, nil
}

// Answer adds an answer to a question.
func (s *CommunityService) Answer(ctx context.Context, actor Actor, questionID string, req models.CreateAnswerRequest) (*models.Answer, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthenticated
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid answer payload")
	}
	question, err := s.findQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	answer := &models.Answer{
		QuestionID: question.ID,
		AuthorID:   actor.UserID,
		Content:    req.Content,
		Citations:  models.Citations(req.Citations),
	}
	if answer.Citations == nil {
		answer.Citations = models.Citations{}
	}
	if err := s.repo.CreateAnswer(ctx, answer); err != nil {
		s.logger.Error("failed to create answer", zap.String("question_id", question.ID), zap.Error(err))
		return nil, internalOrStorage(err, "failed to create answer")
	}
	s.recordAudit(ctx, actor, models.AuditActionCreate, "answer", answer.ID, map[string]interface{}{"question_id": question.ID})
	return answer, nil
}

// Upvote records the actor's vote on a question. Voting twice is a conflict.
func (s *CommunityService) Upvote(ctx context.Context, actor Actor, questionID string) (*models.Question, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthenticated
	}
	question, err := s.findQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	voted, err := s.repo.Upvote(ctx, question.ID, actor.UserID)
	if err != nil {
		s.logger.Error("failed to record vote", zap.String("question_id", question.ID), zap.Error(err))
		return nil, internalOrStorage(err, "failed to record vote")
	}
	if !voted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "you already voted for this question")
	}
	question.VoteCount++
	return question, nil
}

// AcceptAnswer marks an answer as the accepted one. Only the question author may do so.
func (s *CommunityService) AcceptAnswer(ctx context.Context, actor Actor, answerID string) (*models.Answer, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthenticated
	}
	if _, err := uuid.Parse(answerID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "answer not found")
	}
	answer, err := s.repo.FindAnswer(ctx, answerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "answer not found")
		}
		return nil, internalOrStorage(err, "failed to load answer")
	}
	question, err := s.findQuestion(ctx, answer.QuestionID)
	if err != nil {
		return nil, err
	}
	if question.AuthorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the question author can accept an answer")
	}
	if err := s.repo.AcceptAnswer(ctx, question.ID, answer.ID); err != nil {
		return nil, internalOrStorage(err, "failed to accept answer")
	}
	answer.IsAccepted = true
	s.recordAudit(ctx, actor, models.AuditActionUpdate, "answer", answer.ID, map[string]interface{}{"accepted": true})
	return answer, nil
}

// UnansweredCount returns how many questions await an answer.
func (s *CommunityService) UnansweredCount(ctx context.Context) (int, error) {
	count, err := s.repo.CountUnanswered(ctx)
	if err != nil {
		return 0, internalOrStorage(err, "failed to count unanswered questions")
	}
	return count, nil
}

func (s *CommunityService) findQuestion(ctx context.Context, id string) (*models.Question, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
	}
	question, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, internalOrStorage(err, "failed to load question")
	}
	return question, nil
}

func (s *CommunityService) recordAudit(ctx context.Context, actor Actor, action models.AuditAction, resourceType, resourceID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:       &actor.UserID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Details:      payload,
		IPAddress:    actor.IP,
		UserAgent:    actor.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record community audit log", zap.String("resource_type", resourceType), zap.Error(err))
	}
}

func canonicalCategory(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, category := range models.QuestionCategories {
		if strings.EqualFold(category, raw) {
			return category, true
		}
	}
	return "", false
}

// normalizeTags lowercases tags and drops blanks and duplicates.
func normalizeTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	seen := map[string]bool{}
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
