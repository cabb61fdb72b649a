package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ctos-api/internal/models"
)

const questionSelect = `SELECT q.id, q.author_id, u.full_name AS author_name, u.role AS author_role, q.site_id, q.title, q.content, q.category, q.tags, q.view_count, q.vote_count,
(SELECT COUNT(*) FROM answers a WHERE a.question_id = q.id) AS answer_count, q.created_at, q.updated_at
FROM questions q JOIN users u ON u.id = q.author_id`

const answerSelect = `SELECT a.id, a.question_id, a.author_id, u.full_name AS author_name, a.content, a.citations, a.vote_count, a.is_accepted, a.created_at, a.updated_at
FROM answers a JOIN users u ON u.id = a.author_id`

// QuestionRepository stores community questions and answers.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository constructs the repository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// List returns questions matching the filter with total count.
func (r *QuestionRepository) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("q.category = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(q.title ILIKE $%d OR q.content ILIKE $%d)", len(args), len(args)))
	}
	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		conditions = append(conditions, fmt.Sprintf("q.author_id = $%d", len(args)))
	}
	if filter.Unanswered {
		conditions = append(conditions, "NOT EXISTS (SELECT 1 FROM answers a WHERE a.question_id = q.id)")
	}

	where := " WHERE 1=1"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}

	orderBy := "q.created_at DESC, q.id ASC"
	if filter.Sort == models.QuestionSortPopular {
		orderBy = "q.vote_count DESC, q.created_at DESC, q.id ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", questionSelect, where, orderBy, pageSize, offset)
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, listQuery, args...); err != nil {
		return nil, 0, storageError(err, "list questions")
	}

	countQuery := "SELECT COUNT(*) FROM questions q" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, storageError(err, "count questions")
	}
	return questions, total, nil
}

// FindByID returns a question with its answers, accepted answer first.
func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	if err := r.db.GetContext(ctx, &question, questionSelect+" WHERE q.id = $1", id); err != nil {
		return nil, storageError(err, "find question")
	}
	var answers []models.Answer
	if err := r.db.SelectContext(ctx, &answers, answerSelect+" WHERE a.question_id = $1 ORDER BY a.is_accepted DESC, a.vote_count DESC, a.created_at ASC", id); err != nil {
		return nil, storageError(err, "list answers")
	}
	question.Answers = answers
	return &question, nil
}

// IncrementViews bumps the view counter of a question.
func (r *QuestionRepository) IncrementViews(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE questions SET view_count = view_count + 1 WHERE id = $1`, id); err != nil {
		return storageError(err, "increment question views")
	}
	return nil
}

// Create inserts a question.
func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	const query = `INSERT INTO questions (id, author_id, site_id, title, content, category, tags, view_count, vote_count, created_at, updated_at)
VALUES (:id, :author_id, :site_id, :title, :content, :category, :tags, 0, 0, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		return storageError(err, "create question")
	}
	return nil
}

// CreateAnswer inserts an answer.
func (r *QuestionRepository) CreateAnswer(ctx context.Context, a *models.Answer) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	const query = `INSERT INTO answers (id, question_id, author_id, content, is_ai_generated, citations, vote_count, is_accepted, created_at, updated_at)
VALUES (:id, :question_id, :author_id, :content, FALSE, :citations, 0, FALSE, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return storageError(err, "create answer")
	}
	return nil
}

// Upvote records a single vote of userID on a question. It returns false when
// the user had already voted.
func (r *QuestionRepository) Upvote(ctx context.Context, questionID, userID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, storageError(err, "begin upvote")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `INSERT INTO question_votes (question_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, questionID, userID, time.Now().UTC())
	if err != nil {
		return false, storageError(err, "record vote")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `UPDATE questions SET vote_count = vote_count + 1 WHERE id = $1`, questionID); err != nil {
		return false, storageError(err, "increment votes")
	}
	if err := tx.Commit(); err != nil {
		return false, storageError(err, "commit upvote")
	}
	return true, nil
}

// FindAnswer returns an answer by identifier.
func (r *QuestionRepository) FindAnswer(ctx context.Context, id string) (*models.Answer, error) {
	var answer models.Answer
	if err := r.db.GetContext(ctx, &answer, answerSelect+" WHERE a.id = $1", id); err != nil {
		return nil, storageError(err, "find answer")
	}
	return &answer, nil
}

// AcceptAnswer marks answerID accepted and clears any other accepted answer of
// the question.
func (r *QuestionRepository) AcceptAnswer(ctx context.Context, questionID, answerID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageError(err, "begin accept answer")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE answers SET is_accepted = FALSE, updated_at = $2 WHERE question_id = $1 AND is_accepted = TRUE`, questionID, now); err != nil {
		return storageError(err, "clear accepted answer")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE answers SET is_accepted = TRUE, updated_at = $3 WHERE id = $1 AND question_id = $2`, answerID, questionID, now); err != nil {
		return storageError(err, "accept answer")
	}
	if err := tx.Commit(); err != nil {
		return storageError(err, "commit accept answer")
	}
	return nil
}

// CountUnanswered returns how many questions have no answer yet.
func (r *QuestionRepository) CountUnanswered(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM questions q WHERE NOT EXISTS (SELECT 1 FROM answers a WHERE a.question_id = q.id)`); err != nil {
		return 0, storageError(err, "count unanswered questions")
	}
	return total, nil
}
