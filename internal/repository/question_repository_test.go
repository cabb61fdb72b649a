package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ctos-api/internal/models"
)

var questionRowColumns = []string{"id", "author_id", "author_name", "author_role", "site_id", "title", "content", "category", "tags", "view_count", "vote_count", "answer_count", "created_at", "updated_at"}

func TestQuestionListFiltersAndPaging(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	author := "user-7"
	now := time.Now()
	rows := sqlmock.NewRows(questionRowColumns).
		AddRow("q-1", author, "Dana Site", string(models.RoleSiteCoordinator), "site-001", "Where is the 1572?", "details", "Regulatory", "{fda,irb}", 3, 5, 0, now, now)

	mock.ExpectQuery(`WHERE 1=1 AND q\.category = \$1 AND \(q\.title ILIKE \$2 OR q\.content ILIKE \$2\) AND q\.author_id = \$3 AND NOT EXISTS .* ORDER BY q\.vote_count DESC, q\.created_at DESC, q\.id ASC LIMIT 10 OFFSET 10`).
		WithArgs("Regulatory", `%50\%%`, author).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM questions q WHERE 1=1 AND q.category = $1")).
		WithArgs("Regulatory", `%50\%%`, author).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	questions, total, err := repo.List(context.Background(), models.QuestionFilter{
		Category:   "Regulatory",
		Search:     " 50% ",
		Sort:       models.QuestionSortPopular,
		AuthorID:   &author,
		Unanswered: true,
		Page:       2,
		PageSize:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, questions, 1)
	assert.Equal(t, []string{"fda", "irb"}, []string(questions[0].Tags))
	assert.Equal(t, 5, questions[0].VoteCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionUpvoteOncePerUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO question_votes`).
		WithArgs("q-1", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE questions SET vote_count = vote_count + 1 WHERE id = $1`)).
		WithArgs("q-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	voted, err := repo.Upvote(context.Background(), "q-1", "user-1")
	require.NoError(t, err)
	assert.True(t, voted)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO question_votes`).
		WithArgs("q-1", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	voted, err = repo.Upvote(context.Background(), "q-1", "user-1")
	require.NoError(t, err)
	assert.False(t, voted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionAcceptAnswerClearsPrevious(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE answers SET is_accepted = FALSE`)).
		WithArgs("q-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE answers SET is_accepted = TRUE`)).
		WithArgs("a-2", "q-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AcceptAnswer(context.Background(), "q-1", "a-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
