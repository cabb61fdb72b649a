package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Question is a community post.
type Question struct {
	ID          string         `db:"id" json:"id"`
	AuthorID    string         `db:"author_id" json:"author_id"`
	AuthorName  string         `db:"author_name" json:"author_name"`
	AuthorRole  UserRole       `db:"author_role" json:"author_role"`
	SiteID      *string        `db:"site_id" json:"site_id,omitempty"`
	Title       string         `db:"title" json:"title"`
	Content     string         `db:"content" json:"content"`
	Category    string         `db:"category" json:"category"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	ViewCount   int            `db:"view_count" json:"view_count"`
	VoteCount   int            `db:"vote_count" json:"vote_count"`
	AnswerCount int            `db:"answer_count" json:"answer_count"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`

	Answers []Answer `db:"-" json:"answers,omitempty"`
}

// Answer replies to a question.
type Answer struct {
	ID         string    `db:"id" json:"id"`
	QuestionID string    `db:"question_id" json:"question_id"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name"`
	Content    string    `db:"content" json:"content"`
	Citations  Citations `db:"citations" json:"citations"`
	VoteCount  int       `db:"vote_count" json:"vote_count"`
	IsAccepted bool      `db:"is_accepted" json:"is_accepted"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Citation references a document supporting an answer.
type Citation struct {
	DocumentID string `json:"document_id" validate:"required,uuid"`
	Label      string `json:"label,omitempty" validate:"max=200"`
}

// Citations persists as JSONB.
type Citations []Citation

// Value marshals citations to JSON for persistence.
func (c Citations) Value() (driver.Value, error) {
	if c == nil {
		c = Citations{}
	}
	data, err := json.Marshal([]Citation(c))
	if err != nil {
		return nil, fmt.Errorf("marshal citations: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into citations.
func (c *Citations) Scan(value interface{}) error {
	if value == nil {
		*c = Citations{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for Citations", value)
	}
	if len(data) == 0 {
		*c = Citations{}
		return nil
	}
	var out []Citation
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal citations: %w", err)
	}
	*c = out
	return nil
}

// QuestionSort orders the community feed.
type QuestionSort string

const (
	QuestionSortRecent  QuestionSort = "recent"
	QuestionSortPopular QuestionSort = "popular"
)

// QuestionCategories lists the community feed categories.
var QuestionCategories = []string{
	"Document Requirements",
	"Regulatory",
	"Protocol",
	"Safety Reporting",
	"Site Management",
}

// QuestionFilter captures listing options for the community feed.
type QuestionFilter struct {
	Category   string
	Search     string
	Sort       QuestionSort
	AuthorID   *string
	Unanswered bool
	Page       int
	PageSize   int
}

// CreateQuestionRequest is the payload for posting a question.
type CreateQuestionRequest struct {
	Title    string   `json:"title" validate:"required,min=5,max=200"`
	Content  string   `json:"content" validate:"required,max=10000"`
	Category string   `json:"category" validate:"required"`
	Tags     []string `json:"tags" validate:"max=10,dive,min=1,max=40"`
}

// CreateAnswerRequest is the payload for answering a question.
type CreateAnswerRequest struct {
	Content   string     `json:"content" validate:"required,max=10000"`
	Citations []Citation `json:"citations" validate:"max=20,dive"`
}
