package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ctos-api/internal/models"
)

const sectionColumns = `id, scope, section_number, section_name, subsection_number, subsection_name, artifact_type, stage, description, is_required, parent_id, created_at`

// SectionRepository reads the document filing plan.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a section by identifier.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.DocumentSection, error) {
	q := fmt.Sprintf("SELECT %s FROM document_sections WHERE id = $1 LIMIT 1", sectionColumns)
	var section models.DocumentSection
	if err := r.db.GetContext(ctx, &section, q, id); err != nil {
		return nil, storageError(err, "find section")
	}
	return &section, nil
}

// List returns sections, optionally limited to a scope and to root nodes.
func (r *SectionRepository) List(ctx context.Context, scope *models.DocumentScope, rootsOnly bool) ([]models.DocumentSection, error) {
	q := fmt.Sprintf("SELECT %s FROM document_sections WHERE 1=1", sectionColumns)
	var args []interface{}
	if scope != nil {
		args = append(args, *scope)
		q += fmt.Sprintf(" AND scope = $%d", len(args))
	}
	if rootsOnly {
		q += " AND parent_id IS NULL"
	}
	q += " ORDER BY scope, section_number, subsection_number NULLS FIRST"

	var sections []models.DocumentSection
	if err := r.db.SelectContext(ctx, &sections, q, args...); err != nil {
		return nil, storageError(err, "list sections")
	}
	return sections, nil
}
