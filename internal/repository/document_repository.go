package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/query"
)

const documentColumns = `d.id, d.scope, d.section_id, d.site_id, d.document_name, d.document_type, d.version, d.status, d.file_path, d.file_size, d.file_type, d.is_certified, d.certified_by, d.certified_date, d.supersedes_id, d.uploaded_by, d.due_date, d.created_at, d.updated_at`

const documentFrom = `FROM documents d JOIN document_sections s ON s.id = d.section_id`

var documentSortColumns = map[query.Field]string{
	query.FieldCreatedAt:    "d.created_at",
	query.FieldUpdatedAt:    "d.updated_at",
	query.FieldDocumentName: "d.document_name",
	query.FieldVersion:      "d.version",
	query.FieldID:           "d.id",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// DocumentRepository executes document query descriptors against PostgreSQL.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new instance of DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Execute returns one ordered page of documents matching the descriptor.
func (r *DocumentRepository) Execute(ctx context.Context, desc query.QueryDescriptor) ([]models.Document, error) {
	where, args, err := documentWhere(desc)
	if err != nil {
		return nil, err
	}
	orderBy, err := documentOrderBy(desc)
	if err != nil {
		return nil, err
	}

	listQuery := fmt.Sprintf("SELECT %s %s %s ORDER BY %s", documentColumns, documentFrom, where, orderBy)
	if desc.Paginated() {
		listQuery += fmt.Sprintf(" LIMIT %d OFFSET %d", desc.Limit(), desc.Offset())
	}

	var documents []models.Document
	if err := r.db.SelectContext(ctx, &documents, listQuery, args...); err != nil {
		return nil, storageError(err, "list documents")
	}
	for i := range documents {
		documents[i].Derive(desc.AsOf())
	}
	return documents, nil
}

// Count returns the number of documents matching the descriptor predicates.
// Pagination on the descriptor is ignored.
func (r *DocumentRepository) Count(ctx context.Context, desc query.QueryDescriptor) (int, error) {
	where, args, err := documentWhere(desc)
	if err != nil {
		return 0, err
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s %s", documentFrom, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return 0, storageError(err, "count documents")
	}
	return total, nil
}

func documentWhere(desc query.QueryDescriptor) (string, []interface{}, error) {
	var conditions []string
	var args []interface{}
	next := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, p := range desc.Predicates() {
		switch p.Field {
		case query.FieldScope:
			conditions = append(conditions, "d.scope = "+next(p.Value()))
		case query.FieldSectionID:
			conditions = append(conditions, "d.section_id = "+next(p.Value()))
		case query.FieldSiteID:
			if p.Op == query.OpNotNull {
				conditions = append(conditions, "d.site_id IS NOT NULL")
			} else {
				conditions = append(conditions, "d.site_id = "+next(p.Value()))
			}
		case query.FieldSectionStage:
			if p.Op == query.OpNotNull {
				conditions = append(conditions, "s.stage IS NOT NULL")
			} else {
				conditions = append(conditions, "s.stage = "+next(p.Value()))
			}
		case query.FieldUploadedBy:
			conditions = append(conditions, "d.uploaded_by = "+next(p.Value()))
		case query.FieldCreatedAt:
			bound, err := time.Parse(time.RFC3339, p.Value())
			if err != nil {
				return "", nil, fmt.Errorf("parse created_at bound %q: %w", p.Value(), err)
			}
			op := ">="
			if p.Op == query.OpLt {
				op = "<"
			}
			conditions = append(conditions, fmt.Sprintf("d.created_at %s %s", op, next(bound)))
		case query.FieldDocumentName:
			conditions = append(conditions, "d.document_name ILIKE "+next("%"+likeEscaper.Replace(p.Value())+"%"))
		case query.FieldStatus:
			var persisted []string
			var alternatives []string
			overdue := false
			for _, value := range p.Values {
				if models.DocumentStatus(value) == models.StatusOverdue {
					overdue = true
					continue
				}
				persisted = append(persisted, value)
			}
			if len(persisted) > 0 {
				alternatives = append(alternatives, "d.status = ANY("+next(pq.Array(persisted))+")")
			}
			if overdue {
				alternatives = append(alternatives, fmt.Sprintf("(d.status = 'missing' AND d.due_date IS NOT NULL AND d.due_date < %s)", next(desc.AsOf())))
			}
			conditions = append(conditions, "("+strings.Join(alternatives, " OR ")+")")
		default:
			return "", nil, fmt.Errorf("unsupported predicate field %q", p.Field)
		}
	}

	where := "WHERE 1=1"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}
	return where, args, nil
}

func documentOrderBy(desc query.QueryDescriptor) (string, error) {
	keys := desc.Sort()
	if len(keys) == 0 {
		return "d.created_at DESC, d.id ASC", nil
	}
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		column, ok := documentSortColumns[key.Field]
		if !ok {
			return "", fmt.Errorf("unsupported sort field %q", key.Field)
		}
		direction := "ASC"
		if key.Desc {
			direction = "DESC"
		}
		parts = append(parts, column+" "+direction)
	}
	return strings.Join(parts, ", "), nil
}

// FindByID returns a document by identifier. asOf derives the effective status.
func (r *DocumentRepository) FindByID(ctx context.Context, id string, asOf time.Time) (*models.Document, error) {
	q := fmt.Sprintf("SELECT %s %s WHERE d.id = $1 LIMIT 1", documentColumns, documentFrom)
	var document models.Document
	if err := r.db.GetContext(ctx, &document, q, id); err != nil {
		return nil, storageError(err, "find document")
	}
	document.Derive(asOf)
	return &document, nil
}

const insertDocument = `INSERT INTO documents (id, scope, section_id, site_id, document_name, document_type, version, status, file_path, file_size, file_type, is_certified, certified_by, certified_date, supersedes_id, uploaded_by, due_date, created_at, updated_at)
VALUES (:id, :scope, :section_id, :site_id, :document_name, :document_type, :version, :status, :file_path, :file_size, :file_type, :is_certified, :certified_by, :certified_date, :supersedes_id, :uploaded_by, :due_date, :created_at, :updated_at)`

func prepareDocument(doc *models.Document) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = models.StatusCurrent
	}
}

// Create inserts a new document row.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	prepareDocument(doc)
	if _, err := r.db.NamedExecContext(ctx, insertDocument, doc); err != nil {
		return storageError(err, "create document")
	}
	return nil
}

// CreateVersion inserts doc and marks the document it supersedes as superseded
// in one transaction.
func (r *DocumentRepository) CreateVersion(ctx context.Context, doc *models.Document) error {
	if doc.SupersedesID == nil {
		return r.Create(ctx, doc)
	}
	prepareDocument(doc)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageError(err, "begin document version")
	}
	defer tx.Rollback() //nolint:errcheck

	const supersede = `UPDATE documents SET status = 'superseded', updated_at = $2 WHERE id = $1 AND status <> 'missing'`
	res, err := tx.ExecContext(ctx, supersede, *doc.SupersedesID, doc.UpdatedAt)
	if err != nil {
		return storageError(err, "supersede document")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("supersede document %s: %w", *doc.SupersedesID, ErrNoRowsAffected)
	}

	if _, err := tx.NamedExecContext(ctx, insertDocument, doc); err != nil {
		return storageError(err, "create document version")
	}
	if err := tx.Commit(); err != nil {
		return storageError(err, "commit document version")
	}
	return nil
}

// Fulfill attaches an uploaded file to a missing placeholder row.
func (r *DocumentRepository) Fulfill(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	doc.Status = models.StatusCurrent
	const q = `UPDATE documents SET document_name = :document_name, document_type = :document_type, version = :version, status = :status, file_path = :file_path, file_size = :file_size, file_type = :file_type, uploaded_by = :uploaded_by, updated_at = :updated_at WHERE id = :id AND status = 'missing'`
	res, err := r.db.NamedExecContext(ctx, q, doc)
	if err != nil {
		return storageError(err, "fulfill missing document")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("fulfill missing document %s: %w", doc.ID, ErrNoRowsAffected)
	}
	return nil
}

// Certify marks a document certified by userID.
func (r *DocumentRepository) Certify(ctx context.Context, id, userID string, at time.Time) error {
	const q = `UPDATE documents SET status = 'certified', is_certified = TRUE, certified_by = $2, certified_date = $3, updated_at = $3 WHERE id = $1 AND status IN ('current', 'certified')`
	res, err := r.db.ExecContext(ctx, q, id, userID, at)
	if err != nil {
		return storageError(err, "certify document")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("certify document %s: %w", id, ErrNoRowsAffected)
	}
	return nil
}

// Delete removes a document. Newer versions pointing at it lose the link.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageError(err, "begin delete document")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET supersedes_id = NULL WHERE supersedes_id = $1`, id); err != nil {
		return storageError(err, "unlink document versions")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return storageError(err, "delete document")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete document %s: %w", id, ErrNoRowsAffected)
	}
	if err := tx.Commit(); err != nil {
		return storageError(err, "commit delete document")
	}
	return nil
}

// Stats returns dashboard counters; overdue is derived relative to asOf.
func (r *DocumentRepository) Stats(ctx context.Context, asOf time.Time) (*models.DocumentStats, error) {
	const q = `SELECT COUNT(*) AS total,
COUNT(*) FILTER (WHERE status = 'current') AS current,
COUNT(*) FILTER (WHERE status = 'certified') AS certified,
COUNT(*) FILTER (WHERE status = 'missing') AS missing,
COUNT(*) FILTER (WHERE status = 'missing' AND due_date IS NOT NULL AND due_date < $1) AS overdue
FROM documents`
	var stats models.DocumentStats
	if err := r.db.GetContext(ctx, &stats, q, asOf); err != nil {
		return nil, storageError(err, "document stats")
	}
	return &stats, nil
}

// CountByScopeStatus groups documents by scope and effective status.
func (r *DocumentRepository) CountByScopeStatus(ctx context.Context, asOf time.Time) ([]models.StatusCount, error) {
	const q = `SELECT scope,
CASE WHEN status = 'missing' AND due_date IS NOT NULL AND due_date < $1 THEN 'overdue' ELSE status::text END AS status,
COUNT(*) AS count
FROM documents GROUP BY 1, 2 ORDER BY 1, 2`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, q, asOf); err != nil {
		return nil, storageError(err, "count documents by status")
	}
	return counts, nil
}

// Completeness reports per scope how many required sections hold at least one
// filed (non missing) document.
func (r *DocumentRepository) Completeness(ctx context.Context) ([]models.ScopeCompleteness, error) {
	const q = `SELECT s.scope,
COUNT(*) AS required_sections,
COUNT(*) FILTER (WHERE EXISTS (SELECT 1 FROM documents d WHERE d.section_id = s.id AND d.status <> 'missing')) AS filed_sections
FROM document_sections s WHERE s.is_required = TRUE GROUP BY s.scope ORDER BY s.scope`
	var rows []models.ScopeCompleteness
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, storageError(err, "document completeness")
	}
	for i := range rows {
		if rows[i].RequiredSections > 0 {
			rows[i].Percentage = float64(rows[i].FiledSections) * 100 / float64(rows[i].RequiredSections)
		}
	}
	return rows, nil
}
