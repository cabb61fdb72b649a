package models

import "time"

// DocumentScope identifies the trial master file a document belongs to.
type DocumentScope string

const (
	ScopeTMF DocumentScope = "TMF"
	ScopeIF  DocumentScope = "IF"
	ScopeISF DocumentScope = "ISF"
)

// DocumentScopes lists scopes in canonical order.
var DocumentScopes = []DocumentScope{ScopeTMF, ScopeIF, ScopeISF}

// DocumentStatus captures the lifecycle of a document. Overdue is never stored;
// it is derived from a missing row whose due date has passed.
type DocumentStatus string

const (
	StatusCurrent    DocumentStatus = "current"
	StatusCertified  DocumentStatus = "certified"
	StatusSuperseded DocumentStatus = "superseded"
	StatusMissing    DocumentStatus = "missing"
	StatusOverdue    DocumentStatus = "overdue"
)

// DocumentStatuses lists statuses in canonical order.
var DocumentStatuses = []DocumentStatus{StatusCurrent, StatusCertified, StatusSuperseded, StatusMissing, StatusOverdue}

// TrialStage partitions sections by study phase.
type TrialStage string

const (
	StageBefore TrialStage = "before"
	StageDuring TrialStage = "during"
	StageAfter  TrialStage = "after"
)

// TrialStages lists stages in canonical order.
var TrialStages = []TrialStage{StageBefore, StageDuring, StageAfter}

// Document is a versioned regulatory artifact filed under a section.
type Document struct {
	ID            string         `db:"id" json:"id"`
	Scope         DocumentScope  `db:"scope" json:"scope"`
	SectionID     string         `db:"section_id" json:"section_id"`
	SiteID        *string        `db:"site_id" json:"site_id,omitempty"`
	DocumentName  string         `db:"document_name" json:"document_name"`
	DocumentType  *string        `db:"document_type" json:"document_type,omitempty"`
	Version       string         `db:"version" json:"version"`
	Status        DocumentStatus `db:"status" json:"status"`
	FilePath      string         `db:"file_path" json:"-"`
	FileSize      *int64         `db:"file_size" json:"file_size,omitempty"`
	FileType      *string        `db:"file_type" json:"file_type,omitempty"`
	IsCertified   bool           `db:"is_certified" json:"is_certified"`
	CertifiedBy   *string        `db:"certified_by" json:"certified_by,omitempty"`
	CertifiedDate *time.Time     `db:"certified_date" json:"certified_date,omitempty"`
	SupersedesID  *string        `db:"supersedes_id" json:"supersedes_id,omitempty"`
	UploadedBy    string         `db:"uploaded_by" json:"uploaded_by"`
	DueDate       *time.Time     `db:"due_date" json:"due_date,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`

	EffectiveStatus DocumentStatus `db:"-" json:"effective_status"`
}

// Derive sets EffectiveStatus relative to the reference day asOf.
func (d *Document) Derive(asOf time.Time) {
	d.EffectiveStatus = d.Status
	if d.Status == StatusMissing && d.DueDate != nil && d.DueDate.Before(asOf) {
		d.EffectiveStatus = StatusOverdue
	}
}

// DocumentSection is a node of the TMF/ISF/IF filing plan.
type DocumentSection struct {
	ID               string        `db:"id" json:"id"`
	Scope            DocumentScope `db:"scope" json:"scope"`
	SectionNumber    string        `db:"section_number" json:"section_number"`
	SectionName      string        `db:"section_name" json:"section_name"`
	SubsectionNumber *string       `db:"subsection_number" json:"subsection_number,omitempty"`
	SubsectionName   *string       `db:"subsection_name" json:"subsection_name,omitempty"`
	ArtifactType     *string       `db:"artifact_type" json:"artifact_type,omitempty"`
	Stage            *TrialStage   `db:"stage" json:"stage,omitempty"`
	Description      *string       `db:"description" json:"description,omitempty"`
	IsRequired       bool          `db:"is_required" json:"is_required"`
	ParentID         *string       `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}

// DocumentStats aggregates counters for the dashboard and navigation badges.
type DocumentStats struct {
	Total     int `db:"total" json:"total"`
	Current   int `db:"current" json:"current"`
	Certified int `db:"certified" json:"certified"`
	Missing   int `db:"missing" json:"missing"`
	Overdue   int `db:"overdue" json:"overdue"`
}

// ScopeCompleteness reports how many required sections of a scope have a filed document.
type ScopeCompleteness struct {
	Scope            DocumentScope `db:"scope" json:"scope"`
	RequiredSections int           `db:"required_sections" json:"required_sections"`
	FiledSections    int           `db:"filed_sections" json:"filed_sections"`
	Percentage       float64       `db:"-" json:"percentage"`
}

// StatusCount is a grouped document counter.
type StatusCount struct {
	Scope  DocumentScope  `db:"scope" json:"scope"`
	Status DocumentStatus `db:"status" json:"status"`
	Count  int            `db:"count" json:"count"`
}

// UploadDocumentRequest carries the metadata of a multipart document upload.
type UploadDocumentRequest struct {
	Scope        DocumentScope `form:"scope" json:"scope" validate:"required,oneof=TMF IF ISF"`
	SectionID    string        `form:"section_id" json:"section_id" validate:"required,uuid"`
	SiteID       *string       `form:"site_id" json:"site_id,omitempty" validate:"omitempty,max=64"`
	DocumentName string        `form:"document_name" json:"document_name" validate:"required,max=255"`
	DocumentType *string       `form:"document_type" json:"document_type,omitempty" validate:"omitempty,max=100"`
	Version      string        `form:"version" json:"version" validate:"required,max=32"`
	SupersedesID *string       `form:"supersedes_id" json:"supersedes_id,omitempty" validate:"omitempty,uuid"`
}

// DocumentDownload is a short lived link to a stored document file.
type DocumentDownload struct {
	DocumentID string    `json:"document_id"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}
