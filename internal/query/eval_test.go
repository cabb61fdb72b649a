package query

import (
	"strings"
	"time"

	"github.com/noah-isme/ctos-api/internal/models"
)

// matches evaluates the descriptor against a document in memory. It mirrors
// documentWhere for the fixtures used in this package.
func matches(d QueryDescriptor, doc models.Document, sectionStage *models.TrialStage) bool {
	for _, p := range d.predicates {
		if !matchPredicate(d, p, doc, sectionStage) {
			return false
		}
	}
	return true
}

func matchPredicate(d QueryDescriptor, p Predicate, doc models.Document, stage *models.TrialStage) bool {
	switch p.Field {
	case FieldScope:
		return string(doc.Scope) == p.Value()
	case FieldSectionID:
		return doc.SectionID == p.Value()
	case FieldSiteID:
		if p.Op == OpNotNull {
			return doc.SiteID != nil
		}
		return doc.SiteID != nil && *doc.SiteID == p.Value()
	case FieldSectionStage:
		if p.Op == OpNotNull {
			return stage != nil
		}
		return stage != nil && string(*stage) == p.Value()
	case FieldUploadedBy:
		return doc.UploadedBy == p.Value()
	case FieldCreatedAt:
		bound, err := time.Parse(time.RFC3339, p.Value())
		if err != nil {
			return false
		}
		if p.Op == OpGte {
			return !doc.CreatedAt.Before(bound)
		}
		return doc.CreatedAt.Before(bound)
	case FieldDocumentName:
		return strings.Contains(strings.ToLower(doc.DocumentName), strings.ToLower(p.Value()))
	case FieldStatus:
		for _, value := range p.Values {
			if matchStatus(d, models.DocumentStatus(value), doc) {
				return true
			}
		}
		return false
	}
	return false
}

func matchStatus(d QueryDescriptor, status models.DocumentStatus, doc models.Document) bool {
	if status == models.StatusOverdue {
		return doc.Status == models.StatusMissing && doc.DueDate != nil && doc.DueDate.Before(d.asOf)
	}
	return doc.Status == status
}

func less(d QueryDescriptor, a, b models.Document) bool {
	for _, key := range d.sort {
		c := compareField(key.Field, a, b)
		if c == 0 {
			continue
		}
		if key.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareField(field Field, a, b models.Document) int {
	switch field {
	case FieldCreatedAt:
		return compareTime(a.CreatedAt, b.CreatedAt)
	case FieldUpdatedAt:
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	case FieldDocumentName:
		return strings.Compare(a.DocumentName, b.DocumentName)
	case FieldVersion:
		return strings.Compare(a.Version, b.Version)
	case FieldID:
		return strings.Compare(a.ID, b.ID)
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
