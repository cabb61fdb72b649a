package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Field names a document attribute a predicate or sort key refers to.
type Field string

const (
	FieldScope        Field = "scope"
	FieldSectionID    Field = "section_id"
	FieldSiteID       Field = "site_id"
	FieldStatus       Field = "status"
	FieldSectionStage Field = "section_stage"
	FieldCreatedAt    Field = "created_at"
	FieldUpdatedAt    Field = "updated_at"
	FieldDocumentName Field = "document_name"
	FieldVersion      Field = "version"
	FieldUploadedBy   Field = "uploaded_by"
	FieldID           Field = "id"
)

// Op is a predicate operator.
type Op string

const (
	OpEq      Op = "eq"
	OpIn      Op = "in"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpNotNull Op = "not_null"
	OpSearch  Op = "search"
)

// Predicate is a single condition; a descriptor conjoins all of its predicates.
// For FieldStatus with OpIn the values are alternatives of one predicate.
type Predicate struct {
	Field  Field    `json:"field"`
	Op     Op       `json:"op"`
	Values []string `json:"values,omitempty"`
}

// Value returns the first operand or an empty string.
func (p Predicate) Value() string {
	if len(p.Values) == 0 {
		return ""
	}
	return p.Values[0]
}

// SortKey orders a listing.
type SortKey struct {
	Field Field `json:"field"`
	Desc  bool  `json:"desc"`
}

// QueryDescriptor is an immutable description of a document listing. It holds
// plain values only and may be logged or used as a cache key.
type QueryDescriptor struct {
	predicates []Predicate
	sort       []SortKey
	offset     int
	limit      int
	paginated  bool
	asOf       time.Time
}

// Predicates returns a copy of the conjoined predicates.
func (d QueryDescriptor) Predicates() []Predicate {
	out := make([]Predicate, len(d.predicates))
	for i, p := range d.predicates {
		out[i] = Predicate{Field: p.Field, Op: p.Op, Values: append([]string(nil), p.Values...)}
	}
	return out
}

// Sort returns a copy of the sort keys; the last key is always id ascending.
func (d QueryDescriptor) Sort() []SortKey {
	return append([]SortKey(nil), d.sort...)
}

// Offset is the number of rows skipped.
func (d QueryDescriptor) Offset() int { return d.offset }

// Limit is the page size.
func (d QueryDescriptor) Limit() int { return d.limit }

// Paginated reports whether offset and limit apply.
func (d QueryDescriptor) Paginated() bool { return d.paginated }

// AsOf is the UTC reference day used to derive overdue documents.
func (d QueryDescriptor) AsOf() time.Time { return d.asOf }

// WithoutPagination returns a copy suitable for counting the full result set.
func (d QueryDescriptor) WithoutPagination() QueryDescriptor {
	return QueryDescriptor{
		predicates: d.Predicates(),
		sort:       d.Sort(),
		asOf:       d.asOf,
	}
}

// WithPage returns a copy positioned at another page. Callers use it for
// export batching; limit is not clamped here.
func (d QueryDescriptor) WithPage(offset, limit int) QueryDescriptor {
	return QueryDescriptor{
		predicates: d.Predicates(),
		sort:       d.Sort(),
		offset:     offset,
		limit:      limit,
		paginated:  true,
		asOf:       d.asOf,
	}
}

type descriptorView struct {
	Predicates []Predicate `json:"predicates"`
	Sort       []SortKey   `json:"sort"`
	Offset     int         `json:"offset"`
	Limit      int         `json:"limit"`
	Paginated  bool        `json:"paginated"`
	AsOf       string      `json:"as_of"`
}

func (d QueryDescriptor) view() descriptorView {
	return descriptorView{
		Predicates: d.Predicates(),
		Sort:       d.Sort(),
		Offset:     d.offset,
		Limit:      d.limit,
		Paginated:  d.paginated,
		AsOf:       d.asOf.Format(DateLayout),
	}
}

// MarshalJSON renders the descriptor for logs.
func (d QueryDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.view())
}

// Key is a stable digest of the descriptor.
func (d QueryDescriptor) Key() string {
	payload, _ := json.Marshal(d.view())
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
