package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

// DefaultMaxLimit caps page sizes when the builder is configured without one.
const DefaultMaxLimit = 100

var sortableFields = map[Field]bool{
	FieldCreatedAt:    true,
	FieldUpdatedAt:    true,
	FieldDocumentName: true,
	FieldVersion:      true,
}

// Sort is the requested primary ordering. The zero value means created_at descending.
type Sort struct {
	Field Field
	Desc  bool
}

// Page is the requested window. A non-zero Number selects a 1-based page and
// takes precedence over Offset once the limit has been clamped.
type Page struct {
	Offset int
	Limit  int
	Number int
}

// ParseSort reads a sort field and an order of asc or desc. A leading minus on
// the field also selects descending order.
func ParseSort(field, order string) (Sort, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	order = strings.ToLower(strings.TrimSpace(order))
	if field == "" {
		if order != "" && order != "desc" && order != "asc" {
			return Sort{}, invalidValue("order", order)
		}
		return Sort{Field: FieldCreatedAt, Desc: order != "asc"}, nil
	}
	desc := false
	if strings.HasPrefix(field, "-") {
		desc = true
		field = strings.TrimPrefix(field, "-")
	}
	switch order {
	case "":
	case "desc":
		desc = true
	case "asc":
		desc = false
	default:
		return Sort{}, invalidValue("order", order)
	}
	if !sortableFields[Field(field)] {
		return Sort{}, invalidValue("sort", field)
	}
	return Sort{Field: Field(field), Desc: desc}, nil
}

// ParsePage reads either offset/limit or page/page_size parameters. Missing
// values fall back to offset 0 and defaultLimit. A page number is kept as is;
// Build turns it into an offset.
func ParsePage(raw map[string]string, defaultLimit int) (Page, error) {
	parseInt := func(key string) (int, bool, error) {
		value := strings.TrimSpace(raw[key])
		if value == "" {
			return 0, false, nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, true, appErrors.Clone(appErrors.ErrInvalidPagination, fmt.Sprintf("%s must be an integer", key))
		}
		return n, true, nil
	}

	limit := defaultLimit
	if n, ok, err := parseInt("limit"); err != nil {
		return Page{}, err
	} else if ok {
		limit = n
	}
	if n, ok, err := parseInt("page_size"); err != nil {
		return Page{}, err
	} else if ok {
		limit = n
	}

	offset := 0
	if n, ok, err := parseInt("offset"); err != nil {
		return Page{}, err
	} else if ok {
		offset = n
	}
	if n, ok, err := parseInt("page"); err != nil {
		return Page{}, err
	} else if ok {
		if n < 1 {
			return Page{}, appErrors.Clone(appErrors.ErrInvalidPagination, "page must be at least 1")
		}
		return Page{Limit: limit, Number: n}, nil
	}
	return Page{Offset: offset, Limit: limit}, nil
}

// Builder produces query descriptors. It is safe for concurrent use.
type Builder struct {
	maxLimit int
	now      func() time.Time
}

// NewBuilder returns a builder clamping page sizes to maxLimit.
func NewBuilder(maxLimit int) *Builder {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &Builder{maxLimit: maxLimit, now: time.Now}
}

// WithClock overrides the clock used for the as-of day.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	clone := *b
	clone.now = now
	return &clone
}

// MaxLimit returns the configured page size ceiling.
func (b *Builder) MaxLimit() int { return b.maxLimit }

// Build combines criteria, sort and page into a descriptor. Every set criteria
// field becomes exactly one predicate and all predicates are conjoined.
func (b *Builder) Build(c FilterCriteria, sort Sort, page Page) (QueryDescriptor, error) {
	if page.Limit <= 0 {
		return QueryDescriptor{}, appErrors.Clone(appErrors.ErrInvalidPagination, "limit must be greater than zero")
	}
	if page.Offset < 0 {
		return QueryDescriptor{}, appErrors.Clone(appErrors.ErrInvalidPagination, "offset must not be negative")
	}
	if page.Number < 0 {
		return QueryDescriptor{}, appErrors.Clone(appErrors.ErrInvalidPagination, "page must be at least 1")
	}
	limit := page.Limit
	if limit > b.maxLimit {
		limit = b.maxLimit
	}
	offset := page.Offset
	if page.Number > 0 {
		offset = (page.Number - 1) * limit
	}

	if sort.Field == "" {
		sort = Sort{Field: FieldCreatedAt, Desc: true}
	}
	if !sortableFields[sort.Field] {
		return QueryDescriptor{}, invalidValue("sort", string(sort.Field))
	}

	now := b.now().UTC()
	asOf := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return QueryDescriptor{
		predicates: Predicates(c),
		sort:       []SortKey{{Field: sort.Field, Desc: sort.Desc}, {Field: FieldID}},
		offset:     offset,
		limit:      limit,
		paginated:  true,
		asOf:       asOf,
	}, nil
}

// Predicates translates criteria into conjoined predicates.
func Predicates(c FilterCriteria) []Predicate {
	var predicates []Predicate
	add := func(field Field, op Op, values ...string) {
		predicates = append(predicates, Predicate{Field: field, Op: op, Values: values})
	}

	if c.Scope != nil {
		add(FieldScope, OpEq, string(*c.Scope))
	}
	if c.SectionID != nil {
		add(FieldSectionID, OpEq, *c.SectionID)
	}
	if c.SiteID != nil {
		add(FieldSiteID, OpEq, *c.SiteID)
	} else if c.SiteScoped {
		add(FieldSiteID, OpNotNull)
	}
	if len(c.Statuses) > 0 {
		values := make([]string, len(c.Statuses))
		for i, status := range c.Statuses {
			values[i] = string(status)
		}
		add(FieldStatus, OpIn, values...)
	}
	if c.Stage != nil {
		add(FieldSectionStage, OpEq, string(*c.Stage))
	} else if c.StageScoped {
		add(FieldSectionStage, OpNotNull)
	}
	if c.DateFrom != nil {
		add(FieldCreatedAt, OpGte, c.DateFrom.UTC().Format(time.RFC3339))
	}
	if c.DateTo != nil {
		add(FieldCreatedAt, OpLt, c.DateTo.UTC().AddDate(0, 0, 1).Format(time.RFC3339))
	}
	if c.MineOnly && c.UploadedBy != nil {
		add(FieldUploadedBy, OpEq, *c.UploadedBy)
	}
	if c.SearchText != nil {
		add(FieldDocumentName, OpSearch, *c.SearchText)
	}
	return predicates
}
