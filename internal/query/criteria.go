// Package query turns raw document filter state into canonical criteria and
// immutable, backend agnostic query descriptors.
package query

import (
	"strings"
	"time"

	"github.com/noah-isme/ctos-api/internal/models"
)

// Tab is a preset view of the document list.
type Tab string

const (
	TabAll     Tab = "all"
	TabMine    Tab = "my"
	TabMissing Tab = "missing"
	TabBySite  Tab = "by-site"
	TabByStage Tab = "by-stage"
)

// Raw filter keys understood by Normalize.
const (
	KeyTab      = "tab"
	KeyScope    = "scope"
	KeySection  = "section"
	KeySite     = "site"
	KeyStatus   = "status"
	KeyStage    = "stage"
	KeyDateFrom = "date_from"
	KeyDateTo   = "date_to"
	KeySearch   = "search"
	KeyMine     = "mine"
)

// DateLayout is the wire format of date_from and date_to.
const DateLayout = "2006-01-02"

// FilterKeys lists every raw key recognised by Normalize.
var FilterKeys = []string{KeyTab, KeyScope, KeySection, KeySite, KeyStatus, KeyStage, KeyDateFrom, KeyDateTo, KeySearch, KeyMine}

// FilterCriteria is the canonical, request scoped filter of a document listing.
// Statuses is nil or non-empty, deduplicated and in canonical enum order.
// SiteScoped restricts to site level documents and StageScoped to documents
// filed under a staged section; both are cleared when an explicit site or stage
// is given.
type FilterCriteria struct {
	Tab         Tab                     `json:"tab"`
	Scope       *models.DocumentScope   `json:"scope,omitempty"`
	SectionID   *string                 `json:"section_id,omitempty"`
	SiteID      *string                 `json:"site_id,omitempty"`
	Statuses    []models.DocumentStatus `json:"statuses,omitempty"`
	Stage       *models.TrialStage      `json:"stage,omitempty"`
	SiteScoped  bool                    `json:"site_scoped,omitempty"`
	StageScoped bool                    `json:"stage_scoped,omitempty"`
	DateFrom    *time.Time              `json:"date_from,omitempty"`
	DateTo      *time.Time              `json:"date_to,omitempty"`
	SearchText  *string                 `json:"search_text,omitempty"`
	MineOnly    bool                    `json:"mine_only,omitempty"`
	UploadedBy  *string                 `json:"uploaded_by,omitempty"`
}

// Values renders the criteria back into raw filter parameters. Normalizing the
// result with the same user yields the criteria again.
func (c FilterCriteria) Values() map[string]string {
	values := map[string]string{}
	if c.Tab != "" && c.Tab != TabAll {
		values[KeyTab] = string(c.Tab)
	}
	if c.Scope != nil {
		values[KeyScope] = string(*c.Scope)
	}
	if c.SectionID != nil {
		values[KeySection] = *c.SectionID
	}
	if c.SiteID != nil {
		values[KeySite] = *c.SiteID
	}
	if len(c.Statuses) > 0 {
		parts := make([]string, len(c.Statuses))
		for i, status := range c.Statuses {
			parts[i] = string(status)
		}
		values[KeyStatus] = strings.Join(parts, ",")
	}
	if c.Stage != nil {
		values[KeyStage] = string(*c.Stage)
	}
	if c.DateFrom != nil {
		values[KeyDateFrom] = c.DateFrom.Format(DateLayout)
	}
	if c.DateTo != nil {
		values[KeyDateTo] = c.DateTo.Format(DateLayout)
	}
	if c.SearchText != nil {
		values[KeySearch] = *c.SearchText
	}
	if c.MineOnly && c.Tab != TabMine {
		values[KeyMine] = "true"
	}
	if !c.MineOnly && c.Tab == TabMine {
		values[KeyMine] = "false"
	}
	return values
}
