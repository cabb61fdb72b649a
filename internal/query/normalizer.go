package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/ctos-api/internal/models"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

// MaxSearchLength bounds the free text search term.
const MaxSearchLength = 200

// FromURLValues picks the first value of every recognised filter key.
func FromURLValues(v url.Values) map[string]string {
	raw := make(map[string]string, len(FilterKeys))
	for _, key := range FilterKeys {
		if value := v.Get(key); value != "" {
			raw[key] = value
		}
	}
	return raw
}

// Normalize converts raw filter parameters into canonical criteria.
//
// A tab expands into a criteria fragment (my: mine_only for userID, missing:
// statuses missing and overdue, by-site: site level documents, by-stage:
// documents under a staged section). Explicit parameters are merged on top and
// win on conflict, so tab=missing&status=certified filters on certified only.
// Unknown keys are ignored; blank values count as absent.
func Normalize(raw map[string]string, userID *string) (FilterCriteria, error) {
	get := func(key string) (string, bool) {
		value := strings.TrimSpace(raw[key])
		return value, value != ""
	}

	criteria := FilterCriteria{Tab: TabAll}

	if value, ok := get(KeyTab); ok {
		tab, err := parseTab(value)
		if err != nil {
			return FilterCriteria{}, err
		}
		criteria.Tab = tab
	}

	_, explicitMine := get(KeyMine)
	_, explicitStatus := get(KeyStatus)
	_, explicitSite := get(KeySite)
	_, explicitStage := get(KeyStage)

	switch criteria.Tab {
	case TabMine:
		if !explicitMine {
			user, err := requireUser(userID)
			if err != nil {
				return FilterCriteria{}, err
			}
			criteria.MineOnly = true
			criteria.UploadedBy = &user
		}
	case TabMissing:
		if !explicitStatus {
			criteria.Statuses = []models.DocumentStatus{models.StatusMissing, models.StatusOverdue}
		}
	case TabBySite:
		criteria.SiteScoped = !explicitSite
	case TabByStage:
		criteria.StageScoped = !explicitStage
	}

	if value, ok := get(KeyScope); ok {
		scope, err := parseScope(value)
		if err != nil {
			return FilterCriteria{}, err
		}
		criteria.Scope = &scope
	}

	if value, ok := get(KeySection); ok {
		id, err := uuid.Parse(value)
		if err != nil {
			return FilterCriteria{}, invalidValue(KeySection, value)
		}
		section := id.String()
		criteria.SectionID = &section
	}

	if value, ok := get(KeySite); ok {
		site := value
		criteria.SiteID = &site
	}

	if value, ok := get(KeyStatus); ok {
		statuses, err := parseStatuses(value)
		if err != nil {
			return FilterCriteria{}, err
		}
		criteria.Statuses = statuses
	}

	if value, ok := get(KeyStage); ok {
		stage, err := parseStage(value)
		if err != nil {
			return FilterCriteria{}, err
		}
		criteria.Stage = &stage
	}

	if value, ok := get(KeyDateFrom); ok {
		from, err := parseDate(KeyDateFrom, value)
		if err != nil {
			return FilterCriteria{}, err
		}
		criteria.DateFrom = &from
	}
	if value, ok := get(KeyDateTo); ok {
		to, err := parseDate(KeyDateTo, value)
		if err != nil {
			return FilterCriteria{}, err
		}
		criteria.DateTo = &to
	}
	if criteria.DateFrom != nil && criteria.DateTo != nil && criteria.DateFrom.After(*criteria.DateTo) {
		return FilterCriteria{}, appErrors.Clone(appErrors.ErrInvalidDateRange,
			fmt.Sprintf("date_from %s is after date_to %s", criteria.DateFrom.Format(DateLayout), criteria.DateTo.Format(DateLayout)))
	}

	// A blank search is absent; any other term is kept verbatim.
	if _, ok := get(KeySearch); ok {
		search := raw[KeySearch]
		if len([]rune(search)) > MaxSearchLength {
			return FilterCriteria{}, appErrors.Clone(appErrors.ErrInvalidFilterValue, fmt.Sprintf("search must be at most %d characters", MaxSearchLength))
		}
		criteria.SearchText = &search
	}

	if value, ok := get(KeyMine); ok {
		mine, err := strconv.ParseBool(value)
		if err != nil {
			return FilterCriteria{}, invalidValue(KeyMine, value)
		}
		if mine {
			user, err := requireUser(userID)
			if err != nil {
				return FilterCriteria{}, err
			}
			criteria.MineOnly = true
			criteria.UploadedBy = &user
		}
	}

	return criteria, nil
}

func requireUser(userID *string) (string, error) {
	if userID == nil || strings.TrimSpace(*userID) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthenticated, "the my documents filter requires an authenticated user")
	}
	return strings.TrimSpace(*userID), nil
}

func parseTab(value string) (Tab, error) {
	switch tab := Tab(strings.ToLower(value)); tab {
	case TabAll, TabMine, TabMissing, TabBySite, TabByStage:
		return tab, nil
	}
	return "", invalidValue(KeyTab, value)
}

func parseScope(value string) (models.DocumentScope, error) {
	scope := models.DocumentScope(strings.ToUpper(value))
	for _, known := range models.DocumentScopes {
		if scope == known {
			return scope, nil
		}
	}
	return "", invalidValue(KeyScope, value)
}

func parseStage(value string) (models.TrialStage, error) {
	stage := models.TrialStage(strings.ToLower(value))
	for _, known := range models.TrialStages {
		if stage == known {
			return stage, nil
		}
	}
	return "", invalidValue(KeyStage, value)
}

func parseStatuses(value string) ([]models.DocumentStatus, error) {
	requested := map[models.DocumentStatus]bool{}
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		status := models.DocumentStatus(part)
		if !isKnownStatus(status) {
			return nil, invalidValue(KeyStatus, part)
		}
		requested[status] = true
	}
	if len(requested) == 0 {
		return nil, invalidValue(KeyStatus, value)
	}
	statuses := make([]models.DocumentStatus, 0, len(requested))
	for _, status := range models.DocumentStatuses {
		if requested[status] {
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func isKnownStatus(status models.DocumentStatus) bool {
	for _, known := range models.DocumentStatuses {
		if status == known {
			return true
		}
	}
	return false
}

func parseDate(key, value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrInvalidFilterValue, fmt.Sprintf("%s must be formatted as YYYY-MM-DD", key))
	}
	return t, nil
}

func invalidValue(key, value string) error {
	return appErrors.Clone(appErrors.ErrInvalidFilterValue, fmt.Sprintf("invalid %s value %q", key, value))
}
