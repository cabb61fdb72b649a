package models

import "time"

// SiteStatus marks whether a site participates in the trial.
type SiteStatus string

const (
	SiteStatusActive   SiteStatus = "active"
	SiteStatusInactive SiteStatus = "inactive"
)

// Site is an investigational site enrolling participants.
type Site struct {
	ID                    string     `db:"id" json:"id"`
	SiteNumber            string     `db:"site_number" json:"site_number"`
	SiteName              string     `db:"site_name" json:"site_name"`
	PrincipalInvestigator *string    `db:"principal_investigator" json:"principal_investigator,omitempty"`
	Address               *string    `db:"address" json:"address,omitempty"`
	City                  *string    `db:"city" json:"city,omitempty"`
	State                 *string    `db:"state" json:"state,omitempty"`
	ZipCode               *string    `db:"zip_code" json:"zip_code,omitempty"`
	Country               *string    `db:"country" json:"country,omitempty"`
	Phone                 *string    `db:"phone" json:"phone,omitempty"`
	Email                 *string    `db:"email" json:"email,omitempty"`
	Status                SiteStatus `db:"status" json:"status"`
	EnrollmentTarget      int        `db:"enrollment_target" json:"enrollment_target"`
	CurrentEnrollment     int        `db:"current_enrollment" json:"current_enrollment"`
	StartDate             *time.Time `db:"start_date" json:"start_date,omitempty"`
	CoordinatorName       *string    `db:"coordinator_name" json:"coordinator_name,omitempty"`
	CoordinatorEmail      *string    `db:"coordinator_email" json:"coordinator_email,omitempty"`
	CoordinatorPhone      *string    `db:"coordinator_phone" json:"coordinator_phone,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether documents may be filed against the site.
func (s *Site) IsActive() bool {
	return s != nil && s.Status == SiteStatusActive
}

// SiteFilter captures listing options for the sites overview.
type SiteFilter struct {
	Search          string
	IncludeInactive bool
}

// SitesSummary aggregates the sites overview header.
type SitesSummary struct {
	ActiveSites       int `db:"active_sites" json:"active_sites"`
	TotalSites        int `db:"total_sites" json:"total_sites"`
	CurrentEnrollment int `db:"current_enrollment" json:"current_enrollment"`
	EnrollmentTarget  int `db:"enrollment_target" json:"enrollment_target"`
	Countries         int `db:"countries" json:"countries"`
}
