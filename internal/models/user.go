package models

import "time"

// UserRole represents the trial roles recognised by the access policy.
type UserRole string

const (
	RoleSponsor         UserRole = "sponsor"
	RoleSiteMonitor     UserRole = "site_monitor"
	RoleSiteCoordinator UserRole = "site_coordinator"
	RoleAdmin           UserRole = "admin"
)

// User represents an application user stored in the users table.
type User struct {
	ID             string     `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	FullName       string     `db:"full_name" json:"full_name"`
	Role           UserRole   `db:"role" json:"role"`
	AssignedSiteID *string    `db:"assigned_site_id" json:"assigned_site_id,omitempty"`
	AvatarURL      *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Active         bool       `db:"active" json:"active"`
	LastLogin      *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives the page metadata for an offset based listing.
func NewPagination(offset, limit, total int) *Pagination {
	if limit <= 0 {
		return &Pagination{Page: 1, TotalCount: total}
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return &Pagination{
		Page:       offset/limit + 1,
		PageSize:   limit,
		TotalCount: total,
		TotalPages: pages,
	}
}
