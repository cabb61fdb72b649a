package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// LogoutRequest revokes a refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	FullName       string   `json:"full_name"`
	Role           UserRole `json:"role"`
	ActiveRole     UserRole `json:"active_role"`
	AssignedSiteID *string  `json:"assigned_site_id,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens. Role is the role
// stored on the account; ActiveRole is the role the session currently acts as.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	Role       UserRole `json:"role"`
	ActiveRole UserRole `json:"active_role,omitempty"`
	Email      string   `json:"email"`
	FullName   string   `json:"full_name"`
	SiteID     *string  `json:"site_id,omitempty"`
	jwt.RegisteredClaims
}

// EffectiveRole returns the role used for authorization decisions.
func (c *JWTClaims) EffectiveRole() UserRole {
	if c == nil {
		return ""
	}
	if c.ActiveRole != "" {
		return c.ActiveRole
	}
	return c.Role
}

// RefreshToken is a persisted refresh session. Tokens are single use: a
// successful refresh revokes the presented token and issues a new one.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	UserAgent string     `db:"user_agent" json:"user_agent"`
}

// Usable reports whether the token can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
