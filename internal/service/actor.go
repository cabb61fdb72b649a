package service

import (
	"github.com/noah-isme/ctos-api/internal/models"
	"github.com/noah-isme/ctos-api/internal/policy"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

// Actor identifies who performs a service call and under which role.
type Actor struct {
	UserID    string
	Role      models.UserRole
	SiteID    *string
	IP        string
	UserAgent string
}

// ActorFromClaims derives the actor of an authenticated request. The active
// role, not the account role, drives authorization.
func ActorFromClaims(claims *models.JWTClaims) (Actor, error) {
	if claims == nil || claims.UserID == "" {
		return Actor{}, appErrors.ErrUnauthenticated
	}
	return Actor{UserID: claims.UserID, Role: claims.EffectiveRole(), SiteID: claims.SiteID}, nil
}

// Can checks the actor against a capability.
func (a Actor) Can(capability policy.Capability) error {
	if a.UserID == "" {
		return appErrors.ErrUnauthenticated
	}
	return policy.Authorize(a.Role, capability)
}
