// Package policy maps trial roles to capabilities and navigation.
//
// Every function is pure and safe for concurrent use. Persisting a role switch
// is the caller's concern; the policy only decides whether it is allowed.
package policy

import (
	"fmt"
	"strings"

	"github.com/noah-isme/ctos-api/internal/models"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

// Capability is a permission token owned by a role.
type Capability string

const (
	CapViewDocuments     Capability = "view_documents"
	CapUploadDocument    Capability = "upload_document"
	CapCertifyDocument   Capability = "certify_document"
	CapDeleteDocument    Capability = "delete_document"
	CapViewSitesOverview Capability = "view_sites_overview"
	CapViewReports       Capability = "view_reports"
	CapExportReports     Capability = "export_reports"
	CapManageAdmin       Capability = "manage_admin"
)

// allCapabilities is in canonical order.
var allCapabilities = []Capability{
	CapViewDocuments,
	CapUploadDocument,
	CapCertifyDocument,
	CapDeleteDocument,
	CapViewSitesOverview,
	CapViewReports,
	CapExportReports,
	CapManageAdmin,
}

// allRoles is in canonical order.
var allRoles = []models.UserRole{
	models.RoleSponsor,
	models.RoleSiteMonitor,
	models.RoleSiteCoordinator,
	models.RoleAdmin,
}

var roleCapabilities = map[models.UserRole][]Capability{
	models.RoleAdmin: allCapabilities,
	models.RoleSponsor: {
		CapViewDocuments,
		CapUploadDocument,
		CapCertifyDocument,
		CapDeleteDocument,
		CapViewSitesOverview,
		CapViewReports,
		CapExportReports,
	},
	models.RoleSiteMonitor: {
		CapViewDocuments,
		CapCertifyDocument,
		CapViewSitesOverview,
		CapViewReports,
	},
	models.RoleSiteCoordinator: {
		CapViewDocuments,
		CapUploadDocument,
	},
}

// CapabilitySet is an ordered, duplicate free list of capabilities.
type CapabilitySet []Capability

// Has reports whether the set contains the capability.
func (s CapabilitySet) Has(c Capability) bool {
	for _, existing := range s {
		if existing == c {
			return true
		}
	}
	return false
}

// Strings returns the capability tokens.
func (s CapabilitySet) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}

// AllCapabilities returns every known capability.
func AllCapabilities() []Capability {
	return append([]Capability(nil), allCapabilities...)
}

// Roles returns every known role.
func Roles() []models.UserRole {
	return append([]models.UserRole(nil), allRoles...)
}

// ParseRole validates a raw role value.
func ParseRole(raw string) (models.UserRole, error) {
	role := models.UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleCapabilities[role]; !ok {
		return "", invalidRole(raw)
	}
	return role, nil
}

// CapabilitiesFor returns the capabilities owned by role.
func CapabilitiesFor(role models.UserRole) (CapabilitySet, error) {
	caps, ok := roleCapabilities[role]
	if !ok {
		return nil, invalidRole(string(role))
	}
	return append(CapabilitySet(nil), caps...), nil
}

// Authorize fails with Forbidden when role lacks capability.
func Authorize(role models.UserRole, capability Capability) error {
	caps, err := CapabilitiesFor(role)
	if err != nil {
		return err
	}
	if !caps.Has(capability) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s lacks capability %s", role, capability))
	}
	return nil
}

// CanSwitchRole reports whether role may act as another role.
func CanSwitchRole(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleSponsor
}

// AvailableRoles lists the roles a user holding role may act as. A switching
// role may only act as roles whose capabilities it already holds.
func AvailableRoles(role models.UserRole) ([]models.UserRole, error) {
	if _, ok := roleCapabilities[role]; !ok {
		return nil, invalidRole(string(role))
	}
	if !CanSwitchRole(role) {
		return []models.UserRole{role}, nil
	}
	out := make([]models.UserRole, 0, len(allRoles))
	for _, candidate := range allRoles {
		if grants(role, candidate) {
			out = append(out, candidate)
		}
	}
	return out, nil
}

// SwitchRole validates a switch from the account role base to target and
// returns the role to act as. Roles that cannot switch are refused even when
// the target equals their own role. A target holding any capability base
// lacks is refused.
func SwitchRole(base, target models.UserRole) (models.UserRole, error) {
	if _, ok := roleCapabilities[base]; !ok {
		return "", invalidRole(string(base))
	}
	if _, ok := roleCapabilities[target]; !ok {
		return "", invalidRole(string(target))
	}
	if !CanSwitchRole(base) {
		return "", appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s cannot switch roles", base))
	}
	if !grants(base, target) {
		return "", appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s cannot act as %s", base, target))
	}
	return target, nil
}

// grants reports whether base holds every capability of target.
func grants(base, target models.UserRole) bool {
	held := CapabilitySet(roleCapabilities[base])
	for _, c := range roleCapabilities[target] {
		if !held.Has(c) {
			return false
		}
	}
	return true
}

func invalidRole(raw string) error {
	return appErrors.Clone(appErrors.ErrInvalidRole, fmt.Sprintf("unknown role %q", raw))
}
