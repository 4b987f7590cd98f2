// Package authz holds the role gate and the ownership checks. The role gate
// runs before anything is loaded; ownership runs after a successful load so a
// missing row is reported as not found before any ownership decision.
package authz

import (
	"apartmentng/internal/apperr"
	"apartmentng/internal/auth"
	"apartmentng/internal/models"
)

var (
	AdminOnly    = []auth.Role{auth.RoleAdmin}
	AgentOnly    = []auth.Role{auth.RoleAgent}
	AdminOrAgent = []auth.Role{auth.RoleAdmin, auth.RoleAgent}
)

func RequireRole(p auth.Principal, allowed ...auth.Role) error {
	for _, r := range allowed {
		if p.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("Access denied")
}

func RequireApartmentOwnerOrAdmin(p auth.Principal, apt models.Apartment) error {
	switch p.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleAgent:
		if apt.AgentID != nil && *apt.AgentID == p.ID {
			return nil
		}
	}
	return apperr.Forbidden("You can only manage your own apartments")
}

// RequireDocumentOwner has no admin bypass; admins act on documents through
// the review flow.
func RequireDocumentOwner(p auth.Principal, doc models.AgentDocument) error {
	if p.Role == auth.RoleAgent && doc.AgentID == p.ID {
		return nil
	}
	return apperr.Forbidden("You can only manage your own documents")
}

// CanView reports whether p may see apt. Approved listings are public;
// unapproved ones are visible to admins and the owning agent.
func CanView(p *auth.Principal, apt models.Apartment) bool {
	if apt.IsApproved {
		return true
	}
	if p == nil {
		return false
	}
	return RequireApartmentOwnerOrAdmin(*p, apt) == nil
}
