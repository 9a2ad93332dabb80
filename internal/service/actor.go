package service

import (
	"errors"

	"backoffice/internal/fiscal"
	"backoffice/internal/model"

	"github.com/google/uuid"
)

var (
	ErrForbidden          = errors.New("access denied: insufficient permissions")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrCompanyRequired    = errors.New("companyId is required")
	ErrInvalidRole        = errors.New("invalid role: must be admin, manager or staff")
)

// Actor is the authenticated caller as established by the auth middleware,
// or the operator running the CLI.
type Actor struct {
	UserID    *uuid.UUID
	Role      string
	CompanyID *uuid.UUID
}

// SystemActor acts with platform admin rights and no user, e.g. from the CLI.
func SystemActor() Actor {
	return Actor{Role: model.RoleAdmin}
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// Scope resolves the effective tenant for a read. Admins choose it: a
// requested company, or platform rules only. Everyone else is pinned to
// their own company and may not ask for another.
func (a Actor) Scope(requested *uuid.UUID) (fiscal.TenantScope, error) {
	if a.IsAdmin() {
		if requested != nil {
			return fiscal.CompanyScope(*requested), nil
		}
		return fiscal.PlatformScope(), nil
	}
	if a.CompanyID == nil {
		return fiscal.TenantScope{}, ErrForbidden
	}
	if requested != nil && *requested != *a.CompanyID {
		return fiscal.TenantScope{}, ErrForbidden
	}
	return fiscal.CompanyScope(*a.CompanyID), nil
}

// CompanyScope is Scope for company-owned resources, which have no platform
// level: the result always names a company.
func (a Actor) CompanyScope(requested *uuid.UUID) (uuid.UUID, error) {
	scope, err := a.Scope(requested)
	if err != nil {
		return uuid.Nil, err
	}
	if scope.CompanyID == nil {
		return uuid.Nil, ErrCompanyRequired
	}
	return *scope.CompanyID, nil
}

// CanSee reports whether a resource owned by owner (nil = platform) is visible.
func (a Actor) CanSee(owner *uuid.UUID) bool {
	if a.IsAdmin() || owner == nil {
		return true
	}
	return a.CompanyID != nil && *owner == *a.CompanyID
}

// CanWrite reports whether the actor may change a resource owned by owner.
// Platform-wide resources are admin-only; managers write their company's.
func (a Actor) CanWrite(owner *uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	if a.Role != model.RoleManager || owner == nil || a.CompanyID == nil {
		return false
	}
	return *owner == *a.CompanyID
}
