package access

import (
	"strings"

	"bookameal/internal/apperr"
)

// Role is the single permission enum for users
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCaterer  Role = "caterer"
	RoleAdmin    Role = "admin"
)

// Declared allowed-role sets for operations
var (
	Everyone  = []Role{RoleCustomer, RoleCaterer, RoleAdmin}
	Staff     = []Role{RoleCaterer, RoleAdmin}
	AdminOnly = []Role{RoleAdmin}
	Customers = []Role{RoleCustomer}
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleCaterer, RoleAdmin:
		return true
	}
	return false
}

// ParseRole parses a role name, case-insensitively
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", apperr.Validation("unknown role %q", s)
	}
	return r, nil
}

// Identity is the resolved caller of a core operation
type Identity struct {
	UserID int64 `json:"userId"`
	Role   Role  `json:"role"`
}

// Authorize reports whether the identity's role is in the allowed set.
// An empty set allows nobody.
func Authorize(id Identity, allowed ...Role) bool {
	for _, r := range allowed {
		if id.Role == r {
			return true
		}
	}
	return false
}

// AuthorizeSelf reports whether the identity is the target user, whatever its role
func AuthorizeSelf(id Identity, targetID int64) bool {
	return id.UserID != 0 && id.UserID == targetID
}

// Require returns an AuthorizationError unless Authorize passes
func Require(id Identity, allowed ...Role) error {
	if Authorize(id, allowed...) {
		return nil
	}
	return apperr.Forbidden("role %q is not allowed to perform this operation", id.Role)
}

// RequireSelf returns an AuthorizationError unless AuthorizeSelf passes
func RequireSelf(id Identity, targetID int64) error {
	if AuthorizeSelf(id, targetID) {
		return nil
	}
	return apperr.Forbidden("operation is restricted to the account owner")
}

// RequireSelfOr passes for the owner or for any of the given roles
func RequireSelfOr(id Identity, targetID int64, allowed ...Role) error {
	if AuthorizeSelf(id, targetID) || Authorize(id, allowed...) {
		return nil
	}
	return apperr.Forbidden("operation is restricted to the owner or %s", joinRoles(allowed))
}

func joinRoles(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, "/")
}
