// Package auth - roles.go defines the role model used for every authorization
// decision: a base role (user / admin) plus an admin sub-type that is either
// unscoped (super_admin) or bound to a single location (location_admin).
package auth

// Role is the base role of an account.
type Role string

const (
	// RoleUser is a regular employee who can submit trips and join requests.
	RoleUser Role = "user"

	// RoleAdmin marks an account that carries an AdminType sub-type.
	RoleAdmin Role = "admin"
)

// AdminType is the admin sub-type carried by accounts with RoleAdmin.
type AdminType string

const (
	// AdminTypeSuper sees and manages all data across every location and is
	// the only role allowed to grant or revoke admin access.
	AdminTypeSuper AdminType = "super_admin"

	// AdminTypeLocation is an admin whose list and stat queries are implicitly
	// scoped to a single location.
	AdminTypeLocation AdminType = "location_admin"
)

// ValidRole reports whether s is a recognised base role.
func ValidRole(s string) bool {
	return s == string(RoleUser) || s == string(RoleAdmin)
}

// ValidAdminType reports whether s is a recognised admin sub-type.
func ValidAdminType(s string) bool {
	return s == string(AdminTypeSuper) || s == string(AdminTypeLocation)
}

// IsAdmin reports whether the role grants admin privileges.
func IsAdmin(role Role) bool {
	return role == RoleAdmin
}

// IsSuperAdmin reports whether the role/adminType pair is an unscoped admin.
func IsSuperAdmin(role Role, adminType AdminType) bool {
	return role == RoleAdmin && adminType == AdminTypeSuper
}

// LocationScope returns the location ID a caller's list/stat queries must be
// restricted to, or nil when the caller sees unfiltered results.
// Only location admins are scoped; super admins and regular users are not
// (regular users are filtered by ownership, not location).
func LocationScope(role Role, adminType AdminType, adminLocationID *string) *string {
	if role == RoleAdmin && adminType == AdminTypeLocation {
		return adminLocationID
	}
	return nil
}
