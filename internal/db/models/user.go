// Package models - user.go defines the User model for employee accounts
// together with role and admin-type helpers used by the access layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an employee account
type User struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Email           string     `json:"email" db:"email"`
	Name            string     `json:"name" db:"name"`
	Role            string     `json:"role" db:"role"`
	AdminType       *string    `json:"admin_type,omitempty" db:"admin_type"`
	AdminLocationID *uuid.UUID `json:"admin_location_id,omitempty" db:"admin_location_id"`
	Department      *string    `json:"department,omitempty" db:"department"`
	EmployeeID      *string    `json:"employee_id,omitempty" db:"employee_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsAdmin returns true for any administrator account
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// IsSuperAdmin returns true only for administrators with unrestricted scope
func (u *User) IsSuperAdmin() bool {
	return u.IsAdmin() && u.AdminType != nil && *u.AdminType == "super_admin"
}

// ScopeLocationID returns the location a location admin is restricted to,
// or nil when the account sees everything (super admin) or nothing (regular user)
func (u *User) ScopeLocationID() *uuid.UUID {
	if u.IsAdmin() && u.AdminType != nil && *u.AdminType == "location_admin" {
		return u.AdminLocationID
	}
	return nil
}
