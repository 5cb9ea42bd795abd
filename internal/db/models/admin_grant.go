package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminGrant records a persisted admin role assignment, keyed by email so
// it applies the next time the account logs in. Revocation keeps the row
// for the audit trail instead of deleting it.
type AdminGrant struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserEmail  string     `json:"user_email" db:"user_email"`
	AdminType  string     `json:"admin_type" db:"admin_type"`
	LocationID *uuid.UUID `json:"location_id,omitempty" db:"location_id"`
	GrantedBy  string     `json:"granted_by" db:"granted_by"`
	Reason     *string    `json:"reason,omitempty" db:"reason"`
	IPAddress  *string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string    `json:"user_agent,omitempty" db:"user_agent"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	RevokedBy  *string    `json:"revoked_by,omitempty" db:"revoked_by"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Active returns true while the grant has not been revoked
func (g *AdminGrant) Active() bool {
	return g.RevokedAt == nil
}
