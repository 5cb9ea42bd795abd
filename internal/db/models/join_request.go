package models

import (
	"time"

	"github.com/google/uuid"
)

// Join request statuses.
const (
	JoinRequestStatusPending   = "pending"
	JoinRequestStatusApproved  = "approved"
	JoinRequestStatusRejected  = "rejected"
	JoinRequestStatusCancelled = "cancelled"
)

// JoinRequest represents an employee asking to ride along on an existing trip.
// Requester identity fields are denormalised so the record stays readable
// after the account changes.
type JoinRequest struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	TripID              uuid.UUID  `json:"trip_id" db:"trip_id"`
	LocationID          *uuid.UUID `json:"location_id,omitempty" db:"location_id"`
	RequesterID         uuid.UUID  `json:"requester_id" db:"requester_id"`
	RequesterEmail      string     `json:"requester_email" db:"requester_email"`
	RequesterName       string     `json:"requester_name" db:"requester_name"`
	RequesterRole       string     `json:"requester_role" db:"requester_role"`
	RequesterDepartment *string    `json:"requester_department,omitempty" db:"requester_department"`
	Reason              *string    `json:"reason,omitempty" db:"reason"`
	Status              string     `json:"status" db:"status"`
	AdminNotes          *string    `json:"admin_notes,omitempty" db:"admin_notes"`
	DecidedBy           *uuid.UUID `json:"decided_by,omitempty" db:"decided_by"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	DecidedAt           *time.Time `json:"decided_at,omitempty" db:"decided_at"`
}

// Open returns true while the request still awaits an admin decision
func (r *JoinRequest) Open() bool {
	return r.Status == JoinRequestStatusPending
}
