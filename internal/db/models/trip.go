// Package models - trip.go defines the Trip model together with the status and
// data-type enumerations that drive the raw/temp/final record lifecycle.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Trip statuses.
const (
	TripStatusPendingApproval = "pending_approval"
	TripStatusPendingUrgent   = "pending_urgent"
	TripStatusAutoApproved    = "auto_approved"
	TripStatusApproved        = "approved"
	TripStatusApprovedSolo    = "approved_solo"
	TripStatusOptimized       = "optimized"
	TripStatusRejected        = "rejected"
	TripStatusCancelled       = "cancelled"
	TripStatusExpired         = "expired"
)

// Trip record kinds. RAW rows are employee submissions, TEMP rows are
// per-group shadow copies, FINAL rows are the post-approval replacements.
const (
	DataTypeRaw   = "raw"
	DataTypeTemp  = "temp"
	DataTypeFinal = "final"
)

// GroupEligibleStatuses are the trip statuses that an optimization
// group proposal is allowed to claim.
var GroupEligibleStatuses = []string{
	TripStatusAutoApproved,
	TripStatusApproved,
	TripStatusApprovedSolo,
}

// ValidTripStatus returns true for a recognised trip status value
func ValidTripStatus(s string) bool {
	switch s {
	case TripStatusPendingApproval, TripStatusPendingUrgent, TripStatusAutoApproved,
		TripStatusApproved, TripStatusApprovedSolo, TripStatusOptimized,
		TripStatusRejected, TripStatusCancelled, TripStatusExpired:
		return true
	}
	return false
}

// GroupEligible returns true if a trip in this status may be claimed into a proposal
func GroupEligible(status string) bool {
	for _, s := range GroupEligibleStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Trip represents a single business trip record at any lifecycle stage
type Trip struct {
	ID                    uuid.UUID  `json:"id" db:"id"`
	UserID                *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	UserEmail             string     `json:"user_email" db:"user_email"`
	DepartureLocationID   uuid.UUID  `json:"departure_location_id" db:"departure_location_id"`
	DestinationLocationID uuid.UUID  `json:"destination_location_id" db:"destination_location_id"`
	DepartureDate         time.Time  `json:"departure_date" db:"departure_date"`
	DepartureTime         time.Time  `json:"departure_time" db:"departure_time"`
	Status                string     `json:"status" db:"status"`
	DataType              string     `json:"data_type" db:"data_type"`
	ParentTripID          *uuid.UUID `json:"parent_trip_id,omitempty" db:"parent_trip_id"`
	OptimizedGroupID      *uuid.UUID `json:"optimized_group_id,omitempty" db:"optimized_group_id"`
	EstimatedCost         *float64   `json:"estimated_cost,omitempty" db:"estimated_cost"`
	ActualCost            *float64   `json:"actual_cost,omitempty" db:"actual_cost"`
	VehicleType           *string    `json:"vehicle_type,omitempty" db:"vehicle_type"`
	SupersededAt          *time.Time `json:"superseded_at,omitempty" db:"superseded_at"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true once a trip can no longer change state
func (t *Trip) IsTerminal() bool {
	switch t.Status {
	case TripStatusRejected, TripStatusCancelled, TripStatusExpired:
		return true
	}
	return false
}

// Claimed reports whether the trip is currently held by an optimization group
func (t *Trip) Claimed() bool {
	return t.OptimizedGroupID != nil
}
