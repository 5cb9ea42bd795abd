// Package models - optimization_group.go defines the OptimizationGroup model and
// its proposed/approved/rejected state machine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Optimization group statuses. A group is born proposed and moves exactly
// once to approved or rejected.
const (
	GroupStatusProposed = "proposed"
	GroupStatusApproved = "approved"
	GroupStatusRejected = "rejected"
)

// OptimizationGroup represents a proposed bundle of compatible trips
type OptimizationGroup struct {
	ID                    uuid.UUID  `json:"id" db:"id"`
	Status                string     `json:"status" db:"status"`
	ProposedDepartureTime time.Time  `json:"proposed_departure_time" db:"proposed_departure_time"`
	VehicleType           string     `json:"vehicle_type" db:"vehicle_type"`
	EstimatedSavings      float64    `json:"estimated_savings" db:"estimated_savings"`
	CreatedBy             uuid.UUID  `json:"created_by" db:"created_by"`
	ApprovedBy            *uuid.UUID `json:"approved_by,omitempty" db:"approved_by"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	DecidedAt             *time.Time `json:"decided_at,omitempty" db:"decided_at"`
}

// Decided returns true once the group has reached a terminal status
func (g *OptimizationGroup) Decided() bool {
	return g.Status == GroupStatusApproved || g.Status == GroupStatusRejected
}

// GroupMember ties a claimed trip to a group at a stable position
type GroupMember struct {
	GroupID  uuid.UUID `json:"group_id" db:"group_id"`
	TripID   uuid.UUID `json:"trip_id" db:"trip_id"`
	Position int       `json:"position" db:"position"`
}

// GroupWithMembers is the API shape for a group plus its member trips
type GroupWithMembers struct {
	OptimizationGroup
	Trips []Trip `json:"trips"`
}
