// Package models - audit_log.go defines the AuditLog model for recording
// security-relevant events, capturing actor, action, affected resource,
// client IP and user agent, and arbitrary metadata.
package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog represents an audit log entry for tracking user actions
type AuditLog struct {
	ID           uuid.UUID              // Row ID
	UserID       *uuid.UUID             // Nullable for anonymous and system actions
	ActorEmail   *string                // Denormalised actor email
	Action       string                 // "trip.create", "group.approve", "admin.grant"
	ResourceType *string                // "trip", "optimization_group", "join_request", "user"
	ResourceID   *uuid.UUID             // UUID of affected resource
	Metadata     map[string]interface{} // JSONB: additional context
	IPAddress    *string                // Client IP
	UserAgent    *string                // Client user agent
	CreatedAt    time.Time
}
