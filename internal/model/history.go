package model

import (
	"time"

	"github.com/google/uuid"
)

// Activity log action constants
const (
	ActionServiceCreated     = "SERVICE_CREATED"
	ActionTechnicianAssigned = "TECHNICIAN_ASSIGNED"
	ActionStatusChanged      = "STATUS_CHANGED"
	ActionDeletionRequested  = "DELETION_REQUESTED"
	ActionDeletionApproved   = "DELETION_APPROVED"
	ActionDeletionRejected   = "DELETION_REJECTED"
	ActionServiceDeleted     = "SERVICE_DELETED"
)

// StatusHistoryEntry is one append-only record per accepted status-affecting
// call. Seq is auto-incrementing so replay order survives timestamp ties.
// Entries are never updated or deleted; they outlive a hard-deleted service.
type StatusHistoryEntry struct {
	Seq       uint64     `gorm:"primaryKey;autoIncrement" json:"seq"`
	ServiceID uuid.UUID  `gorm:"type:uuid;not null;index" json:"service_id"`
	Status    string     `gorm:"type:varchar(20);not null" json:"status"`
	ActorID   *uuid.UUID `gorm:"type:uuid" json:"actor_id"` // Nullable gracefully if automated
	Actor     *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Note      string     `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

// ActivityLogEntry tracks Who, What, and When for every deletion-workflow
// event and lifecycle change, with a structured JSON payload. Append-only.
type ActivityLogEntry struct {
	Seq       uint64     `gorm:"primaryKey;autoIncrement" json:"seq"`
	ServiceID uuid.UUID  `gorm:"type:uuid;not null;index" json:"service_id"`
	Action    string     `gorm:"type:varchar(50);not null;index" json:"action"`
	ActorID   *uuid.UUID `gorm:"type:uuid" json:"actor_id"`
	Actor     *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Metadata  string     `gorm:"type:jsonb" json:"metadata"` // Serialized JSON payload of the event
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
