package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification kind constants
const (
	NotifTechnicianAssigned = "TECHNICIAN_ASSIGNED"
	NotifStatusChanged      = "STATUS_CHANGED"
	NotifDeletionRequested  = "DELETION_REQUESTED"
	NotifDeletionResolved   = "DELETION_RESOLVED"
	NotifBadgeAwarded       = "BADGE_AWARDED"
)

// Notification is an in-app message created by the side-effect dispatcher.
// RelatedServiceID is not a foreign key: the service may be hard-deleted
// while the notification about that deletion survives.
type Notification struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind             string     `gorm:"type:varchar(30);not null;index" json:"kind"`
	RelatedServiceID *uuid.UUID `gorm:"type:uuid" json:"related_service_id"`
	Text             string     `gorm:"type:text;not null" json:"text"`
	IsRead           bool       `gorm:"default:false;index" json:"is_read"`
	CreatedAt        time.Time  `json:"created_at"`
}
