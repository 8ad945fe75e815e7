package model

import (
	"time"

	"github.com/google/uuid"
)

// Review is the client's rating of a completed service. One per service.
// A client holding any completed-but-unreviewed service cannot open new
// requests; that check lives in ServiceRequestService.Create.
type Review struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ServiceID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"service_id"`
	ClientID     uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Client       *User     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	TechnicianID uuid.UUID `gorm:"type:uuid;not null;index" json:"technician_id"`
	Technician   *User     `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	Rating       int       `gorm:"not null" json:"rating"` // 1..5
	Comment      string    `gorm:"type:text" json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}
