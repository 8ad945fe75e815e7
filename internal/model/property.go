package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Development represents a housing development delivered by a constructing company.
// ConstructorID is the company user that built it and answers for post-delivery work.
type Development struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Address       string         `gorm:"type:text" json:"address"`
	City          string         `gorm:"type:varchar(100)" json:"city"`
	ConstructorID uuid.UUID      `gorm:"type:uuid;not null;index" json:"constructor_id"`
	Constructor   *User          `gorm:"foreignKey:ConstructorID" json:"constructor,omitempty"`
	Units         []Unit         `gorm:"foreignKey:DevelopmentID;constraint:OnDelete:CASCADE" json:"units,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Unit is a single dwelling inside a development. OwnerID is the client that
// received the unit; it is nullable until handover.
type Unit struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DevelopmentID uuid.UUID  `gorm:"type:uuid;not null;index" json:"development_id"`
	Development   *Development `gorm:"foreignKey:DevelopmentID" json:"development,omitempty"`
	Label         string     `gorm:"type:varchar(100);not null" json:"label"` // e.g. "Block A - 3F"
	OwnerID       *uuid.UUID `gorm:"type:uuid;index" json:"owner_id"`
	Owner         *User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
