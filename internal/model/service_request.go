package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceStatus enum constants — primary lifecycle of a maintenance request
const (
	StatusPending    = "PENDING"
	StatusScheduled  = "SCHEDULED"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// DeletionStatus enum constants — deletion sub-workflow, orthogonal to status
const (
	DeletionNone            = "NONE"
	DeletionPendingApproval = "PENDING_APPROVAL"
	DeletionApproved        = "APPROVED"
	DeletionRejected        = "REJECTED"
)

// ServiceCategory enum constants
const (
	CategoryPlumbing   = "PLUMBING"
	CategoryElectrical = "ELECTRICAL"
	CategoryStructural = "STRUCTURAL"
	CategoryFinishing  = "FINISHING"
	CategoryOther      = "OTHER"
)

// ServiceRequest is the maintenance ticket at the center of the system.
// Status and DeletionStatus are only ever written by ServiceRequestService
// inside a transaction; every accepted change appends history.
type ServiceRequest struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	Client       *User      `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	TechnicianID *uuid.UUID `gorm:"type:uuid;index" json:"technician_id"`
	Technician   *User      `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	UnitID       *uuid.UUID `gorm:"type:uuid;index" json:"unit_id"`
	Unit         *Unit      `gorm:"foreignKey:UnitID" json:"unit,omitempty"`

	Category    string `gorm:"type:varchar(30);not null;index" json:"category"`
	Description string `gorm:"type:text;not null" json:"description"`

	// Address captured at creation; coordinates filled in asynchronously
	// by the geocoding trigger after commit.
	Street    string   `gorm:"type:varchar(255);not null" json:"street"`
	City      string   `gorm:"type:varchar(100);not null" json:"city"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	// EstimatedCost is quoted by the technician at assignment time.
	EstimatedCost decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"estimated_cost"`

	Status         string `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	DeletionStatus string `gorm:"type:varchar(20);not null;default:'NONE';index" json:"deletion_status"`

	// Deletion request metadata, populated only while DeletionStatus != NONE.
	// Who resolved a request, and how, lives in the activity log: approval
	// hard-deletes the row and rejection resets it, so resolution state is
	// never persisted here.
	DeletionRequestedBy *uuid.UUID `gorm:"type:uuid" json:"deletion_requested_by"`
	DeletionRequestedAt *time.Time `json:"deletion_requested_at"`

	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasStarted reports whether technician work has begun — the condition that
// gates the two-phase deletion workflow.
func (s *ServiceRequest) HasStarted() bool {
	return s.Status == StatusScheduled || s.Status == StatusInProgress
}
