package model

import (
	"time"

	"github.com/google/uuid"
)

// Badge code constants
const (
	BadgeFirstService   = "FIRST_SERVICE"       // technician completed 1 service
	BadgeSeasonedTech   = "SEASONED_TECHNICIAN" // technician completed 5 services
	BadgeFirstReview    = "FIRST_REVIEW"        // client wrote 1 review
	BadgeTrustedByFive  = "TRUSTED_BY_FIVE"     // technician received 5 reviews
)

// UserBadge records a badge award. The (user, code) unique index is what makes
// the evaluator idempotent: re-awarding is a silent no-op.
type UserBadge struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"user_id"`
	Code      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_user_badge" json:"code"`
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}
