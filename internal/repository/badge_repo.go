package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository interface {
	// Award inserts the badge if absent. Returns true when a new row was
	// written, false when the user already held it.
	Award(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.UserBadge, error)
}

type badgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) Award(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	badge := model.UserBadge{UserID: userID, Code: code}
	res := GetDB(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&badge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *badgeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	if err := GetDB(ctx, r.db).
		Where("user_id = ?", userID).
		Order("awarded_at ASC").
		Find(&badges).Error; err != nil {
		return nil, err
	}
	return badges, nil
}
