package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	FindByServiceID(ctx context.Context, serviceID uuid.UUID) (*model.Review, error)
	ListByTechnician(ctx context.Context, technicianID uuid.UUID, page, limit int) ([]model.Review, int64, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error)
	CountByTechnician(ctx context.Context, technicianID uuid.UUID) (int64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	return GetDB(ctx, r.db).Create(review).Error
}

func (r *reviewRepository) FindByServiceID(ctx context.Context, serviceID uuid.UUID) (*model.Review, error) {
	var review model.Review
	if err := GetDB(ctx, r.db).First(&review, "service_id = ?", serviceID).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ListByTechnician(ctx context.Context, technicianID uuid.UUID, page, limit int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Review{}).Where("technician_id = ?", technicianID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Client").
		Where("technician_id = ?", technicianID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&reviews).Error; err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

func (r *reviewRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Review{}).
		Where("client_id = ?", clientID).Count(&count).Error
	return count, err
}

func (r *reviewRepository) CountByTechnician(ctx context.Context, technicianID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Review{}).
		Where("technician_id = ?", technicianID).Count(&count).Error
	return count, err
}
