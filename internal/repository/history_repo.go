package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository is the append-only audit trail. There is deliberately no
// update or delete in this contract; past entries are immutable.
type HistoryRepository interface {
	AppendStatus(ctx context.Context, entry *model.StatusHistoryEntry) error
	AppendActivity(ctx context.Context, entry *model.ActivityLogEntry) error
	StatusHistory(ctx context.Context, serviceID uuid.UUID) ([]model.StatusHistoryEntry, error)
	ActivityLog(ctx context.Context, serviceID uuid.UUID) ([]model.ActivityLogEntry, error)
	CountStatusEntries(ctx context.Context, serviceID uuid.UUID) (int64, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) AppendStatus(ctx context.Context, entry *model.StatusHistoryEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *historyRepository) AppendActivity(ctx context.Context, entry *model.ActivityLogEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

// StatusHistory returns all entries for a service in commit order.
// Ordering by seq keeps replay deterministic even on equal timestamps.
func (r *historyRepository) StatusHistory(ctx context.Context, serviceID uuid.UUID) ([]model.StatusHistoryEntry, error) {
	var entries []model.StatusHistoryEntry
	if err := GetDB(ctx, r.db).
		Preload("Actor").
		Where("service_id = ?", serviceID).
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *historyRepository) ActivityLog(ctx context.Context, serviceID uuid.UUID) ([]model.ActivityLogEntry, error) {
	var entries []model.ActivityLogEntry
	if err := GetDB(ctx, r.db).
		Preload("Actor").
		Where("service_id = ?", serviceID).
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *historyRepository) CountStatusEntries(ctx context.Context, serviceID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.StatusHistoryEntry{}).
		Where("service_id = ?", serviceID).
		Count(&count).Error
	return count, err
}
