package repository

import (
	"context"
	"errors"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PropertyRepository covers the development/unit ownership chain.
type PropertyRepository interface {
	CreateDevelopment(ctx context.Context, dev *model.Development) error
	CreateUnit(ctx context.Context, unit *model.Unit) error
	FindDevelopmentByID(ctx context.Context, id uuid.UUID) (*model.Development, error)
	FindUnitByID(ctx context.Context, id uuid.UUID) (*model.Unit, error)
	ListDevelopments(ctx context.Context, constructorID *uuid.UUID, page, limit int) ([]model.Development, int64, error)
	AssignUnitOwner(ctx context.Context, unitID, ownerID uuid.UUID) error
	// ResolveConstructingCompany walks unit -> development -> constructor.
	// Returns nil (no error) when the unit does not exist.
	ResolveConstructingCompany(ctx context.Context, unitID uuid.UUID) (*uuid.UUID, error)
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) CreateDevelopment(ctx context.Context, dev *model.Development) error {
	return GetDB(ctx, r.db).Create(dev).Error
}

func (r *propertyRepository) CreateUnit(ctx context.Context, unit *model.Unit) error {
	return GetDB(ctx, r.db).Create(unit).Error
}

func (r *propertyRepository) FindDevelopmentByID(ctx context.Context, id uuid.UUID) (*model.Development, error) {
	var dev model.Development
	if err := GetDB(ctx, r.db).Preload("Units").First(&dev, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dev, nil
}

func (r *propertyRepository) FindUnitByID(ctx context.Context, id uuid.UUID) (*model.Unit, error) {
	var unit model.Unit
	if err := GetDB(ctx, r.db).Preload("Development").First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *propertyRepository) ListDevelopments(ctx context.Context, constructorID *uuid.UUID, page, limit int) ([]model.Development, int64, error) {
	var devs []model.Development
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Development{})
	if constructorID != nil {
		query = query.Where("constructor_id = ?", *constructorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Units")
	if constructorID != nil {
		fetch = fetch.Where("constructor_id = ?", *constructorID)
	}
	if err := fetch.Order("created_at DESC").Offset(offset).Limit(limit).Find(&devs).Error; err != nil {
		return nil, 0, err
	}

	return devs, total, nil
}

func (r *propertyRepository) AssignUnitOwner(ctx context.Context, unitID, ownerID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Unit{}).
		Where("id = ?", unitID).
		Update("owner_id", ownerID).Error
}

func (r *propertyRepository) ResolveConstructingCompany(ctx context.Context, unitID uuid.UUID) (*uuid.UUID, error) {
	var constructorID uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.Unit{}).
		Select("developments.constructor_id").
		Joins("INNER JOIN developments ON developments.id = units.development_id").
		Where("units.id = ?", unitID).
		Scan(&constructorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if constructorID == uuid.Nil {
		return nil, nil
	}
	return &constructorID, nil
}
