package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ServiceRequestFilter narrows listing to what a role may see.
type ServiceRequestFilter struct {
	ClientID      *uuid.UUID
	TechnicianID  *uuid.UUID
	ConstructorID *uuid.UUID // resolved through unit -> development
	OpenPool      bool       // unassigned PENDING requests only
	Status        string
	Page          int
	Limit         int
}

// ServiceRequestRepository defines data access for service requests.
// FindByIDForUpdate takes a row lock so the lifecycle read-modify-write is
// atomic; it must only be called inside a transaction.
type ServiceRequestRepository interface {
	Create(ctx context.Context, svc *model.ServiceRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)
	List(ctx context.Context, filter ServiceRequestFilter) ([]model.ServiceRequest, int64, error)
	Update(ctx context.Context, svc *model.ServiceRequest) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	UpdateCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error
	CountCompletedWithoutReview(ctx context.Context, clientID uuid.UUID) (int64, error)
	CountCompletedByTechnician(ctx context.Context, technicianID uuid.UUID) (int64, error)
}

type serviceRequestRepository struct {
	db *gorm.DB
}

func NewServiceRequestRepository(db *gorm.DB) ServiceRequestRepository {
	return &serviceRequestRepository{db: db}
}

func (r *serviceRequestRepository) Create(ctx context.Context, svc *model.ServiceRequest) error {
	return GetDB(ctx, r.db).Create(svc).Error
}

func (r *serviceRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	var svc model.ServiceRequest
	if err := GetDB(ctx, r.db).First(&svc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *serviceRequestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	var svc model.ServiceRequest
	if err := GetDB(ctx, r.db).
		Preload("Client").
		Preload("Technician").
		Preload("Unit").
		Preload("Unit.Development").
		First(&svc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *serviceRequestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	var svc model.ServiceRequest
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&svc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *serviceRequestRepository) List(ctx context.Context, filter ServiceRequestFilter) ([]model.ServiceRequest, int64, error) {
	var services []model.ServiceRequest
	var total int64

	db := GetDB(ctx, r.db)
	base := db.Model(&model.ServiceRequest{})
	base = applyServiceFilter(base, filter)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	fetch := applyServiceFilter(db.Model(&model.ServiceRequest{}), filter).
		Preload("Client").
		Preload("Technician").
		Preload("Unit")
	if err := fetch.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&services).Error; err != nil {
		return nil, 0, err
	}

	return services, total, nil
}

func applyServiceFilter(q *gorm.DB, filter ServiceRequestFilter) *gorm.DB {
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if filter.TechnicianID != nil {
		q = q.Where("technician_id = ?", *filter.TechnicianID)
	}
	if filter.ConstructorID != nil {
		q = q.Where(`unit_id IN (
			SELECT u.id FROM units u
			INNER JOIN developments d ON d.id = u.development_id
			WHERE d.constructor_id = ?
		)`, *filter.ConstructorID)
	}
	if filter.OpenPool {
		q = q.Where("technician_id IS NULL AND status = ?", model.StatusPending)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q
}

func (r *serviceRequestRepository) Update(ctx context.Context, svc *model.ServiceRequest) error {
	return GetDB(ctx, r.db).Save(svc).Error
}

func (r *serviceRequestRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Unscoped().Delete(&model.ServiceRequest{}, "id = ?", id).Error
}

// UpdateCoordinates writes only lat/lng so the async geocoder never races the
// lifecycle fields.
func (r *serviceRequestRepository) UpdateCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	return GetDB(ctx, r.db).Model(&model.ServiceRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"latitude": lat, "longitude": lng}).Error
}

func (r *serviceRequestRepository) CountCompletedWithoutReview(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ServiceRequest{}).
		Where("client_id = ? AND status = ?", clientID, model.StatusCompleted).
		Where("id NOT IN (SELECT service_id FROM reviews)").
		Count(&count).Error
	return count, err
}

func (r *serviceRequestRepository) CountCompletedByTechnician(ctx context.Context, technicianID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ServiceRequest{}).
		Where("technician_id = ? AND status = ?", technicianID, model.StatusCompleted).
		Count(&count).Error
	return count, err
}
