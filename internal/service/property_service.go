package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/authz"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateDevelopmentDTO struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	City    string `json:"city"`
	// ConstructorID is required for admin callers; constructors always
	// create developments under themselves.
	ConstructorID string `json:"constructor_id"`
}

type CreateUnitDTO struct {
	DevelopmentID string `json:"development_id" binding:"required"`
	Label         string `json:"label" binding:"required"`
	OwnerID       string `json:"owner_id"`
}

type AssignUnitOwnerDTO struct {
	OwnerID string `json:"owner_id" binding:"required"`
}

type DevelopmentResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Address       string         `json:"address"`
	City          string         `json:"city"`
	ConstructorID string         `json:"constructor_id"`
	Units         []UnitResponse `json:"units,omitempty"`
	CreatedAt     string         `json:"created_at"`
}

type UnitResponse struct {
	ID            string  `json:"id"`
	DevelopmentID string  `json:"development_id"`
	Label         string  `json:"label"`
	OwnerID       *string `json:"owner_id"`
}

// PropertyService manages the development/unit chain that backs derived
// constructing-company ownership of service requests.
type PropertyService interface {
	CreateDevelopment(ctx context.Context, actor authz.Actor, req CreateDevelopmentDTO) (*DevelopmentResponse, error)
	CreateUnit(ctx context.Context, actor authz.Actor, req CreateUnitDTO) (*UnitResponse, error)
	AssignUnitOwner(ctx context.Context, actor authz.Actor, unitID string, req AssignUnitOwnerDTO) error
	ListDevelopments(ctx context.Context, actor authz.Actor, page, limit int) ([]DevelopmentResponse, int64, error)
}

type propertyService struct {
	properties repository.PropertyRepository
	users      repository.UserRepository
}

func NewPropertyService(properties repository.PropertyRepository, users repository.UserRepository) PropertyService {
	return &propertyService{properties: properties, users: users}
}

func (s *propertyService) CreateDevelopment(ctx context.Context, actor authz.Actor, req CreateDevelopmentDTO) (*DevelopmentResponse, error) {
	var constructorID uuid.UUID
	switch actor.Role {
	case model.RoleConstructor:
		constructorID = actor.ID
	case model.RoleAdmin:
		if req.ConstructorID == "" {
			return nil, fmt.Errorf("%w: constructor_id is required", ErrValidation)
		}
		id, err := uuid.Parse(req.ConstructorID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid constructor id", ErrValidation)
		}
		user, err := s.users.GetByID(ctx, id.String())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: constructor %s", ErrNotFound, req.ConstructorID)
			}
			return nil, fmt.Errorf("failed to load constructor: %w", err)
		}
		if user.Role != model.RoleConstructor {
			return nil, fmt.Errorf("%w: user %s is not a constructing company", ErrValidation, req.ConstructorID)
		}
		constructorID = id
	default:
		return nil, fmt.Errorf("%w: only constructing companies and admins may create developments", ErrForbidden)
	}

	dev := &model.Development{
		Name:          req.Name,
		Address:       req.Address,
		City:          req.City,
		ConstructorID: constructorID,
	}
	if err := s.properties.CreateDevelopment(ctx, dev); err != nil {
		return nil, fmt.Errorf("failed to create development: %w", err)
	}

	resp := toDevelopmentResponse(dev)
	return &resp, nil
}

func (s *propertyService) CreateUnit(ctx context.Context, actor authz.Actor, req CreateUnitDTO) (*UnitResponse, error) {
	developmentID, err := uuid.Parse(req.DevelopmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid development id", ErrValidation)
	}
	dev, err := s.properties.FindDevelopmentByID(ctx, developmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: development %s", ErrNotFound, req.DevelopmentID)
		}
		return nil, fmt.Errorf("failed to load development: %w", err)
	}
	if actor.Role == model.RoleConstructor && dev.ConstructorID != actor.ID {
		return nil, fmt.Errorf("%w: development belongs to another company", ErrForbidden)
	}
	if actor.Role != model.RoleConstructor && actor.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: only constructing companies and admins may create units", ErrForbidden)
	}

	unit := &model.Unit{
		DevelopmentID: developmentID,
		Label:         req.Label,
	}
	if req.OwnerID != "" {
		ownerID, parseErr := uuid.Parse(req.OwnerID)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: invalid owner id", ErrValidation)
		}
		unit.OwnerID = &ownerID
	}
	if err := s.properties.CreateUnit(ctx, unit); err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}

	resp := toUnitResponse(unit)
	return &resp, nil
}

func (s *propertyService) AssignUnitOwner(ctx context.Context, actor authz.Actor, unitID string, req AssignUnitOwnerDTO) error {
	id, err := uuid.Parse(unitID)
	if err != nil {
		return fmt.Errorf("%w: invalid unit id", ErrValidation)
	}
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		return fmt.Errorf("%w: invalid owner id", ErrValidation)
	}

	unit, err := s.properties.FindUnitByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: unit %s", ErrNotFound, unitID)
		}
		return fmt.Errorf("failed to load unit: %w", err)
	}
	if actor.Role == model.RoleConstructor && (unit.Development == nil || unit.Development.ConstructorID != actor.ID) {
		return fmt.Errorf("%w: unit belongs to another company", ErrForbidden)
	}
	if actor.Role != model.RoleConstructor && actor.Role != model.RoleAdmin {
		return fmt.Errorf("%w: only constructing companies and admins may assign unit owners", ErrForbidden)
	}

	owner, err := s.users.GetByID(ctx, ownerID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %s", ErrNotFound, req.OwnerID)
		}
		return fmt.Errorf("failed to load owner: %w", err)
	}
	if owner.Role != model.RoleClient {
		return fmt.Errorf("%w: unit owner must be a client", ErrValidation)
	}

	return s.properties.AssignUnitOwner(ctx, id, ownerID)
}

func (s *propertyService) ListDevelopments(ctx context.Context, actor authz.Actor, page, limit int) ([]DevelopmentResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var constructorID *uuid.UUID
	if actor.Role == model.RoleConstructor {
		id := actor.ID
		constructorID = &id
	}

	devs, total, err := s.properties.ListDevelopments(ctx, constructorID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list developments: %w", err)
	}

	result := make([]DevelopmentResponse, 0, len(devs))
	for i := range devs {
		result = append(result, toDevelopmentResponse(&devs[i]))
	}
	return result, total, nil
}

func toDevelopmentResponse(dev *model.Development) DevelopmentResponse {
	resp := DevelopmentResponse{
		ID:            dev.ID.String(),
		Name:          dev.Name,
		Address:       dev.Address,
		City:          dev.City,
		ConstructorID: dev.ConstructorID.String(),
		CreatedAt:     dev.CreatedAt.Format(time.RFC3339),
	}
	for i := range dev.Units {
		resp.Units = append(resp.Units, toUnitResponse(&dev.Units[i]))
	}
	return resp
}

func toUnitResponse(unit *model.Unit) UnitResponse {
	resp := UnitResponse{
		ID:            unit.ID.String(),
		DevelopmentID: unit.DevelopmentID.String(),
		Label:         unit.Label,
	}
	if unit.OwnerID != nil {
		id := unit.OwnerID.String()
		resp.OwnerID = &id
	}
	return resp
}
