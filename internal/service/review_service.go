package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/authz"
	"backend/internal/dispatch"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateReviewDTO struct {
	ServiceID string `json:"service_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Comment   string `json:"comment"`
}

type ReviewResponse struct {
	ID           string `json:"id"`
	ServiceID    string `json:"service_id"`
	ClientID     string `json:"client_id"`
	ClientName   string `json:"client_name,omitempty"`
	TechnicianID string `json:"technician_id"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
	CreatedAt    string `json:"created_at"`
}

// ReviewService handles the one-review-per-completed-service rule and feeds
// review events into badge evaluation.
type ReviewService interface {
	Create(ctx context.Context, actor authz.Actor, req CreateReviewDTO) (*ReviewResponse, error)
	ListByTechnician(ctx context.Context, technicianID string, page, limit int) ([]ReviewResponse, int64, error)
}

type reviewService struct {
	reviews    repository.ReviewRepository
	services   repository.ServiceRequestRepository
	txm        repository.TransactionManager
	dispatcher EventDispatcher
}

func NewReviewService(
	reviews repository.ReviewRepository,
	services repository.ServiceRequestRepository,
	txm repository.TransactionManager,
	dispatcher EventDispatcher,
) ReviewService {
	return &reviewService{reviews: reviews, services: services, txm: txm, dispatcher: dispatcher}
}

func (s *reviewService) Create(ctx context.Context, actor authz.Actor, req CreateReviewDTO) (*ReviewResponse, error) {
	if actor.Role != model.RoleClient {
		return nil, fmt.Errorf("%w: only clients may review services", ErrForbidden)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid service id", ErrValidation)
	}

	var review *model.Review
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		svc, loadErr := s.services.FindByID(txCtx, serviceID)
		if loadErr != nil {
			if errors.Is(loadErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: service request %s", ErrNotFound, req.ServiceID)
			}
			return fmt.Errorf("failed to load service request: %w", loadErr)
		}
		if svc.ClientID != actor.ID {
			return fmt.Errorf("%w: you may only review your own services", ErrForbidden)
		}
		if svc.Status != model.StatusCompleted {
			return fmt.Errorf("%w: only completed services can be reviewed", ErrInvalidState)
		}
		if svc.TechnicianID == nil {
			return fmt.Errorf("%w: service has no technician to review", ErrInvalidState)
		}
		if _, findErr := s.reviews.FindByServiceID(txCtx, serviceID); findErr == nil {
			return fmt.Errorf("%w: this service has already been reviewed", ErrConflict)
		}

		review = &model.Review{
			ServiceID:    serviceID,
			ClientID:     actor.ID,
			TechnicianID: *svc.TechnicianID,
			Rating:       req.Rating,
			Comment:      req.Comment,
		}
		if createErr := s.reviews.Create(txCtx, review); createErr != nil {
			return fmt.Errorf("failed to create review: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	technicianID := review.TechnicianID
	s.dispatcher.Dispatch(dispatch.Event{
		Kind:         dispatch.EventReviewCreated,
		ServiceID:    serviceID,
		ActorID:      actor.ID,
		ClientID:     actor.ID,
		TechnicianID: &technicianID,
	})

	resp := toReviewResponse(review)
	return &resp, nil
}

func (s *reviewService) ListByTechnician(ctx context.Context, technicianID string, page, limit int) ([]ReviewResponse, int64, error) {
	id, err := uuid.Parse(technicianID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid technician id", ErrValidation)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	reviews, total, err := s.reviews.ListByTechnician(ctx, id, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}

	result := make([]ReviewResponse, 0, len(reviews))
	for i := range reviews {
		result = append(result, toReviewResponse(&reviews[i]))
	}
	return result, total, nil
}

func toReviewResponse(r *model.Review) ReviewResponse {
	resp := ReviewResponse{
		ID:           r.ID.String(),
		ServiceID:    r.ServiceID.String(),
		ClientID:     r.ClientID.String(),
		TechnicianID: r.TechnicianID.String(),
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	if r.Client != nil {
		resp.ClientName = r.Client.Username
	}
	return resp
}
