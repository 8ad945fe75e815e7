package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/authz"
	"backend/internal/dispatch"
	"backend/internal/lifecycle"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateServiceRequestDTO struct {
	Category    string `json:"category" binding:"required,oneof=PLUMBING ELECTRICAL STRUCTURAL FINISHING OTHER"`
	Description string `json:"description" binding:"required"`
	Street      string `json:"street" binding:"required"`
	City        string `json:"city" binding:"required"`
	UnitID      string `json:"unit_id"`
	// ClientID is required when an admin or constructing company opens the
	// request on a client's behalf; ignored for client callers.
	ClientID string `json:"client_id"`
	// TechnicianID may be set at creation time; the request then starts out
	// SCHEDULED. Creation-time assignment is exempt from the capability check.
	TechnicianID string `json:"technician_id"`
}

type AssignTechnicianDTO struct {
	TechnicianID  string `json:"technician_id" binding:"required"`
	EstimatedCost string `json:"estimated_cost"`
	Note          string `json:"note"`
}

type UpdateStatusDTO struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type CancelDTO struct {
	Note string `json:"note"`
}

type ApproveDeletionDTO struct {
	Approved *bool `json:"approved" binding:"required"`
}

type ServiceRequestListFilter struct {
	Status   string
	OpenPool bool // technicians: unassigned PENDING requests
	Page     int
	Limit    int
}

type ServiceRequestResponse struct {
	ID             string   `json:"id"`
	ClientID       string   `json:"client_id"`
	ClientName     string   `json:"client_name,omitempty"`
	TechnicianID   *string  `json:"technician_id"`
	TechnicianName string   `json:"technician_name,omitempty"`
	UnitID         *string  `json:"unit_id"`
	UnitLabel      string   `json:"unit_label,omitempty"`
	Category       string   `json:"category"`
	Description    string   `json:"description"`
	Street         string   `json:"street"`
	City           string   `json:"city"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	EstimatedCost  string   `json:"estimated_cost"`
	Status         string   `json:"status"`
	DeletionStatus string   `json:"deletion_status"`
	CompletedAt    *string  `json:"completed_at"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

type StatusHistoryResponse struct {
	Seq       uint64 `json:"seq"`
	Status    string `json:"status"`
	ActorID   string `json:"actor_id,omitempty"`
	ActorName string `json:"actor_name,omitempty"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at"`
}

type ActivityLogResponse struct {
	Seq       uint64 `json:"seq"`
	Action    string `json:"action"`
	ActorID   string `json:"actor_id,omitempty"`
	ActorName string `json:"actor_name,omitempty"`
	Metadata  string `json:"metadata"`
	CreatedAt string `json:"created_at"`
}

// --- Interface ---

// ServiceRequestService owns every write to status/deletion_status. Each
// mutating call runs authorization, the state-machine guard, the field change
// and the audit appends inside one transaction; side effects go through the
// dispatcher only after commit.
type ServiceRequestService interface {
	Create(ctx context.Context, actor authz.Actor, req CreateServiceRequestDTO) (*ServiceRequestResponse, error)
	Get(ctx context.Context, actor authz.Actor, id string) (*ServiceRequestResponse, error)
	List(ctx context.Context, actor authz.Actor, filter ServiceRequestListFilter) ([]ServiceRequestResponse, int64, error)
	AssignTechnician(ctx context.Context, actor authz.Actor, id string, req AssignTechnicianDTO) (*ServiceRequestResponse, error)
	UpdateStatus(ctx context.Context, actor authz.Actor, id string, req UpdateStatusDTO) (*ServiceRequestResponse, error)
	Cancel(ctx context.Context, actor authz.Actor, id string, note string) (*ServiceRequestResponse, error)
	RequestDeletion(ctx context.Context, actor authz.Actor, id string) (*ServiceRequestResponse, error)
	ApproveDeletion(ctx context.Context, actor authz.Actor, id string, approved bool) (*ServiceRequestResponse, error)
	History(ctx context.Context, actor authz.Actor, id string) ([]StatusHistoryResponse, error)
	ActivityLog(ctx context.Context, actor authz.Actor, id string) ([]ActivityLogResponse, error)
}

// EventDispatcher is the post-commit side-effect sink.
type EventDispatcher interface {
	Dispatch(ev dispatch.Event)
}

type serviceRequestService struct {
	services   repository.ServiceRequestRepository
	history    repository.HistoryRepository
	properties repository.PropertyRepository
	users      repository.UserRepository
	reviews    repository.ReviewRepository
	txm        repository.TransactionManager
	dispatcher EventDispatcher
}

func NewServiceRequestService(
	services repository.ServiceRequestRepository,
	history repository.HistoryRepository,
	properties repository.PropertyRepository,
	users repository.UserRepository,
	reviews repository.ReviewRepository,
	txm repository.TransactionManager,
	dispatcher EventDispatcher,
) ServiceRequestService {
	return &serviceRequestService{
		services:   services,
		history:    history,
		properties: properties,
		users:      users,
		reviews:    reviews,
		txm:        txm,
		dispatcher: dispatcher,
	}
}

// --- Authorization helper ---

// capabilities resolves the constructing company (when the service has a
// unit) and evaluates the authorization matrix for actor on svc.
func (s *serviceRequestService) capabilities(ctx context.Context, actor authz.Actor, svc *model.ServiceRequest) (authz.Set, error) {
	rec := authz.Record{
		ClientID:       svc.ClientID,
		TechnicianID:   svc.TechnicianID,
		Status:         svc.Status,
		DeletionStatus: svc.DeletionStatus,
	}
	if svc.UnitID != nil {
		constructorID, err := s.properties.ResolveConstructingCompany(ctx, *svc.UnitID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve constructing company: %w", err)
		}
		rec.ConstructorID = constructorID
	}
	return authz.Capabilities(actor, rec), nil
}

func (s *serviceRequestService) loadForUpdate(ctx context.Context, id string) (*model.ServiceRequest, error) {
	serviceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid service id", ErrValidation)
	}
	svc, err := s.services.FindByIDForUpdate(ctx, serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: service request %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load service request: %w", err)
	}
	return svc, nil
}

// --- Create ---

func (s *serviceRequestService) Create(ctx context.Context, actor authz.Actor, req CreateServiceRequestDTO) (*ServiceRequestResponse, error) {
	if req.Street == "" || req.City == "" {
		return nil, fmt.Errorf("%w: street and city are required", ErrValidation)
	}

	clientID, err := s.resolveClient(ctx, actor, req.ClientID)
	if err != nil {
		return nil, err
	}

	// A client holding a completed-but-unreviewed service may not open new
	// requests. This is a creation precondition, not a lifecycle rule.
	if actor.Role == model.RoleClient {
		unreviewed, err := s.services.CountCompletedWithoutReview(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("failed to check pending reviews: %w", err)
		}
		if unreviewed > 0 {
			return nil, fmt.Errorf("%w: please review your completed services before creating a new request", ErrValidation)
		}
	}

	svc := &model.ServiceRequest{
		ClientID:       clientID,
		Category:       req.Category,
		Description:    req.Description,
		Street:         req.Street,
		City:           req.City,
		Status:         model.StatusPending,
		DeletionStatus: model.DeletionNone,
	}

	if req.UnitID != "" {
		unitID, parseErr := uuid.Parse(req.UnitID)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: invalid unit id", ErrValidation)
		}
		if _, findErr := s.properties.FindUnitByID(ctx, unitID); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: unit %s", ErrNotFound, req.UnitID)
			}
			return nil, fmt.Errorf("failed to load unit: %w", findErr)
		}
		svc.UnitID = &unitID
	}

	// Creation-time technician assignment is exempt from the capability
	// check; the request starts out SCHEDULED in the same atomic write.
	var technicianID *uuid.UUID
	if req.TechnicianID != "" {
		id, resolveErr := s.resolveTechnician(ctx, req.TechnicianID)
		if resolveErr != nil {
			return nil, resolveErr
		}
		technicianID = &id
		svc.TechnicianID = technicianID
		svc.Status = model.StatusScheduled
	}

	actorID := actor.ID
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.services.Create(txCtx, svc); createErr != nil {
			return fmt.Errorf("failed to create service request: %w", createErr)
		}

		if histErr := s.history.AppendStatus(txCtx, &model.StatusHistoryEntry{
			ServiceID: svc.ID,
			Status:    model.StatusPending,
			ActorID:   &actorID,
			Note:      "service request created",
		}); histErr != nil {
			return fmt.Errorf("failed to append history: %w", histErr)
		}
		if svc.Status == model.StatusScheduled {
			if histErr := s.history.AppendStatus(txCtx, &model.StatusHistoryEntry{
				ServiceID: svc.ID,
				Status:    model.StatusScheduled,
				ActorID:   &actorID,
				Note:      "technician assigned at creation",
			}); histErr != nil {
				return fmt.Errorf("failed to append history: %w", histErr)
			}
		}

		return s.appendActivity(txCtx, svc.ID, model.ActionServiceCreated, &actorID, map[string]interface{}{
			"requester_role": actor.Role,
			"category":       req.Category,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(dispatch.Event{
		Kind:         dispatch.EventServiceCreated,
		ServiceID:    svc.ID,
		ActorID:      actor.ID,
		ClientID:     svc.ClientID,
		TechnicianID: svc.TechnicianID,
		Address:      req.Street + ", " + req.City,
	})
	if technicianID != nil {
		s.dispatcher.Dispatch(dispatch.Event{
			Kind:         dispatch.EventTechnicianAssigned,
			ServiceID:    svc.ID,
			ActorID:      actor.ID,
			ClientID:     svc.ClientID,
			TechnicianID: technicianID,
		})
	}

	return s.reload(ctx, svc.ID)
}

func (s *serviceRequestService) resolveClient(ctx context.Context, actor authz.Actor, clientID string) (uuid.UUID, error) {
	if actor.Role == model.RoleClient {
		return actor.ID, nil
	}
	if actor.Role != model.RoleAdmin && actor.Role != model.RoleConstructor {
		return uuid.Nil, fmt.Errorf("%w: role %s may not create service requests", ErrForbidden, actor.Role)
	}
	if clientID == "" {
		return uuid.Nil, fmt.Errorf("%w: client_id is required when creating on a client's behalf", ErrValidation)
	}
	id, err := uuid.Parse(clientID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid client id", ErrValidation)
	}
	client, err := s.users.GetByID(ctx, id.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("%w: client %s", ErrNotFound, clientID)
		}
		return uuid.Nil, fmt.Errorf("failed to load client: %w", err)
	}
	if client.Role != model.RoleClient {
		return uuid.Nil, fmt.Errorf("%w: user %s is not a client", ErrValidation, clientID)
	}
	return id, nil
}

func (s *serviceRequestService) resolveTechnician(ctx context.Context, technicianID string) (uuid.UUID, error) {
	id, err := uuid.Parse(technicianID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid technician id", ErrValidation)
	}
	tech, err := s.users.GetByID(ctx, id.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("%w: technician %s", ErrNotFound, technicianID)
		}
		return uuid.Nil, fmt.Errorf("failed to load technician: %w", err)
	}
	if tech.Role != model.RoleTechnician {
		return uuid.Nil, fmt.Errorf("%w: user %s is not a technician", ErrValidation, technicianID)
	}
	if !tech.IsActive {
		return uuid.Nil, fmt.Errorf("%w: technician %s is inactive", ErrValidation, technicianID)
	}
	return id, nil
}

// --- Reads ---

func (s *serviceRequestService) Get(ctx context.Context, actor authz.Actor, id string) (*ServiceRequestResponse, error) {
	serviceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid service id", ErrValidation)
	}
	svc, err := s.services.FindByIDWithRelations(ctx, serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: service request %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load service request: %w", err)
	}

	caps, err := s.capabilities(ctx, actor, svc)
	if err != nil {
		return nil, err
	}
	if !caps.Has(authz.CapView) {
		return nil, fmt.Errorf("%w: you may not view this service request", ErrForbidden)
	}

	resp := toServiceResponse(svc)
	return &resp, nil
}

func (s *serviceRequestService) List(ctx context.Context, actor authz.Actor, filter ServiceRequestListFilter) ([]ServiceRequestResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.ServiceRequestFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}

	switch actor.Role {
	case model.RoleAdmin:
		// Unscoped.
	case model.RoleClient:
		id := actor.ID
		repoFilter.ClientID = &id
	case model.RoleTechnician:
		if filter.OpenPool {
			repoFilter.OpenPool = true
		} else {
			id := actor.ID
			repoFilter.TechnicianID = &id
		}
	case model.RoleConstructor:
		id := actor.ID
		repoFilter.ConstructorID = &id
	default:
		return nil, 0, fmt.Errorf("%w: unknown role %s", ErrForbidden, actor.Role)
	}

	services, total, err := s.services.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list service requests: %w", err)
	}

	result := make([]ServiceRequestResponse, 0, len(services))
	for i := range services {
		result = append(result, toServiceResponse(&services[i]))
	}
	return result, total, nil
}

// --- Assign technician ---

func (s *serviceRequestService) AssignTechnician(ctx context.Context, actor authz.Actor, id string, req AssignTechnicianDTO) (*ServiceRequestResponse, error) {
	technicianID, err := s.resolveTechnician(ctx, req.TechnicianID)
	if err != nil {
		return nil, err
	}

	cost := decimal.Zero
	if req.EstimatedCost != "" {
		parsed, parseErr := decimal.NewFromString(req.EstimatedCost)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: invalid estimated cost", ErrValidation)
		}
		if parsed.IsNegative() {
			return nil, fmt.Errorf("%w: estimated cost may not be negative", ErrValidation)
		}
		cost = parsed
	}

	var serviceID uuid.UUID
	var clientID uuid.UUID
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		svc, loadErr := s.loadForUpdate(txCtx, id)
		if loadErr != nil {
			return loadErr
		}

		caps, capErr := s.capabilities(txCtx, actor, svc)
		if capErr != nil {
			return capErr
		}
		if !caps.Has(authz.CapMutateStatus) {
			return fmt.Errorf("%w: only an admin may assign a technician", ErrForbidden)
		}
		if svc.Status != model.StatusPending {
			return fmt.Errorf("%w: technician can only be assigned while the request is pending", ErrInvalidTransition)
		}

		// Assignment auto-promotes PENDING -> SCHEDULED in the same write.
		svc.TechnicianID = &technicianID
		svc.Status = model.StatusScheduled
		svc.EstimatedCost = cost
		if saveErr := s.services.Update(txCtx, svc); saveErr != nil {
			return fmt.Errorf("failed to update service request: %w", saveErr)
		}

		actorID := actor.ID
		if histErr := s.history.AppendStatus(txCtx, &model.StatusHistoryEntry{
			ServiceID: svc.ID,
			Status:    model.StatusScheduled,
			ActorID:   &actorID,
			Note:      req.Note,
		}); histErr != nil {
			return fmt.Errorf("failed to append history: %w", histErr)
		}

		serviceID = svc.ID
		clientID = svc.ClientID
		return s.appendActivity(txCtx, svc.ID, model.ActionTechnicianAssigned, &actorID, map[string]interface{}{
			"technician_id": technicianID.String(),
			"prior_status":  model.StatusPending,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(dispatch.Event{
		Kind:         dispatch.EventTechnicianAssigned,
		ServiceID:    serviceID,
		ActorID:      actor.ID,
		ClientID:     clientID,
		TechnicianID: &technicianID,
	})

	return s.reload(ctx, serviceID)
}

// --- Status updates ---

func (s *serviceRequestService) UpdateStatus(ctx context.Context, actor authz.Actor, id string, req UpdateStatusDTO) (*ServiceRequestResponse, error) {
	if !lifecycle.IsStatus(req.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}
	if req.Status == model.StatusCancelled {
		return nil, fmt.Errorf("%w: use the cancel operation to cancel a request", ErrValidation)
	}

	var ev dispatch.Event
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		svc, loadErr := s.loadForUpdate(txCtx, id)
		if loadErr != nil {
			return loadErr
		}

		caps, capErr := s.capabilities(txCtx, actor, svc)
		if capErr != nil {
			return capErr
		}
		if !caps.Has(authz.CapMutateStatus) {
			return fmt.Errorf("%w: only the assigned technician may change status", ErrForbidden)
		}
		if !lifecycle.CanTransition(svc.Status, req.Status) {
			return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, svc.Status, req.Status)
		}
		// A request only becomes SCHEDULED through technician assignment;
		// without an assignee it stays PENDING.
		if req.Status == model.StatusScheduled && svc.TechnicianID == nil {
			return fmt.Errorf("%w: assign a technician to schedule this request", ErrInvalidTransition)
		}

		prior := svc.Status
		svc.Status = req.Status
		if req.Status == model.StatusCompleted && prior != model.StatusCompleted {
			now := time.Now()
			svc.CompletedAt = &now
		}
		if saveErr := s.services.Update(txCtx, svc); saveErr != nil {
			return fmt.Errorf("failed to update service request: %w", saveErr)
		}

		// Same-value writes commit as no-ops but still append history;
		// the audit log records every accepted call, deduplicating nothing.
		actorID := actor.ID
		if histErr := s.history.AppendStatus(txCtx, &model.StatusHistoryEntry{
			ServiceID: svc.ID,
			Status:    req.Status,
			ActorID:   &actorID,
			Note:      req.Note,
		}); histErr != nil {
			return fmt.Errorf("failed to append history: %w", histErr)
		}

		ev = dispatch.Event{
			Kind:         dispatch.EventStatusChanged,
			ServiceID:    svc.ID,
			ActorID:      actor.ID,
			ClientID:     svc.ClientID,
			TechnicianID: svc.TechnicianID,
			Status:       req.Status,
		}
		return s.appendActivity(txCtx, svc.ID, model.ActionStatusChanged, &actorID, map[string]interface{}{
			"prior_status": prior,
			"new_status":   req.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ev)
	return s.reload(ctx, ev.ServiceID)
}

func (s *serviceRequestService) Cancel(ctx context.Context, actor authz.Actor, id string, note string) (*ServiceRequestResponse, error) {
	var ev dispatch.Event
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		svc, loadErr := s.loadForUpdate(txCtx, id)
		if loadErr != nil {
			return loadErr
		}

		caps, capErr := s.capabilities(txCtx, actor, svc)
		if capErr != nil {
			return capErr
		}
		// Cancellation is its own capability: clients and the constructing
		// company hold it without ever holding mutate-status.
		if !caps.Has(authz.CapCancel) {
			return fmt.Errorf("%w: you may not cancel this service request", ErrForbidden)
		}
		if lifecycle.IsTerminal(svc.Status) {
			return fmt.Errorf("%w: a %s request cannot be cancelled", ErrInvalidTransition, svc.Status)
		}

		prior := svc.Status
		svc.Status = model.StatusCancelled
		if saveErr := s.services.Update(txCtx, svc); saveErr != nil {
			return fmt.Errorf("failed to update service request: %w", saveErr)
		}

		actorID := actor.ID
		if histErr := s.history.AppendStatus(txCtx, &model.StatusHistoryEntry{
			ServiceID: svc.ID,
			Status:    model.StatusCancelled,
			ActorID:   &actorID,
			Note:      note,
		}); histErr != nil {
			return fmt.Errorf("failed to append history: %w", histErr)
		}

		ev = dispatch.Event{
			Kind:         dispatch.EventStatusChanged,
			ServiceID:    svc.ID,
			ActorID:      actor.ID,
			ClientID:     svc.ClientID,
			TechnicianID: svc.TechnicianID,
			Status:       model.StatusCancelled,
		}
		return s.appendActivity(txCtx, svc.ID, model.ActionStatusChanged, &actorID, map[string]interface{}{
			"prior_status": prior,
			"new_status":   model.StatusCancelled,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ev)
	return s.reload(ctx, ev.ServiceID)
}

// --- Deletion workflow ---

func (s *serviceRequestService) RequestDeletion(ctx context.Context, actor authz.Actor, id string) (*ServiceRequestResponse, error) {
	var ev dispatch.Event
	deleted := false
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		svc, loadErr := s.loadForUpdate(txCtx, id)
		if loadErr != nil {
			return loadErr
		}

		caps, capErr := s.capabilities(txCtx, actor, svc)
		if capErr != nil {
			return capErr
		}
		if !caps.Has(authz.CapRequestDeletion) {
			return fmt.Errorf("%w: you may not request deletion of this service request", ErrForbidden)
		}
		if !lifecycle.CanRequestDeletion(svc.DeletionStatus) {
			return fmt.Errorf("%w: a deletion request is already pending for this service", ErrConflict)
		}

		actorID := actor.ID
		if !svc.HasStarted() {
			// Work has not begun: hard delete immediately, no approval phase.
			if actErr := s.appendActivity(txCtx, svc.ID, model.ActionServiceDeleted, &actorID, map[string]interface{}{
				"requester_role": actor.Role,
				"prior_status":   svc.Status,
			}); actErr != nil {
				return actErr
			}
			if delErr := s.services.HardDelete(txCtx, svc.ID); delErr != nil {
				return fmt.Errorf("failed to delete service request: %w", delErr)
			}
			deleted = true
			ev = dispatch.Event{
				Kind:         dispatch.EventServiceDeleted,
				ServiceID:    svc.ID,
				ActorID:      actor.ID,
				ClientID:     svc.ClientID,
				TechnicianID: svc.TechnicianID,
			}
			return nil
		}

		// Work has begun: park the request pending technician sign-off.
		now := time.Now()
		svc.DeletionStatus = model.DeletionPendingApproval
		svc.DeletionRequestedBy = &actorID
		svc.DeletionRequestedAt = &now
		if saveErr := s.services.Update(txCtx, svc); saveErr != nil {
			return fmt.Errorf("failed to update service request: %w", saveErr)
		}

		ev = dispatch.Event{
			Kind:         dispatch.EventDeletionRequested,
			ServiceID:    svc.ID,
			ActorID:      actor.ID,
			ClientID:     svc.ClientID,
			TechnicianID: svc.TechnicianID,
			RequestedBy:  &actorID,
		}
		techID := ""
		if svc.TechnicianID != nil {
			techID = svc.TechnicianID.String()
		}
		return s.appendActivity(txCtx, svc.ID, model.ActionDeletionRequested, &actorID, map[string]interface{}{
			"requester_role": actor.Role,
			"prior_status":   svc.Status,
			"technician_id":  techID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ev)
	if deleted {
		return nil, nil
	}
	return s.reload(ctx, ev.ServiceID)
}

func (s *serviceRequestService) ApproveDeletion(ctx context.Context, actor authz.Actor, id string, approved bool) (*ServiceRequestResponse, error) {
	var ev dispatch.Event
	deleted := false
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		svc, loadErr := s.loadForUpdate(txCtx, id)
		if loadErr != nil {
			return loadErr
		}

		if !lifecycle.CanResolveDeletion(svc.DeletionStatus) {
			return fmt.Errorf("%w: no deletion request is pending for this service", ErrInvalidState)
		}

		caps, capErr := s.capabilities(txCtx, actor, svc)
		if capErr != nil {
			return capErr
		}
		if !caps.Has(authz.CapApproveDeletion) {
			return fmt.Errorf("%w: only the assigned technician may resolve a deletion request", ErrForbidden)
		}

		actorID := actor.ID
		requestedBy := svc.DeletionRequestedBy

		if approved {
			if actErr := s.appendActivity(txCtx, svc.ID, model.ActionDeletionApproved, &actorID, map[string]interface{}{
				"prior_status": svc.Status,
			}); actErr != nil {
				return actErr
			}
			if actErr := s.appendActivity(txCtx, svc.ID, model.ActionServiceDeleted, &actorID, nil); actErr != nil {
				return actErr
			}
			if delErr := s.services.HardDelete(txCtx, svc.ID); delErr != nil {
				return fmt.Errorf("failed to delete service request: %w", delErr)
			}
			deleted = true
			ev = dispatch.Event{
				Kind:        dispatch.EventDeletionApproved,
				ServiceID:   svc.ID,
				ActorID:     actor.ID,
				ClientID:    svc.ClientID,
				RequestedBy: requestedBy,
			}
			return nil
		}

		// Rejection clears the deletion metadata; the primary lifecycle is
		// untouched and the record stays fully active.
		svc.DeletionStatus = model.DeletionNone
		svc.DeletionRequestedBy = nil
		svc.DeletionRequestedAt = nil
		if saveErr := s.services.Update(txCtx, svc); saveErr != nil {
			return fmt.Errorf("failed to update service request: %w", saveErr)
		}

		ev = dispatch.Event{
			Kind:        dispatch.EventDeletionRejected,
			ServiceID:   svc.ID,
			ActorID:     actor.ID,
			ClientID:    svc.ClientID,
			RequestedBy: requestedBy,
		}
		return s.appendActivity(txCtx, svc.ID, model.ActionDeletionRejected, &actorID, map[string]interface{}{
			"status": svc.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ev)
	if deleted {
		return nil, nil
	}
	return s.reload(ctx, ev.ServiceID)
}

// --- History reads ---

func (s *serviceRequestService) History(ctx context.Context, actor authz.Actor, id string) ([]StatusHistoryResponse, error) {
	serviceID, err := s.authorizeRead(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.history.StatusHistory(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}

	result := make([]StatusHistoryResponse, 0, len(entries))
	for _, e := range entries {
		item := StatusHistoryResponse{
			Seq:       e.Seq,
			Status:    e.Status,
			Note:      e.Note,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.String()
		}
		if e.Actor != nil {
			item.ActorName = e.Actor.Username
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *serviceRequestService) ActivityLog(ctx context.Context, actor authz.Actor, id string) ([]ActivityLogResponse, error) {
	serviceID, err := s.authorizeRead(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.history.ActivityLog(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity log: %w", err)
	}

	result := make([]ActivityLogResponse, 0, len(entries))
	for _, e := range entries {
		item := ActivityLogResponse{
			Seq:       e.Seq,
			Action:    e.Action,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.String()
		}
		if e.Actor != nil {
			item.ActorName = e.Actor.Username
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *serviceRequestService) authorizeRead(ctx context.Context, actor authz.Actor, id string) (uuid.UUID, error) {
	serviceID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid service id", ErrValidation)
	}
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("%w: service request %s", ErrNotFound, id)
		}
		return uuid.Nil, fmt.Errorf("failed to load service request: %w", err)
	}
	caps, err := s.capabilities(ctx, actor, svc)
	if err != nil {
		return uuid.Nil, err
	}
	if !caps.Has(authz.CapView) {
		return uuid.Nil, fmt.Errorf("%w: you may not view this service request", ErrForbidden)
	}
	return serviceID, nil
}

// --- Helpers ---

func (s *serviceRequestService) appendActivity(ctx context.Context, serviceID uuid.UUID, action string, actorID *uuid.UUID, metadata map[string]interface{}) error {
	payload := "{}"
	if metadata != nil {
		raw, _ := json.Marshal(metadata)
		payload = string(raw)
	}
	if err := s.history.AppendActivity(ctx, &model.ActivityLogEntry{
		ServiceID: serviceID,
		Action:    action,
		ActorID:   actorID,
		Metadata:  payload,
	}); err != nil {
		return fmt.Errorf("failed to append activity log: %w", err)
	}
	return nil
}

func (s *serviceRequestService) reload(ctx context.Context, id uuid.UUID) (*ServiceRequestResponse, error) {
	svc, err := s.services.FindByIDWithRelations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload service request: %w", err)
	}
	resp := toServiceResponse(svc)
	return &resp, nil
}

func toServiceResponse(svc *model.ServiceRequest) ServiceRequestResponse {
	resp := ServiceRequestResponse{
		ID:             svc.ID.String(),
		ClientID:       svc.ClientID.String(),
		Category:       svc.Category,
		Description:    svc.Description,
		Street:         svc.Street,
		City:           svc.City,
		Latitude:       svc.Latitude,
		Longitude:      svc.Longitude,
		EstimatedCost:  svc.EstimatedCost.StringFixed(2),
		Status:         svc.Status,
		DeletionStatus: svc.DeletionStatus,
		CreatedAt:      svc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      svc.UpdatedAt.Format(time.RFC3339),
	}
	if svc.Client != nil {
		resp.ClientName = svc.Client.Username
	}
	if svc.TechnicianID != nil {
		id := svc.TechnicianID.String()
		resp.TechnicianID = &id
	}
	if svc.Technician != nil {
		resp.TechnicianName = svc.Technician.Username
	}
	if svc.UnitID != nil {
		id := svc.UnitID.String()
		resp.UnitID = &id
	}
	if svc.Unit != nil {
		resp.UnitLabel = svc.Unit.Label
	}
	if svc.CompletedAt != nil {
		t := svc.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &t
	}
	return resp
}
