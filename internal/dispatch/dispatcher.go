// Package dispatch decouples side effects (notifications, badge awards,
// geocoding, websocket pushes) from the transaction that produced them.
// Events are handed to a buffered channel and consumed by worker goroutines;
// a failing collaborator is logged and swallowed, never surfaced to the
// caller of the triggering operation.
package dispatch

import (
	"context"
	"encoding/json"
	"log"

	"backend/internal/model"

	"github.com/google/uuid"

	"golang.org/x/sync/errgroup"
)

// EventKind enumerates committed transitions the dispatcher reacts to.
type EventKind string

const (
	EventServiceCreated     EventKind = "service_created"
	EventTechnicianAssigned EventKind = "technician_assigned"
	EventStatusChanged      EventKind = "status_changed"
	EventDeletionRequested  EventKind = "deletion_requested"
	EventDeletionApproved   EventKind = "deletion_approved"
	EventDeletionRejected   EventKind = "deletion_rejected"
	EventServiceDeleted     EventKind = "service_deleted"
	EventReviewCreated      EventKind = "review_created"
)

// Event carries everything the sinks need. The service row may already be
// gone by the time a deletion event is handled, so the payload is
// self-contained.
type Event struct {
	Kind         EventKind
	ServiceID    uuid.UUID
	ActorID      uuid.UUID
	ClientID     uuid.UUID
	TechnicianID *uuid.UUID
	RequestedBy  *uuid.UUID // deletion requester
	Status       string     // target status for status_changed
	Address      string     // free-form address for geocoding
}

// NotificationSink persists an in-app notification for a user.
type NotificationSink interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, kind string, relatedServiceID *uuid.UUID, text string) error
}

// BadgeEvaluator re-runs the badge rules for a user after a qualifying event.
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, userID uuid.UUID, role string, eventKind string) error
}

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

// CoordinateWriter stores resolved coordinates back onto the service row.
type CoordinateWriter interface {
	UpdateCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error
}

// Broadcaster pushes a serialized event to connected websocket clients.
type Broadcaster interface {
	GetBroadcast() chan []byte
}

// Dispatcher fans committed events out to the collaborators.
type Dispatcher struct {
	events chan Event

	notifications NotificationSink
	badges        BadgeEvaluator
	geocoder      Geocoder
	coords        CoordinateWriter
	hub           Broadcaster
}

// New builds a Dispatcher. Any collaborator may be nil; the matching side
// effects are then skipped.
func New(buffer int, notifications NotificationSink, badges BadgeEvaluator, geocoder Geocoder, coords CoordinateWriter, hub Broadcaster) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		events:        make(chan Event, buffer),
		notifications: notifications,
		badges:        badges,
		geocoder:      geocoder,
		coords:        coords,
		hub:           hub,
	}
}

// Dispatch enqueues an event without blocking the caller. When the buffer is
// full the event is dropped and logged; delivery is at-least-once at best and
// a lost effect on shutdown is acceptable.
func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.events <- ev:
	default:
		log.Printf("dispatch: buffer full, dropping %s for service %s", ev.Kind, ev.ServiceID)
	}
}

// Run consumes events with n workers until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 2
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case ev := <-d.events:
					d.handle(ctx, ev)
				}
			}
		})
	}
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Printf("dispatch: workers stopped: %v", err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventServiceCreated:
		d.geocode(ctx, ev)
		d.evaluateBadges(ctx, ev.ClientID, model.RoleClient, string(ev.Kind))
	case EventTechnicianAssigned:
		if ev.TechnicianID != nil {
			d.notify(ctx, *ev.TechnicianID, model.NotifTechnicianAssigned, ev.ServiceID,
				"You have been assigned to a new service request")
		}
	case EventStatusChanged:
		d.notify(ctx, ev.ClientID, model.NotifStatusChanged, ev.ServiceID,
			"Your service request is now "+ev.Status)
		if ev.Status == model.StatusCompleted && ev.TechnicianID != nil {
			d.evaluateBadges(ctx, *ev.TechnicianID, model.RoleTechnician, "service_completed")
		}
	case EventDeletionRequested:
		if ev.TechnicianID != nil {
			d.notify(ctx, *ev.TechnicianID, model.NotifDeletionRequested, ev.ServiceID,
				"Deletion of an in-progress service request needs your approval")
		}
	case EventDeletionApproved:
		if ev.RequestedBy != nil {
			d.notify(ctx, *ev.RequestedBy, model.NotifDeletionResolved, ev.ServiceID,
				"Your deletion request was approved; the service request has been removed")
		}
	case EventDeletionRejected:
		if ev.RequestedBy != nil {
			d.notify(ctx, *ev.RequestedBy, model.NotifDeletionResolved, ev.ServiceID,
				"Your deletion request was rejected; the service request stays active")
		}
	case EventServiceDeleted:
		if ev.ActorID != ev.ClientID {
			d.notify(ctx, ev.ClientID, model.NotifDeletionResolved, ev.ServiceID,
				"Your service request has been removed")
		}
	case EventReviewCreated:
		d.evaluateBadges(ctx, ev.ClientID, model.RoleClient, "review_created")
		if ev.TechnicianID != nil {
			d.evaluateBadges(ctx, *ev.TechnicianID, model.RoleTechnician, "review_received")
		}
	}

	d.broadcast(ev)
}

func (d *Dispatcher) notify(ctx context.Context, userID uuid.UUID, kind string, serviceID uuid.UUID, text string) {
	if d.notifications == nil {
		return
	}
	id := serviceID
	if err := d.notifications.CreateNotification(ctx, userID, kind, &id, text); err != nil {
		log.Printf("dispatch: notification failed for user %s: %v", userID, err)
	}
}

func (d *Dispatcher) evaluateBadges(ctx context.Context, userID uuid.UUID, role, eventKind string) {
	if d.badges == nil {
		return
	}
	if err := d.badges.Evaluate(ctx, userID, role, eventKind); err != nil {
		log.Printf("dispatch: badge evaluation failed for user %s: %v", userID, err)
	}
}

func (d *Dispatcher) geocode(ctx context.Context, ev Event) {
	if d.geocoder == nil || d.coords == nil || ev.Address == "" {
		return
	}
	lat, lng, err := d.geocoder.Geocode(ctx, ev.Address)
	if err != nil {
		log.Printf("dispatch: geocoding failed for service %s: %v", ev.ServiceID, err)
		return
	}
	if err := d.coords.UpdateCoordinates(ctx, ev.ServiceID, lat, lng); err != nil {
		log.Printf("dispatch: storing coordinates failed for service %s: %v", ev.ServiceID, err)
	}
}

func (d *Dispatcher) broadcast(ev Event) {
	if d.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event":      string(ev.Kind),
		"service_id": ev.ServiceID.String(),
		"status":     ev.Status,
	})
	if err != nil {
		return
	}
	select {
	case d.hub.GetBroadcast() <- payload:
	default:
		// Hub not draining; skip rather than stall a worker.
	}
}
