package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkCall struct {
	userID uuid.UUID
	kind   string
}

type fakeSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (s *fakeSink) CreateNotification(_ context.Context, userID uuid.UUID, kind string, _ *uuid.UUID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{userID: userID, kind: kind})
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fakeBadges struct {
	evaluated []string // "role/eventKind"
}

func (b *fakeBadges) Evaluate(_ context.Context, _ uuid.UUID, role string, eventKind string) error {
	b.evaluated = append(b.evaluated, role+"/"+eventKind)
	return nil
}

type fakeGeocoder struct {
	addresses []string
}

func (g *fakeGeocoder) Geocode(_ context.Context, address string) (float64, float64, error) {
	g.addresses = append(g.addresses, address)
	return 51.9, 4.5, nil
}

type fakeCoords struct {
	updated map[uuid.UUID][2]float64
}

func (c *fakeCoords) UpdateCoordinates(_ context.Context, id uuid.UUID, lat, lng float64) error {
	c.updated[id] = [2]float64{lat, lng}
	return nil
}

type fakeHub struct {
	ch chan []byte
}

func (h *fakeHub) GetBroadcast() chan []byte { return h.ch }

func TestServiceCreatedTriggersGeocodingAndBroadcast(t *testing.T) {
	sink := &fakeSink{}
	geo := &fakeGeocoder{}
	coords := &fakeCoords{updated: make(map[uuid.UUID][2]float64)}
	hub := &fakeHub{ch: make(chan []byte, 1)}
	d := New(8, sink, nil, geo, coords, hub)

	serviceID := uuid.New()
	d.handle(context.Background(), Event{
		Kind:      EventServiceCreated,
		ServiceID: serviceID,
		ClientID:  uuid.New(),
		Address:   "12 Harbour Rd, Rotterdam",
	})

	assert.Equal(t, []string{"12 Harbour Rd, Rotterdam"}, geo.addresses)
	assert.Equal(t, [2]float64{51.9, 4.5}, coords.updated[serviceID])

	select {
	case payload := <-hub.ch:
		assert.Contains(t, string(payload), "service_created")
		assert.Contains(t, string(payload), serviceID.String())
	default:
		t.Fatal("expected a broadcast payload")
	}
}

func TestCompletionEvaluatesTechnicianBadges(t *testing.T) {
	sink := &fakeSink{}
	badges := &fakeBadges{}
	d := New(8, sink, badges, nil, nil, nil)

	client := uuid.New()
	tech := uuid.New()
	d.handle(context.Background(), Event{
		Kind:         EventStatusChanged,
		ServiceID:    uuid.New(),
		ClientID:     client,
		TechnicianID: &tech,
		Status:       model.StatusCompleted,
	})

	require.Len(t, sink.calls, 1)
	assert.Equal(t, client, sink.calls[0].userID)
	assert.Equal(t, model.NotifStatusChanged, sink.calls[0].kind)
	assert.Equal(t, []string{model.RoleTechnician + "/service_completed"}, badges.evaluated)
}

func TestReviewCreatedEvaluatesBothParties(t *testing.T) {
	badges := &fakeBadges{}
	d := New(8, nil, badges, nil, nil, nil)

	tech := uuid.New()
	d.handle(context.Background(), Event{
		Kind:         EventReviewCreated,
		ServiceID:    uuid.New(),
		ClientID:     uuid.New(),
		TechnicianID: &tech,
	})

	assert.Equal(t, []string{
		model.RoleClient + "/review_created",
		model.RoleTechnician + "/review_received",
	}, badges.evaluated)
}

func TestDeletionNotifications(t *testing.T) {
	sink := &fakeSink{}
	d := New(8, sink, nil, nil, nil, nil)

	tech := uuid.New()
	requester := uuid.New()
	d.handle(context.Background(), Event{
		Kind: EventDeletionRequested, ServiceID: uuid.New(), TechnicianID: &tech,
	})
	d.handle(context.Background(), Event{
		Kind: EventDeletionApproved, ServiceID: uuid.New(), RequestedBy: &requester,
	})
	d.handle(context.Background(), Event{
		Kind: EventDeletionRejected, ServiceID: uuid.New(), RequestedBy: &requester,
	})

	require.Len(t, sink.calls, 3)
	assert.Equal(t, tech, sink.calls[0].userID)
	assert.Equal(t, model.NotifDeletionRequested, sink.calls[0].kind)
	assert.Equal(t, requester, sink.calls[1].userID)
	assert.Equal(t, model.NotifDeletionResolved, sink.calls[1].kind)
	assert.Equal(t, model.NotifDeletionResolved, sink.calls[2].kind)
}

func TestServiceDeletedSkipsSelfNotification(t *testing.T) {
	sink := &fakeSink{}
	d := New(8, sink, nil, nil, nil, nil)

	client := uuid.New()
	d.handle(context.Background(), Event{
		Kind: EventServiceDeleted, ServiceID: uuid.New(), ActorID: client, ClientID: client,
	})
	assert.Empty(t, sink.calls, "the client who deleted their own request is not notified")

	d.handle(context.Background(), Event{
		Kind: EventServiceDeleted, ServiceID: uuid.New(), ActorID: uuid.New(), ClientID: client,
	})
	require.Len(t, sink.calls, 1)
	assert.Equal(t, client, sink.calls[0].userID)
}

// Dispatch never blocks the caller, even with a full buffer and no workers.
func TestDispatchDropsWhenFull(t *testing.T) {
	d := New(1, nil, nil, nil, nil, nil)
	for i := 0; i < 10; i++ {
		d.Dispatch(Event{Kind: EventStatusChanged, ServiceID: uuid.New()})
	}
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	sink := &fakeSink{}
	done := make(chan struct{})
	d := New(8, sink, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		d.Run(ctx, 1)
		close(done)
	}()

	tech := uuid.New()
	d.Dispatch(Event{Kind: EventTechnicianAssigned, ServiceID: uuid.New(), TechnicianID: &tech})

	assert.Eventually(t, func() bool {
		return sink.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
