package service

import (
	"context"
	"sync"
	"time"

	"backend/internal/dispatch"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory collaborators. The services only talk to repository interfaces
// and the transaction manager, so the lifecycle logic is testable without a
// database.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []dispatch.Event
}

func (d *recordingDispatcher) Dispatch(ev dispatch.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *recordingDispatcher) kinds() []dispatch.EventKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dispatch.EventKind, 0, len(d.events))
	for _, ev := range d.events {
		out = append(out, ev.Kind)
	}
	return out
}

// --- service request repo ---

type fakeServiceRepo struct {
	mu         sync.Mutex
	items      map[uuid.UUID]*model.ServiceRequest
	unreviewed map[uuid.UUID]int64 // per client, for the creation block
}

func newFakeServiceRepo() *fakeServiceRepo {
	return &fakeServiceRepo{
		items:      make(map[uuid.UUID]*model.ServiceRequest),
		unreviewed: make(map[uuid.UUID]int64),
	}
}

func (r *fakeServiceRepo) Create(_ context.Context, svc *model.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	svc.CreatedAt = time.Now()
	svc.UpdatedAt = svc.CreatedAt
	cp := *svc
	r.items[svc.ID] = &cp
	return nil
}

func (r *fakeServiceRepo) find(id uuid.UUID) (*model.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *svc
	return &cp, nil
}

func (r *fakeServiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	return r.find(id)
}

func (r *fakeServiceRepo) FindByIDWithRelations(_ context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	return r.find(id)
}

func (r *fakeServiceRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	return r.find(id)
}

func (r *fakeServiceRepo) List(_ context.Context, filter repository.ServiceRequestFilter) ([]model.ServiceRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ServiceRequest
	for _, svc := range r.items {
		if filter.ClientID != nil && svc.ClientID != *filter.ClientID {
			continue
		}
		if filter.TechnicianID != nil && (svc.TechnicianID == nil || *svc.TechnicianID != *filter.TechnicianID) {
			continue
		}
		if filter.OpenPool && (svc.TechnicianID != nil || svc.Status != model.StatusPending) {
			continue
		}
		if filter.Status != "" && svc.Status != filter.Status {
			continue
		}
		out = append(out, *svc)
	}
	return out, int64(len(out)), nil
}

func (r *fakeServiceRepo) Update(_ context.Context, svc *model.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[svc.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	svc.UpdatedAt = time.Now()
	cp := *svc
	r.items[svc.ID] = &cp
	return nil
}

func (r *fakeServiceRepo) HardDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *fakeServiceRepo) UpdateCoordinates(_ context.Context, id uuid.UUID, lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if svc, ok := r.items[id]; ok {
		svc.Latitude = &lat
		svc.Longitude = &lng
	}
	return nil
}

func (r *fakeServiceRepo) CountCompletedWithoutReview(_ context.Context, clientID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unreviewed[clientID], nil
}

func (r *fakeServiceRepo) CountCompletedByTechnician(_ context.Context, technicianID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, svc := range r.items {
		if svc.TechnicianID != nil && *svc.TechnicianID == technicianID && svc.Status == model.StatusCompleted {
			n++
		}
	}
	return n, nil
}

// --- history repo ---

type fakeHistoryRepo struct {
	mu         sync.Mutex
	seq        uint64
	statuses   []model.StatusHistoryEntry
	activities []model.ActivityLogEntry
}

func newFakeHistoryRepo() *fakeHistoryRepo { return &fakeHistoryRepo{} }

func (r *fakeHistoryRepo) AppendStatus(_ context.Context, entry *model.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	entry.Seq = r.seq
	entry.CreatedAt = time.Now()
	r.statuses = append(r.statuses, *entry)
	return nil
}

func (r *fakeHistoryRepo) AppendActivity(_ context.Context, entry *model.ActivityLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	entry.Seq = r.seq
	entry.CreatedAt = time.Now()
	r.activities = append(r.activities, *entry)
	return nil
}

func (r *fakeHistoryRepo) StatusHistory(_ context.Context, serviceID uuid.UUID) ([]model.StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StatusHistoryEntry
	for _, e := range r.statuses {
		if e.ServiceID == serviceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) ActivityLog(_ context.Context, serviceID uuid.UUID) ([]model.ActivityLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ActivityLogEntry
	for _, e := range r.activities {
		if e.ServiceID == serviceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) CountStatusEntries(_ context.Context, serviceID uuid.UUID) (int64, error) {
	entries, _ := r.StatusHistory(context.Background(), serviceID)
	return int64(len(entries)), nil
}

func (r *fakeHistoryRepo) actions(serviceID uuid.UUID) []string {
	entries, _ := r.ActivityLog(context.Background(), serviceID)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

// --- property repo ---

type fakePropertyRepo struct {
	mu            sync.Mutex
	units         map[uuid.UUID]*model.Unit
	developments  map[uuid.UUID]*model.Development
	constructorOf map[uuid.UUID]uuid.UUID // unit -> constructor
}

func newFakePropertyRepo() *fakePropertyRepo {
	return &fakePropertyRepo{
		units:         make(map[uuid.UUID]*model.Unit),
		developments:  make(map[uuid.UUID]*model.Development),
		constructorOf: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *fakePropertyRepo) addUnit(constructorID uuid.UUID) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.units[id] = &model.Unit{ID: id, Label: "A-101"}
	r.constructorOf[id] = constructorID
	return id
}

func (r *fakePropertyRepo) CreateDevelopment(_ context.Context, dev *model.Development) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dev.ID == uuid.Nil {
		dev.ID = uuid.New()
	}
	cp := *dev
	r.developments[dev.ID] = &cp
	return nil
}

func (r *fakePropertyRepo) CreateUnit(_ context.Context, unit *model.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	cp := *unit
	r.units[unit.ID] = &cp
	if dev, ok := r.developments[unit.DevelopmentID]; ok {
		r.constructorOf[unit.ID] = dev.ConstructorID
	}
	return nil
}

func (r *fakePropertyRepo) FindDevelopmentByID(_ context.Context, id uuid.UUID) (*model.Development, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, ok := r.developments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *dev
	return &cp, nil
}

func (r *fakePropertyRepo) FindUnitByID(_ context.Context, id uuid.UUID) (*model.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	unit, ok := r.units[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *unit
	return &cp, nil
}

func (r *fakePropertyRepo) ListDevelopments(_ context.Context, constructorID *uuid.UUID, page, limit int) ([]model.Development, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Development
	for _, dev := range r.developments {
		if constructorID != nil && dev.ConstructorID != *constructorID {
			continue
		}
		out = append(out, *dev)
	}
	return out, int64(len(out)), nil
}

func (r *fakePropertyRepo) AssignUnitOwner(_ context.Context, unitID, ownerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	unit, ok := r.units[unitID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	unit.OwnerID = &ownerID
	return nil
}

func (r *fakePropertyRepo) ResolveConstructingCompany(_ context.Context, unitID uuid.UUID) (*uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.constructorOf[unitID]
	if !ok {
		return nil, nil
	}
	cp := id
	return &cp, nil
}

// --- user repo ---

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*model.User
	tokens map[string]*model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[uuid.UUID]*model.User),
		tokens: make(map[string]*model.RefreshToken),
	}
}

func (r *fakeUserRepo) add(role string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.users[id] = &model.User{ID: id, Username: role + "-" + id.String()[:8], Role: role, IsActive: true}
	return id
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context, role string, page, limit int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, user := range r.users {
		if role != "" && user.Role != role {
			continue
		}
		out = append(out, *user)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return gorm.ErrRecordNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, parsed)
	return nil
}

func (r *fakeUserRepo) SaveRefreshToken(_ context.Context, token *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.tokens[token.Token] = &cp
	return nil
}

func (r *fakeUserRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

// --- review repo ---

type fakeReviewRepo struct {
	mu      sync.Mutex
	reviews map[uuid.UUID]*model.Review // keyed by service id
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: make(map[uuid.UUID]*model.Review)}
}

func (r *fakeReviewRepo) Create(_ context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	review.CreatedAt = time.Now()
	cp := *review
	r.reviews[review.ServiceID] = &cp
	return nil
}

func (r *fakeReviewRepo) FindByServiceID(_ context.Context, serviceID uuid.UUID) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[serviceID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *review
	return &cp, nil
}

func (r *fakeReviewRepo) ListByTechnician(_ context.Context, technicianID uuid.UUID, page, limit int) ([]model.Review, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Review
	for _, review := range r.reviews {
		if review.TechnicianID == technicianID {
			out = append(out, *review)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeReviewRepo) CountByClient(_ context.Context, clientID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, review := range r.reviews {
		if review.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (r *fakeReviewRepo) CountByTechnician(_ context.Context, technicianID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, review := range r.reviews {
		if review.TechnicianID == technicianID {
			n++
		}
	}
	return n, nil
}
