package authz

import (
	"testing"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClientCapabilities(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	rec := Record{ClientID: owner, Status: model.StatusPending, DeletionStatus: model.DeletionNone}

	caps := Capabilities(Actor{ID: owner, Role: model.RoleClient}, rec)
	assert.True(t, caps.Has(CapView))
	assert.True(t, caps.Has(CapCancel))
	assert.True(t, caps.Has(CapRequestDeletion))
	assert.False(t, caps.Has(CapMutateStatus))
	assert.False(t, caps.Has(CapApproveDeletion))

	assert.Empty(t, Capabilities(Actor{ID: stranger, Role: model.RoleClient}, rec))
}

func TestTechnicianAssigned(t *testing.T) {
	tech := uuid.New()
	rec := Record{
		ClientID:       uuid.New(),
		TechnicianID:   &tech,
		Status:         model.StatusScheduled,
		DeletionStatus: model.DeletionNone,
	}

	caps := Capabilities(Actor{ID: tech, Role: model.RoleTechnician}, rec)
	assert.True(t, caps.Has(CapView))
	assert.True(t, caps.Has(CapMutateStatus))
	assert.True(t, caps.Has(CapCancel))
	assert.False(t, caps.Has(CapRequestDeletion))
	assert.False(t, caps.Has(CapApproveDeletion), "approval requires a pending deletion request")

	rec.DeletionStatus = model.DeletionPendingApproval
	caps = Capabilities(Actor{ID: tech, Role: model.RoleTechnician}, rec)
	assert.True(t, caps.Has(CapApproveDeletion))
}

func TestTechnicianOpenPool(t *testing.T) {
	tech := Actor{ID: uuid.New(), Role: model.RoleTechnician}

	pool := Record{ClientID: uuid.New(), Status: model.StatusPending, DeletionStatus: model.DeletionNone}
	caps := Capabilities(tech, pool)
	assert.True(t, caps.Has(CapView), "unassigned pending requests are visible")
	assert.False(t, caps.Has(CapMutateStatus))
	assert.False(t, caps.Has(CapCancel))

	// Assigned to someone else: invisible regardless of status.
	other := uuid.New()
	assert.Empty(t, Capabilities(tech, Record{
		ClientID:       uuid.New(),
		TechnicianID:   &other,
		Status:         model.StatusScheduled,
		DeletionStatus: model.DeletionNone,
	}))

	// Unassigned but past pending: not pool material.
	assert.Empty(t, Capabilities(tech, Record{
		ClientID:       uuid.New(),
		Status:         model.StatusCancelled,
		DeletionStatus: model.DeletionNone,
	}))
}

func TestConstructorOwnershipChain(t *testing.T) {
	constructor := uuid.New()
	rec := Record{
		ClientID:       uuid.New(),
		ConstructorID:  &constructor,
		Status:         model.StatusPending,
		DeletionStatus: model.DeletionNone,
	}

	caps := Capabilities(Actor{ID: constructor, Role: model.RoleConstructor}, rec)
	assert.True(t, caps.Has(CapView))
	assert.True(t, caps.Has(CapCancel))
	assert.True(t, caps.Has(CapRequestDeletion))
	assert.False(t, caps.Has(CapMutateStatus))

	// A different company, or a request with no unit at all, grants nothing.
	assert.Empty(t, Capabilities(Actor{ID: uuid.New(), Role: model.RoleConstructor}, rec))
	rec.ConstructorID = nil
	assert.Empty(t, Capabilities(Actor{ID: constructor, Role: model.RoleConstructor}, rec))
}

func TestUnknownRole(t *testing.T) {
	assert.Empty(t, Capabilities(Actor{ID: uuid.New(), Role: "auditor"}, Record{ClientID: uuid.New()}))
}

// Admin capabilities must be a superset of every other role's capabilities on
// every record shape.
func TestAdminSuperset(t *testing.T) {
	actorID := uuid.New()
	tech := uuid.New()
	constructor := uuid.New()

	records := []Record{
		{ClientID: actorID, Status: model.StatusPending, DeletionStatus: model.DeletionNone},
		{ClientID: uuid.New(), TechnicianID: &tech, Status: model.StatusScheduled, DeletionStatus: model.DeletionNone},
		{ClientID: uuid.New(), TechnicianID: &tech, Status: model.StatusInProgress, DeletionStatus: model.DeletionPendingApproval},
		{ClientID: uuid.New(), ConstructorID: &constructor, Status: model.StatusCompleted, DeletionStatus: model.DeletionNone},
		{ClientID: uuid.New(), Status: model.StatusCancelled, DeletionStatus: model.DeletionNone},
	}
	roles := []string{model.RoleClient, model.RoleTechnician, model.RoleConstructor}

	for _, rec := range records {
		adminCaps := Capabilities(Actor{ID: uuid.New(), Role: model.RoleAdmin}, rec)
		for _, role := range roles {
			for _, id := range []uuid.UUID{actorID, tech, constructor} {
				caps := Capabilities(Actor{ID: id, Role: role}, rec)
				for cap := range caps {
					if caps.Has(cap) {
						assert.Truef(t, adminCaps.Has(cap),
							"admin missing %s held by %s on %+v", cap, role, rec)
					}
				}
			}
		}
	}
}
