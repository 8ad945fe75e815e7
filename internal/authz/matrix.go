// Package authz holds the per-role capability matrix for service requests.
// It is pure: callers resolve the record (and the unit's constructing company)
// first, then ask for capabilities. No database access happens here.
package authz

import (
	"github.com/google/uuid"

	"backend/internal/model"
)

// Capability is one action class an actor may hold on a specific record.
type Capability string

const (
	CapView            Capability = "view"
	CapMutateStatus    Capability = "mutate_status"
	CapCancel          Capability = "cancel"
	CapRequestDeletion Capability = "request_deletion"
	CapApproveDeletion Capability = "approve_deletion"
)

// Actor is the authenticated caller as attested by the JWT middleware.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// Record is the narrow view of a service request the matrix needs.
// ConstructorID is the company resolved via unit -> development -> constructor,
// nil when the service has no unit.
type Record struct {
	ClientID       uuid.UUID
	TechnicianID   *uuid.UUID
	ConstructorID  *uuid.UUID
	Status         string
	DeletionStatus string
}

// Set is the capability set an actor holds on one record.
type Set map[Capability]bool

func (s Set) Has(c Capability) bool { return s[c] }

// rules maps each role to its capability function. Keeping the matrix as a
// table makes the per-role rules enumerable and testable in isolation.
var rules = map[string]func(Actor, Record) Set{
	model.RoleAdmin:       adminRule,
	model.RoleClient:      clientRule,
	model.RoleTechnician:  technicianRule,
	model.RoleConstructor: constructorRule,
}

// Capabilities returns the capability set for actor on rec. Unknown roles get
// an empty set.
func Capabilities(actor Actor, rec Record) Set {
	rule, ok := rules[actor.Role]
	if !ok {
		return Set{}
	}
	return rule(actor, rec)
}

func adminRule(Actor, Record) Set {
	return Set{
		CapView:            true,
		CapMutateStatus:    true,
		CapCancel:          true,
		CapRequestDeletion: true,
		CapApproveDeletion: true,
	}
}

func clientRule(actor Actor, rec Record) Set {
	if rec.ClientID != actor.ID {
		return Set{}
	}
	// Owning client never mutates status or approves deletion.
	return Set{
		CapView:            true,
		CapCancel:          true,
		CapRequestDeletion: true,
	}
}

func technicianRule(actor Actor, rec Record) Set {
	if rec.TechnicianID != nil && *rec.TechnicianID == actor.ID {
		set := Set{
			CapView:         true,
			CapMutateStatus: true,
			CapCancel:       true,
		}
		if rec.DeletionStatus == model.DeletionPendingApproval {
			set[CapApproveDeletion] = true
		}
		return set
	}
	// Open pool: unassigned pending requests are visible read-only so
	// technicians can pick up work.
	if rec.TechnicianID == nil && rec.Status == model.StatusPending {
		return Set{CapView: true}
	}
	return Set{}
}

func constructorRule(actor Actor, rec Record) Set {
	// No unit means no ownership chain, which means no capabilities.
	if rec.ConstructorID == nil || *rec.ConstructorID != actor.ID {
		return Set{}
	}
	return Set{
		CapView:            true,
		CapCancel:          true,
		CapRequestDeletion: true,
	}
}
