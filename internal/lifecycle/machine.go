// Package lifecycle validates status transitions for service requests.
// The tables here are the single source of truth for which edges exist;
// ServiceRequestService consults them inside its transactions.
package lifecycle

import "backend/internal/model"

// transitions enumerates the legal edges of the primary lifecycle.
// COMPLETED and CANCELLED are terminal: no outgoing edges.
var transitions = map[string][]string{
	model.StatusPending:    {model.StatusScheduled, model.StatusCancelled},
	model.StatusScheduled:  {model.StatusInProgress, model.StatusCancelled},
	model.StatusInProgress: {model.StatusCompleted, model.StatusCancelled},
	model.StatusCompleted:  {},
	model.StatusCancelled:  {},
}

// deletionTransitions enumerates the deletion sub-machine. REJECTED resets to
// NONE immediately, so only NONE and PENDING_APPROVAL are ever persisted.
var deletionTransitions = map[string][]string{
	model.DeletionNone:            {model.DeletionPendingApproval},
	model.DeletionPendingApproval: {model.DeletionApproved, model.DeletionRejected},
}

// IsStatus reports whether s is a known primary status value.
func IsStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further primary transitions exist from s.
func IsTerminal(s string) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether from -> to is a legal primary edge.
// A same-value write is allowed on non-terminal states: it commits as a no-op
// but still appends history.
func CanTransition(from, to string) bool {
	if from == to {
		return !IsTerminal(from)
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanRequestDeletion reports whether a new deletion request may be opened.
func CanRequestDeletion(deletionStatus string) bool {
	for _, next := range deletionTransitions[deletionStatus] {
		if next == model.DeletionPendingApproval {
			return true
		}
	}
	return false
}

// CanResolveDeletion reports whether an approve/reject decision is possible.
func CanResolveDeletion(deletionStatus string) bool {
	return deletionStatus == model.DeletionPendingApproval
}
