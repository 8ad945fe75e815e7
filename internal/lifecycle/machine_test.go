package lifecycle

import (
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{model.StatusPending, model.StatusScheduled, true},
		{model.StatusPending, model.StatusCancelled, true},
		{model.StatusPending, model.StatusInProgress, false},
		{model.StatusPending, model.StatusCompleted, false},
		{model.StatusScheduled, model.StatusInProgress, true},
		{model.StatusScheduled, model.StatusCancelled, true},
		{model.StatusScheduled, model.StatusCompleted, false},
		{model.StatusScheduled, model.StatusPending, false},
		{model.StatusInProgress, model.StatusCompleted, true},
		{model.StatusInProgress, model.StatusCancelled, true},
		{model.StatusInProgress, model.StatusScheduled, false},
		{model.StatusCompleted, model.StatusCancelled, false},
		{model.StatusCancelled, model.StatusPending, false},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSameValueWrites(t *testing.T) {
	// A repeat of the current status commits as a no-op on live states only.
	assert.True(t, CanTransition(model.StatusPending, model.StatusPending))
	assert.True(t, CanTransition(model.StatusInProgress, model.StatusInProgress))
	assert.False(t, CanTransition(model.StatusCompleted, model.StatusCompleted))
	assert.False(t, CanTransition(model.StatusCancelled, model.StatusCancelled))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(model.StatusCompleted))
	assert.True(t, IsTerminal(model.StatusCancelled))
	assert.False(t, IsTerminal(model.StatusPending))
	assert.False(t, IsTerminal(model.StatusScheduled))
	assert.False(t, IsTerminal(model.StatusInProgress))
	assert.False(t, IsTerminal("GARBAGE"))
}

func TestIsStatus(t *testing.T) {
	for _, s := range []string{
		model.StatusPending, model.StatusScheduled, model.StatusInProgress,
		model.StatusCompleted, model.StatusCancelled,
	} {
		assert.True(t, IsStatus(s))
	}
	assert.False(t, IsStatus("ARCHIVED"))
	assert.False(t, IsStatus(""))
}

func TestDeletionSubMachine(t *testing.T) {
	assert.True(t, CanRequestDeletion(model.DeletionNone))
	assert.False(t, CanRequestDeletion(model.DeletionPendingApproval))

	assert.True(t, CanResolveDeletion(model.DeletionPendingApproval))
	assert.False(t, CanResolveDeletion(model.DeletionNone))
	assert.False(t, CanResolveDeletion(model.DeletionApproved))
	assert.False(t, CanResolveDeletion(model.DeletionRejected))
}
