package badge

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBadges struct {
	held map[string]bool
}

func (f *fakeBadges) Award(_ context.Context, userID uuid.UUID, code string) (bool, error) {
	key := userID.String() + "/" + code
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeBadges) ListByUser(_ context.Context, userID uuid.UUID) ([]model.UserBadge, error) {
	var out []model.UserBadge
	for key := range f.held {
		if key[:36] == userID.String() {
			out = append(out, model.UserBadge{UserID: userID, Code: key[37:]})
		}
	}
	return out, nil
}

// Only the counting methods matter here; the embedded interface panics on
// anything else, which would flag an unexpected call.
type stubServiceCounts struct {
	repository.ServiceRequestRepository
	completed int64
}

func (s stubServiceCounts) CountCompletedByTechnician(context.Context, uuid.UUID) (int64, error) {
	return s.completed, nil
}

type stubReviewCounts struct {
	repository.ReviewRepository
	written  int64
	received int64
}

func (s stubReviewCounts) CountByClient(context.Context, uuid.UUID) (int64, error) {
	return s.written, nil
}

func (s stubReviewCounts) CountByTechnician(context.Context, uuid.UUID) (int64, error) {
	return s.received, nil
}

type recordingNotifier struct {
	kinds []string
}

func (n *recordingNotifier) CreateNotification(_ context.Context, _ uuid.UUID, kind string, _ *uuid.UUID, _ string) error {
	n.kinds = append(n.kinds, kind)
	return nil
}

func codes(t *testing.T, badges *fakeBadges, userID uuid.UUID) []string {
	t.Helper()
	held, err := badges.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	out := make([]string, 0, len(held))
	for _, b := range held {
		out = append(out, b.Code)
	}
	return out
}

func TestTechnicianServiceBadges(t *testing.T) {
	badges := &fakeBadges{held: make(map[string]bool)}
	notifier := &recordingNotifier{}
	tech := uuid.New()

	e := NewEvaluator(badges, stubServiceCounts{completed: 1}, stubReviewCounts{}, notifier)
	require.NoError(t, e.Evaluate(context.Background(), tech, model.RoleTechnician, "status_changed"))
	assert.ElementsMatch(t, []string{model.BadgeFirstService}, codes(t, badges, tech))
	assert.Len(t, notifier.kinds, 1)

	// Crossing the higher threshold later awards only the missing badge.
	e = NewEvaluator(badges, stubServiceCounts{completed: 5}, stubReviewCounts{}, notifier)
	require.NoError(t, e.Evaluate(context.Background(), tech, model.RoleTechnician, "status_changed"))
	assert.ElementsMatch(t, []string{model.BadgeFirstService, model.BadgeSeasonedTech}, codes(t, badges, tech))
	assert.Len(t, notifier.kinds, 2, "no repeat notification for the already-held badge")
}

func TestEvaluateIsIdempotent(t *testing.T) {
	badges := &fakeBadges{held: make(map[string]bool)}
	notifier := &recordingNotifier{}
	tech := uuid.New()

	e := NewEvaluator(badges, stubServiceCounts{completed: 2}, stubReviewCounts{}, notifier)
	for i := 0; i < 3; i++ {
		require.NoError(t, e.Evaluate(context.Background(), tech, model.RoleTechnician, "status_changed"))
	}
	assert.ElementsMatch(t, []string{model.BadgeFirstService}, codes(t, badges, tech))
	assert.Len(t, notifier.kinds, 1)
}

func TestClientReviewBadge(t *testing.T) {
	badges := &fakeBadges{held: make(map[string]bool)}
	client := uuid.New()

	e := NewEvaluator(badges, stubServiceCounts{}, stubReviewCounts{written: 1}, nil)
	require.NoError(t, e.Evaluate(context.Background(), client, model.RoleClient, "review_created"))
	assert.ElementsMatch(t, []string{model.BadgeFirstReview}, codes(t, badges, client))
}

func TestTrustedByFive(t *testing.T) {
	badges := &fakeBadges{held: make(map[string]bool)}
	tech := uuid.New()

	e := NewEvaluator(badges, stubServiceCounts{}, stubReviewCounts{received: 4}, nil)
	require.NoError(t, e.Evaluate(context.Background(), tech, model.RoleTechnician, "review_created"))
	assert.Empty(t, codes(t, badges, tech))

	e = NewEvaluator(badges, stubServiceCounts{}, stubReviewCounts{received: 5}, nil)
	require.NoError(t, e.Evaluate(context.Background(), tech, model.RoleTechnician, "review_created"))
	assert.ElementsMatch(t, []string{model.BadgeTrustedByFive}, codes(t, badges, tech))
}

func TestRoleScoping(t *testing.T) {
	badges := &fakeBadges{held: make(map[string]bool)}
	user := uuid.New()

	// High counters on every metric, but rules only fire for matching roles.
	e := NewEvaluator(badges, stubServiceCounts{completed: 10}, stubReviewCounts{written: 10, received: 10}, nil)
	require.NoError(t, e.Evaluate(context.Background(), user, model.RoleClient, "review_created"))
	assert.ElementsMatch(t, []string{model.BadgeFirstReview}, codes(t, badges, user))

	require.NoError(t, e.Evaluate(context.Background(), user, model.RoleConstructor, "review_created"))
	assert.ElementsMatch(t, []string{model.BadgeFirstReview}, codes(t, badges, user), "no rules for constructors")
}
