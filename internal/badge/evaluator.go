// Package badge is a small rule engine awarding achievement badges the first
// time a counter crosses its threshold. Awards are strictly monotonic: the
// unique (user, code) index makes re-evaluation idempotent, so the evaluator
// can safely run after every qualifying event.
package badge

import (
	"context"
	"fmt"
	"log"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// Rule ties a badge code to the counter it watches.
type Rule struct {
	Code      string
	Role      string
	Threshold int64
	Count     func(ctx context.Context, e *Evaluator, userID uuid.UUID) (int64, error)
}

type Evaluator struct {
	badges   repository.BadgeRepository
	services repository.ServiceRequestRepository
	reviews  repository.ReviewRepository
	notify   Notifier

	rules []Rule
}

// Notifier lets the evaluator announce awards; nil disables announcements.
type Notifier interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, kind string, relatedServiceID *uuid.UUID, text string) error
}

func NewEvaluator(
	badges repository.BadgeRepository,
	services repository.ServiceRequestRepository,
	reviews repository.ReviewRepository,
	notify Notifier,
) *Evaluator {
	e := &Evaluator{badges: badges, services: services, reviews: reviews, notify: notify}
	e.rules = []Rule{
		{
			Code: model.BadgeFirstService, Role: model.RoleTechnician, Threshold: 1,
			Count: countCompletedServices,
		},
		{
			Code: model.BadgeSeasonedTech, Role: model.RoleTechnician, Threshold: 5,
			Count: countCompletedServices,
		},
		{
			Code: model.BadgeFirstReview, Role: model.RoleClient, Threshold: 1,
			Count: countReviewsWritten,
		},
		{
			Code: model.BadgeTrustedByFive, Role: model.RoleTechnician, Threshold: 5,
			Count: countReviewsReceived,
		},
	}
	return e
}

func countCompletedServices(ctx context.Context, e *Evaluator, userID uuid.UUID) (int64, error) {
	return e.services.CountCompletedByTechnician(ctx, userID)
}

func countReviewsWritten(ctx context.Context, e *Evaluator, userID uuid.UUID) (int64, error) {
	return e.reviews.CountByClient(ctx, userID)
}

func countReviewsReceived(ctx context.Context, e *Evaluator, userID uuid.UUID) (int64, error) {
	return e.reviews.CountByTechnician(ctx, userID)
}

// Evaluate re-runs every rule matching the user's role. The eventKind is
// advisory; counting from the store keeps the engine correct even when
// events arrive more than once.
func (e *Evaluator) Evaluate(ctx context.Context, userID uuid.UUID, role string, eventKind string) error {
	for _, rule := range e.rules {
		if rule.Role != role {
			continue
		}
		count, err := rule.Count(ctx, e, userID)
		if err != nil {
			return fmt.Errorf("badge %s: counting failed: %w", rule.Code, err)
		}
		if count < rule.Threshold {
			continue
		}
		awarded, err := e.badges.Award(ctx, userID, rule.Code)
		if err != nil {
			return fmt.Errorf("badge %s: award failed: %w", rule.Code, err)
		}
		if awarded && e.notify != nil {
			if err := e.notify.CreateNotification(ctx, userID, model.NotifBadgeAwarded, nil,
				"You earned the "+rule.Code+" badge"); err != nil {
				log.Printf("badge %s: notification failed: %v", rule.Code, err)
			}
		}
	}
	return nil
}
