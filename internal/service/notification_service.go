package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

type NotificationResponse struct {
	ID               string  `json:"id"`
	Kind             string  `json:"kind"`
	RelatedServiceID *string `json:"related_service_id"`
	Text             string  `json:"text"`
	IsRead           bool    `json:"is_read"`
	CreatedAt        string  `json:"created_at"`
}

// NotificationService is the notification sink consumed by the dispatcher and
// the read side for users' notification feeds. Email delivery is best-effort:
// the in-app row is the source of truth, a failed SMTP send is only logged.
type NotificationService interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, kind string, relatedServiceID *uuid.UUID, text string) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, id string, userID uuid.UUID) error
}

type notificationService struct {
	repo  repository.NotificationRepository
	users repository.UserRepository
}

func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository) NotificationService {
	return &notificationService{repo: repo, users: users}
}

func (s *notificationService) CreateNotification(ctx context.Context, userID uuid.UUID, kind string, relatedServiceID *uuid.UUID, text string) error {
	n := &model.Notification{
		UserID:           userID,
		Kind:             kind,
		RelatedServiceID: relatedServiceID,
		Text:             text,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	s.sendEmail(ctx, userID, kind, text)
	return nil
}

// sendEmail delivers the notification by SMTP when configured.
func (s *notificationService) sendEmail(ctx context.Context, userID uuid.UUID, kind, text string) {
	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		return
	}
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &smtpPort)
	}

	user, err := s.users.GetByID(ctx, userID.String())
	if err != nil {
		log.Printf("notification email: user %s not found: %v", userID, err)
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", "Service request update")
	m.SetBody("text/plain", text)
	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	if err := d.DialAndSend(m); err != nil {
		log.Printf("notification email: send to %s failed: %v", user.Email, err)
	}
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	notifications, total, err := s.repo.ListByUser(ctx, userID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	result := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		item := NotificationResponse{
			ID:        n.ID.String(),
			Kind:      n.Kind,
			Text:      n.Text,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
		if n.RelatedServiceID != nil {
			id := n.RelatedServiceID.String()
			item.RelatedServiceID = &id
		}
		result = append(result, item)
	}
	return result, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string, userID uuid.UUID) error {
	notificationID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid notification id", ErrValidation)
	}
	return s.repo.MarkRead(ctx, notificationID, userID)
}
