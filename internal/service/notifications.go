package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
)

// NotificationService exposes a user's mailbox. The state machines append
// notifications as part of their transitions; this service only reads and
// toggles read-state.
type NotificationService struct {
	repo repository.Repository
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo repository.Repository) *NotificationService {
	return &NotificationService{repo: repo}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	ns, err := s.repo.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	return ns, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkNotificationRead(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("error marking notification read: %w", err)
	}
	return nil
}
