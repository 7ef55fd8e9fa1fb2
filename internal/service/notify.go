package service

import (
	"context"
	"fmt"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
)

// Notification fan-out runs inside the same transaction as the transition
// it stems from, so a failed transition leaves no partial notification set.

func notify(ctx context.Context, st repository.Store, userID, message string, itemID, requestID *string) error {
	n := &models.Notification{
		UserID:    userID,
		Message:   message,
		ItemID:    itemID,
		RequestID: requestID,
	}
	if err := st.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

func notifyAdmins(ctx context.Context, st repository.Store, message string, itemID, requestID *string) error {
	admins, err := st.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("error listing admins: %w", err)
	}
	for i := range admins {
		if err := notify(ctx, st, admins[i].ID, message, itemID, requestID); err != nil {
			return err
		}
	}
	return nil
}

func notifyAllExcept(ctx context.Context, st repository.Store, exceptUserID, message string, itemID, requestID *string) error {
	users, err := st.ListUsersExcept(ctx, exceptUserID)
	if err != nil {
		return fmt.Errorf("error listing users: %w", err)
	}
	for i := range users {
		if err := notify(ctx, st, users[i].ID, message, itemID, requestID); err != nil {
			return err
		}
	}
	return nil
}
