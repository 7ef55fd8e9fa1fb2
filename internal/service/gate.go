package service

import (
	"context"
	"fmt"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
)

// requireAdmin is the single authorization gate for administrator-only
// transitions. A missing or unprivileged user fails ErrForbidden.
func requireAdmin(ctx context.Context, st repository.Store, userID string) (*models.User, error) {
	user, err := st.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil || !user.IsAdmin() {
		return nil, ErrForbidden
	}
	return user, nil
}
