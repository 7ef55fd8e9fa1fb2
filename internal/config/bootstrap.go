package config

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
)

// SeedAdmin creates the default administrator account if it does not exist
// yet. Ordinary startup initialization, safe to run on every boot.
func SeedAdmin(ctx context.Context, repo repository.Repository, cfg *Config) error {
	existing, err := repo.GetUserByEmail(ctx, cfg.Platform.AdminEmail)
	if err != nil {
		return fmt.Errorf("error checking admin account: %w", err)
	}
	if existing != nil {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Platform.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing admin password: %w", err)
	}

	admin := &models.User{
		Email:    cfg.Platform.AdminEmail,
		Name:     cfg.Platform.AdminName,
		Password: string(hashed),
		Type:     models.UserTypeAdmin,
		Balance:  0,
	}
	if err := repo.CreateUser(ctx, admin); err != nil {
		// A concurrent boot may have won the race; that is fine.
		if err == repository.ErrDuplicate {
			return nil
		}
		return fmt.Errorf("error creating admin account: %w", err)
	}
	return nil
}
