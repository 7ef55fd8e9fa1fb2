package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
)

// Test fixtures run against the in-memory repository so the suite needs no
// database.

func seedUser(t *testing.T, repo *repository.MemoryRepository, id, name string, userType models.UserType, balance int) *models.User {
	t.Helper()

	user := &models.User{
		ID:       id,
		Email:    id + "@example.com",
		Name:     name,
		Password: "irrelevant",
		Type:     userType,
		Balance:  balance,
	}
	err := repo.CreateUser(context.Background(), user)
	assert.NoError(t, err, "Failed to seed user")
	return user
}

// seedValidatedItem creates an item that has already passed admin validation,
// owned by ownerID.
func seedValidatedItem(t *testing.T, repo *repository.MemoryRepository, ownerID, name string, commission int) *models.Item {
	t.Helper()

	item := &models.Item{
		Name:       name,
		Commission: commission,
		Available:  true,
	}
	err := repo.CreateItem(context.Background(), item)
	assert.NoError(t, err, "Failed to seed item")

	rel := &models.ItemRelation{
		ItemID: item.ID,
		UserID: ownerID,
		Kind:   models.RelationOwner,
	}
	err = repo.CreateItemRelation(context.Background(), rel)
	assert.NoError(t, err, "Failed to seed owner relation")
	return item
}

func userBalance(t *testing.T, repo *repository.MemoryRepository, userID string) int {
	t.Helper()

	user, err := repo.GetUserByID(context.Background(), userID)
	assert.NoError(t, err)
	assert.NotNil(t, user)
	return user.Balance
}
