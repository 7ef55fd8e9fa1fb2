package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
)

// ItemService manages the catalogue of lendable items: submission, admin
// validation/rejection, owner edits and retirement.
type ItemService struct {
	repo repository.Repository
}

// NewItemService creates a new ItemService.
func NewItemService(repo repository.Repository) *ItemService {
	return &ItemService{repo: repo}
}

// Submit registers a new item for its owner. The item starts unavailable
// until an administrator validates it; all admins are notified.
func (s *ItemService) Submit(ctx context.Context, ownerID string, req models.SubmitItemRequest) (*models.Item, error) {
	if strings.TrimSpace(req.Name) == "" || req.Commission < 0 {
		return nil, ErrInvalidInput
	}

	var item *models.Item
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		owner, err := st.GetUserByID(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("error getting user: %w", err)
		}
		if owner == nil {
			return ErrNotFound
		}

		item = &models.Item{
			Name:        req.Name,
			Description: req.Description,
			Commission:  req.Commission,
			Available:   false,
		}
		if err := st.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("error creating item: %w", err)
		}

		rel := &models.ItemRelation{
			ItemID: item.ID,
			UserID: ownerID,
			Kind:   models.RelationOwner,
		}
		if err := st.CreateItemRelation(ctx, rel); err != nil {
			return fmt.Errorf("error creating owner relation: %w", err)
		}

		msg := fmt.Sprintf("A new item %q was added and needs validation.", item.Name)
		return notifyAdmins(ctx, st, msg, &item.ID, nil)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Validate makes a submitted item available for borrowing. Admin-only.
func (s *ItemService) Validate(ctx context.Context, itemID, adminID string) (*models.Item, error) {
	var item *models.Item
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		if _, err := requireAdmin(ctx, st, adminID); err != nil {
			return err
		}

		var err error
		item, err = st.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return fmt.Errorf("error getting item: %w", err)
		}
		if item == nil {
			return ErrNotFound
		}
		if item.Available {
			return ErrAlreadyValidated
		}

		if err := st.SetItemAvailable(ctx, itemID, true); err != nil {
			return fmt.Errorf("error updating item: %w", err)
		}
		item.Available = true

		ownerRel, err := st.GetItemRelation(ctx, itemID, models.RelationOwner)
		if err != nil {
			return fmt.Errorf("error getting owner relation: %w", err)
		}
		if ownerRel != nil {
			msg := fmt.Sprintf("Your item %q was validated by an administrator and is now available for borrowing.", item.Name)
			return notify(ctx, st, ownerRel.UserID, msg, &item.ID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Reject removes a submitted item from the platform. Admin-only. Fails
// Conflict if the item is currently on loan. Notifications that reference
// the item are detached before it is deleted.
func (s *ItemService) Reject(ctx context.Context, itemID, adminID string) error {
	return s.repo.Transact(ctx, func(st repository.Store) error {
		if _, err := requireAdmin(ctx, st, adminID); err != nil {
			return err
		}

		item, err := st.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return fmt.Errorf("error getting item: %w", err)
		}
		if item == nil {
			return ErrNotFound
		}

		loan, err := st.GetOpenLoanForItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("error checking loans: %w", err)
		}
		if loan != nil {
			return ErrConflict
		}

		ownerRel, err := st.GetItemRelation(ctx, itemID, models.RelationOwner)
		if err != nil {
			return fmt.Errorf("error getting owner relation: %w", err)
		}

		if err := st.DetachItemNotifications(ctx, itemID); err != nil {
			return fmt.Errorf("error detaching notifications: %w", err)
		}

		if ownerRel != nil {
			msg := fmt.Sprintf("Your item %q was rejected by an administrator and will not be added to the platform.", item.Name)
			if err := notify(ctx, st, ownerRel.UserID, msg, nil, nil); err != nil {
				return err
			}
			if err := st.DeleteItemRelation(ctx, itemID, models.RelationOwner); err != nil {
				return fmt.Errorf("error deleting owner relation: %w", err)
			}
		}

		if err := st.DeleteItem(ctx, itemID); err != nil {
			return fmt.Errorf("error deleting item: %w", err)
		}
		return nil
	})
}

// Retire permanently marks an item unavailable. Only the owner may retire
// an item, and not while it is on loan.
func (s *ItemService) Retire(ctx context.Context, itemID, userID string) error {
	return s.repo.Transact(ctx, func(st repository.Store) error {
		item, err := st.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return fmt.Errorf("error getting item: %w", err)
		}
		if item == nil {
			return ErrNotFound
		}

		if err := s.requireOwner(ctx, st, itemID, userID); err != nil {
			return err
		}

		loan, err := st.GetOpenLoanForItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("error checking loans: %w", err)
		}
		if loan != nil {
			return ErrConflict
		}

		return st.SetItemAvailable(ctx, itemID, false)
	})
}

// UpdateDescription replaces an item's description. Owner-only.
func (s *ItemService) UpdateDescription(ctx context.Context, itemID, userID, description string) error {
	return s.repo.Transact(ctx, func(st repository.Store) error {
		item, err := st.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return fmt.Errorf("error getting item: %w", err)
		}
		if item == nil {
			return ErrNotFound
		}

		if err := s.requireOwner(ctx, st, itemID, userID); err != nil {
			return err
		}

		return st.UpdateItemDescription(ctx, itemID, description)
	})
}

func (s *ItemService) requireOwner(ctx context.Context, st repository.Store, itemID, userID string) error {
	rel, err := st.GetItemRelation(ctx, itemID, models.RelationOwner)
	if err != nil {
		return fmt.Errorf("error getting owner relation: %w", err)
	}
	if rel == nil || rel.UserID != userID {
		return ErrForbidden
	}
	return nil
}

// Get returns a single item.
func (s *ItemService) Get(ctx context.Context, itemID string) (*models.Item, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("error getting item: %w", err)
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// List returns every item on the platform.
func (s *ItemService) List(ctx context.Context) ([]models.Item, error) {
	return s.repo.ListItems(ctx)
}

// ListAvailable returns the items currently available for borrowing.
func (s *ItemService) ListAvailable(ctx context.Context) ([]models.Item, error) {
	return s.repo.ListAvailableItems(ctx)
}
