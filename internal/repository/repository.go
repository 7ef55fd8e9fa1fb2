package repository

import (
	"context"
	"errors"
	"time"

	"github.com/communicare/server/internal/models"
)

// ErrDuplicate is returned when an insert collides with an existing row
// (e.g. a second volunteering for the same request and user).
var ErrDuplicate = errors.New("duplicate entry")

// Store defines the data operations available to the service layer. Inside
// Transact the methods run against the surrounding transaction; on the bare
// Repository they run auto-committed.
//
// Getters return (nil, nil) when the entity does not exist.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUserForUpdate locks the user's row for the rest of the transaction.
	GetUserForUpdate(ctx context.Context, id string) (*models.User, error)
	AdjustBalance(ctx context.Context, userID string, delta int) error
	ListAdmins(ctx context.Context) ([]models.User, error)
	ListUsersExcept(ctx context.Context, userID string) ([]models.User, error)

	// Item operations
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id string) (*models.Item, error)
	GetItemForUpdate(ctx context.Context, id string) (*models.Item, error)
	SetItemAvailable(ctx context.Context, id string, available bool) error
	UpdateItemDescription(ctx context.Context, id, description string) error
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context) ([]models.Item, error)
	ListAvailableItems(ctx context.Context) ([]models.Item, error)

	// Item relation operations
	CreateItemRelation(ctx context.Context, rel *models.ItemRelation) error
	GetItemRelation(ctx context.Context, itemID string, kind models.RelationKind) (*models.ItemRelation, error)
	DeleteItemRelation(ctx context.Context, itemID string, kind models.RelationKind) error

	// Loan operations
	CreateLoan(ctx context.Context, loan *models.Loan) error
	GetLoan(ctx context.Context, id string) (*models.Loan, error)
	GetLoanForUpdate(ctx context.Context, id string) (*models.Loan, error)
	// GetOpenLoanForItem returns the item's loan that is not yet closed, if any.
	GetOpenLoanForItem(ctx context.Context, itemID string) (*models.Loan, error)
	StartLoan(ctx context.Context, id string, at time.Time) error
	MarkLoanReturned(ctx context.Context, id string, at time.Time) error
	CloseLoan(ctx context.Context, id string) error
	DeleteLoan(ctx context.Context, id string) error

	// Help request operations
	CreateHelpRequest(ctx context.Context, req *models.HelpRequest) error
	GetHelpRequest(ctx context.Context, id string) (*models.HelpRequest, error)
	GetHelpRequestForUpdate(ctx context.Context, id string) (*models.HelpRequest, error)
	SetHelpRequestState(ctx context.Context, id string, state models.RequestState) error

	// Volunteering operations
	CreateVolunteering(ctx context.Context, v *models.Volunteering) error
	// FirstPendingVolunteering returns the earliest pending application by
	// creation time, so admin decisions are deterministic.
	FirstPendingVolunteering(ctx context.Context, requestID string) (*models.Volunteering, error)
	AcceptedVolunteering(ctx context.Context, requestID string) (*models.Volunteering, error)
	SetVolunteeringStatus(ctx context.Context, requestID, userID string, status models.VolunteeringStatus) error

	// Ledger operations
	CreateTransaction(ctx context.Context, t *models.CareTransaction) error
	ListTransactionsForUser(ctx context.Context, userID string) ([]models.CareTransaction, error)

	// Notification operations
	CreateNotification(ctx context.Context, n *models.Notification) error
	DetachItemNotifications(ctx context.Context, itemID string) error
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
}

// Repository is a Store that can also run a function inside a single atomic
// transaction. Every state-machine transition goes through Transact so that
// entity updates, ledger entries and notifications commit together or not
// at all.
type Repository interface {
	Store
	Transact(ctx context.Context, fn func(Store) error) error
}
