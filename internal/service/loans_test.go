package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
	"github.com/communicare/server/internal/service"
)

func TestAcquire(t *testing.T) {
	repo := repository.NewMemoryRepository()
	loans := service.NewLoanService(repo)
	ctx := context.Background()

	seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	owner := seedUser(t, repo, "owner", "Owner", models.UserTypeMember, 50)
	borrower := seedUser(t, repo, "borrower", "Borrower", models.UserTypeMember, 50)
	item := seedValidatedItem(t, repo, owner.ID, "Ladder", 3)

	loan, err := loans.Acquire(ctx, item.ID, borrower.ID)
	assert.NoError(t, err)
	assert.NotNil(t, loan)
	assert.Equal(t, models.LoanRequested, loan.Status)
	assert.Nil(t, loan.StartedAt)

	// The item leaves the market as soon as the loan is requested.
	got, err := repo.GetItem(ctx, item.ID)
	assert.NoError(t, err)
	assert.False(t, got.Available)

	rel, err := repo.GetItemRelation(ctx, item.ID, models.RelationBorrower)
	assert.NoError(t, err)
	assert.NotNil(t, rel)
	assert.Equal(t, borrower.ID, rel.UserID)

	// Admins are asked to validate.
	ns, err := repo.ListNotifications(ctx, "admin")
	assert.NoError(t, err)
	assert.Len(t, ns, 1)

	// A second borrower cannot request the same item.
	other := seedUser(t, repo, "other", "Other", models.UserTypeMember, 50)
	_, err = loans.Acquire(ctx, item.ID, other.ID)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestAcquireOwnItem(t *testing.T) {
	repo := repository.NewMemoryRepository()
	loans := service.NewLoanService(repo)

	owner := seedUser(t, repo, "owner", "Owner", models.UserTypeMember, 50)
	item := seedValidatedItem(t, repo, owner.ID, "Drill", 2)

	_, err := loans.Acquire(context.Background(), item.ID, owner.ID)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestAcquireInsufficientFunds(t *testing.T) {
	repo := repository.NewMemoryRepository()
	loans := service.NewLoanService(repo)
	ctx := context.Background()

	owner := seedUser(t, repo, "owner", "Owner", models.UserTypeMember, 50)
	borrower := seedUser(t, repo, "borrower", "Borrower", models.UserTypeMember, 2)
	item := seedValidatedItem(t, repo, owner.ID, "Ladder", 3)

	_, err := loans.Acquire(ctx, item.ID, borrower.ID)
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	// The failed request leaves nothing behind.
	got, err := repo.GetItem(ctx, item.ID)
	assert.NoError(t, err)
	assert.True(t, got.Available)

	rel, err := repo.GetItemRelation(ctx, item.ID, models.RelationBorrower)
	assert.NoError(t, err)
	assert.Nil(t, rel)

	open, err := repo.GetOpenLoanForItem(ctx, item.ID)
	assert.NoError(t, err)
	assert.Nil(t, open)
}

func TestValidateStart(t *testing.T) {
	repo := repository.NewMemoryRepository()
	loans := service.NewLoanService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	owner := seedUser(t, repo, "owner", "Owner", models.UserTypeMember, 50)
	borrower := seedUser(t, repo, "borrower", "Borrower", models.UserTypeMember, 50)
	item := seedValidatedItem(t, repo, owner.ID, "Ladder", 3)

	loan, err := loans.Acquire(ctx, item.ID, borrower.ID)
	assert.NoError(t, err)

	// A regular member cannot validate.
	_, err = loans.ValidateStart(ctx, loan.ID, borrower.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	validated, err := loans.ValidateStart(ctx, loan.ID, admin.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.LoanActive, validated.Status)
	assert.NotNil(t, validated.StartedAt)

	// Revalidating an active loan fails.
	_, err = loans.ValidateStart(ctx, loan.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyValidated)

	// So does rejecting it.
	err = loans.Reject(ctx, loan.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyValidated)
}

func TestRejectLoan(t *testing.T) {
	repo := repository.NewMemoryRepository()
	loans := service.NewLoanService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	owner := seedUser(t, repo, "owner", "Owner", models.UserTypeMember, 50)
	borrower := seedUser(t, repo, "borrower", "Borrower", models.UserTypeMember, 50)
	item := seedValidatedItem(t, repo, owner.ID, "Ladder", 3)

	loan, err := loans.Acquire(ctx, item.ID, borrower.ID)
	assert.NoError(t, err)

	err = loans.Reject(ctx, loan.ID, admin.ID)
	assert.NoError(t, err)

	// The loan is gone and the item is back on the market.
	_, err = loans.Get(ctx, loan.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	got, err := repo.GetItem(ctx, item.ID)
	assert.NoError(t, err)
	assert.True(t, got.Available)

	rel, err := repo.GetItemRelation(ctx, item.ID, models.RelationBorrower)
	assert.NoError(t, err)
	assert.Nil(t, rel)

	ns, err := repo.ListNotifications(ctx, borrower.ID)
	assert.NoError(t, err)
	assert.Len(t, ns, 1)
}

func TestRequestReturn(t *testing.T) {
	repo := repository.NewMemoryRepository()
	loans := service.NewLoanService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	owner := seedUser(t, repo, "owner", "Owner", models.UserTypeMember, 50)
	borrower := seedUser(t, repo, "borrower", "Borrower", models.UserTypeMember, 50)
	stranger := seedUser(t, repo, "stranger", "Stranger", models.UserTypeMember, 50)
	item := seedValidatedItem(t, repo, owner.ID, "Ladder", 3)

	loan, err := loans.Acquire(ctx, item.ID, borrower.ID)
	assert.NoError(t, err)

	// A requested loan cannot be returned before validation.
	_, err = loans.RequestReturn(ctx, loan.ID, borrower.ID)
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = loans.ValidateStart(ctx, loan.ID, admin.ID)
	assert.NoError(t, err)

	// Only the borrower may hand the item back.
	_, err = loans.RequestReturn(ctx, loan.ID, stranger.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	returned, err := loans.RequestReturn(ctx, loan.ID, borrower.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.LoanPendingReturn, returned.Status)
	assert.NotNil(t, returned.ReturnedAt)

	// Returning twice fails.
	_, err = loans.RequestReturn(ctx, loan.ID, borrower.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyClosed)
}

func TestValidateReturnBilling(t *testing.T) {
	cases := []struct {
		name       string
		commission int
		duration   time.Duration
		wantHours  int
		wantAmount int
	}{
		{"five minutes bills one hour", 3, 5 * time.Minute, 1, 3},
		{"partial hours round up", 2, 2*time.Hour + 30*time.Minute, 3, 6},
		{"exact hour", 4, time.Hour, 1, 4},
		{"instant return still costs one hour", 5, 0, 1, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := repository.NewMemoryRepository()
			loans := service.NewLoanService(repo)
			ctx := context.Background()

			admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
			owner := seedUser(t, repo, "owner", "Owner", models.UserTypeMember, 50)
			borrower := seedUser(t, repo, "borrower", "Borrower", models.UserTypeMember, 50)
			item := seedValidatedItem(t, repo, owner.ID, "Ladder", tc.commission)

			loan, err := loans.Acquire(ctx, item.ID, borrower.ID)
			assert.NoError(t, err)

			// Stamp the timestamps directly so the billed window is exact.
			start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
			assert.NoError(t, repo.StartLoan(ctx, loan.ID, start))
			assert.NoError(t, repo.MarkLoanReturned(ctx, loan.ID, start.Add(tc.duration)))

			settlement, err := loans.ValidateReturn(ctx, loan.ID, admin.ID)
			assert.NoError(t, err)
			assert.Equal(t, tc.wantHours, settlement.Hours)
			assert.Equal(t, tc.wantAmount, settlement.Amount)
			assert.Equal(t, models.LoanClosed, settlement.Loan.Status)

			assert.Equal(t, 50-tc.wantAmount, userBalance(t, repo, borrower.ID))
			assert.Equal(t, 50+tc.wantAmount, userBalance(t, repo, owner.ID))

			// The item is available again and the borrower relation is gone.
			got, err := repo.GetItem(ctx, item.ID)
			assert.NoError(t, err)
			assert.True(t, got.Available)

			rel, err := repo.GetItemRelation(ctx, item.ID, models.RelationBorrower)
			assert.NoError(t, err)
			assert.Nil(t, rel)

			// Exactly one ledger entry, paid by the borrower.
			txs, err := repo.ListTransactionsForUser(ctx, borrower.ID)
			assert.NoError(t, err)
			assert.Len(t, txs, 1)
			assert.Equal(t, models.KindLoanSettlement, txs[0].Kind)
			assert.NotNil(t, txs[0].PayerID)
			assert.Equal(t, borrower.ID, *txs[0].PayerID)
			assert.Equal(t, owner.ID, txs[0].PayeeID)
			assert.Equal(t, tc.wantAmount, txs[0].Amount)

			// A closed loan cannot be settled again.
			_, err = loans.ValidateReturn(ctx, loan.ID, admin.ID)
			assert.ErrorIs(t, err, service.ErrAlreadyClosed)
		})
	}
}

func TestValidateReturnInsufficientFundsIsAtomic(t *testing.T) {
	repo := repository.NewMemoryRepository()
	loans := service.NewLoanService(repo)
	ctx := context.Background()

	admin := seedUser(t, repo, "admin", "Admin", models.UserTypeAdmin, 0)
	owner := seedUser(t, repo, "owner", "Owner", models.UserTypeMember, 50)
	borrower := seedUser(t, repo, "borrower", "Borrower", models.UserTypeMember, 3)
	item := seedValidatedItem(t, repo, owner.ID, "Ladder", 3)

	loan, err := loans.Acquire(ctx, item.ID, borrower.ID)
	assert.NoError(t, err)

	// Three billed hours cost 9, but the borrower only holds 3.
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.NoError(t, repo.StartLoan(ctx, loan.ID, start))
	assert.NoError(t, repo.MarkLoanReturned(ctx, loan.ID, start.Add(3*time.Hour)))

	_, err = loans.ValidateReturn(ctx, loan.ID, admin.ID)
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	// Nothing moved: balances, loan state and the ledger are untouched.
	assert.Equal(t, 3, userBalance(t, repo, borrower.ID))
	assert.Equal(t, 50, userBalance(t, repo, owner.ID))

	got, err := loans.Get(ctx, loan.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.LoanPendingReturn, got.Status)

	txs, err := repo.ListTransactionsForUser(ctx, borrower.ID)
	assert.NoError(t, err)
	assert.Empty(t, txs)
}
