package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
)

// LoanService governs the loan lifecycle:
// requested -> active -> pending_return -> closed, with rejection (deletion)
// possible while requested. Every transition runs in one transaction
// together with its ledger and notification effects.
type LoanService struct {
	repo   repository.Repository
	ledger Ledger
}

// NewLoanService creates a new LoanService.
func NewLoanService(repo repository.Repository) *LoanService {
	return &LoanService{repo: repo}
}

// Settlement describes the Cares transfer applied when a return is
// validated.
type Settlement struct {
	Loan   *models.Loan
	Hours  int
	Amount int
}

// billedHours converts a loan duration to billable hours: rounded up, with
// a one hour floor so a near-instant return still costs something.
func billedHours(start, end time.Time) int {
	d := end.Sub(start)
	if d < time.Second {
		d = time.Second
	}
	hours := int(math.Ceil(d.Hours()))
	if hours < 1 {
		hours = 1
	}
	return hours
}

// Acquire creates a loan request for an available item. The borrower must
// not be the owner and must hold at least the item's hourly commission. The
// item is taken off the market immediately; all admins are notified.
func (s *LoanService) Acquire(ctx context.Context, itemID, borrowerID string) (*models.Loan, error) {
	var loan *models.Loan
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		borrower, err := st.GetUserForUpdate(ctx, borrowerID)
		if err != nil {
			return fmt.Errorf("error getting borrower: %w", err)
		}
		if borrower == nil {
			return ErrNotFound
		}

		item, err := st.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return fmt.Errorf("error getting item: %w", err)
		}
		if item == nil {
			return ErrNotFound
		}

		ownerRel, err := st.GetItemRelation(ctx, itemID, models.RelationOwner)
		if err != nil {
			return fmt.Errorf("error getting owner relation: %w", err)
		}
		if ownerRel != nil && ownerRel.UserID == borrowerID {
			return ErrConflict
		}

		if !item.Available {
			return ErrConflict
		}

		if borrower.Balance < item.Commission {
			return ErrInsufficientFunds
		}

		if err := st.SetItemAvailable(ctx, itemID, false); err != nil {
			return fmt.Errorf("error updating item: %w", err)
		}

		borrowerRel := &models.ItemRelation{
			ItemID: itemID,
			UserID: borrowerID,
			Kind:   models.RelationBorrower,
		}
		if err := st.CreateItemRelation(ctx, borrowerRel); err != nil {
			if err == repository.ErrDuplicate {
				return ErrConflict
			}
			return fmt.Errorf("error creating borrower relation: %w", err)
		}

		loan = &models.Loan{
			ItemID: itemID,
			Status: models.LoanRequested,
		}
		if err := st.CreateLoan(ctx, loan); err != nil {
			return fmt.Errorf("error creating loan: %w", err)
		}

		msg := fmt.Sprintf("Item %q was requested by %q. Please validate the loan.", item.Name, borrower.Name)
		return notifyAdmins(ctx, st, msg, &item.ID, nil)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ValidateStart activates a requested loan, stamping its start time.
// Admin-only. Both the owner and borrower relations must resolve.
func (s *LoanService) ValidateStart(ctx context.Context, loanID, adminID string) (*models.Loan, error) {
	var loan *models.Loan
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		if _, err := requireAdmin(ctx, st, adminID); err != nil {
			return err
		}

		var err error
		loan, err = st.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return fmt.Errorf("error getting loan: %w", err)
		}
		if loan == nil {
			return ErrNotFound
		}
		if loan.Status != models.LoanRequested {
			return ErrAlreadyValidated
		}

		item, err := st.GetItem(ctx, loan.ItemID)
		if err != nil {
			return fmt.Errorf("error getting item: %w", err)
		}
		if item == nil {
			return ErrIncompleteRelations
		}

		ownerRel, err := st.GetItemRelation(ctx, loan.ItemID, models.RelationOwner)
		if err != nil {
			return fmt.Errorf("error getting owner relation: %w", err)
		}
		borrowerRel, err := st.GetItemRelation(ctx, loan.ItemID, models.RelationBorrower)
		if err != nil {
			return fmt.Errorf("error getting borrower relation: %w", err)
		}
		if ownerRel == nil || borrowerRel == nil {
			return ErrIncompleteRelations
		}

		now := time.Now().UTC()
		if err := st.StartLoan(ctx, loanID, now); err != nil {
			return fmt.Errorf("error starting loan: %w", err)
		}
		loan.Status = models.LoanActive
		loan.StartedAt = &now

		msg := fmt.Sprintf("Your loan request for item %q was validated.", item.Name)
		if err := notify(ctx, st, borrowerRel.UserID, msg, &item.ID, nil); err != nil {
			return err
		}
		msg = fmt.Sprintf("Your item %q was requested and the request was validated.", item.Name)
		return notify(ctx, st, ownerRel.UserID, msg, &item.ID, nil)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Reject deletes a requested loan, rolling back the borrower relation and
// putting the item back on the market. Admin-only; fails once the loan has
// been validated.
func (s *LoanService) Reject(ctx context.Context, loanID, adminID string) error {
	return s.repo.Transact(ctx, func(st repository.Store) error {
		if _, err := requireAdmin(ctx, st, adminID); err != nil {
			return err
		}

		loan, err := st.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return fmt.Errorf("error getting loan: %w", err)
		}
		if loan == nil {
			return ErrNotFound
		}
		if loan.Status != models.LoanRequested {
			return ErrAlreadyValidated
		}

		item, err := st.GetItem(ctx, loan.ItemID)
		if err != nil {
			return fmt.Errorf("error getting item: %w", err)
		}
		if item == nil {
			return ErrIncompleteRelations
		}

		borrowerRel, err := st.GetItemRelation(ctx, loan.ItemID, models.RelationBorrower)
		if err != nil {
			return fmt.Errorf("error getting borrower relation: %w", err)
		}
		if borrowerRel == nil {
			return ErrIncompleteRelations
		}

		msg := fmt.Sprintf("Your loan request for item %q was rejected.", item.Name)
		if err := notify(ctx, st, borrowerRel.UserID, msg, &item.ID, nil); err != nil {
			return err
		}

		if err := st.SetItemAvailable(ctx, loan.ItemID, true); err != nil {
			return fmt.Errorf("error updating item: %w", err)
		}
		if err := st.DeleteItemRelation(ctx, loan.ItemID, models.RelationBorrower); err != nil {
			return fmt.Errorf("error deleting borrower relation: %w", err)
		}
		if err := st.DeleteLoan(ctx, loanID); err != nil {
			return fmt.Errorf("error deleting loan: %w", err)
		}
		return nil
	})
}

// RequestReturn records the borrower handing the item back, stamping the
// return time and notifying all admins to validate it.
func (s *LoanService) RequestReturn(ctx context.Context, loanID, borrowerID string) (*models.Loan, error) {
	var loan *models.Loan
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		var err error
		loan, err = st.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return fmt.Errorf("error getting loan: %w", err)
		}
		if loan == nil {
			return ErrNotFound
		}

		borrowerRel, err := st.GetItemRelation(ctx, loan.ItemID, models.RelationBorrower)
		if err != nil {
			return fmt.Errorf("error getting borrower relation: %w", err)
		}
		if borrowerRel == nil || borrowerRel.UserID != borrowerID {
			return ErrForbidden
		}

		if loan.Status == models.LoanClosed || loan.ReturnedAt != nil {
			return ErrAlreadyClosed
		}
		if loan.Status != models.LoanActive {
			return ErrConflict
		}

		item, err := st.GetItem(ctx, loan.ItemID)
		if err != nil {
			return fmt.Errorf("error getting item: %w", err)
		}
		if item == nil {
			return ErrIncompleteRelations
		}

		now := time.Now().UTC()
		if err := st.MarkLoanReturned(ctx, loanID, now); err != nil {
			return fmt.Errorf("error marking loan returned: %w", err)
		}
		loan.Status = models.LoanPendingReturn
		loan.ReturnedAt = &now

		msg := fmt.Sprintf("The loan of item %q was concluded. Please validate the return.", item.Name)
		return notifyAdmins(ctx, st, msg, &item.ID, nil)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ValidateReturn closes a returned loan and settles the commission: the
// borrower pays hours x commission Cares to the owner, where hours is the
// rounded-up loan duration with a one hour floor. The whole settlement is
// one atomic unit; an insufficient borrower balance aborts the transition
// with no partial effects.
func (s *LoanService) ValidateReturn(ctx context.Context, loanID, adminID string) (*Settlement, error) {
	var settlement *Settlement
	err := s.repo.Transact(ctx, func(st repository.Store) error {
		if _, err := requireAdmin(ctx, st, adminID); err != nil {
			return err
		}

		loan, err := st.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return fmt.Errorf("error getting loan: %w", err)
		}
		if loan == nil {
			return ErrNotFound
		}
		if loan.Status == models.LoanClosed {
			return ErrAlreadyClosed
		}
		if loan.StartedAt == nil || loan.ReturnedAt == nil {
			return ErrConflict
		}

		item, err := st.GetItem(ctx, loan.ItemID)
		if err != nil {
			return fmt.Errorf("error getting item: %w", err)
		}
		if item == nil {
			return ErrIncompleteRelations
		}

		ownerRel, err := st.GetItemRelation(ctx, loan.ItemID, models.RelationOwner)
		if err != nil {
			return fmt.Errorf("error getting owner relation: %w", err)
		}
		borrowerRel, err := st.GetItemRelation(ctx, loan.ItemID, models.RelationBorrower)
		if err != nil {
			return fmt.Errorf("error getting borrower relation: %w", err)
		}
		if ownerRel == nil || borrowerRel == nil {
			return ErrIncompleteRelations
		}

		hours := billedHours(*loan.StartedAt, *loan.ReturnedAt)
		amount := hours * item.Commission

		borrowerID := borrowerRel.UserID
		tx := &models.CareTransaction{
			PayerID: &borrowerID,
			PayeeID: ownerRel.UserID,
			Amount:  amount,
			Kind:    models.KindLoanSettlement,
			Hours:   &hours,
			LoanID:  &loan.ID,
		}
		if err := s.ledger.Transfer(ctx, st, tx); err != nil {
			return err
		}

		if err := st.SetItemAvailable(ctx, loan.ItemID, true); err != nil {
			return fmt.Errorf("error updating item: %w", err)
		}
		if err := st.CloseLoan(ctx, loanID); err != nil {
			return fmt.Errorf("error closing loan: %w", err)
		}
		if err := st.DeleteItemRelation(ctx, loan.ItemID, models.RelationBorrower); err != nil {
			return fmt.Errorf("error deleting borrower relation: %w", err)
		}
		loan.Status = models.LoanClosed

		msg := fmt.Sprintf("Cares worth %d were sent to your account.", amount)
		if err := notify(ctx, st, ownerRel.UserID, msg, &item.ID, nil); err != nil {
			return err
		}
		msg = "The item return was validated and the Cares were deducted from your account."
		if err := notify(ctx, st, borrowerID, msg, &item.ID, nil); err != nil {
			return err
		}

		settlement = &Settlement{Loan: loan, Hours: hours, Amount: amount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Get returns a single loan.
func (s *LoanService) Get(ctx context.Context, loanID string) (*models.Loan, error) {
	loan, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("error getting loan: %w", err)
	}
	if loan == nil {
		return nil, ErrNotFound
	}
	return loan, nil
}
