package service

import (
	"context"
	"fmt"

	"github.com/communicare/server/internal/models"
	"github.com/communicare/server/internal/repository"
)

// Ledger applies Cares transfers. It must only be called inside a
// repository transaction so the balance check, the balance updates and the
// transaction record commit as one unit.
type Ledger struct{}

// Transfer checks and applies the transfer described by t. With a payer set,
// the payer's row is locked and the transfer fails ErrInsufficientFunds if
// it would drive the balance negative; system-funded payouts (nil payer)
// skip the check. Exactly one immutable transaction record is written.
func (Ledger) Transfer(ctx context.Context, st repository.Store, t *models.CareTransaction) error {
	if t.Amount < 0 {
		return ErrInvalidInput
	}

	if t.PayerID != nil {
		payer, err := st.GetUserForUpdate(ctx, *t.PayerID)
		if err != nil {
			return fmt.Errorf("error locking payer: %w", err)
		}
		if payer == nil {
			return ErrNotFound
		}
		if payer.Balance < t.Amount {
			return ErrInsufficientFunds
		}
		if t.Amount > 0 {
			if err := st.AdjustBalance(ctx, *t.PayerID, -t.Amount); err != nil {
				return fmt.Errorf("error debiting payer: %w", err)
			}
		}
	}

	if t.Amount > 0 {
		if err := st.AdjustBalance(ctx, t.PayeeID, t.Amount); err != nil {
			return fmt.Errorf("error crediting payee: %w", err)
		}
	}

	if err := st.CreateTransaction(ctx, t); err != nil {
		return fmt.Errorf("error recording transaction: %w", err)
	}

	return nil
}
