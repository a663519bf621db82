package components

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/reference"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReferenceIssuer issues claimed operation references.
type ReferenceIssuer interface {
	Next(ctx context.Context) (string, error)
	NextDeposit(ctx context.Context) (string, error)
}

var _ ReferenceIssuer = (*reference.Generator)(nil)

// loadOwnedAccount fetches an account the caller may debit. Accounts of other
// users are reported as missing.
func loadOwnedAccount(ctx context.Context, accounts account.Store, userID string, accountID uuid.UUID) (*account.Account, error) {
	acc, err := accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, shared.NewNotFound("account not found", err)
		}
		return nil, shared.NewPersistenceFailure("could not load account", err)
	}
	if !acc.OwnedBy(userID) {
		return nil, shared.NewNotFound("account not found", account.ErrAccountNotFound{AccountID: accountID})
	}
	if !acc.IsActive() {
		return nil, shared.NewInvalidInput("account is " + string(acc.Status))
	}
	return acc, nil
}

// checkAvailable re-reads the live balance and rejects amounts it cannot cover.
func checkAvailable(ctx context.Context, accounts account.Store, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := accounts.GetBalance(ctx, accountID)
	if err != nil {
		return decimal.Zero, shared.NewPersistenceFailure("could not read balance", err)
	}
	if balance.LessThan(amount) {
		return balance, shared.NewInsufficientFunds("available balance " + balance.StringFixed(2) + " is less than " + amount.StringFixed(2))
	}
	return balance, nil
}

// debitError classifies a failed debit leg. Nothing was written when it fails.
func debitError(err error) *shared.OperationError {
	switch {
	case errors.Is(err, account.ErrInsufficientFunds):
		return shared.NewInsufficientFunds("insufficient funds")
	case errors.Is(err, account.ErrAccountInactive):
		return shared.NewInvalidInput("account is not active")
	case errors.Is(err, account.ErrAccountNotFound{}):
		return shared.NewNotFound("account not found", err)
	default:
		return shared.NewPersistenceFailure("could not debit account", err)
	}
}

// creditError classifies a failed credit leg.
func creditError(err error) *shared.OperationError {
	switch {
	case errors.Is(err, account.ErrAccountNotFound{}):
		return shared.NewDestinationNotFound("destination account not found", err)
	case errors.Is(err, account.ErrAccountInactive):
		return shared.NewDestinationNotFound("destination account is not active", err)
	default:
		return shared.NewPersistenceFailure("could not credit account", err)
	}
}

// asOperationError keeps typed errors and treats anything else as a persistence failure.
func asOperationError(err error, reason string) *shared.OperationError {
	if opErr, ok := shared.AsOperationError(err); ok {
		return opErr
	}
	return shared.NewPersistenceFailure(reason, err)
}

func referenceError(err error) *shared.OperationError {
	return shared.NewPersistenceFailure("could not issue a reference", err)
}
