package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Store is the account ledger store. Balances change only through AdjustBalance,
// which re-reads the persisted balance and applies delta in one atomic step.
type Store interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Account, error)

	// GetBalance returns the live persisted balance.
	GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)

	// AdjustBalance adds delta (negative for debits) and returns the new balance.
	// It fails with ErrInsufficientFunds and writes nothing when the result would
	// drop below floor, and with ErrAccountNotFound or ErrAccountInactive when the
	// row cannot be changed.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta, floor decimal.Decimal) (decimal.Decimal, error)

	WithTx(tx pgx.Tx) Store
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries no id.
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}
