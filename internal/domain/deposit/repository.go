package deposit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists mobile deposits.
type Repository interface {
	Create(ctx context.Context, deposit *MobileDeposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*MobileDeposit, error)
	ListPending(ctx context.Context, limit, offset int) ([]*MobileDeposit, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*MobileDeposit, error)

	// SaveReview persists a reviewed deposit only if the stored row is still
	// pending, and returns ErrAlreadyReviewed otherwise.
	SaveReview(ctx context.Context, deposit *MobileDeposit) error

	WithTx(tx pgx.Tx) Repository
}

// ErrDepositNotFound indicates missing deposit
type ErrDepositNotFound struct {
	DepositID uuid.UUID
}

func (e ErrDepositNotFound) Error() string {
	return "mobile deposit not found: " + e.DepositID.String()
}

func (e ErrDepositNotFound) Is(target error) bool {
	t, ok := target.(ErrDepositNotFound)
	if !ok {
		return false
	}
	return t.DepositID == uuid.Nil || t.DepositID == e.DepositID
}
