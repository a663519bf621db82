package transaction

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Log is the append-only transaction log. Completed rows are never updated or
// deleted; pending rows move to completed or cancelled once through Settle.
type Log interface {
	Record(ctx context.Context, tx *Transaction) error
	Settle(ctx context.Context, id uuid.UUID, to Status) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	ListByReference(ctx context.Context, reference string) ([]*Transaction, error)
	WithTx(tx pgx.Tx) Log
}

// ErrTransactionNotFound indicates a missing or already settled transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is matches any ErrTransactionNotFound when the target carries no id.
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || t.TransactionID == e.TransactionID
}
