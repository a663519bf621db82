package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var ErrAlreadyResolved = errors.New("reconciliation item already resolved")

// Status of a reconciliation item
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Item records funds left in an inconsistent state because a compensation could
// not be written. Amount is what must be credited back to AccountID.
type Item struct {
	ID         uuid.UUID       `json:"id"`
	Reference  string          `json:"reference"`
	AccountID  uuid.UUID       `json:"account_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy string          `json:"resolved_by,omitempty"`
	Note       string          `json:"note,omitempty"`
}

func NewItem(reference string, accountID uuid.UUID, amount decimal.Decimal, reason string) *Item {
	return &Item{
		ID:        uuid.New(),
		Reference: reference,
		AccountID: accountID,
		Amount:    amount,
		Reason:    reason,
		Status:    StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
}

// Repository is the durable reconciliation queue.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	ListOpen(ctx context.Context, limit, offset int) ([]*Item, error)
	// Resolve closes an open item; ErrAlreadyResolved if it is not open.
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy, note string) (*Item, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrItemNotFound indicates missing reconciliation item
type ErrItemNotFound struct {
	ItemID uuid.UUID
}

func (e ErrItemNotFound) Error() string {
	return "reconciliation item not found: " + e.ItemID.String()
}

func (e ErrItemNotFound) Is(target error) bool {
	t, ok := target.(ErrItemNotFound)
	if !ok {
		return false
	}
	return t.ItemID == uuid.Nil || t.ItemID == e.ItemID
}
