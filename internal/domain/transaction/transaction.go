package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("transaction amount must be positive with at most two decimal places")
	ErrInvalidDirection  = errors.New("invalid transaction direction")
	ErrMissingAccount    = errors.New("transaction account is required")
	ErrMissingReference  = errors.New("transaction reference is required")
	ErrInvalidTransition = errors.New("only pending transactions can be settled")
)

// Direction of a movement relative to the account
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Status of a recorded movement
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Category groups movements by the operation that produced them
type Category string

const (
	CategoryTransfer      Category = "transfer"
	CategoryBillPayment   Category = "bill_payment"
	CategoryDeposit       Category = "mobile_deposit"
	CategoryCryptoFunding Category = "crypto_funding"
	CategoryCompensation  Category = "compensation"
)

// Transaction is one row of the append-only transaction log. One logical
// operation yields one Transaction per participating account, all sharing Reference.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Direction   Direction       `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// New builds a Transaction ready to be recorded.
func New(accountID uuid.UUID, direction Direction, amount decimal.Decimal, category Category, description, reference string, status Status) (*Transaction, error) {
	if accountID == uuid.Nil {
		return nil, ErrMissingAccount
	}
	if direction != DirectionDebit && direction != DirectionCredit {
		return nil, ErrInvalidDirection
	}
	if !shared.IsFiatAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if reference == "" {
		return nil, ErrMissingReference
	}

	now := time.Now().UTC()
	return &Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Direction:   direction,
		Amount:      amount,
		Category:    category,
		Description: description,
		Reference:   reference,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SignedAmount is the balance effect of the movement.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Direction == DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// CanSettle reports whether the transaction may move to the given terminal status.
func (t *Transaction) CanSettle(to Status) bool {
	return t.Status == StatusPending && (to == StatusCompleted || to == StatusCancelled)
}
