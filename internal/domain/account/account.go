package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be non-negative with at most two decimal places")
	ErrEmptyOwner        = errors.New("owner cannot be empty")
	ErrInvalidType       = errors.New("invalid account type")
	ErrAccountInactive   = errors.New("account is not active")
)

// Type is the product an account belongs to.
type Type string

const (
	TypeChecking     Type = "checking"
	TypeSavings      Type = "savings"
	TypeBusiness     Type = "business"
	TypeFixedDeposit Type = "fixed-deposit"
	TypeInvestment   Type = "investment"
)

var typeInitials = map[Type]string{
	TypeChecking:     "C",
	TypeSavings:      "S",
	TypeBusiness:     "B",
	TypeFixedDeposit: "F",
	TypeInvestment:   "I",
}

// Valid reports whether t is a known account type.
func (t Type) Valid() bool {
	_, ok := typeInitials[t]
	return ok
}

// Initial is the single-letter code used in transfer descriptions ("INT C/S").
func (t Type) Initial() string {
	return typeInitials[t]
}

// Status of an account
type Status string

const (
	StatusActive Status = "active"
	StatusFrozen Status = "frozen"
	StatusClosed Status = "closed"
)

// Account represents a customer bank account. Balance is never written directly:
// every change goes through Store.AdjustBalance.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Type      Type            `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount opens an active account for ownerID.
func NewAccount(ownerID string, accountType Type, initialBalance decimal.Decimal) (*Account, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}
	if !accountType.Valid() {
		return nil, ErrInvalidType
	}
	if initialBalance.IsNegative() || !initialBalance.Equal(shared.RoundFiat(initialBalance)) {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Account{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Type:      accountType,
		Balance:   initialBalance,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsActive reports whether the account accepts debits and credits.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// OwnedBy reports whether userID owns the account.
func (a *Account) OwnedBy(userID string) bool {
	return a.OwnerID == userID
}

// AcceptsP2P reports whether the account may receive peer-to-peer credits.
// Fixed-deposit and investment products are excluded.
func (a *Account) AcceptsP2P() bool {
	if !a.IsActive() {
		return false
	}
	switch a.Type {
	case TypeChecking, TypeSavings, TypeBusiness:
		return true
	default:
		return false
	}
}
