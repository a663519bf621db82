package deposit

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("deposit amount must be positive with at most two decimal places")
	ErrMissingAccount  = errors.New("deposit account is required")
	ErrMissingUser     = errors.New("deposit user is required")
	ErrMissingReviewer = errors.New("reviewer is required")
	ErrMissingReason   = errors.New("rejection reason is required")
	ErrAlreadyReviewed = errors.New("deposit was already reviewed")
)

// Status of a mobile deposit
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// MobileDeposit is a cheque deposit awaiting an administrator's decision. It is
// linked to a pending credit Transaction; no balance changes until approval.
type MobileDeposit struct {
	ID              uuid.UUID       `json:"id"`
	AccountID       uuid.UUID       `json:"account_id"`
	UserID          string          `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Reference       string          `json:"reference"`
	TransactionID   uuid.UUID       `json:"transaction_id"`
	Status          Status          `json:"status"`
	ReviewedBy      string          `json:"reviewed_by,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
}

// New creates a pending deposit linked to transactionID.
func New(accountID uuid.UUID, userID string, amount decimal.Decimal, reference string, transactionID uuid.UUID) (*MobileDeposit, error) {
	if accountID == uuid.Nil {
		return nil, ErrMissingAccount
	}
	if userID == "" {
		return nil, ErrMissingUser
	}
	if !shared.IsFiatAmount(amount) {
		return nil, ErrInvalidAmount
	}

	return &MobileDeposit{
		ID:            uuid.New(),
		AccountID:     accountID,
		UserID:        userID,
		Amount:        amount,
		Reference:     reference,
		TransactionID: transactionID,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Approve marks the deposit approved by reviewer.
func (d *MobileDeposit) Approve(reviewer string) error {
	if d.Status != StatusPending {
		return ErrAlreadyReviewed
	}
	if strings.TrimSpace(reviewer) == "" {
		return ErrMissingReviewer
	}
	now := time.Now().UTC()
	d.Status = StatusApproved
	d.ReviewedBy = reviewer
	d.ReviewedAt = &now
	return nil
}

// Reject marks the deposit rejected by reviewer for reason.
func (d *MobileDeposit) Reject(reviewer, reason string) error {
	if d.Status != StatusPending {
		return ErrAlreadyReviewed
	}
	if strings.TrimSpace(reviewer) == "" {
		return ErrMissingReviewer
	}
	if strings.TrimSpace(reason) == "" {
		return ErrMissingReason
	}
	now := time.Now().UTC()
	d.Status = StatusRejected
	d.ReviewedBy = reviewer
	d.RejectionReason = reason
	d.ReviewedAt = &now
	return nil
}
