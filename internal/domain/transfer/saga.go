package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Step names a forward action or its compensation.
type Step string

const (
	StepDebitSource           Step = "debit_source"
	StepCreditDestination     Step = "credit_destination"
	StepCompensateDebitSource Step = "compensate_debit_source"
)

// SagaStep is one entry of the saga log. Every forward action writes one entry
// in the same database transaction as its ledger mutation, and so does every
// compensation.
type SagaStep struct {
	ID        uuid.UUID       `json:"id"`
	Reference string          `json:"reference"`
	Step      Step            `json:"step"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Detail    string          `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewSagaStep(reference string, step Step, accountID uuid.UUID, amount decimal.Decimal, detail string) *SagaStep {
	return &SagaStep{
		ID:        uuid.New(),
		Reference: reference,
		Step:      step,
		AccountID: accountID,
		Amount:    amount,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
}

// SagaLog persists saga steps.
type SagaLog interface {
	Append(ctx context.Context, step *SagaStep) error
	ListByReference(ctx context.Context, reference string) ([]*SagaStep, error)
	WithTx(tx pgx.Tx) SagaLog
}
