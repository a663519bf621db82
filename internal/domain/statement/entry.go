package statement

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/transaction"
)

// Entry is the statement projection of one Transaction. Amount is kept as the
// decimal string so that documents carry exact values.
type Entry struct {
	TransactionID  uuid.UUID             `json:"transaction_id" bson:"transaction_id"`
	AccountID      uuid.UUID             `json:"account_id" bson:"account_id"`
	Reference      string                `json:"reference" bson:"reference"`
	Direction      transaction.Direction `json:"direction" bson:"direction"`
	Amount         string                `json:"amount" bson:"amount"`
	Category       transaction.Category  `json:"category" bson:"category"`
	Description    string                `json:"description" bson:"description"`
	Classification transaction.Abbr      `json:"classification" bson:"classification"`
	Detail         string                `json:"detail,omitempty" bson:"detail,omitempty"`
	Status         transaction.Status    `json:"status" bson:"status"`
	CreatedAt      time.Time             `json:"created_at" bson:"created_at"`
	ProjectedAt    time.Time             `json:"projected_at" bson:"projected_at"`
}

// FromTransaction projects tx. Descriptions that do not follow the
// "<ABBR> [<extra>] – <reference>" contract are kept unclassified.
func FromTransaction(tx *transaction.Transaction) *Entry {
	e := &Entry{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Reference:     tx.Reference,
		Direction:     tx.Direction,
		Amount:        tx.Amount.StringFixed(2),
		Category:      tx.Category,
		Description:   tx.Description,
		Status:        tx.Status,
		CreatedAt:     tx.CreatedAt,
		ProjectedAt:   time.Now().UTC(),
	}
	if d, err := transaction.ParseDescription(tx.Description); err == nil {
		e.Classification = d.Abbr
		e.Detail = d.Extra
	}
	return e
}
