package notification

import (
	"context"
	"time"
)

// Kind names the confirmation sent to a user.
type Kind string

const (
	KindTransferCompleted  Kind = "transfer.completed"
	KindTransferReceived   Kind = "transfer.received"
	KindBillPaid           Kind = "bill.paid"
	KindDepositSubmitted   Kind = "deposit.submitted"
	KindDepositApproved    Kind = "deposit.approved"
	KindDepositRejected    Kind = "deposit.rejected"
	KindCryptoFunded       Kind = "crypto.funded"
	KindCryptoBought       Kind = "crypto.bought"
	KindCryptoSellPending  Kind = "crypto.sell_requested"
	KindCryptoSellSettled  Kind = "crypto.sell_settled"
	KindCryptoSellRejected Kind = "crypto.sell_rejected"
)

// Notification is the message handed to the notification transport.
type Notification struct {
	EventID   string            `json:"event_id"`
	UserID    string            `json:"user_id"`
	Kind      Kind              `json:"kind"`
	Payload   map[string]string `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

// Dispatcher sends confirmations. Implementations never block the caller on
// delivery and never report failure: a lost notification does not affect the ledger.
type Dispatcher interface {
	Notify(ctx context.Context, userID string, kind Kind, payload map[string]string)
}
