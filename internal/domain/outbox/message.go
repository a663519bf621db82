package outbox

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/retail-banking-ledger/internal/domain/notification"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/domain/transaction"
)

var ErrUnexpectedKind = errors.New("outbox message has a different kind")

// Kind selects where the relay delivers a message.
type Kind string

const (
	// KindStatement rows are written in the same database transaction as the
	// ledger mutation and feed the statement read model.
	KindStatement Kind = "STATEMENT"
	// KindNotification rows are written after the ledger commit and feed the
	// notification topic.
	KindNotification Kind = "NOTIFICATION"
)

// Message is an outbox row awaiting publication.
type Message struct {
	ID            int64               `json:"id"`
	EventID       string              `json:"event_id"`
	Kind          Kind                `json:"kind"`
	AggregateKey  string              `json:"aggregate_key"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func newMessage(kind Kind, eventID, key string, v any) (*Message, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Message{
		EventID:      eventID,
		Kind:         kind,
		AggregateKey: key,
		Payload:      payload,
		Status:       shared.OutboxStatusPending,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// NewStatementMessage snapshots tx for the statement projection. The aggregate
// key is the transaction id so that later snapshots of the same row replace earlier ones.
func NewStatementMessage(tx *transaction.Transaction) (*Message, error) {
	return newMessage(KindStatement, ulid.Make().String(), tx.ID.String(), tx)
}

// NewNotificationMessage wraps n, assigning its event id when missing.
func NewNotificationMessage(n *notification.Notification) (*Message, error) {
	if n.EventID == "" {
		n.EventID = ulid.Make().String()
	}
	return newMessage(KindNotification, n.EventID, n.UserID, n)
}

// Transaction decodes a STATEMENT payload.
func (m *Message) Transaction() (*transaction.Transaction, error) {
	if m.Kind != KindStatement {
		return nil, ErrUnexpectedKind
	}
	var tx transaction.Transaction
	if err := json.Unmarshal(m.Payload, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Notification decodes a NOTIFICATION payload.
func (m *Message) Notification() (*notification.Notification, error) {
	if m.Kind != KindNotification {
		return nil, ErrUnexpectedKind
	}
	var n notification.Notification
	if err := json.Unmarshal(m.Payload, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}
