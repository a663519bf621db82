package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/retail-banking-ledger/internal/domain/outbox"
	"github.com/retail-banking-ledger/internal/domain/statement"
	"github.com/retail-banking-ledger/internal/platform/messaging/producers"
)

// ErrUndeliverable marks a message that no retry can deliver, e.g. a payload
// that does not decode. The poller fails such rows immediately.
var ErrUndeliverable = errors.New("outbox message is undeliverable")

// Publisher delivers one kind of outbox message.
type Publisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// StatementPublisher projects STATEMENT messages into the statement read model.
// Upserts are keyed by transaction id, so a redelivered message is harmless.
type StatementPublisher struct {
	statementRepo statement.Repository
	logger        *slog.Logger
}

func NewStatementPublisher(statementRepo statement.Repository, logger *slog.Logger) *StatementPublisher {
	return &StatementPublisher{
		statementRepo: statementRepo,
		logger:        logger.With("publisher", "statement"),
	}
}

func (p *StatementPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	tx, err := message.Transaction()
	if err != nil {
		return fmt.Errorf("%w: outbox %d: %v", ErrUndeliverable, message.ID, err)
	}

	entry := statement.FromTransaction(tx)
	if err := p.statementRepo.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("failed to upsert statement entry %s: %w", tx.ID, err)
	}

	p.logger.Debug("Projected statement entry",
		"outbox_id", message.ID,
		"transaction_id", tx.ID.String(),
		"reference", tx.Reference,
		"status", tx.Status,
	)
	return nil
}

// NotificationPublisher forwards NOTIFICATION messages to Kafka keyed by user id.
type NotificationPublisher struct {
	producer producers.MessagePublisher
	logger   *slog.Logger
}

func NewNotificationPublisher(producer producers.MessagePublisher, logger *slog.Logger) *NotificationPublisher {
	return &NotificationPublisher{
		producer: producer,
		logger:   logger.With("publisher", "notification"),
	}
}

func (p *NotificationPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	n, err := message.Notification()
	if err != nil {
		return fmt.Errorf("%w: outbox %d: %v", ErrUndeliverable, message.ID, err)
	}
	if n.UserID == "" {
		return fmt.Errorf("%w: outbox %d has no recipient", ErrUndeliverable, message.ID)
	}

	if err := p.producer.Publish(ctx, n.UserID, message.Payload); err != nil {
		return err
	}

	p.logger.Debug("Published notification", "outbox_id", message.ID, "event_id", message.EventID, "kind", n.Kind)
	return nil
}
