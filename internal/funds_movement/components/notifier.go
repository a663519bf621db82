package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/retail-banking-ledger/internal/domain/notification"
	"github.com/retail-banking-ledger/internal/domain/outbox"
)

// Executor runs tasks in the background. *ants.Pool satisfies it.
type Executor interface {
	Submit(task func()) error
}

// OutboxNotifier implements notification.Dispatcher by queueing NOTIFICATION
// outbox rows from a background pool. It must only be called after the ledger
// change it reports has committed.
type OutboxNotifier struct {
	outboxRepo outbox.Repository
	executor   Executor
	timeout    time.Duration
	logger     *slog.Logger
}

var _ notification.Dispatcher = (*OutboxNotifier)(nil)

func NewOutboxNotifier(outboxRepo outbox.Repository, executor Executor, timeout time.Duration, logger *slog.Logger) *OutboxNotifier {
	return &OutboxNotifier{
		outboxRepo: outboxRepo,
		executor:   executor,
		timeout:    timeout,
		logger:     logger,
	}
}

// Notify returns immediately. Failures are logged and dropped.
func (n *OutboxNotifier) Notify(ctx context.Context, userID string, kind notification.Kind, payload map[string]string) {
	if userID == "" {
		return
	}

	note := &notification.Notification{
		UserID:    userID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	baseCtx := context.WithoutCancel(ctx)

	err := n.executor.Submit(func() {
		taskCtx, cancel := context.WithTimeout(baseCtx, n.timeout)
		defer cancel()

		msg, err := outbox.NewNotificationMessage(note)
		if err != nil {
			n.logger.Warn("Notification dropped", "user_id", userID, "kind", string(kind), "error", err)
			return
		}
		if err := n.outboxRepo.Create(taskCtx, msg); err != nil {
			n.logger.Warn("Notification dropped", "user_id", userID, "kind", string(kind), "event_id", msg.EventID, "error", err)
			return
		}
		n.logger.Debug("Notification queued", "user_id", userID, "kind", string(kind), "event_id", msg.EventID)
	})
	if err != nil {
		n.logger.Warn("Notification dropped, dispatch pool unavailable", "user_id", userID, "kind", string(kind), "error", err)
	}
}
