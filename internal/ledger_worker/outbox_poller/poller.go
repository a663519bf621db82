package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/retail-banking-ledger/internal/config"
	"github.com/retail-banking-ledger/internal/domain/outbox"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

// Poller relays pending outbox messages to their publisher, oldest first.
type Poller struct {
	outboxRepo       outbox.Repository
	publishers       map[outbox.Kind]Publisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	statementPublisher Publisher,
	notificationPublisher Publisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo: outboxRepo,
		publishers: map[outbox.Kind]Publisher{
			outbox.KindStatement:    statementPublisher,
			outbox.KindNotification: notificationPublisher,
		},
		logger:           logger.With("component", "outbox_poller"),
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	for i, msg := range messages {
		if ctx.Err() != nil {
			p.release(context.WithoutCancel(ctx), messages[i:])
			return ctx.Err()
		}
		p.process(ctx, msg)
	}
	return nil
}

// release hands claimed messages back to PENDING so any poller can retry them.
func (p *Poller) release(ctx context.Context, messages []*outbox.Message) {
	for _, msg := range messages {
		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusPending); err != nil {
			p.logger.Error("Failed to release outbox message, it is reclaimed once its lease expires",
				"outbox_id", msg.ID, "error", err)
		}
	}
}

func (p *Poller) process(ctx context.Context, msg *outbox.Message) {
	logger := p.logger.With("outbox_id", msg.ID, "event_id", msg.EventID, "kind", msg.Kind, "aggregate_key", msg.AggregateKey)

	publisher, ok := p.publishers[msg.Kind]
	if !ok || publisher == nil {
		logger.Error("No publisher for outbox message kind, marking as FAILED_TO_PUBLISH")
		p.markFailed(ctx, logger, msg)
		return
	}

	err := publisher.Publish(ctx, msg)
	if err == nil {
		if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusProcessed); errUpdate != nil {
			// The row stays claimed and is delivered again once its lease expires; both publishers are idempotent per key.
			logger.Error("Published outbox message but failed to mark it PROCESSED", "error", errUpdate)
			return
		}
		logger.Debug("Outbox message processed")
		return
	}

	if errors.Is(err, ErrUndeliverable) {
		logger.Error("Undeliverable outbox message, marking as FAILED_TO_PUBLISH", "error", err)
		p.markFailed(ctx, logger, msg)
		return
	}

	logger.Warn("Failed to publish outbox message", "current_attempts", msg.Attempts, "error", err)

	if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
		logger.Error("Failed to increment attempts for outbox message", "error", errInc)
		return
	}

	if msg.Attempts+1 >= p.maxRetryAttempts {
		logger.Error("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH", "attempts_made", msg.Attempts+1)
		p.markFailed(ctx, logger, msg)
		return
	}
	p.release(ctx, []*outbox.Message{msg})
}

func (p *Poller) markFailed(ctx context.Context, logger *slog.Logger, msg *outbox.Message) {
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH", "error", err)
	}
}
