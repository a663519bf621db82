package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/funds_movement/service"
	"github.com/retail-banking-ledger/internal/platform/messaging/producers"
)

// ApprovalService is the part of the banking service that applies review decisions.
type ApprovalService interface {
	ApproveDeposit(ctx context.Context, depositID uuid.UUID, reviewer string) (*deposit.MobileDeposit, error)
	RejectDeposit(ctx context.Context, depositID uuid.UUID, reviewer, reason string) (*deposit.MobileDeposit, error)
	ApproveSell(ctx context.Context, tradeID uuid.UUID, reviewer string) (*service.TradeResult, error)
	RejectSell(ctx context.Context, tradeID uuid.UUID, reviewer, reason string) (*service.TradeResult, error)
}

// ApprovalEventHandler applies approval decisions read from Kafka.
//
// A returned error leaves the offset uncommitted so the decision is read
// again. That only happens for retryable failures, or when a decision that
// must be parked cannot be written to the DLQ.
type ApprovalEventHandler struct {
	approvals ApprovalService
	producer  producers.DeadLetterPublisher
	logger    *slog.Logger
}

func NewApprovalEventHandler(
	logger *slog.Logger,
	approvals ApprovalService,
	producer producers.DeadLetterPublisher,
) *ApprovalEventHandler {
	return &ApprovalEventHandler{
		approvals: approvals,
		producer:  producer,
		logger:    logger.With("component", "approval_handler"),
	}
}

// HandleMessage processes Kafka messages
func (h *ApprovalEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var decision ApprovalDecision
	if err := json.Unmarshal(value, &decision); err != nil {
		h.logger.Error("Failed to unmarshal approval decision", "error", err, "message_key", string(key))
		return h.deadLetter(ctx, key, value, fmt.Sprintf("unparseable approval decision: %s", err), err)
	}
	if err := decision.Validate(); err != nil {
		h.logger.Error("Invalid approval decision", "error", err, "message_key", string(key))
		return h.deadLetter(ctx, key, value, fmt.Sprintf("invalid approval decision: %s", err), err)
	}

	logger := h.logger.With(
		"kind", decision.Kind,
		"subject_id", decision.ID.String(),
		"decision", decision.Decision,
		"reviewer", decision.Reviewer,
	)
	if decision.CorrelationID != "" {
		logger = logger.With("correlation_id", decision.CorrelationID)
	}

	err := h.apply(ctx, &decision)
	if err == nil {
		logger.Info("Applied approval decision")
		return nil
	}

	opErr, ok := shared.AsOperationError(err)
	switch {
	case ok && opErr.Kind == shared.ErrorKindConflict:
		// Already reviewed: the first decision stands and this one is dropped.
		logger.Warn("Approval decision conflicts with current state, skipping", "reason", opErr.Reason)
		return nil
	case ok && !opErr.Retryable:
		logger.Error("Approval decision rejected", "error_kind", opErr.Kind, "reason", opErr.Reason)
		return h.deadLetter(ctx, key, value, fmt.Sprintf("%s: %s", opErr.Kind, opErr.Reason), err)
	default:
		logger.Error("Failed to apply approval decision, will retry", "error", err)
		return fmt.Errorf("applying %s decision for %s %s failed: %w", decision.Decision, decision.Kind, decision.ID, err)
	}
}

func (h *ApprovalEventHandler) apply(ctx context.Context, d *ApprovalDecision) error {
	var err error
	switch {
	case d.Kind == SubjectDeposit && d.Decision == VerdictApprove:
		_, err = h.approvals.ApproveDeposit(ctx, d.ID, d.Reviewer)
	case d.Kind == SubjectDeposit:
		_, err = h.approvals.RejectDeposit(ctx, d.ID, d.Reviewer, d.Reason)
	case d.Decision == VerdictApprove:
		_, err = h.approvals.ApproveSell(ctx, d.ID, d.Reviewer)
	default:
		_, err = h.approvals.RejectSell(ctx, d.ID, d.Reviewer, d.Reason)
	}
	return err
}

// deadLetter parks value. The offset is committed only when the DLQ accepted it.
func (h *ApprovalEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	if h.producer == nil {
		return fmt.Errorf("no DLQ for unprocessable approval decision: %w", cause)
	}
	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish approval decision to DLQ",
			"dlq_error", dlqErr,
			"original_error", cause,
			"message_key", string(key),
		)
		return errors.Join(cause, dlqErr)
	}
	h.logger.Info("Published unprocessable approval decision to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
