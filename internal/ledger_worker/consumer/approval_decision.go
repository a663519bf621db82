package consumer

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// SubjectKind names what an approval decision applies to.
type SubjectKind string

const (
	SubjectDeposit    SubjectKind = "deposit"
	SubjectCryptoSell SubjectKind = "crypto_sell"
)

// Verdict is the reviewer's choice.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictReject  Verdict = "reject"
)

var (
	ErrUnknownSubject  = errors.New("kind must be deposit or crypto_sell")
	ErrMissingSubject  = errors.New("id is required")
	ErrUnknownVerdict  = errors.New("decision must be approve or reject")
	ErrMissingReviewer = errors.New("reviewer is required")
	ErrMissingReason   = errors.New("reason is required to reject")
)

// ApprovalDecision is an admin decision on a pending mobile deposit or crypto sell.
type ApprovalDecision struct {
	Kind          SubjectKind `json:"kind"`
	ID            uuid.UUID   `json:"id"`
	Decision      Verdict     `json:"decision"`
	Reviewer      string      `json:"reviewer"`
	Reason        string      `json:"reason,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

func (d *ApprovalDecision) Validate() error {
	switch {
	case d.Kind != SubjectDeposit && d.Kind != SubjectCryptoSell:
		return ErrUnknownSubject
	case d.ID == uuid.Nil:
		return ErrMissingSubject
	case d.Decision != VerdictApprove && d.Decision != VerdictReject:
		return ErrUnknownVerdict
	case strings.TrimSpace(d.Reviewer) == "":
		return ErrMissingReviewer
	case d.Decision == VerdictReject && strings.TrimSpace(d.Reason) == "":
		return ErrMissingReason
	}
	return nil
}
