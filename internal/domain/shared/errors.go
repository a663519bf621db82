package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a money-movement operation did not complete.
type ErrorKind string

const (
	ErrorKindInvalidInput        ErrorKind = "INVALID_INPUT"
	ErrorKindInsufficientFunds   ErrorKind = "INSUFFICIENT_FUNDS"
	ErrorKindDestinationNotFound ErrorKind = "DESTINATION_NOT_FOUND"
	ErrorKindNotFound            ErrorKind = "NOT_FOUND"
	ErrorKindConflict            ErrorKind = "CONFLICT"
	ErrorKindPersistenceFailure  ErrorKind = "PERSISTENCE_FAILURE"
)

// Sentinels matched by OperationError.Is, so callers can write errors.Is(err, shared.ErrInsufficientFunds).
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrDestinationNotFound = errors.New("destination not found")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrPersistenceFailure  = errors.New("persistence failure")
)

var sentinelByKind = map[ErrorKind]error{
	ErrorKindInvalidInput:        ErrInvalidInput,
	ErrorKindInsufficientFunds:   ErrInsufficientFunds,
	ErrorKindDestinationNotFound: ErrDestinationNotFound,
	ErrorKindNotFound:            ErrNotFound,
	ErrorKindConflict:            ErrConflict,
	ErrorKindPersistenceFailure:  ErrPersistenceFailure,
}

// OperationError is the structured failure returned by every ledger operation.
// Reason is human readable and safe to show to the caller.
type OperationError struct {
	Kind      ErrorKind
	Reason    string
	Reference string
	// Retryable marks transient failures. A retry must start a fresh operation
	// with a new reference and a new balance check.
	Retryable bool
	// Compensated reports that a debit was written and then reversed.
	Compensated bool
	// ReconciliationRequired reports that a reversal could not be written and
	// the operation was queued for manual reconciliation.
	ReconciliationRequired bool
	Err                    error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	if e.Reference != "" {
		msg += " (reference " + e.Reference + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the same kind.
func (e *OperationError) Is(target error) bool {
	sentinel, ok := sentinelByKind[e.Kind]
	return ok && sentinel == target
}

// WithReference returns the error annotated with the operation reference.
func (e *OperationError) WithReference(reference string) *OperationError {
	e.Reference = reference
	return e
}

func NewInvalidInput(reason string) *OperationError {
	return &OperationError{Kind: ErrorKindInvalidInput, Reason: reason}
}

func NewInsufficientFunds(reason string) *OperationError {
	return &OperationError{Kind: ErrorKindInsufficientFunds, Reason: reason}
}

func NewDestinationNotFound(reason string, err error) *OperationError {
	return &OperationError{Kind: ErrorKindDestinationNotFound, Reason: reason, Err: err}
}

func NewNotFound(reason string, err error) *OperationError {
	return &OperationError{Kind: ErrorKindNotFound, Reason: reason, Err: err}
}

func NewConflict(reason string, err error) *OperationError {
	return &OperationError{Kind: ErrorKindConflict, Reason: reason, Err: err}
}

func NewPersistenceFailure(reason string, err error) *OperationError {
	return &OperationError{Kind: ErrorKindPersistenceFailure, Reason: reason, Retryable: true, Err: err}
}

// AsOperationError extracts the OperationError from err, if any.
func AsOperationError(err error) (*OperationError, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr, true
	}
	return nil, false
}
