package transfer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State of a transfer while it is orchestrated.
type State string

const (
	StateValidating          State = "VALIDATING"
	StateBalanceChecked      State = "BALANCE_CHECKED"
	StateSourceDebited       State = "SOURCE_DEBITED"
	StateDestinationCredited State = "DESTINATION_CREDITED"
	StateExternalAccepted    State = "EXTERNAL_ACCEPTED"
	StateRecipientResolved   State = "RECIPIENT_RESOLVED"
	StateCompleted           State = "COMPLETED"
	StateFailed              State = "FAILED"
)

var transitions = map[State][]State{
	StateValidating:          {StateBalanceChecked, StateFailed},
	StateBalanceChecked:      {StateSourceDebited, StateFailed},
	StateSourceDebited:       {StateDestinationCredited, StateExternalAccepted, StateRecipientResolved, StateCompleted, StateFailed},
	StateDestinationCredited: {StateCompleted, StateFailed},
	StateExternalAccepted:    {StateCompleted, StateFailed},
	StateRecipientResolved:   {StateDestinationCredited, StateCompleted, StateFailed},
}

// CanTransition reports whether the machine may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Machine tracks the state of one orchestration.
type Machine struct {
	state   State
	history []State
}

func NewMachine() *Machine {
	return &Machine{state: StateValidating, history: []State{StateValidating}}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) History() []State {
	return append([]State(nil), m.history...)
}

// Advance moves to next or returns an error for an illegal transition.
func (m *Machine) Advance(next State) error {
	if !m.state.CanTransition(next) {
		return fmt.Errorf("illegal transfer transition %s -> %s", m.state, next)
	}
	m.state = next
	m.history = append(m.history, next)
	return nil
}

// Fail moves to StateFailed from any non-terminal state.
func (m *Machine) Fail() {
	if m.state.IsTerminal() {
		return
	}
	m.state = StateFailed
	m.history = append(m.history, StateFailed)
}

// Result describes a completed transfer or bill payment.
type Result struct {
	Reference                string          `json:"reference"`
	Type                     Type            `json:"type"`
	State                    State           `json:"state"`
	Amount                   decimal.Decimal `json:"amount"`
	SourceAccountID          uuid.UUID       `json:"source_account_id"`
	SourceTransactionID      uuid.UUID       `json:"source_transaction_id"`
	SourceBalance            decimal.Decimal `json:"source_balance"`
	DestinationAccountID     *uuid.UUID      `json:"destination_account_id,omitempty"`
	DestinationTransactionID *uuid.UUID      `json:"destination_transaction_id,omitempty"`
	RecipientUserID          string          `json:"recipient_user_id,omitempty"`
	RecipientResolved        bool            `json:"recipient_resolved"`
	CompletedAt              time.Time       `json:"completed_at"`
}
