package transfer

import (
	"strings"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Type of a transfer
type Type string

const (
	TypeInternal Type = "internal"
	TypeExternal Type = "external"
	TypeP2P      Type = "p2p"

	// TypeBillPayment labels bill payment results. It is not a valid Intent type.
	TypeBillPayment Type = "bill_payment"
)

// ExternalBeneficiary identifies an account held at another bank.
type ExternalBeneficiary struct {
	RoutingNumber string `json:"routing_number"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	HolderName    string `json:"holder_name"`
}

// Intent is a requested transfer. It lives only for the duration of one
// orchestration and is never persisted.
type Intent struct {
	Type                 Type
	UserID               string
	Amount               decimal.Decimal
	SourceAccountID      uuid.UUID
	DestinationAccountID uuid.UUID            // internal
	External             *ExternalBeneficiary // external
	Contact              string               // p2p: email or phone of the recipient
	Memo                 string
}

// Validate checks the amount and the fields the transfer type requires.
func (i Intent) Validate() error {
	if err := validateCommon(i.UserID, i.SourceAccountID, i.Amount); err != nil {
		return err
	}

	switch i.Type {
	case TypeInternal:
		if i.DestinationAccountID == uuid.Nil {
			return shared.NewInvalidInput("destination account is required for internal transfers")
		}
		if i.DestinationAccountID == i.SourceAccountID {
			return shared.NewInvalidInput("source and destination accounts must differ")
		}
	case TypeExternal:
		if i.External == nil {
			return shared.NewInvalidInput("beneficiary details are required for external transfers")
		}
		var missing []string
		if strings.TrimSpace(i.External.RoutingNumber) == "" {
			missing = append(missing, "routing number")
		}
		if strings.TrimSpace(i.External.AccountNumber) == "" {
			missing = append(missing, "account number")
		}
		if strings.TrimSpace(i.External.BankName) == "" {
			missing = append(missing, "bank name")
		}
		if strings.TrimSpace(i.External.HolderName) == "" {
			missing = append(missing, "holder name")
		}
		if len(missing) > 0 {
			return shared.NewInvalidInput("missing " + strings.Join(missing, ", "))
		}
	case TypeP2P:
		if strings.TrimSpace(i.Contact) == "" {
			return shared.NewInvalidInput("recipient contact is required for p2p transfers")
		}
	default:
		return shared.NewInvalidInput("unknown transfer type: " + string(i.Type))
	}
	return nil
}

// BillPayment is a debit-only payment to a biller.
type BillPayment struct {
	UserID          string
	SourceAccountID uuid.UUID
	Amount          decimal.Decimal
	PayeeName       string
	PayeeAccount    string
	Memo            string
}

// Validate checks the amount and payee fields.
func (b BillPayment) Validate() error {
	if err := validateCommon(b.UserID, b.SourceAccountID, b.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(b.PayeeName) == "" || strings.TrimSpace(b.PayeeAccount) == "" {
		return shared.NewInvalidInput("payee name and payee account are required")
	}
	return nil
}

func validateCommon(userID string, source uuid.UUID, amount decimal.Decimal) error {
	if userID == "" {
		return shared.NewInvalidInput("authenticated user is required")
	}
	if source == uuid.Nil {
		return shared.NewInvalidInput("source account is required")
	}
	if !shared.IsFiatAmount(amount) {
		return shared.NewInvalidInput("amount must be greater than zero with at most two decimal places")
	}
	return nil
}
