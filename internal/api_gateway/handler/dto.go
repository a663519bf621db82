package handler

import (
	"time"

	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	"github.com/shopspring/decimal"
)

// Amounts are decoded as decimals so "10.05" and 10.05 are both accepted.
// Range and precision checks happen in the domain, not in binding tags.

// OpenAccountRequest represents a request to open a new account
type OpenAccountRequest struct {
	Type           string          `json:"type" binding:"required"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Contact        string          `json:"contact,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// TransactionResponse represents a transaction log row in API responses
type TransactionResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// TransferRequest covers internal, external and p2p transfers.
type TransferRequest struct {
	Type                 string                        `json:"type" binding:"required,oneof=internal external p2p"`
	SourceAccountID      string                        `json:"source_account_id" binding:"required"`
	DestinationAccountID string                        `json:"destination_account_id,omitempty"`
	Amount               decimal.Decimal               `json:"amount"`
	Beneficiary          *transfer.ExternalBeneficiary `json:"beneficiary,omitempty"`
	Contact              string                        `json:"contact,omitempty"`
	Memo                 string                        `json:"memo,omitempty"`
}

// BillPaymentRequest represents a request to pay a biller
type BillPaymentRequest struct {
	SourceAccountID string          `json:"source_account_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount"`
	PayeeName       string          `json:"payee_name"`
	PayeeAccount    string          `json:"payee_account"`
	Memo            string          `json:"memo,omitempty"`
}

// FundCryptoRequest moves fiat from a bank account into the crypto portfolio
type FundCryptoRequest struct {
	AccountID string          `json:"account_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// TradeRequest is a buy (fiat amount) or a sell (asset amount)
type TradeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// DepositRequest represents a mobile cheque deposit
type DepositRequest struct {
	AccountID string          `json:"account_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// RejectRequest carries the reason shown to the customer
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ResolveRequest closes a reconciliation item
type ResolveRequest struct {
	Note string `json:"note"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		OwnerID:   acc.OwnerID,
		Type:      string(acc.Type),
		Balance:   acc.Balance.StringFixed(2),
		Status:    string(acc.Status),
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapTransactionToResponse(tx *transaction.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID.String(),
		AccountID:   tx.AccountID.String(),
		Direction:   string(tx.Direction),
		Amount:      tx.Amount.StringFixed(2),
		Category:    string(tx.Category),
		Description: tx.Description,
		Reference:   tx.Reference,
		Status:      string(tx.Status),
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
}
