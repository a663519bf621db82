// Package directory resolves a customer's contact identifier to the accounts
// that may receive peer-to-peer transfers.
package directory

import (
	"context"
	"errors"
	"strings"

	"github.com/retail-banking-ledger/internal/domain/account"
)

var (
	ErrRecipientNotFound = errors.New("no customer matches the contact")
	ErrInvalidContact    = errors.New("contact must be an e-mail address or phone number")
)

// Recipient is a resolved customer with the accounts it holds.
type Recipient struct {
	UserID   string             `json:"user_id"`
	Accounts []*account.Account `json:"accounts"`
}

// Eligible returns the accounts that accept P2P credits, excluding exclude.
func (r *Recipient) Eligible(exclude ...*account.Account) []*account.Account {
	var out []*account.Account
	for _, acc := range r.Accounts {
		if !acc.AcceptsP2P() {
			continue
		}
		skip := false
		for _, ex := range exclude {
			if ex != nil && ex.ID == acc.ID {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, acc)
		}
	}
	return out
}

// Directory is the account directory used by P2P resolution.
type Directory interface {
	ResolveByContact(ctx context.Context, identifier string) (*Recipient, error)
}

// NormalizeContact lower-cases e-mail addresses and strips formatting from phone numbers.
func NormalizeContact(identifier string) string {
	id := strings.TrimSpace(identifier)
	if strings.Contains(id, "@") {
		return strings.ToLower(id)
	}
	var b strings.Builder
	for i, r := range id {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
