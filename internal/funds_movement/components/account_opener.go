package components

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/directory"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/funds_movement/service"
)

// ContactRegistry links a contact identifier to a customer.
type ContactRegistry interface {
	RegisterContact(ctx context.Context, identifier, userID string) error
}

// ContactCache drops cached directory entries.
type ContactCache interface {
	Invalidate(ctx context.Context, identifier string)
}

type AccountOpenerImpl struct {
	accounts account.Store
	contacts ContactRegistry
	cache    ContactCache
	logger   *slog.Logger
}

func NewAccountOpener(accounts account.Store, contacts ContactRegistry, cache ContactCache, logger *slog.Logger) service.AccountOpener {
	return &AccountOpenerImpl{
		accounts: accounts,
		contacts: contacts,
		cache:    cache,
		logger:   logger,
	}
}

// Open creates an active account. A contact, when given, is registered first
// so that the new account is reachable by P2P transfers.
func (o *AccountOpenerImpl) Open(ctx context.Context, cmd service.OpenAccountCommand) (*account.Account, error) {
	acc, err := account.NewAccount(cmd.UserID, cmd.Type, cmd.InitialBalance)
	if err != nil {
		return nil, shared.NewInvalidInput(err.Error())
	}

	contact := strings.TrimSpace(cmd.Contact)
	if contact != "" {
		if err := o.contacts.RegisterContact(ctx, contact, cmd.UserID); err != nil {
			if errors.Is(err, directory.ErrInvalidContact) {
				return nil, shared.NewInvalidInput(err.Error())
			}
			return nil, shared.NewPersistenceFailure("could not register contact", err)
		}
	}

	if err := o.accounts.Create(ctx, acc); err != nil {
		o.logger.Error("Failed to create account", "user_id", cmd.UserID, "type", string(cmd.Type), "error", err)
		return nil, shared.NewPersistenceFailure("could not open account", err)
	}

	if contact != "" && o.cache != nil {
		o.cache.Invalidate(ctx, contact)
	}

	o.logger.Info("Account opened",
		"account_id", acc.ID.String(),
		"user_id", acc.OwnerID,
		"type", string(acc.Type),
		"initial_balance", acc.Balance.StringFixed(2),
	)
	return acc, nil
}
