package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/directory"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

// DirectoryRepository resolves P2P contacts from customer_contacts.
type DirectoryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewDirectoryRepository(logger *slog.Logger, db *persistence.PostgresDB) *DirectoryRepository {
	return &DirectoryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// ResolveByContact returns the customer registered under identifier together
// with all of their accounts, oldest first.
func (r *DirectoryRepository) ResolveByContact(ctx context.Context, identifier string) (*directory.Recipient, error) {
	contact := directory.NormalizeContact(identifier)
	if contact == "" {
		return nil, directory.ErrRecipientNotFound
	}

	var userID string
	err := r.querier.QueryRow(ctx, `SELECT user_id FROM customer_contacts WHERE contact = $1`, contact).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrRecipientNotFound
		}
		r.logger.Error("Failed to resolve contact", "error", err)
		return nil, fmt.Errorf("failed to resolve contact: %w", err)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at ASC`
	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list recipient accounts", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list recipient accounts: %w", err)
	}
	defer rows.Close()

	recipient := &directory.Recipient{UserID: userID}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		recipient.Accounts = append(recipient.Accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over recipient accounts: %w", err)
	}

	return recipient, nil
}

// RegisterContact maps a contact identifier to userID, replacing any previous owner.
func (r *DirectoryRepository) RegisterContact(ctx context.Context, identifier, userID string) error {
	contact := directory.NormalizeContact(identifier)
	if contact == "" {
		return directory.ErrInvalidContact
	}

	query := `
		INSERT INTO customer_contacts (contact, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (contact) DO UPDATE SET user_id = EXCLUDED.user_id
	`
	if _, err := r.querier.Exec(ctx, query, contact, userID); err != nil {
		r.logger.Error("Failed to register contact", "user_id", userID, "error", err)
		return fmt.Errorf("failed to register contact: %w", err)
	}

	return nil
}
