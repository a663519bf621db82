package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-banking-ledger/internal/domain/statement"
)

const (
	// StatementCollectionName is the name of the statement collection in MongoDB
	StatementCollectionName = "statement_entries"
)

// StatementRepository implements the statement.Repository interface for MongoDB
type StatementRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewStatementRepository creates a new MongoDB statement repository
func NewStatementRepository(logger *slog.Logger, db *mongo.Database) *StatementRepository {
	return &StatementRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique transaction index and the account timeline index.
func (r *StatementRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(StatementCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create statement indexes", "error", err)
		return fmt.Errorf("failed to create statement indexes: %w", err)
	}

	return nil
}

// Upsert replaces the projection of entry.TransactionID, inserting it when absent.
// Replaying the same outbox message therefore leaves a single document.
func (r *StatementRepository) Upsert(ctx context.Context, entry *statement.Entry) error {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"transaction_id": entry.TransactionID}
	opts := options.Replace().SetUpsert(true)

	if _, err := collection.ReplaceOne(ctx, filter, entry, opts); err != nil {
		r.logger.Error("Failed to upsert statement entry",
			"transaction_id", entry.TransactionID.String(),
			"reference", entry.Reference,
			"error", err)
		return fmt.Errorf("failed to upsert statement entry: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves a statement entry by its transaction ID.
// Returns ErrEntryNotFound if no entry exists for the given transaction.
func (r *StatementRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*statement.Entry, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	var entry statement.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, statement.ErrEntryNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get statement entry",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get statement entry: %w", err)
	}

	return &entry, nil
}

// GetByAccountID retrieves paginated statement entries for an account, newest first.
func (r *StatementRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*statement.Entry, error) {
	filter := bson.M{"account_id": accountID}

	entries, err := r.find(ctx, filter, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get statement entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get statement entries: %w", err)
	}

	return entries, nil
}

// CountByAccountID counts the total number of statement entries for an account
func (r *StatementRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"account_id": accountID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count statement entries",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count statement entries: %w", err)
	}

	return count, nil
}

// GetByTimeRange retrieves an account's entries created within [startTime, endTime], newest first.
func (r *StatementRepository) GetByTimeRange(ctx context.Context, accountID uuid.UUID, startTime, endTime time.Time, limit, offset int) ([]*statement.Entry, error) {
	filter := bson.M{
		"account_id": accountID,
		"created_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}

	entries, err := r.find(ctx, filter, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get statement entries by time range",
			"account_id", accountID.String(),
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get statement entries by time range: %w", err)
	}

	return entries, nil
}

func (r *StatementRepository) find(ctx context.Context, filter bson.M, limit, offset int) ([]*statement.Entry, error) {
	collection := r.db.Collection(StatementCollectionName)

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*statement.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}
