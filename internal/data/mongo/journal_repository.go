// Package mongo provides the MongoDB implementation of the webhook journal.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vocalix-payment-gateway/internal/domain/journal"
	"github.com/vocalix-payment-gateway/internal/domain/transaction"
)

const (
	// JournalCollectionName is the name of the webhook journal collection in MongoDB
	JournalCollectionName = "webhook_journal"
)

// JournalRepository implements the journal.Repository interface for MongoDB
type JournalRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewJournalRepository creates a new MongoDB journal repository
func NewJournalRepository(logger *slog.Logger, db *mongo.Database) journal.Repository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends one handled callback to the journal
func (r *JournalRepository) Record(ctx context.Context, entry *journal.Entry) error {
	collection := r.db.Collection(JournalCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to record journal entry",
			"gateway", string(entry.Gateway),
			"operation", entry.Operation,
			"error", err)
		return fmt.Errorf("failed to record journal entry: %w", err)
	}

	return nil
}

// GetByGatewayTransactionID retrieves every callback recorded for a gateway
// transaction, oldest first, tracing its full lifecycle.
func (r *JournalRepository) GetByGatewayTransactionID(ctx context.Context, gateway transaction.Gateway, gatewayTxnID string) ([]*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"gateway": gateway, "gateway_transaction_id": gatewayTxnID}
	opts := options.Find().SetSort(bson.M{"received_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get journal entries by gateway transaction",
			"gateway", string(gateway),
			"gw_txn_id", gatewayTxnID,
			"error", err)
		return nil, fmt.Errorf("failed to get journal entries by gateway transaction: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*journal.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"gw_txn_id", gatewayTxnID,
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}

// GetByReferenceID retrieves every callback recorded against a merchant
// reference, oldest first
func (r *JournalRepository) GetByReferenceID(ctx context.Context, referenceID string) ([]*journal.Entry, error) {
	if referenceID == "" {
		return nil, errors.New("reference id cannot be empty")
	}

	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"reference_id": referenceID}
	opts := options.Find().SetSort(bson.M{"received_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get journal entries by reference",
			"reference_id", referenceID,
			"error", err)
		return nil, fmt.Errorf("failed to get journal entries by reference: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*journal.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"reference_id", referenceID,
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}

// GetByTimeRange retrieves paginated journal entries within the specified
// time window. Results are sorted by arrival time in descending order for
// recent-first access.
func (r *JournalRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{
		"received_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"received_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get journal entries by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get journal entries by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*journal.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}

// CountByGateway counts the callbacks recorded for one gateway
func (r *JournalRepository) CountByGateway(ctx context.Context, gateway transaction.Gateway) (int64, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"gateway": gateway}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count journal entries",
			"gateway", string(gateway),
			"error", err)
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}

	return count, nil
}
