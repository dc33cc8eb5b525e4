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

	"github.com/fleet-diesel-ledger/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "audit_log"
)

// AuditRepository implements the audit.Repository interface for MongoDB.
// The collection is append-only; the repository exposes no update or delete.
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit trail repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new audit entry after checking for duplicates.
// Returns ErrDuplicateEntry if an entry with the same ID exists, making
// publication from the outbox idempotent.
func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	collection := r.db.Collection(AuditCollectionName)

	existingEntry, err := r.GetByID(ctx, entry.ID)
	if err != nil && !errors.Is(err, audit.ErrEntryNotFound{}) {
		r.logger.Error("Failed to check for existing audit entry",
			"entry_id", entry.ID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing audit entry: %w", err)
	}

	if existingEntry != nil {
		return audit.ErrDuplicateEntry{EntryID: entry.ID}
	}

	_, err = collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to create audit entry",
			"entry_id", entry.ID.String(),
			"error", err)
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// GetByID retrieves an audit entry by its ID.
// Returns ErrEntryNotFound if no entry exists.
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"id": id}
	var entry audit.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, audit.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get audit entry",
			"entry_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}

	return &entry, nil
}

// ListByEntity retrieves paginated audit entries for one entity.
// Results are sorted by timestamp in descending order (newest first).
func (r *AuditRepository) ListByEntity(ctx context.Context, entity, entityID string, limit, offset int) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"entity": entity, "entity_id": entityID}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit entries by entity",
			"entity", entity,
			"entity_id", entityID,
			"error", err)
		return nil, fmt.Errorf("failed to list audit entries by entity: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*audit.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"entity", entity,
			"entity_id", entityID,
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}

// List retrieves paginated audit entries across the whole trail,
// newest first
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list audit entries", "error", err)
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*audit.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries", "error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}

// Count counts the total number of audit entries
func (r *AuditRepository) Count(ctx context.Context) (int64, error) {
	collection := r.db.Collection(AuditCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		r.logger.Error("Failed to count audit entries", "error", err)
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return count, nil
}

// ListByTimeRange retrieves paginated audit entries within the specified time
// window. Results are sorted by timestamp in descending order for
// recent-first access.
func (r *AuditRepository) ListByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{
		"timestamp": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit entries by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to list audit entries by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*audit.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}
