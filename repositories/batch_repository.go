// repositories/batch_repository.go
package repositories

import (
	"context"
	"fmt"
	"time"

	"menthub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BatchRepository struct {
	collection *mongo.Collection
}

func NewBatchRepository(db *mongo.Database) *BatchRepository {
	return &BatchRepository{
		collection: db.Collection("notification_batches"),
	}
}

func (br *BatchRepository) Create(ctx context.Context, batch *models.NotificationBatch) error {
	batch.CreatedAt = time.Now()
	batch.UpdatedAt = batch.CreatedAt

	result, err := br.collection.InsertOne(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		batch.ID = oid
	}

	return nil
}

func (br *BatchRepository) GetByID(ctx context.Context, id string) (*models.NotificationBatch, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid batch ID: %w", err)
	}

	var batch models.NotificationBatch
	err = br.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&batch)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &batch, nil
}

// UpdateStatus is the batch state machine gate: the status write is filtered
// on the current status, so concurrent transitions (cancel racing completion,
// two runners picking up the same batch) resolve to exactly one winner.
func (br *BatchRepository) UpdateStatus(ctx context.Context, id, status string, allowedFrom []string, fields map[string]interface{}) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid batch ID: %w", err)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": allowedFrom},
	}

	set := bson.M{"status": status, "updatedAt": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	result, err := br.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update batch status: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

// IncrementProgress applies counter deltas with a single atomic $inc so
// concurrent dispatch results never lose updates.
func (br *BatchRepository) IncrementProgress(ctx context.Context, id string, deltas models.BatchProgress) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid batch ID: %w", err)
	}

	inc := bson.M{}
	if deltas.Total != 0 {
		inc["progress.total"] = deltas.Total
	}
	if deltas.Sent != 0 {
		inc["progress.sent"] = deltas.Sent
	}
	if deltas.Delivered != 0 {
		inc["progress.delivered"] = deltas.Delivered
	}
	if deltas.Failed != 0 {
		inc["progress.failed"] = deltas.Failed
	}
	if deltas.Pending != 0 {
		inc["progress.pending"] = deltas.Pending
	}
	if len(inc) == 0 {
		return nil
	}

	_, err = br.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$inc": inc,
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to increment batch progress: %w", err)
	}

	return nil
}

func (br *BatchRepository) FindScheduledDue(ctx context.Context, now time.Time, limit int) ([]models.NotificationBatch, error) {
	filter := bson.M{
		"status":       models.BatchStatusScheduled,
		"scheduledFor": bson.M{"$lte": now},
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "scheduledFor", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := br.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find due batches: %w", err)
	}
	defer cursor.Close(ctx)

	var batches []models.NotificationBatch
	if err = cursor.All(ctx, &batches); err != nil {
		return nil, fmt.Errorf("failed to decode due batches: %w", err)
	}

	return batches, nil
}

func (br *BatchRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduledFor", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	}

	_, err := br.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create batch indexes: %w", err)
	}

	return nil
}
