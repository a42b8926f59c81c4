// repositories/preference_repository.go
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

type PreferenceRepository struct {
	collection *mongo.Collection
}

func NewPreferenceRepository(db *mongo.Database) *PreferenceRepository {
	return &PreferenceRepository{
		collection: db.Collection("notification_preferences"),
	}
}

func (pr *PreferenceRepository) GetByUserAndType(ctx context.Context, userID, notificationType string) (*models.NotificationPreference, error) {
	var preference models.NotificationPreference
	err := pr.collection.FindOne(ctx, bson.M{"userId": userID, "type": notificationType}).Decode(&preference)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}

	return &preference, nil
}

func (pr *PreferenceRepository) Create(ctx context.Context, preference *models.NotificationPreference) error {
	preference.CreatedAt = time.Now()
	preference.UpdatedAt = preference.CreatedAt

	result, err := pr.collection.InsertOne(ctx, preference)
	if err != nil {
		return fmt.Errorf("failed to create preference: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		preference.ID = oid
	}

	return nil
}

func (pr *PreferenceRepository) Update(ctx context.Context, preference *models.NotificationPreference) error {
	preference.UpdatedAt = time.Now()

	filter := bson.M{"userId": preference.UserID, "type": preference.Type}
	update := bson.M{"$set": preference}

	_, err := pr.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update preference: %w", err)
	}

	return nil
}

func (pr *PreferenceRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := pr.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create preference indexes: %w", err)
	}

	return nil
}
