// repositories/user_repository.go
package repositories

import (
	"context"
	"fmt"

	"menthub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository reads the shared users collection owned by the platform
// user service. The notification engine never writes to it.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

func (ur *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	var user models.User
	err = ur.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (ur *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue // skip malformed ids rather than failing the whole audience
		}
		objectIDs = append(objectIDs, objectID)
	}

	if len(objectIDs) == 0 {
		return nil, nil
	}

	cursor, err := ur.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, nil
}

func (ur *UserRepository) FindByCriteria(ctx context.Context, criteria *models.TargetCriteria) ([]models.User, error) {
	if criteria.Empty() {
		return nil, nil
	}

	filter := bson.M{"isActive": true}
	if len(criteria.Roles) > 0 {
		filter["role"] = bson.M{"$in": criteria.Roles}
	}
	if len(criteria.Tags) > 0 {
		filter["tags"] = bson.M{"$in": criteria.Tags}
	}
	if criteria.Location != "" {
		filter["location"] = criteria.Location
	}
	if criteria.LastActiveAfter != nil {
		filter["lastActiveAt"] = bson.M{"$gte": *criteria.LastActiveAfter}
	}

	cursor, err := ur.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by criteria: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, nil
}
