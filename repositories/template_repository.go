// repositories/template_repository.go
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

type TemplateRepository struct {
	collection *mongo.Collection
}

func NewTemplateRepository(db *mongo.Database) *TemplateRepository {
	return &TemplateRepository{
		collection: db.Collection("notification_templates"),
	}
}

func (tr *TemplateRepository) Create(ctx context.Context, template *models.NotificationTemplate) error {
	template.CreatedAt = time.Now()
	template.UpdatedAt = template.CreatedAt

	result, err := tr.collection.InsertOne(ctx, template)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		template.ID = oid
	}

	return nil
}

func (tr *TemplateRepository) GetByID(ctx context.Context, id string) (*models.NotificationTemplate, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid template ID: %w", err)
	}

	var template models.NotificationTemplate
	err = tr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&template)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &template, nil
}

// GetByType returns active templates of a type, exact match only.
func (tr *TemplateRepository) GetByType(ctx context.Context, notificationType string) ([]models.NotificationTemplate, error) {
	filter := bson.M{"type": notificationType, "isActive": true}

	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := tr.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find templates: %w", err)
	}
	defer cursor.Close(ctx)

	var templates []models.NotificationTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}

	return templates, nil
}

func (tr *TemplateRepository) Update(ctx context.Context, template *models.NotificationTemplate) error {
	template.UpdatedAt = time.Now()

	filter := bson.M{"_id": template.ID}
	update := bson.M{"$set": template}

	_, err := tr.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	return nil
}

func (tr *TemplateRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "type", Value: 1}, {Key: "isActive", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := tr.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create template indexes: %w", err)
	}

	return nil
}
