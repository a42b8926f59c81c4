// repositories/notification_repository.go
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

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// channelField maps a channel name onto its bson sub-document path.
func channelField(channel string) string {
	return "delivery." + channel
}

// allowedPriorTo lists the statuses a channel may transition out of into
// the target status. not_applicable and delivered are terminal.
func allowedPriorTo(status string) []string {
	switch status {
	case models.DeliverySent:
		return []string{models.DeliveryPending}
	case models.DeliveryDelivered:
		return []string{models.DeliverySent}
	case models.DeliveryFailed:
		return []string{models.DeliveryPending}
	case models.DeliveryNotApplicable:
		return []string{models.DeliveryPending}
	}
	return nil
}

// ========================
// Core Notification CRUD
// ========================

func (nr *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	notification.UpdatedAt = notification.CreatedAt

	result, err := nr.collection.InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		notification.ID = oid
	}

	return nil
}

func (nr *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid notification ID: %w", err)
	}

	var notification models.Notification
	err = nr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return &notification, nil
}

func (nr *NotificationRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification ID: %w", err)
	}

	set := bson.M{"updatedAt": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	_, err = nr.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}

	return nil
}

func (nr *NotificationRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification ID: %w", err)
	}

	_, err = nr.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	return nil
}

// ========================
// User Notification Queries
// ========================

func (nr *NotificationRepository) GetUserNotifications(ctx context.Context, req models.GetNotificationsRequest) ([]models.Notification, int64, int64, error) {
	filter := bson.M{"userId": req.UserID}

	if req.Type != "" {
		filter["type"] = req.Type
	}
	if req.Read != nil {
		filter["isRead"] = *req.Read
	}
	if req.Priority != "" {
		filter["priority"] = req.Priority
	}
	if req.Category != "" {
		filter["category"] = req.Category
	}
	if req.After != nil || req.Before != nil {
		created := bson.M{}
		if req.After != nil {
			created["$gte"] = *req.After
		}
		if req.Before != nil {
			created["$lte"] = *req.Before
		}
		filter["createdAt"] = created
	}

	total, err := nr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	unread, err := nr.collection.CountDocuments(ctx, bson.M{"userId": req.UserID, "isRead": false})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(req.Offset)).
		SetLimit(int64(req.Limit))

	cursor, err := nr.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return notifications, total, unread, nil
}

// ========================
// Channel Status Transitions
// ========================

// SetChannelStatus applies a forward-only transition by filtering on the
// channel's current status, so racing dispatch attempts cannot move a
// channel backwards.
func (nr *NotificationRepository) SetChannelStatus(ctx context.Context, id, channel, status, target, sendError string, at time.Time) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid notification ID: %w", err)
	}

	prior := allowedPriorTo(status)
	if prior == nil {
		return false, fmt.Errorf("invalid target channel status: %s", status)
	}

	field := channelField(channel)
	filter := bson.M{
		"_id":             objectID,
		field + ".status": bson.M{"$in": prior},
	}

	set := bson.M{
		field + ".status": status,
		"updatedAt":       at,
	}
	if target != "" {
		set[field+".target"] = target
	}
	switch status {
	case models.DeliverySent:
		set[field+".sentAt"] = at
	case models.DeliveryFailed:
		set[field+".failedAt"] = at
		set[field+".error"] = sendError
	}

	result, err := nr.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update channel status: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

// ConfirmDelivery applies the asynchronous provider acknowledgement. The
// filtered update makes repeated or out-of-order acks no-ops, and the
// notification-level deliveredAt is only written by the first confirmation.
func (nr *NotificationRepository) ConfirmDelivery(ctx context.Context, id, channel string, at time.Time) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid notification ID: %w", err)
	}

	field := channelField(channel)
	filter := bson.M{
		"_id":             objectID,
		field + ".status": models.DeliverySent,
	}
	update := bson.M{"$set": bson.M{
		field + ".status":      models.DeliveryDelivered,
		field + ".deliveredAt": at,
		"updatedAt":            at,
	}}

	result, err := nr.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to confirm delivery: %w", err)
	}
	if result.ModifiedCount == 0 {
		return false, nil
	}

	// First channel to deliver stamps the notification itself.
	_, err = nr.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "deliveredAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"deliveredAt": at}})
	if err != nil {
		return true, fmt.Errorf("failed to set notification deliveredAt: %w", err)
	}

	return true, nil
}

func (nr *NotificationRepository) IncrementRetry(ctx context.Context, id string, at time.Time) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification ID: %w", err)
	}

	_, err = nr.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$inc": bson.M{"retryCount": 1},
		"$set": bson.M{"lastRetryAt": at, "updatedAt": at},
	})
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}

	return nil
}

// ========================
// Engagement Mutations
// ========================

// MarkRead is idempotent: the filter on isRead=false means a second call
// matches nothing and readAt keeps its original value.
func (nr *NotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid notification ID: %w", err)
	}

	result, err := nr.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at, "updatedAt": at}})
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (nr *NotificationRepository) MarkClicked(ctx context.Context, id, actionTaken string, at time.Time) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid notification ID: %w", err)
	}

	set := bson.M{"isClicked": true, "clickedAt": at, "updatedAt": at}
	if actionTaken != "" {
		set["actionTaken"] = actionTaken
	}

	result, err := nr.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "isClicked": false},
		bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to mark notification clicked: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (nr *NotificationRepository) MarkDismissed(ctx context.Context, id string, at time.Time) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid notification ID: %w", err)
	}

	result, err := nr.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "isDismissed": false},
		bson.M{"$set": bson.M{"isDismissed": true, "dismissedAt": at, "updatedAt": at}})
	if err != nil {
		return false, fmt.Errorf("failed to mark notification dismissed: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (nr *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	result, err := nr.collection.UpdateMany(ctx,
		bson.M{"userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at, "updatedAt": at}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	return result.ModifiedCount, nil
}

// ========================
// Expiry Sweep
// ========================

// FindExpired returns ids due for purge. Notifications with no expiresAt
// are never selected.
func (nr *NotificationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]primitive.ObjectID, error) {
	filter := bson.M{"expiresAt": bson.M{"$exists": true, "$lt": now}}

	findOptions := options.Find().
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := nr.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode expired ids: %w", err)
	}

	ids := make([]primitive.ObjectID, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}

	return ids, nil
}

func (nr *NotificationRepository) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := nr.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}

	return result.DeletedCount, nil
}

// ========================
// Redispatch Scan
// ========================

func (nr *NotificationRepository) FindRedispatchDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	pendingAny := make([]bson.M, 0, 4)
	for _, channel := range models.AllChannels() {
		pendingAny = append(pendingAny, bson.M{channelField(channel) + ".status": models.DeliveryPending})
	}

	filter := bson.M{
		"$or": pendingAny,
		"$and": []bson.M{
			{"$or": []bson.M{
				{"scheduledFor": bson.M{"$exists": false}},
				{"scheduledFor": bson.M{"$lte": now}},
			}},
		},
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := nr.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find redispatch candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode redispatch candidates: %w", err)
	}

	return notifications, nil
}

// ========================
// Statistics Queries
// ========================

func statsFilter(userID string, start, end *time.Time) bson.M {
	filter := bson.M{}
	if userID != "" {
		filter["userId"] = userID
	}
	if start != nil || end != nil {
		created := bson.M{}
		if start != nil {
			created["$gte"] = *start
		}
		if end != nil {
			created["$lte"] = *end
		}
		filter["createdAt"] = created
	}
	return filter
}

func (nr *NotificationRepository) CountByFilter(ctx context.Context, userID string, start, end *time.Time, extra map[string]interface{}) (int64, error) {
	filter := statsFilter(userID, start, end)
	for k, v := range extra {
		filter[k] = v
	}

	count, err := nr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	return count, nil
}

func (nr *NotificationRepository) CountGroupedBy(ctx context.Context, field, userID string, start, end *time.Time) (map[string]int64, error) {
	pipeline := []bson.M{
		{"$match": statsFilter(userID, start, end)},
		{"$group": bson.M{
			"_id":   "$" + field,
			"count": bson.M{"$sum": 1},
		}},
	}

	cursor, err := nr.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var result struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&result); err != nil {
			continue
		}
		counts[result.ID] = result.Count
	}

	return counts, nil
}

// CountChannelStatuses counts notifications whose channel reached sent or
// delivered, per channel.
func (nr *NotificationRepository) CountChannelStatuses(ctx context.Context, userID string, start, end *time.Time) (map[string]int64, error) {
	counts := make(map[string]int64)

	for _, channel := range models.AllChannels() {
		filter := statsFilter(userID, start, end)
		filter[channelField(channel)+".status"] = bson.M{
			"$in": []string{models.DeliverySent, models.DeliveryDelivered},
		}

		count, err := nr.collection.CountDocuments(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s channel: %w", channel, err)
		}
		counts[channel] = count
	}

	return counts, nil
}

// ========================
// Index Creation
// ========================

func (nr *NotificationRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isRead", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "type", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "batchId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "expiresAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "scheduledFor", Value: 1}},
		},
	}

	_, err := nr.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}

	return nil
}
