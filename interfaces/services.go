package interfaces

import (
	"context"
	"time"

	"menthub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Storage contracts the engine requires from the document store. The mongo
// repositories implement these; tests substitute mocks.

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error

	// GetUserNotifications returns one page plus total and unread counts.
	GetUserNotifications(ctx context.Context, req models.GetNotificationsRequest) ([]models.Notification, int64, int64, error)

	// SetChannelStatus applies a forward-only channel transition; it returns
	// false when the current status does not permit the move.
	SetChannelStatus(ctx context.Context, id, channel, status, target, sendError string, at time.Time) (bool, error)

	// ConfirmDelivery moves a channel sent -> delivered idempotently and sets
	// the notification-level deliveredAt on the first confirmation.
	ConfirmDelivery(ctx context.Context, id, channel string, at time.Time) (bool, error)

	IncrementRetry(ctx context.Context, id string, at time.Time) error

	// MarkRead/MarkClicked/MarkDismissed return false when the flag was
	// already set, leaving existing timestamps untouched.
	MarkRead(ctx context.Context, id string, at time.Time) (bool, error)
	MarkClicked(ctx context.Context, id, actionTaken string, at time.Time) (bool, error)
	MarkDismissed(ctx context.Context, id string, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)

	// FindExpired returns up to limit ids whose expiresAt has passed.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]primitive.ObjectID, error)
	// DeleteByIDs removes the given documents in one batched write.
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error)

	// FindRedispatchDue returns notifications with at least one pending
	// channel whose scheduledFor (if any) has passed.
	FindRedispatchDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)

	CountByFilter(ctx context.Context, userID string, start, end *time.Time, extra map[string]interface{}) (int64, error)
	CountGroupedBy(ctx context.Context, field, userID string, start, end *time.Time) (map[string]int64, error)
	CountChannelStatuses(ctx context.Context, userID string, start, end *time.Time) (map[string]int64, error)
}

type TemplateRepository interface {
	Create(ctx context.Context, template *models.NotificationTemplate) error
	GetByID(ctx context.Context, id string) (*models.NotificationTemplate, error)
	GetByType(ctx context.Context, notificationType string) ([]models.NotificationTemplate, error)
	Update(ctx context.Context, template *models.NotificationTemplate) error
}

type PreferenceRepository interface {
	GetByUserAndType(ctx context.Context, userID, notificationType string) (*models.NotificationPreference, error)
	Create(ctx context.Context, preference *models.NotificationPreference) error
	Update(ctx context.Context, preference *models.NotificationPreference) error
}

type BatchRepository interface {
	Create(ctx context.Context, batch *models.NotificationBatch) error
	GetByID(ctx context.Context, id string) (*models.NotificationBatch, error)

	// UpdateStatus performs a compare-and-set: the write applies only when
	// the stored status is one of allowedFrom. Returns false on a lost race.
	UpdateStatus(ctx context.Context, id, status string, allowedFrom []string, fields map[string]interface{}) (bool, error)

	// IncrementProgress atomically applies counter deltas.
	IncrementProgress(ctx context.Context, id string, deltas models.BatchProgress) error

	FindScheduledDue(ctx context.Context, now time.Time, limit int) ([]models.NotificationBatch, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	FindByCriteria(ctx context.Context, criteria *models.TargetCriteria) ([]models.User, error)
}

// ChannelProvider is one delivery medium adapter. Send returns a rejection
// error when the provider did not accept the submission; acceptance is not
// a delivery guarantee.
type ChannelProvider interface {
	Send(ctx context.Context, target string, msg ChannelMessage) (*ProviderResult, error)
}

type ChannelMessage struct {
	NotificationID string
	Title          string
	Body           string
	Data           map[string]interface{}
	Priority       string
}

type ProviderResult struct {
	Accepted  bool
	MessageID string
	// Delivered is set by providers that confirm synchronously (in-app).
	Delivered bool
}

// InAppPublisher pushes an in-app event to a user's connected clients.
// It reports whether at least one client received it.
type InAppPublisher interface {
	PublishToUser(userID string, event string, payload interface{}) bool
}

// BatchDeliveryRecorder receives delivery confirmations for notifications
// that belong to a campaign batch.
type BatchDeliveryRecorder interface {
	RecordDeliveryConfirmation(ctx context.Context, batchID string)
}
