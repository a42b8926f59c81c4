package services

import (
	"context"
	"time"

	"menthub/interfaces"
	"menthub/models"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *mockNotificationRepo) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if n := args.Get(0); n != nil {
		return n.(*models.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationRepo) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockNotificationRepo) GetUserNotifications(ctx context.Context, req models.GetNotificationsRequest) ([]models.Notification, int64, int64, error) {
	args := m.Called(ctx, req)
	var list []models.Notification
	if v := args.Get(0); v != nil {
		list = v.([]models.Notification)
	}
	return list, args.Get(1).(int64), args.Get(2).(int64), args.Error(3)
}

func (m *mockNotificationRepo) SetChannelStatus(ctx context.Context, id, channel, status, target, sendError string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, channel, status, target, sendError, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotificationRepo) ConfirmDelivery(ctx context.Context, id, channel string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, channel, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotificationRepo) IncrementRetry(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotificationRepo) MarkClicked(ctx context.Context, id, actionTaken string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, actionTaken, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotificationRepo) MarkDismissed(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]primitive.ObjectID, error) {
	args := m.Called(ctx, now, limit)
	var ids []primitive.ObjectID
	if v := args.Get(0); v != nil {
		ids = v.([]primitive.ObjectID)
	}
	return ids, args.Error(1)
}

func (m *mockNotificationRepo) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) FindRedispatchDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, now, limit)
	var list []models.Notification
	if v := args.Get(0); v != nil {
		list = v.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *mockNotificationRepo) CountByFilter(ctx context.Context, userID string, start, end *time.Time, extra map[string]interface{}) (int64, error) {
	args := m.Called(ctx, userID, start, end, extra)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) CountGroupedBy(ctx context.Context, field, userID string, start, end *time.Time) (map[string]int64, error) {
	args := m.Called(ctx, field, userID, start, end)
	var counts map[string]int64
	if v := args.Get(0); v != nil {
		counts = v.(map[string]int64)
	}
	return counts, args.Error(1)
}

func (m *mockNotificationRepo) CountChannelStatuses(ctx context.Context, userID string, start, end *time.Time) (map[string]int64, error) {
	args := m.Called(ctx, userID, start, end)
	var counts map[string]int64
	if v := args.Get(0); v != nil {
		counts = v.(map[string]int64)
	}
	return counts, args.Error(1)
}

type mockTemplateRepo struct {
	mock.Mock
}

func (m *mockTemplateRepo) Create(ctx context.Context, template *models.NotificationTemplate) error {
	args := m.Called(ctx, template)
	if template.ID.IsZero() {
		template.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *mockTemplateRepo) GetByID(ctx context.Context, id string) (*models.NotificationTemplate, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*models.NotificationTemplate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTemplateRepo) GetByType(ctx context.Context, notificationType string) ([]models.NotificationTemplate, error) {
	args := m.Called(ctx, notificationType)
	var list []models.NotificationTemplate
	if v := args.Get(0); v != nil {
		list = v.([]models.NotificationTemplate)
	}
	return list, args.Error(1)
}

func (m *mockTemplateRepo) Update(ctx context.Context, template *models.NotificationTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

type mockPreferenceRepo struct {
	mock.Mock
}

func (m *mockPreferenceRepo) GetByUserAndType(ctx context.Context, userID, notificationType string) (*models.NotificationPreference, error) {
	args := m.Called(ctx, userID, notificationType)
	if p := args.Get(0); p != nil {
		return p.(*models.NotificationPreference), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPreferenceRepo) Create(ctx context.Context, preference *models.NotificationPreference) error {
	args := m.Called(ctx, preference)
	return args.Error(0)
}

func (m *mockPreferenceRepo) Update(ctx context.Context, preference *models.NotificationPreference) error {
	args := m.Called(ctx, preference)
	return args.Error(0)
}

type mockBatchRepo struct {
	mock.Mock
}

func (m *mockBatchRepo) Create(ctx context.Context, batch *models.NotificationBatch) error {
	args := m.Called(ctx, batch)
	if batch.ID.IsZero() {
		batch.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *mockBatchRepo) GetByID(ctx context.Context, id string) (*models.NotificationBatch, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*models.NotificationBatch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBatchRepo) UpdateStatus(ctx context.Context, id, status string, allowedFrom []string, fields map[string]interface{}) (bool, error) {
	args := m.Called(ctx, id, status, allowedFrom, fields)
	return args.Bool(0), args.Error(1)
}

func (m *mockBatchRepo) IncrementProgress(ctx context.Context, id string, deltas models.BatchProgress) error {
	args := m.Called(ctx, id, deltas)
	return args.Error(0)
}

func (m *mockBatchRepo) FindScheduledDue(ctx context.Context, now time.Time, limit int) ([]models.NotificationBatch, error) {
	args := m.Called(ctx, now, limit)
	var list []models.NotificationBatch
	if v := args.Get(0); v != nil {
		list = v.([]models.NotificationBatch)
	}
	return list, args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var list []models.User
	if v := args.Get(0); v != nil {
		list = v.([]models.User)
	}
	return list, args.Error(1)
}

func (m *mockUserRepo) FindByCriteria(ctx context.Context, criteria *models.TargetCriteria) ([]models.User, error) {
	args := m.Called(ctx, criteria)
	var list []models.User
	if v := args.Get(0); v != nil {
		list = v.([]models.User)
	}
	return list, args.Error(1)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Send(ctx context.Context, target string, msg interfaces.ChannelMessage) (*interfaces.ProviderResult, error) {
	args := m.Called(ctx, target, msg)
	if r := args.Get(0); r != nil {
		return r.(*interfaces.ProviderResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockBatchRecorder struct {
	mock.Mock
}

func (m *mockBatchRecorder) RecordDeliveryConfirmation(ctx context.Context, batchID string) {
	m.Called(ctx, batchID)
}
