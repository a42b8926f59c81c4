package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"menthub/interfaces"
	"menthub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type dispatchFixture struct {
	repo      *mockNotificationRepo
	templates *mockTemplateRepo
	users     *mockUserRepo
	prefs     *mockPreferenceRepo
	push      *mockProvider
	email     *mockProvider
	inApp     *mockProvider
	service   *DispatchService
	now       time.Time
	recipient *models.User
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	f := &dispatchFixture{
		repo:      new(mockNotificationRepo),
		templates: new(mockTemplateRepo),
		users:     new(mockUserRepo),
		prefs:     new(mockPreferenceRepo),
		push:      new(mockProvider),
		email:     new(mockProvider),
		inApp:     new(mockProvider),
		now:       time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	userID := primitive.NewObjectID()
	f.recipient = &models.User{
		ID:          userID,
		Email:       "founder@example.com",
		Phone:       "+15550001111",
		DeviceToken: "device-token-1",
		IsActive:    true,
	}

	providers := map[string]interfaces.ChannelProvider{
		models.ChannelPush:  f.push,
		models.ChannelEmail: f.email,
		models.ChannelInApp: f.inApp,
	}

	f.service = NewDispatchService(f.repo, f.templates, f.users, NewPreferenceService(f.prefs, fixedClock(f.now)), providers, fixedClock(f.now))
	f.service.SetRetryPolicy(0, 0)

	return f
}

func (f *dispatchFixture) notification() *models.Notification {
	return &models.Notification{
		ID:       primitive.NewObjectID(),
		UserID:   f.recipient.ID.Hex(),
		Type:     models.NotificationTypeMessage,
		Priority: models.PriorityNormal,
		Title:    "Hi",
		Body:     "There",
		Delivery: models.NewDeliveryChannels(),
	}
}

func (f *dispatchFixture) preference(channels models.NotificationChannels, quiet bool) *models.NotificationPreference {
	return &models.NotificationPreference{
		UserID:    f.recipient.ID.Hex(),
		Type:      models.NotificationTypeMessage,
		Channels:  channels,
		Frequency: models.FrequencyImmediate,
		QuietHours: models.QuietHours{
			Enabled:   quiet,
			StartTime: "00:00",
			EndTime:   "23:59",
			Timezone:  "UTC",
		},
	}
}

func TestDispatchDisabledChannelsBecomeNotApplicable(t *testing.T) {
	f := newDispatchFixture(t)
	n := f.notification()

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true}, false), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)

	for _, channel := range []string{models.ChannelEmail, models.ChannelSMS, models.ChannelInApp} {
		f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), channel, models.DeliveryNotApplicable, "", "", f.now).
			Return(true, nil).Once()
	}

	f.push.On("Send", mock.Anything, "device-token-1", mock.Anything).
		Return(&interfaces.ProviderResult{Accepted: true, MessageID: "m-1"}, nil).Once()
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelPush, models.DeliverySent, "device-token-1", "", f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{})
	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
	f.push.AssertExpectations(t)
	f.email.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchQuietHoursLeavesPending(t *testing.T) {
	f := newDispatchFixture(t)
	n := f.notification()

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true, Email: true, SMS: true, InApp: true}, true), nil)

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{})
	assert.NoError(t, err)

	f.push.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "SetChannelStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestDispatchUrgentIgnoresQuietHours(t *testing.T) {
	f := newDispatchFixture(t)
	n := f.notification()
	n.Priority = models.PriorityUrgent

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true}, true), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)

	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)
	f.push.On("Send", mock.Anything, "device-token-1", mock.Anything).
		Return(&interfaces.ProviderResult{Accepted: true}, nil).Once()
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelPush, models.DeliverySent, "device-token-1", "", f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{})
	assert.NoError(t, err)
	f.push.AssertExpectations(t)
}

func TestDispatchQuietHoursBypassForCampaigns(t *testing.T) {
	f := newDispatchFixture(t)
	n := f.notification()

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true}, true), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)

	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)
	f.push.On("Send", mock.Anything, "device-token-1", mock.Anything).
		Return(&interfaces.ProviderResult{Accepted: true}, nil).Once()
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelPush, models.DeliverySent, "device-token-1", "", f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{BypassQuietHours: true})
	assert.NoError(t, err)
	f.push.AssertExpectations(t)
}

func TestDispatchScheduledForFutureIsNoop(t *testing.T) {
	f := newDispatchFixture(t)
	n := f.notification()
	n.ScheduledFor = f.now.Add(time.Hour)

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{})
	assert.NoError(t, err)
	f.prefs.AssertNotCalled(t, "GetByUserAndType", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchRetriesUntilBudgetExhausted(t *testing.T) {
	f := newDispatchFixture(t)
	n := f.notification()

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true}, false), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)

	// maxRetries 2 means three attempts in total.
	f.push.On("Send", mock.Anything, "device-token-1", mock.Anything).
		Return(nil, errors.New("fcm unavailable")).Times(3)
	f.repo.On("IncrementRetry", mock.Anything, n.ID.Hex(), f.now).Return(nil).Times(2)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelPush, models.DeliveryFailed, "device-token-1", mock.Anything, f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{
		MaxRetries:       2,
		RetryDelay:       0,
		HasRetryOverride: true,
	})
	assert.NoError(t, err)
	f.push.AssertExpectations(t)
	f.repo.AssertExpectations(t)
}

func TestDispatchSucceedsAfterRetry(t *testing.T) {
	f := newDispatchFixture(t)
	n := f.notification()

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true}, false), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)

	f.push.On("Send", mock.Anything, "device-token-1", mock.Anything).
		Return(nil, errors.New("transient")).Once()
	f.push.On("Send", mock.Anything, "device-token-1", mock.Anything).
		Return(&interfaces.ProviderResult{Accepted: true, MessageID: "m-2"}, nil).Once()
	f.repo.On("IncrementRetry", mock.Anything, n.ID.Hex(), f.now).Return(nil).Once()
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelPush, models.DeliverySent, "device-token-1", "", f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{
		MaxRetries:       3,
		RetryDelay:       0,
		HasRetryOverride: true,
	})
	assert.NoError(t, err)
	f.push.AssertExpectations(t)
}

func TestDispatchSynchronousDeliveryConfirmation(t *testing.T) {
	f := newDispatchFixture(t)
	n := f.notification()

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{InApp: true}, false), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)

	f.inApp.On("Send", mock.Anything, n.UserID, mock.Anything).
		Return(&interfaces.ProviderResult{Accepted: true, Delivered: true}, nil).Once()
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelInApp, models.DeliverySent, n.UserID, "", f.now).
		Return(true, nil).Once()
	f.repo.On("ConfirmDelivery", mock.Anything, n.ID.Hex(), models.ChannelInApp, f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{})
	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestDispatchMissingTargetFailsChannel(t *testing.T) {
	f := newDispatchFixture(t)
	f.recipient.DeviceToken = ""
	n := f.notification()

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true}, false), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelPush, models.DeliveryFailed, "", "no target address for channel", f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{})
	assert.NoError(t, err)
	f.push.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertExpectations(t)
}

func TestDispatchSkipsAlreadySettledChannels(t *testing.T) {
	f := newDispatchFixture(t)
	n := f.notification()
	n.Delivery.Push.Status = models.DeliverySent
	n.Delivery.Email.Status = models.DeliveryFailed
	n.Delivery.SMS.Status = models.DeliveryNotApplicable

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true, Email: true, SMS: true, InApp: true}, false), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)

	f.inApp.On("Send", mock.Anything, n.UserID, mock.Anything).
		Return(&interfaces.ProviderResult{Accepted: true}, nil).Once()
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelInApp, models.DeliverySent, n.UserID, "", f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{})
	assert.NoError(t, err)
	f.push.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	f.email.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	f.inApp.AssertExpectations(t)
}

func TestRedispatchDueRunsEachNotification(t *testing.T) {
	f := newDispatchFixture(t)
	n1 := f.notification()
	n2 := f.notification()

	f.repo.On("FindRedispatchDue", mock.Anything, f.now, 100).
		Return([]models.Notification{*n1, *n2}, nil).Once()

	f.prefs.On("GetByUserAndType", mock.Anything, mock.Anything, mock.Anything).
		Return(f.preference(models.NotificationChannels{}, false), nil)
	f.repo.On("SetChannelStatus", mock.Anything, mock.Anything, mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)
	f.users.On("GetByID", mock.Anything, mock.Anything).Return(f.recipient, nil)

	processed, err := f.service.RedispatchDue(context.Background(), 100)
	assert.NoError(t, err)
	assert.Equal(t, 2, processed)
}

func TestConfirmDeliveryPassThrough(t *testing.T) {
	f := newDispatchFixture(t)
	id := primitive.NewObjectID().Hex()

	f.repo.On("ConfirmDelivery", mock.Anything, id, models.ChannelPush, f.now).Return(true, nil).Once()

	confirmed, err := f.service.ConfirmDelivery(context.Background(), id, models.ChannelPush)
	assert.NoError(t, err)
	assert.True(t, confirmed)

	f.repo.On("ConfirmDelivery", mock.Anything, id, models.ChannelPush, f.now).Return(false, nil).Once()

	confirmed, err = f.service.ConfirmDelivery(context.Background(), id, models.ChannelPush)
	assert.NoError(t, err)
	assert.False(t, confirmed)
}

func TestDispatchUsesTemplateRetryBudget(t *testing.T) {
	f := newDispatchFixture(t)
	f.service.SetRetryPolicy(5, 0)

	template := &models.NotificationTemplate{
		ID:       primitive.NewObjectID(),
		Name:     "session-reminder",
		Type:     models.NotificationTypeMessage,
		Settings: models.TemplateSettings{MaxRetries: 2, RetryDelayMinutes: 0},
		IsActive: true,
	}
	n := f.notification()
	n.TemplateID = template.ID

	f.templates.On("GetByID", mock.Anything, template.ID.Hex()).Return(template, nil).Once()
	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true}, false), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)

	// The template budget of 2 retries wins over the service default of 5.
	f.push.On("Send", mock.Anything, "device-token-1", mock.Anything).
		Return(nil, errors.New("fcm unavailable")).Times(3)
	f.repo.On("IncrementRetry", mock.Anything, n.ID.Hex(), f.now).Return(nil).Times(2)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelPush, models.DeliveryFailed, "device-token-1", mock.Anything, f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{})
	assert.NoError(t, err)
	f.push.AssertExpectations(t)
	f.repo.AssertExpectations(t)
	f.templates.AssertExpectations(t)
}

func TestDispatchMissingTemplateFallsBackToDefaultBudget(t *testing.T) {
	f := newDispatchFixture(t)
	f.service.SetRetryPolicy(1, 0)

	n := f.notification()
	n.TemplateID = primitive.NewObjectID()

	f.templates.On("GetByID", mock.Anything, n.TemplateID.Hex()).Return(nil, mongo.ErrNoDocuments).Once()
	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true}, false), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)

	f.push.On("Send", mock.Anything, "device-token-1", mock.Anything).
		Return(nil, errors.New("fcm unavailable")).Times(2)
	f.repo.On("IncrementRetry", mock.Anything, n.ID.Hex(), f.now).Return(nil).Once()
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelPush, models.DeliveryFailed, "device-token-1", mock.Anything, f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{})
	assert.NoError(t, err)
	f.push.AssertExpectations(t)
}

func TestDispatchRetryOverrideBeatsTemplate(t *testing.T) {
	f := newDispatchFixture(t)
	n := f.notification()
	n.TemplateID = primitive.NewObjectID()

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{Push: true}, false), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)

	f.push.On("Send", mock.Anything, "device-token-1", mock.Anything).
		Return(nil, errors.New("fcm unavailable")).Once()
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelPush, models.DeliveryFailed, "device-token-1", mock.Anything, f.now).
		Return(true, nil).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{
		MaxRetries:       0,
		RetryDelay:       0,
		HasRetryOverride: true,
	})
	assert.NoError(t, err)
	f.push.AssertExpectations(t)
	f.templates.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestConfirmDeliveryRecordsBatchProgress(t *testing.T) {
	f := newDispatchFixture(t)
	recorder := new(mockBatchRecorder)
	f.service.SetBatchRecorder(recorder)

	batchID := primitive.NewObjectID()
	n := f.notification()
	n.BatchID = batchID

	f.repo.On("ConfirmDelivery", mock.Anything, n.ID.Hex(), models.ChannelPush, f.now).Return(true, nil).Once()
	f.repo.On("GetByID", mock.Anything, n.ID.Hex()).Return(n, nil).Once()
	recorder.On("RecordDeliveryConfirmation", mock.Anything, batchID.Hex()).Once()

	confirmed, err := f.service.ConfirmDelivery(context.Background(), n.ID.Hex(), models.ChannelPush)
	assert.NoError(t, err)
	assert.True(t, confirmed)
	recorder.AssertExpectations(t)
}

func TestConfirmDeliveryRepeatDoesNotRecordBatchProgress(t *testing.T) {
	f := newDispatchFixture(t)
	recorder := new(mockBatchRecorder)
	f.service.SetBatchRecorder(recorder)

	id := primitive.NewObjectID().Hex()
	f.repo.On("ConfirmDelivery", mock.Anything, id, models.ChannelPush, f.now).Return(false, nil).Once()

	confirmed, err := f.service.ConfirmDelivery(context.Background(), id, models.ChannelPush)
	assert.NoError(t, err)
	assert.False(t, confirmed)
	recorder.AssertNotCalled(t, "RecordDeliveryConfirmation", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestSynchronousConfirmationRecordsBatchProgress(t *testing.T) {
	f := newDispatchFixture(t)
	recorder := new(mockBatchRecorder)
	f.service.SetBatchRecorder(recorder)

	batchID := primitive.NewObjectID()
	n := f.notification()
	n.BatchID = batchID

	f.prefs.On("GetByUserAndType", mock.Anything, n.UserID, n.Type).
		Return(f.preference(models.NotificationChannels{InApp: true}, false), nil)
	f.users.On("GetByID", mock.Anything, n.UserID).Return(f.recipient, nil)
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), mock.Anything, models.DeliveryNotApplicable, "", "", f.now).
		Return(true, nil)

	f.inApp.On("Send", mock.Anything, n.UserID, mock.Anything).
		Return(&interfaces.ProviderResult{Accepted: true, Delivered: true}, nil).Once()
	f.repo.On("SetChannelStatus", mock.Anything, n.ID.Hex(), models.ChannelInApp, models.DeliverySent, n.UserID, "", f.now).
		Return(true, nil).Once()
	f.repo.On("ConfirmDelivery", mock.Anything, n.ID.Hex(), models.ChannelInApp, f.now).
		Return(true, nil).Once()
	recorder.On("RecordDeliveryConfirmation", mock.Anything, batchID.Hex()).Once()

	err := f.service.Dispatch(context.Background(), n, DispatchOptions{})
	assert.NoError(t, err)
	recorder.AssertExpectations(t)
}
