// services/dispatch_service.go
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"menthub/interfaces"
	"menthub/models"
	"menthub/utils"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 5 * time.Minute
)

// DispatchOptions tunes one dispatch pass. Zero values fall back to the
// service defaults; the bypass flags exist for campaign sends that carry
// their own gating settings.
type DispatchOptions struct {
	BypassPreferences bool
	BypassQuietHours  bool
	MaxRetries        int
	RetryDelay        time.Duration
	HasRetryOverride  bool
}

type DispatchService struct {
	notificationRepo  interfaces.NotificationRepository
	templateRepo      interfaces.TemplateRepository
	userRepo          interfaces.UserRepository
	preferenceService *PreferenceService
	clock             utils.Clock

	providers map[string]interfaces.ChannelProvider
	breakers  map[string]*gobreaker.CircuitBreaker

	batchRecorder interfaces.BatchDeliveryRecorder

	maxRetries int
	retryDelay time.Duration
}

func NewDispatchService(
	notificationRepo interfaces.NotificationRepository,
	templateRepo interfaces.TemplateRepository,
	userRepo interfaces.UserRepository,
	preferenceService *PreferenceService,
	providers map[string]interfaces.ChannelProvider,
	clock utils.Clock,
) *DispatchService {
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(providers))
	for channel := range providers {
		channel := channel
		breakers[channel] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        channel + "-provider",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logrus.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Provider circuit breaker state changed")
			},
		})
	}

	return &DispatchService{
		notificationRepo:  notificationRepo,
		templateRepo:      templateRepo,
		userRepo:          userRepo,
		preferenceService: preferenceService,
		providers:         providers,
		breakers:          breakers,
		clock:             clock,
		maxRetries:        defaultMaxRetries,
		retryDelay:        defaultRetryDelay,
	}
}

// SetRetryPolicy overrides the default retry budget applied when a
// dispatch carries no per-call override and no template settings.
func (ds *DispatchService) SetRetryPolicy(maxRetries int, retryDelay time.Duration) {
	ds.maxRetries = maxRetries
	ds.retryDelay = retryDelay
}

// SetBatchRecorder wires campaign progress accounting into delivery
// confirmations. Set after construction to break the dependency cycle
// with the campaign service.
func (ds *DispatchService) SetBatchRecorder(recorder interfaces.BatchDeliveryRecorder) {
	ds.batchRecorder = recorder
}

// retryOptions settles the retry budget for one dispatch pass. An explicit
// override wins; otherwise a templated notification uses its template's
// settings, and only template-less notifications fall back to the service
// defaults.
func (ds *DispatchService) retryOptions(ctx context.Context, notification *models.Notification, opts DispatchOptions) DispatchOptions {
	if opts.HasRetryOverride || notification.TemplateID.IsZero() {
		return opts
	}

	template, err := ds.templateRepo.GetByID(ctx, notification.TemplateID.Hex())
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			logrus.WithFields(logrus.Fields{
				"notification_id": notification.ID.Hex(),
				"template_id":     notification.TemplateID.Hex(),
			}).WithError(err).Warn("Failed to load template retry settings, using defaults")
		}
		return opts
	}

	opts.MaxRetries = template.Settings.MaxRetries
	opts.RetryDelay = time.Duration(template.Settings.RetryDelayMinutes) * time.Minute
	opts.HasRetryOverride = true
	return opts
}

// Dispatch pushes every pending channel of a stored notification through
// its provider. Channels disabled by preference become not_applicable;
// quiet hours leave channels pending for a later pass. Channel sends run
// concurrently and the call returns after all of them settle.
func (ds *DispatchService) Dispatch(ctx context.Context, notification *models.Notification, opts DispatchOptions) error {
	now := ds.clock.Now()
	if !notification.ScheduledFor.IsZero() && notification.ScheduledFor.After(now) {
		return nil
	}

	var resolution *PreferenceResolution
	if !opts.BypassPreferences || !opts.BypassQuietHours {
		resolved, err := ds.preferenceService.Resolve(ctx, notification.UserID, notification.Type, notification.Subtype)
		if err != nil {
			return err
		}
		resolution = resolved
	}

	enabled := models.NotificationChannels{Push: true, Email: true, SMS: true, InApp: true}
	if !opts.BypassPreferences {
		enabled = resolution.Channels
		if resolution.Frequency == models.FrequencyNever {
			enabled = models.NotificationChannels{}
		}
	}

	// Urgent notifications ignore quiet hours.
	quiet := false
	if !opts.BypassQuietHours && notification.Priority != models.PriorityUrgent {
		quiet = resolution.QuietNow
	}

	// Mark disabled channels first so the document converges even when the
	// recipient lookup below fails.
	for _, channel := range models.AllChannels() {
		if notification.Delivery.ChannelStatus(channel) != models.DeliveryPending {
			continue
		}
		if !enabled.Enabled(channel) {
			if _, err := ds.notificationRepo.SetChannelStatus(ctx, notification.ID.Hex(), channel, models.DeliveryNotApplicable, "", "", now); err != nil {
				return utils.NewDatabaseError("mark channel not applicable", err)
			}
		}
	}

	if quiet {
		logrus.WithFields(logrus.Fields{
			"notification_id": notification.ID.Hex(),
			"user_id":         notification.UserID,
		}).Debug("Recipient in quiet hours, deferring dispatch")
		return nil
	}

	user, err := ds.userRepo.GetByID(ctx, notification.UserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return utils.NewNotFoundError("recipient")
		}
		return err
	}

	opts = ds.retryOptions(ctx, notification, opts)

	var wg sync.WaitGroup
	for _, channel := range models.AllChannels() {
		if !enabled.Enabled(channel) {
			continue
		}
		if notification.Delivery.ChannelStatus(channel) != models.DeliveryPending {
			continue
		}

		target := channelTarget(channel, user)
		if target == "" {
			if _, err := ds.notificationRepo.SetChannelStatus(ctx, notification.ID.Hex(), channel, models.DeliveryFailed, "", "no target address for channel", now); err != nil {
				logrus.WithError(err).Error("Failed to record missing target")
			}
			continue
		}

		wg.Add(1)
		go func(channel, target string) {
			defer wg.Done()
			ds.sendChannel(ctx, notification, channel, target, opts)
		}(channel, target)
	}
	wg.Wait()

	return nil
}

// sendChannel attempts one channel with retries. The retry delay is
// interruptible through the context.
func (ds *DispatchService) sendChannel(ctx context.Context, notification *models.Notification, channel, target string, opts DispatchOptions) {
	provider, ok := ds.providers[channel]
	if !ok {
		_, _ = ds.notificationRepo.SetChannelStatus(ctx, notification.ID.Hex(), channel, models.DeliveryFailed, target, "no provider configured", ds.clock.Now())
		return
	}

	maxRetries := ds.maxRetries
	retryDelay := ds.retryDelay
	if opts.HasRetryOverride {
		maxRetries = opts.MaxRetries
		retryDelay = opts.RetryDelay
	}

	msg := interfaces.ChannelMessage{
		NotificationID: notification.ID.Hex(),
		Title:          notification.Title,
		Body:           notification.Body,
		Data:           notification.Data,
		Priority:       notification.Priority,
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := ds.notificationRepo.IncrementRetry(ctx, notification.ID.Hex(), ds.clock.Now()); err != nil {
				logrus.WithError(err).Error("Failed to record retry")
			}
			if !sleepContext(ctx, retryDelay) {
				lastErr = ctx.Err()
				break
			}
		}

		result, err := ds.sendThroughBreaker(ctx, channel, provider, target, msg)
		if err != nil {
			lastErr = err
			logrus.WithFields(logrus.Fields{
				"notification_id": notification.ID.Hex(),
				"channel":         channel,
				"attempt":         attempt + 1,
			}).WithError(err).Warn("Channel send failed")
			continue
		}

		now := ds.clock.Now()
		if _, err := ds.notificationRepo.SetChannelStatus(ctx, notification.ID.Hex(), channel, models.DeliverySent, target, "", now); err != nil {
			logrus.WithError(err).Error("Failed to record sent status")
			return
		}
		if result != nil && result.Delivered {
			confirmed, err := ds.notificationRepo.ConfirmDelivery(ctx, notification.ID.Hex(), channel, now)
			if err != nil {
				logrus.WithError(err).Error("Failed to record delivery confirmation")
			}
			if confirmed && ds.batchRecorder != nil && !notification.BatchID.IsZero() {
				ds.batchRecorder.RecordDeliveryConfirmation(ctx, notification.BatchID.Hex())
			}
		}
		return
	}

	message := "send failed"
	if lastErr != nil {
		message = lastErr.Error()
	}
	if _, err := ds.notificationRepo.SetChannelStatus(ctx, notification.ID.Hex(), channel, models.DeliveryFailed, target, message, ds.clock.Now()); err != nil {
		logrus.WithError(err).Error("Failed to record failed status")
	}
}

func (ds *DispatchService) sendThroughBreaker(ctx context.Context, channel string, provider interfaces.ChannelProvider, target string, msg interfaces.ChannelMessage) (*interfaces.ProviderResult, error) {
	breaker, ok := ds.breakers[channel]
	if !ok {
		return provider.Send(ctx, target, msg)
	}

	value, err := breaker.Execute(func() (interface{}, error) {
		return provider.Send(ctx, target, msg)
	})
	if err != nil {
		return nil, utils.NewProviderError(channel, err)
	}

	result, _ := value.(*interfaces.ProviderResult)
	return result, nil
}

// ConfirmDelivery records a provider callback moving a channel from sent
// to delivered. Repeat confirmations are no-ops. Confirmations for
// campaign notifications also bump the batch delivered counter.
func (ds *DispatchService) ConfirmDelivery(ctx context.Context, notificationID, channel string) (bool, error) {
	confirmed, err := ds.notificationRepo.ConfirmDelivery(ctx, notificationID, channel, ds.clock.Now())
	if err != nil {
		return false, utils.NewDatabaseError("confirm delivery", err)
	}

	if confirmed && ds.batchRecorder != nil {
		notification, err := ds.notificationRepo.GetByID(ctx, notificationID)
		if err != nil {
			logrus.WithField("notification_id", notificationID).
				WithError(err).Warn("Confirmed delivery but could not resolve batch")
		} else if !notification.BatchID.IsZero() {
			ds.batchRecorder.RecordDeliveryConfirmation(ctx, notification.BatchID.Hex())
		}
	}

	return confirmed, nil
}

// RedispatchDue scans for notifications left pending by quiet hours or
// scheduling and runs a dispatch pass over each. Returns how many were
// processed.
func (ds *DispatchService) RedispatchDue(ctx context.Context, limit int) (int, error) {
	due, err := ds.notificationRepo.FindRedispatchDue(ctx, ds.clock.Now(), limit)
	if err != nil {
		return 0, utils.NewDatabaseError("find redispatch due", err)
	}

	for i := range due {
		if err := ds.Dispatch(ctx, &due[i], DispatchOptions{}); err != nil {
			logrus.WithFields(logrus.Fields{
				"notification_id": due[i].ID.Hex(),
			}).WithError(err).Error("Redispatch failed")
		}
	}

	return len(due), nil
}

func channelTarget(channel string, user *models.User) string {
	switch channel {
	case models.ChannelPush:
		return user.DeviceToken
	case models.ChannelEmail:
		return user.Email
	case models.ChannelSMS:
		return user.Phone
	case models.ChannelInApp:
		return user.ID.Hex()
	}
	return ""
}

// sleepContext waits for d or until the context is done; it reports
// whether the full delay elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
