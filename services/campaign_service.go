// services/campaign_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"menthub/interfaces"
	"menthub/models"
	"menthub/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultBatchSize      = 100
	cancelFlagTTL         = 24 * time.Hour
	cancelFlagKeyTemplate = "menthub:batch:cancel:%s"
)

// CampaignService drives bulk template sends: audience expansion, chunked
// per-recipient creation and dispatch, progress accounting, cancellation.
type CampaignService struct {
	batchRepo        interfaces.BatchRepository
	templateRepo     interfaces.TemplateRepository
	userRepo         interfaces.UserRepository
	notificationRepo interfaces.NotificationRepository

	dispatchService *DispatchService
	redisClient     *redis.Client
	clock           utils.Clock
}

func NewCampaignService(
	batchRepo interfaces.BatchRepository,
	templateRepo interfaces.TemplateRepository,
	userRepo interfaces.UserRepository,
	notificationRepo interfaces.NotificationRepository,
	dispatchService *DispatchService,
	redisClient *redis.Client,
	clock utils.Clock,
) *CampaignService {
	return &CampaignService{
		batchRepo:        batchRepo,
		templateRepo:     templateRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		dispatchService:  dispatchService,
		redisClient:      redisClient,
		clock:            clock,
	}
}

// CreateBatch stores a draft (or scheduled, when scheduledFor is set)
// campaign after validating the template and the audience definition.
func (cs *CampaignService) CreateBatch(ctx context.Context, req models.CreateBatchRequest, createdBy string) (*models.NotificationBatch, error) {
	template, err := cs.templateRepo.GetByID(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewTemplateNotFoundError()
		}
		return nil, err
	}
	if !template.IsActive {
		return nil, utils.NewBadRequestError("template is not active")
	}

	if len(req.TargetUsers) == 0 && req.Criteria.Empty() {
		return nil, utils.NewBadRequestError("campaign needs target users or target criteria")
	}

	now := cs.clock.Now()
	batch := &models.NotificationBatch{
		Name:           req.Name,
		TemplateID:     template.ID,
		TargetUsers:    req.TargetUsers,
		TargetCriteria: req.Criteria,
		Placeholders:   req.Placeholders,
		Status:         models.BatchStatusDraft,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	batch.Settings = models.BatchSettings{
		RespectQuietHours:  true,
		RespectPreferences: true,
		MaxRetries:         template.Settings.MaxRetries,
		BatchSize:          defaultBatchSize,
	}
	if req.Settings != nil {
		batch.Settings = *req.Settings
		if batch.Settings.BatchSize <= 0 {
			batch.Settings.BatchSize = defaultBatchSize
		}
	}

	if req.ScheduledFor != nil {
		if req.ScheduledFor.Before(now) {
			return nil, utils.NewBadRequestError("scheduledFor is in the past")
		}
		batch.Status = models.BatchStatusScheduled
		batch.ScheduledFor = *req.ScheduledFor
	}

	if err := cs.batchRepo.Create(ctx, batch); err != nil {
		return nil, utils.NewDatabaseError("create batch", err)
	}

	logrus.WithFields(logrus.Fields{
		"batch_id": batch.ID.Hex(),
		"name":     batch.Name,
		"status":   batch.Status,
	}).Info("Campaign batch created")

	return batch, nil
}

func (cs *CampaignService) GetBatch(ctx context.Context, batchID string) (*models.NotificationBatch, error) {
	batch, err := cs.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewBatchNotFoundError()
		}
		return nil, err
	}

	return batch, nil
}

// ScheduleBatch moves a draft to scheduled for a future instant.
func (cs *CampaignService) ScheduleBatch(ctx context.Context, batchID string, scheduledFor time.Time) (*models.NotificationBatch, error) {
	if scheduledFor.Before(cs.clock.Now()) {
		return nil, utils.NewBadRequestError("scheduledFor is in the past")
	}

	moved, err := cs.batchRepo.UpdateStatus(ctx, batchID, models.BatchStatusScheduled,
		[]string{models.BatchStatusDraft, models.BatchStatusScheduled},
		map[string]interface{}{"scheduledFor": scheduledFor})
	if err != nil {
		return nil, utils.NewDatabaseError("schedule batch", err)
	}
	if !moved {
		batch, getErr := cs.GetBatch(ctx, batchID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, utils.NewInvalidTransitionError(batch.Status, models.BatchStatusScheduled)
	}

	return cs.GetBatch(ctx, batchID)
}

// CancelBatch marks a non-terminal batch cancelled and raises the cancel
// flag a running send checks at chunk boundaries. Already-created
// notifications stay as they are.
func (cs *CampaignService) CancelBatch(ctx context.Context, batchID string) (*models.NotificationBatch, error) {
	moved, err := cs.batchRepo.UpdateStatus(ctx, batchID, models.BatchStatusCancelled,
		[]string{models.BatchStatusDraft, models.BatchStatusScheduled, models.BatchStatusSending},
		map[string]interface{}{"completedAt": cs.clock.Now()})
	if err != nil {
		return nil, utils.NewDatabaseError("cancel batch", err)
	}
	if !moved {
		batch, getErr := cs.GetBatch(ctx, batchID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, utils.NewInvalidTransitionError(batch.Status, models.BatchStatusCancelled)
	}

	if cs.redisClient != nil {
		key := fmt.Sprintf(cancelFlagKeyTemplate, batchID)
		if err := cs.redisClient.Set(ctx, key, "1", cancelFlagTTL).Err(); err != nil {
			logrus.WithError(err).Warn("Failed to raise campaign cancel flag")
		}
	}

	return cs.GetBatch(ctx, batchID)
}

// Run executes a draft or scheduled batch to completion: expands the
// audience, claims the batch via a status compare-and-set, then sends in
// chunks with a configurable pause between them.
func (cs *CampaignService) Run(ctx context.Context, batchID string) error {
	batch, err := cs.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if models.TerminalBatchStatus(batch.Status) {
		return utils.NewInvalidTransitionError(batch.Status, models.BatchStatusSending)
	}

	template, err := cs.templateRepo.GetByID(ctx, batch.TemplateID.Hex())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			cs.failBatch(ctx, batchID, "template no longer exists")
			return utils.NewTemplateNotFoundError()
		}
		return err
	}

	recipients, err := cs.ExpandAudience(ctx, batch)
	if err != nil {
		cs.failBatch(ctx, batchID, err.Error())
		return err
	}

	total := int64(len(recipients))
	claimed, err := cs.batchRepo.UpdateStatus(ctx, batchID, models.BatchStatusSending,
		[]string{models.BatchStatusDraft, models.BatchStatusScheduled},
		map[string]interface{}{
			"startedAt": cs.clock.Now(),
			"progress":  models.BatchProgress{Total: total, Pending: total},
		})
	if err != nil {
		return utils.NewDatabaseError("claim batch", err)
	}
	if !claimed {
		// Another worker picked it up, or it was cancelled under us.
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"batch_id":   batchID,
		"recipients": total,
		"batch_size": batch.Settings.BatchSize,
	}).Info("Campaign run started")

	chunkSize := batch.Settings.BatchSize
	if chunkSize <= 0 {
		chunkSize = defaultBatchSize
	}

	for start := 0; start < len(recipients); start += chunkSize {
		if cs.cancelRequested(ctx, batchID) {
			logrus.WithField("batch_id", batchID).Info("Campaign run stopped by cancellation")
			return nil
		}

		end := start + chunkSize
		if end > len(recipients) {
			end = len(recipients)
		}
		cs.sendChunk(ctx, batch, template, recipients[start:end])

		if end < len(recipients) && batch.Settings.DelayBetweenBatches > 0 {
			delay := time.Duration(batch.Settings.DelayBetweenBatches) * time.Second
			if !cs.waitBetweenChunks(ctx, batchID, delay) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logrus.WithField("batch_id", batchID).Info("Campaign run stopped by cancellation")
				return nil
			}
		}
	}

	completed, err := cs.batchRepo.UpdateStatus(ctx, batchID, models.BatchStatusCompleted,
		[]string{models.BatchStatusSending},
		map[string]interface{}{"completedAt": cs.clock.Now()})
	if err != nil {
		return utils.NewDatabaseError("complete batch", err)
	}
	if completed {
		logrus.WithField("batch_id", batchID).Info("Campaign run completed")
	}

	return nil
}

// ExpandAudience resolves the recipient set: explicit target users joined
// with criteria matches, deduplicated, inactive users dropped.
func (cs *CampaignService) ExpandAudience(ctx context.Context, batch *models.NotificationBatch) ([]models.User, error) {
	seen := make(map[string]bool)
	var recipients []models.User

	if len(batch.TargetUsers) > 0 {
		users, err := cs.userRepo.GetByIDs(ctx, batch.TargetUsers)
		if err != nil {
			return nil, utils.NewExpansionError("failed to load target users", err)
		}
		for _, user := range users {
			if !user.IsActive || seen[user.ID.Hex()] {
				continue
			}
			seen[user.ID.Hex()] = true
			recipients = append(recipients, user)
		}
	}

	if !batch.TargetCriteria.Empty() {
		users, err := cs.userRepo.FindByCriteria(ctx, batch.TargetCriteria)
		if err != nil {
			return nil, utils.NewExpansionError("criteria query failed", err)
		}
		for _, user := range users {
			if seen[user.ID.Hex()] {
				continue
			}
			seen[user.ID.Hex()] = true
			recipients = append(recipients, user)
		}
	}

	if len(recipients) == 0 {
		return nil, utils.NewExpansionError("audience is empty", nil)
	}

	return recipients, nil
}

func (cs *CampaignService) sendChunk(ctx context.Context, batch *models.NotificationBatch, template *models.NotificationTemplate, recipients []models.User) {
	opts := DispatchOptions{
		BypassPreferences: !batch.Settings.RespectPreferences,
		BypassQuietHours:  !batch.Settings.RespectQuietHours,
		MaxRetries:        batch.Settings.MaxRetries,
		RetryDelay:        time.Duration(template.Settings.RetryDelayMinutes) * time.Minute,
		HasRetryOverride:  true,
	}

	for i := range recipients {
		recipient := &recipients[i]
		notification, err := cs.createRecipientNotification(ctx, batch, template, recipient)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"batch_id": batch.ID.Hex(),
				"user_id":  recipient.ID.Hex(),
			}).WithError(err).Error("Failed to create campaign notification")
			cs.recordProgress(ctx, batch.ID.Hex(), models.BatchProgress{Failed: 1, Pending: -1})
			continue
		}

		if err := cs.dispatchService.Dispatch(ctx, notification, opts); err != nil {
			logrus.WithFields(logrus.Fields{
				"batch_id":        batch.ID.Hex(),
				"notification_id": notification.ID.Hex(),
			}).WithError(err).Error("Campaign dispatch failed")
			cs.recordProgress(ctx, batch.ID.Hex(), models.BatchProgress{Failed: 1, Pending: -1})
			continue
		}

		cs.recordProgress(ctx, batch.ID.Hex(), models.BatchProgress{Sent: 1, Pending: -1})
	}
}

func (cs *CampaignService) createRecipientNotification(ctx context.Context, batch *models.NotificationBatch, template *models.NotificationTemplate, recipient *models.User) (*models.Notification, error) {
	title, body := RenderTemplate(template, batch.Placeholders, recipient.Locale)

	now := cs.clock.Now()
	notification := &models.Notification{
		UserID:     recipient.ID.Hex(),
		Type:       template.Type,
		Subtype:    template.Subtype,
		Category:   template.Category,
		Priority:   template.Priority,
		Title:      title,
		Body:       body,
		Data:       template.Data,
		Delivery:   models.NewDeliveryChannels(),
		TemplateID: template.ID,
		BatchID:    batch.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if template.Settings.ExpiryHours > 0 {
		notification.ExpiresAt = now.Add(time.Duration(template.Settings.ExpiryHours) * time.Hour)
	}

	if err := cs.notificationRepo.Create(ctx, notification); err != nil {
		return nil, err
	}

	return notification, nil
}

// RecordDeliveryConfirmation bumps the delivered counter after a provider
// callback confirmed a campaign notification.
func (cs *CampaignService) RecordDeliveryConfirmation(ctx context.Context, batchID string) {
	cs.recordProgress(ctx, batchID, models.BatchProgress{Delivered: 1})
}

func (cs *CampaignService) recordProgress(ctx context.Context, batchID string, deltas models.BatchProgress) {
	if err := cs.batchRepo.IncrementProgress(ctx, batchID, deltas); err != nil {
		logrus.WithField("batch_id", batchID).WithError(err).Error("Failed to update campaign progress")
	}
}

// waitBetweenChunks paces the chunk loop. The wait runs in short slices
// with a cancellation check between them, so a cancel raised mid-wait does
// not have to sit out the full delay. Returns false when the run should
// stop.
func (cs *CampaignService) waitBetweenChunks(ctx context.Context, batchID string, delay time.Duration) bool {
	const slice = time.Second

	for remaining := delay; remaining > 0; remaining -= slice {
		if cs.cancelRequested(ctx, batchID) {
			return false
		}
		step := slice
		if remaining < slice {
			step = remaining
		}
		if !sleepContext(ctx, step) {
			return false
		}
	}

	return !cs.cancelRequested(ctx, batchID)
}

func (cs *CampaignService) cancelRequested(ctx context.Context, batchID string) bool {
	if cs.redisClient != nil {
		key := fmt.Sprintf(cancelFlagKeyTemplate, batchID)
		flag, err := cs.redisClient.Get(ctx, key).Result()
		if err == nil && flag == "1" {
			return true
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			logrus.WithError(err).Warn("Failed to read campaign cancel flag")
		}
	}

	batch, err := cs.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return false
	}
	return batch.Status == models.BatchStatusCancelled
}

func (cs *CampaignService) failBatch(ctx context.Context, batchID, reason string) {
	_, err := cs.batchRepo.UpdateStatus(ctx, batchID, models.BatchStatusFailed,
		[]string{models.BatchStatusDraft, models.BatchStatusScheduled, models.BatchStatusSending},
		map[string]interface{}{
			"failReason":  reason,
			"completedAt": cs.clock.Now(),
		})
	if err != nil {
		logrus.WithField("batch_id", batchID).WithError(err).Error("Failed to mark batch failed")
	}
}
