// services/notification_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"menthub/interfaces"
	"menthub/models"
	"menthub/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

type NotificationService struct {
	notificationRepo interfaces.NotificationRepository
	templateRepo     interfaces.TemplateRepository
	clock            utils.Clock
}

func NewNotificationService(notificationRepo interfaces.NotificationRepository, templateRepo interfaces.TemplateRepository, clock utils.Clock) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		templateRepo:     templateRepo,
		clock:            clock,
	}
}

// CreateNotification stores a directly-authored notification with every
// channel pending. Dispatch happens separately.
func (ns *NotificationService) CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	if req.Priority != "" && !models.ValidPriority(req.Priority) {
		return nil, utils.NewBadRequestError(fmt.Sprintf("invalid priority: %s", req.Priority))
	}

	now := ns.clock.Now()
	notification := &models.Notification{
		UserID:       req.UserID,
		Type:         req.Type,
		Subtype:      req.Subtype,
		Category:     req.Category,
		Priority:     req.Priority,
		Title:        req.Title,
		Body:         req.Body,
		Data:         req.Data,
		Delivery:     models.NewDeliveryChannels(),
		SourceUserID: req.SourceUserID,
		RelatedID:    req.RelatedID,
		RelatedType:  req.RelatedType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if notification.Priority == "" {
		notification.Priority = models.PriorityNormal
	}
	if notification.Category == "" {
		notification.Category = notification.Type
	}
	if req.ScheduledFor != nil {
		notification.ScheduledFor = *req.ScheduledFor
	}
	if req.ExpiresAt != nil {
		notification.ExpiresAt = *req.ExpiresAt
	}

	if err := ns.notificationRepo.Create(ctx, notification); err != nil {
		return nil, utils.NewDatabaseError("create notification", err)
	}

	logrus.WithFields(logrus.Fields{
		"notification_id": notification.ID.Hex(),
		"user_id":         notification.UserID,
		"type":            notification.Type,
	}).Info("Notification created")

	return notification, nil
}

// CreateFromTemplate renders an active template into a stored notification.
// Template data and custom data are merged with custom keys winning.
func (ns *NotificationService) CreateFromTemplate(ctx context.Context, req models.CreateFromTemplateRequest, locale string) (*models.Notification, error) {
	template, err := ns.templateRepo.GetByID(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewTemplateNotFoundError()
		}
		return nil, err
	}
	if !template.IsActive {
		return nil, utils.NewBadRequestError("template is not active")
	}

	title, body := RenderTemplate(template, req.Placeholders, locale)

	data := make(map[string]interface{}, len(template.Data)+len(req.CustomData))
	for key, value := range template.Data {
		data[key] = value
	}
	for key, value := range req.CustomData {
		data[key] = value
	}
	if len(data) == 0 {
		data = nil
	}

	now := ns.clock.Now()
	notification := &models.Notification{
		UserID:     req.UserID,
		Type:       template.Type,
		Subtype:    template.Subtype,
		Category:   template.Category,
		Priority:   template.Priority,
		Title:      title,
		Body:       body,
		Data:       data,
		Delivery:   models.NewDeliveryChannels(),
		TemplateID: template.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if req.ScheduledFor != nil {
		notification.ScheduledFor = *req.ScheduledFor
	}
	if template.Settings.ExpiryHours > 0 {
		notification.ExpiresAt = now.Add(time.Duration(template.Settings.ExpiryHours) * time.Hour)
	}

	if err := ns.notificationRepo.Create(ctx, notification); err != nil {
		return nil, utils.NewDatabaseError("create notification", err)
	}

	logrus.WithFields(logrus.Fields{
		"notification_id": notification.ID.Hex(),
		"template_id":     template.ID.Hex(),
		"user_id":         notification.UserID,
	}).Info("Notification created from template")

	return notification, nil
}

func (ns *NotificationService) GetNotification(ctx context.Context, notificationID string) (*models.Notification, error) {
	notification, err := ns.notificationRepo.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotificationNotFoundError()
		}
		return nil, err
	}

	return notification, nil
}

// GetUserNotifications returns one page, newest first, plus total and
// unread counts for the same filter.
func (ns *NotificationService) GetUserNotifications(ctx context.Context, req models.GetNotificationsRequest) ([]models.Notification, int64, int64, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	return ns.notificationRepo.GetUserNotifications(ctx, req)
}

func (ns *NotificationService) UpdateNotification(ctx context.Context, notificationID string, req models.UpdateNotificationRequest) (*models.Notification, error) {
	notification, err := ns.GetNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Body != nil {
		fields["body"] = *req.Body
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			return nil, utils.NewBadRequestError(fmt.Sprintf("invalid priority: %s", *req.Priority))
		}
		fields["priority"] = *req.Priority
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.Data != nil {
		fields["data"] = req.Data
	}

	if len(fields) == 0 {
		return notification, nil
	}
	fields["updatedAt"] = ns.clock.Now()

	if err := ns.notificationRepo.Update(ctx, notificationID, fields); err != nil {
		return nil, utils.NewDatabaseError("update notification", err)
	}

	return ns.GetNotification(ctx, notificationID)
}

func (ns *NotificationService) DeleteNotification(ctx context.Context, notificationID string) error {
	if _, err := ns.GetNotification(ctx, notificationID); err != nil {
		return err
	}

	if err := ns.notificationRepo.Delete(ctx, notificationID); err != nil {
		return utils.NewDatabaseError("delete notification", err)
	}

	return nil
}

// MarkAsRead sets the read flag. Repeat calls are no-ops that keep the
// original readAt.
func (ns *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	notification, err := ns.getOwned(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}

	if notification.IsRead {
		return notification, nil
	}

	if _, err := ns.notificationRepo.MarkRead(ctx, notificationID, ns.clock.Now()); err != nil {
		return nil, utils.NewDatabaseError("mark read", err)
	}

	return ns.GetNotification(ctx, notificationID)
}

func (ns *NotificationService) MarkAsClicked(ctx context.Context, notificationID, userID, actionTaken string) (*models.Notification, error) {
	notification, err := ns.getOwned(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}

	if notification.IsClicked {
		return notification, nil
	}

	if _, err := ns.notificationRepo.MarkClicked(ctx, notificationID, actionTaken, ns.clock.Now()); err != nil {
		return nil, utils.NewDatabaseError("mark clicked", err)
	}

	return ns.GetNotification(ctx, notificationID)
}

func (ns *NotificationService) MarkAsDismissed(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	notification, err := ns.getOwned(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}

	if notification.IsDismissed {
		return notification, nil
	}

	if _, err := ns.notificationRepo.MarkDismissed(ctx, notificationID, ns.clock.Now()); err != nil {
		return nil, utils.NewDatabaseError("mark dismissed", err)
	}

	return ns.GetNotification(ctx, notificationID)
}

// MarkAllAsRead returns how many notifications the write actually flipped.
func (ns *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	count, err := ns.notificationRepo.MarkAllRead(ctx, userID, ns.clock.Now())
	if err != nil {
		return 0, utils.NewDatabaseError("mark all read", err)
	}

	return count, nil
}

func (ns *NotificationService) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	unread := false
	_, _, count, err := ns.notificationRepo.GetUserNotifications(ctx, models.GetNotificationsRequest{
		UserID: userID,
		Limit:  1,
		Read:   &unread,
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (ns *NotificationService) getOwned(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	notification, err := ns.GetNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if userID != "" && notification.UserID != userID {
		return nil, utils.NewForbiddenError("notification belongs to another user")
	}

	return notification, nil
}
