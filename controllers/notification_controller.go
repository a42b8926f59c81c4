package controllers

import (
	"time"

	"menthub/models"
	"menthub/services"
	"menthub/utils"
	"menthub/workers"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type NotificationController struct {
	notificationService *services.NotificationService
	dispatchService     *services.DispatchService
	dispatchWorker      *workers.DispatchWorker
	validator           *utils.ValidationService
}

func NewNotificationController(
	notificationService *services.NotificationService,
	dispatchService *services.DispatchService,
	dispatchWorker *workers.DispatchWorker,
) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
		dispatchService:     dispatchService,
		dispatchWorker:      dispatchWorker,
		validator:           utils.NewValidationService(),
	}
}

// CreateNotification stores a directly-authored notification and queues
// its dispatch.
func (nc *NotificationController) CreateNotification(c *gin.Context) {
	var req models.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if validationErrors := nc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	notification, err := nc.notificationService.CreateNotification(c.Request.Context(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	nc.queueDispatch(notification)

	utils.CreatedResponse(c, "Notification created", notification)
}

// CreateFromTemplate renders a template into a notification and queues
// its dispatch.
func (nc *NotificationController) CreateFromTemplate(c *gin.Context) {
	var req models.CreateFromTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if validationErrors := nc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	locale := c.Query("locale")
	notification, err := nc.notificationService.CreateFromTemplate(c.Request.Context(), req, locale)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	nc.queueDispatch(notification)

	utils.CreatedResponse(c, "Notification created from template", notification)
}

// GetNotifications lists the caller's notifications, newest first.
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	req := models.GetNotificationsRequest{
		UserID:   userID,
		Limit:    utils.QueryInt(c, "limit", 20, 1, 100),
		Offset:   utils.QueryInt(c, "offset", 0, 0, 1<<30),
		Type:     c.Query("type"),
		Priority: c.Query("priority"),
		Category: c.Query("category"),
	}
	if read := c.Query("read"); read != "" {
		value := read == "true"
		req.Read = &value
	}
	if after := c.Query("after"); after != "" {
		if t, err := time.Parse(time.RFC3339, after); err == nil {
			req.After = &t
		}
	}
	if before := c.Query("before"); before != "" {
		if t, err := time.Parse(time.RFC3339, before); err == nil {
			req.Before = &t
		}
	}

	notifications, total, unread, err := nc.notificationService.GetUserNotifications(c.Request.Context(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	page := req.Offset/req.Limit + 1
	meta := utils.CreatePaginationMeta(page, req.Limit, total)
	meta.UnreadCount = unread

	utils.SuccessResponseWithMeta(c, "Notifications retrieved", notifications, meta)
}

func (nc *NotificationController) GetNotification(c *gin.Context) {
	notification, err := nc.notificationService.GetNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	userID := utils.GetUserID(c)
	if notification.UserID != userID && utils.GetUserRole(c) != "admin" {
		utils.ForbiddenResponse(c, "Notification belongs to another user")
		return
	}

	utils.SuccessResponse(c, "Notification retrieved", notification)
}

func (nc *NotificationController) UpdateNotification(c *gin.Context) {
	var req models.UpdateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	notification, err := nc.notificationService.UpdateNotification(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification updated", notification)
}

func (nc *NotificationController) DeleteNotification(c *gin.Context) {
	if err := nc.notificationService.DeleteNotification(c.Request.Context(), c.Param("id")); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification deleted", nil)
}

func (nc *NotificationController) MarkAsRead(c *gin.Context) {
	notification, err := nc.notificationService.MarkAsRead(c.Request.Context(), c.Param("id"), utils.GetUserID(c))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification marked as read", notification)
}

func (nc *NotificationController) MarkAsClicked(c *gin.Context) {
	var req models.MarkClickedRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	notification, err := nc.notificationService.MarkAsClicked(c.Request.Context(), c.Param("id"), utils.GetUserID(c), req.ActionTaken)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification marked as clicked", notification)
}

func (nc *NotificationController) MarkAsDismissed(c *gin.Context) {
	notification, err := nc.notificationService.MarkAsDismissed(c.Request.Context(), c.Param("id"), utils.GetUserID(c))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notification dismissed", notification)
}

func (nc *NotificationController) MarkAllAsRead(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	count, err := nc.notificationService.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "All notifications marked as read", gin.H{"updated": count})
}

func (nc *NotificationController) GetUnreadCount(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	count, err := nc.notificationService.GetUnreadCount(c.Request.Context(), userID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Unread count retrieved", gin.H{"unread": count})
}

// ConfirmDelivery receives a provider delivery callback for one channel.
func (nc *NotificationController) ConfirmDelivery(c *gin.Context) {
	channel := c.Param("channel")
	confirmed, err := nc.dispatchService.ConfirmDelivery(c.Request.Context(), c.Param("id"), channel)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Delivery confirmation processed", gin.H{"confirmed": confirmed})
}

func (nc *NotificationController) queueDispatch(notification *models.Notification) {
	if nc.dispatchWorker == nil {
		return
	}
	if err := nc.dispatchWorker.Submit(*notification, services.DispatchOptions{}); err != nil {
		// The redispatch poller will pick the notification up.
		logrus.WithFields(logrus.Fields{
			"notification_id": notification.ID.Hex(),
		}).WithError(err).Warn("Dispatch queue rejected notification")
	}
}
