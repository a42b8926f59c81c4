package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Delivery status of a single channel. Transitions are forward-only:
// pending -> sent -> delivered, or pending -> failed. not_applicable is
// set at creation for channels disabled by preference and never changes.
const (
	DeliveryPending       = "pending"
	DeliverySent          = "sent"
	DeliveryDelivered     = "delivered"
	DeliveryFailed        = "failed"
	DeliveryNotApplicable = "not_applicable"
)

// Channel names used in repository field paths and stats breakdowns.
const (
	ChannelPush  = "push"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelInApp = "inApp"
)

// Notification Type Constants
const (
	NotificationTypeMessage   = "message"
	NotificationTypeSession   = "session"
	NotificationTypePrototype = "prototype"
	NotificationTypeCommunity = "community"
	NotificationTypeSystem    = "system"
	NotificationTypeMarketing = "marketing"
	NotificationTypeReminder  = "reminder"
)

// Priority Constants
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type Notification struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID string             `json:"userId" bson:"userId"`

	// Classification
	Type     string `json:"type" bson:"type"`
	Subtype  string `json:"subtype,omitempty" bson:"subtype,omitempty"`
	Category string `json:"category" bson:"category"`
	Priority string `json:"priority" bson:"priority"` // low, normal, high, urgent

	// Rendered Content
	Title string                 `json:"title" bson:"title"`
	Body  string                 `json:"body" bson:"body"`
	Data  map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`

	// Per-channel delivery state
	Delivery DeliveryChannels `json:"delivery" bson:"delivery"`

	// User Interaction
	IsRead      bool      `json:"isRead" bson:"isRead"`
	ReadAt      time.Time `json:"readAt,omitempty" bson:"readAt,omitempty"`
	IsClicked   bool      `json:"isClicked" bson:"isClicked"`
	ClickedAt   time.Time `json:"clickedAt,omitempty" bson:"clickedAt,omitempty"`
	IsDismissed bool      `json:"isDismissed" bson:"isDismissed"`
	DismissedAt time.Time `json:"dismissedAt,omitempty" bson:"dismissedAt,omitempty"`
	ActionTaken string    `json:"actionTaken,omitempty" bson:"actionTaken,omitempty"`

	// References
	SourceUserID string             `json:"sourceUserId,omitempty" bson:"sourceUserId,omitempty"`
	RelatedID    string             `json:"relatedId,omitempty" bson:"relatedId,omitempty"`
	RelatedType  string             `json:"relatedType,omitempty" bson:"relatedType,omitempty"`
	TemplateID   primitive.ObjectID `json:"templateId,omitempty" bson:"templateId,omitempty"`
	BatchID      primitive.ObjectID `json:"batchId,omitempty" bson:"batchId,omitempty"`

	// Retry Logic
	RetryCount  int       `json:"retryCount" bson:"retryCount"`
	LastRetryAt time.Time `json:"lastRetryAt,omitempty" bson:"lastRetryAt,omitempty"`

	// Scheduling and Lifecycle
	ScheduledFor time.Time `json:"scheduledFor,omitempty" bson:"scheduledFor,omitempty"`
	DeliveredAt  time.Time `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
}

// DeliveryChannels keeps one named field per channel so an invalid channel
// name cannot compile.
type DeliveryChannels struct {
	Push  ChannelDelivery `json:"push" bson:"push"`
	Email ChannelDelivery `json:"email" bson:"email"`
	SMS   ChannelDelivery `json:"sms" bson:"sms"`
	InApp ChannelDelivery `json:"inApp" bson:"inApp"`
}

type ChannelDelivery struct {
	Status string `json:"status" bson:"status"`
	// Token or address the provider was (or will be) called with.
	Target      string    `json:"target,omitempty" bson:"target,omitempty"`
	Error       string    `json:"error,omitempty" bson:"error,omitempty"`
	SentAt      time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	DeliveredAt time.Time `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	FailedAt    time.Time `json:"failedAt,omitempty" bson:"failedAt,omitempty"`
}

// NewDeliveryChannels returns the creation-time state: every channel pending.
func NewDeliveryChannels() DeliveryChannels {
	pending := ChannelDelivery{Status: DeliveryPending}
	return DeliveryChannels{Push: pending, Email: pending, SMS: pending, InApp: pending}
}

// ChannelStatus returns the delivery status for a channel name, defaulting
// to pending for unknown names.
func (dc DeliveryChannels) ChannelStatus(channel string) string {
	switch channel {
	case ChannelPush:
		return dc.Push.Status
	case ChannelEmail:
		return dc.Email.Status
	case ChannelSMS:
		return dc.SMS.Status
	case ChannelInApp:
		return dc.InApp.Status
	}
	return DeliveryPending
}

// HasPendingChannel reports whether any channel is still awaiting dispatch.
func (dc DeliveryChannels) HasPendingChannel() bool {
	return dc.Push.Status == DeliveryPending ||
		dc.Email.Status == DeliveryPending ||
		dc.SMS.Status == DeliveryPending ||
		dc.InApp.Status == DeliveryPending
}

// NotificationChannels is a per-channel enablement set, shared by templates
// and preferences.
type NotificationChannels struct {
	Push  bool `json:"push" bson:"push"`
	Email bool `json:"email" bson:"email"`
	SMS   bool `json:"sms" bson:"sms"`
	InApp bool `json:"inApp" bson:"inApp"`
}

// Enabled returns the flag for a channel name.
func (nc NotificationChannels) Enabled(channel string) bool {
	switch channel {
	case ChannelPush:
		return nc.Push
	case ChannelEmail:
		return nc.Email
	case ChannelSMS:
		return nc.SMS
	case ChannelInApp:
		return nc.InApp
	}
	return false
}

// AllChannels lists the four channel names in a fixed order.
func AllChannels() []string {
	return []string{ChannelPush, ChannelEmail, ChannelSMS, ChannelInApp}
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
