package models

import "time"

// Request DTOs

type CreateNotificationRequest struct {
	UserID   string                 `json:"userId" validate:"required"`
	Type     string                 `json:"type" validate:"required"`
	Subtype  string                 `json:"subtype,omitempty"`
	Category string                 `json:"category,omitempty"`
	Priority string                 `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	Title    string                 `json:"title" validate:"required"`
	Body     string                 `json:"body" validate:"required"`
	Data     map[string]interface{} `json:"data,omitempty"`

	SourceUserID string     `json:"sourceUserId,omitempty"`
	RelatedID    string     `json:"relatedId,omitempty"`
	RelatedType  string     `json:"relatedType,omitempty"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

type CreateFromTemplateRequest struct {
	TemplateID   string                 `json:"templateId" validate:"required"`
	UserID       string                 `json:"userId" validate:"required"`
	Placeholders map[string]string      `json:"placeholders,omitempty"`
	CustomData   map[string]interface{} `json:"customData,omitempty"`
	ScheduledFor *time.Time             `json:"scheduledFor,omitempty"`
}

type UpdateNotificationRequest struct {
	Title    *string                `json:"title,omitempty"`
	Body     *string                `json:"body,omitempty"`
	Priority *string                `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	Category *string                `json:"category,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// GetNotificationsRequest carries list filters; zero values mean "no filter".
type GetNotificationsRequest struct {
	UserID   string
	Limit    int
	Offset   int
	Type     string
	Read     *bool
	Priority string
	Category string
	After    *time.Time
	Before   *time.Time
}

type MarkClickedRequest struct {
	ActionTaken string `json:"actionTaken,omitempty"`
}

type CreateTemplateRequest struct {
	Name     string                 `json:"name" validate:"required"`
	Type     string                 `json:"type" validate:"required"`
	Subtype  string                 `json:"subtype,omitempty"`
	Title    string                 `json:"title" validate:"required"`
	Body     string                 `json:"body" validate:"required"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Priority string                 `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	Category string                 `json:"category,omitempty"`
	Channels NotificationChannels   `json:"channels"`
	Settings TemplateSettings       `json:"settings"`

	Locales map[string]LocaleOverride `json:"locales,omitempty"`
}

type PreviewTemplateRequest struct {
	Placeholders map[string]string `json:"placeholders,omitempty"`
	Locale       string            `json:"locale,omitempty"`
}

type UpdatePreferencesRequest struct {
	Type       string                `json:"type" validate:"required"`
	Subtype    string                `json:"subtype,omitempty"`
	Channels   *NotificationChannels `json:"channels,omitempty"`
	Frequency  *string               `json:"frequency,omitempty" validate:"omitempty,oneof=immediate hourly daily weekly never"`
	QuietHours *QuietHours           `json:"quietHours,omitempty"`
}

type CreateBatchRequest struct {
	Name         string            `json:"name" validate:"required"`
	TemplateID   string            `json:"templateId" validate:"required"`
	TargetUsers  []string          `json:"targetUsers,omitempty"`
	Criteria     *TargetCriteria   `json:"targetCriteria,omitempty"`
	Placeholders map[string]string `json:"placeholders,omitempty"`
	Settings     *BatchSettings    `json:"settings,omitempty"`
	ScheduledFor *time.Time        `json:"scheduledFor,omitempty"`
}
