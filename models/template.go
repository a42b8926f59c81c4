package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationTemplate struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name string             `json:"name" bson:"name"`

	Type    string `json:"type" bson:"type"`
	Subtype string `json:"subtype,omitempty" bson:"subtype,omitempty"`

	// Template Content with {{placeholder}} tokens
	Title string                 `json:"title" bson:"title"`
	Body  string                 `json:"body" bson:"body"`
	Data  map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`

	// Defaults applied to notifications built from this template
	Priority string               `json:"priority" bson:"priority"`
	Category string               `json:"category" bson:"category"`
	Channels NotificationChannels `json:"channels" bson:"channels"`

	Settings TemplateSettings `json:"settings" bson:"settings"`

	// Per-locale title/body overrides, keyed by locale tag ("es", "fr-CA").
	Locales map[string]LocaleOverride `json:"locales,omitempty" bson:"locales,omitempty"`

	IsActive  bool      `json:"isActive" bson:"isActive"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type TemplateSettings struct {
	AllowCustomization bool `json:"allowCustomization" bson:"allowCustomization"`
	RequireAuth        bool `json:"requireAuth" bson:"requireAuth"`
	MaxRetries         int  `json:"maxRetries" bson:"maxRetries"`
	RetryDelayMinutes  int  `json:"retryDelayMinutes" bson:"retryDelayMinutes"`
	ExpiryHours        int  `json:"expiryHours" bson:"expiryHours"`
}

type LocaleOverride struct {
	Title string `json:"title" bson:"title"`
	Body  string `json:"body" bson:"body"`
}
