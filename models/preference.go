package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Delivery frequency settings
const (
	FrequencyImmediate = "immediate"
	FrequencyHourly    = "hourly"
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyNever     = "never"
)

// NotificationPreference is the authoritative per-(user, type) row. A missing
// row is materialized from type defaults on first resolve.
type NotificationPreference struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID string             `json:"userId" bson:"userId"`

	Type    string `json:"type" bson:"type"`
	Subtype string `json:"subtype,omitempty" bson:"subtype,omitempty"`

	Channels  NotificationChannels `json:"channels" bson:"channels"`
	Frequency string               `json:"frequency" bson:"frequency"`

	QuietHours QuietHours `json:"quietHours" bson:"quietHours"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type QuietHours struct {
	Enabled   bool   `json:"enabled" bson:"enabled"`
	StartTime string `json:"startTime" bson:"startTime"` // HH:MM
	EndTime   string `json:"endTime" bson:"endTime"`     // HH:MM
	Timezone  string `json:"timezone" bson:"timezone"`
}

func ValidFrequency(f string) bool {
	switch f {
	case FrequencyImmediate, FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyNever:
		return true
	}
	return false
}
