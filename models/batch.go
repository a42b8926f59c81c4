package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Batch (campaign) lifecycle. draft -> scheduled -> sending -> completed,
// failed on expansion errors, cancelled from draft/scheduled/sending only.
const (
	BatchStatusDraft     = "draft"
	BatchStatusScheduled = "scheduled"
	BatchStatusSending   = "sending"
	BatchStatusCompleted = "completed"
	BatchStatusFailed    = "failed"
	BatchStatusCancelled = "cancelled"
)

type NotificationBatch struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name string             `json:"name" bson:"name"`

	TemplateID primitive.ObjectID `json:"templateId" bson:"templateId"`

	// Audience: explicit ids and/or a criteria filter, deduplicated at expansion.
	TargetUsers    []string        `json:"targetUsers,omitempty" bson:"targetUsers,omitempty"`
	TargetCriteria *TargetCriteria `json:"targetCriteria,omitempty" bson:"targetCriteria,omitempty"`

	// Placeholder values shared by every recipient of the campaign.
	Placeholders map[string]string `json:"placeholders,omitempty" bson:"placeholders,omitempty"`

	Status   string        `json:"status" bson:"status"`
	Progress BatchProgress `json:"progress" bson:"progress"`
	Settings BatchSettings `json:"settings" bson:"settings"`

	CreatedBy    string    `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	ScheduledFor time.Time `json:"scheduledFor,omitempty" bson:"scheduledFor,omitempty"`
	StartedAt    time.Time `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	CompletedAt  time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	FailReason   string    `json:"failReason,omitempty" bson:"failReason,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type TargetCriteria struct {
	Roles           []string   `json:"roles,omitempty" bson:"roles,omitempty"`
	Tags            []string   `json:"tags,omitempty" bson:"tags,omitempty"`
	Location        string     `json:"location,omitempty" bson:"location,omitempty"`
	LastActiveAfter *time.Time `json:"lastActiveAfter,omitempty" bson:"lastActiveAfter,omitempty"`
}

// Empty reports whether the criteria would match by filter at all.
func (tc *TargetCriteria) Empty() bool {
	return tc == nil ||
		(len(tc.Roles) == 0 && len(tc.Tags) == 0 && tc.Location == "" && tc.LastActiveAfter == nil)
}

// BatchProgress counters. Once expansion completes,
// Sent + Failed + Pending == Total and Delivered <= Sent hold at all times;
// counters are only moved via atomic increments.
type BatchProgress struct {
	Total     int64 `json:"total" bson:"total"`
	Sent      int64 `json:"sent" bson:"sent"`
	Delivered int64 `json:"delivered" bson:"delivered"`
	Failed    int64 `json:"failed" bson:"failed"`
	Pending   int64 `json:"pending" bson:"pending"`
}

type BatchSettings struct {
	RespectQuietHours   bool `json:"respectQuietHours" bson:"respectQuietHours"`
	RespectPreferences  bool `json:"respectPreferences" bson:"respectPreferences"`
	MaxRetries          int  `json:"maxRetries" bson:"maxRetries"`
	BatchSize           int  `json:"batchSize" bson:"batchSize"`
	DelayBetweenBatches int  `json:"delayBetweenBatches" bson:"delayBetweenBatches"` // seconds
}

// TerminalBatchStatus reports whether no further transition is allowed.
func TerminalBatchStatus(status string) bool {
	switch status {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusCancelled:
		return true
	}
	return false
}
