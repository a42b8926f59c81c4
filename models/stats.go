package models

import "time"

// NotificationStats is a read-only aggregate over a (recipient-or-global,
// period) window. Computed on demand, never stored.
type NotificationStats struct {
	Total     int64 `json:"total"`
	Read      int64 `json:"read"`
	Clicked   int64 `json:"clicked"`
	Dismissed int64 `json:"dismissed"`

	ByType     map[string]int64 `json:"byType"`
	ByChannel  map[string]int64 `json:"byChannel"`
	ByPriority map[string]int64 `json:"byPriority"`

	PeriodStart time.Time `json:"periodStart,omitempty"`
	PeriodEnd   time.Time `json:"periodEnd,omitempty"`
}

func NewNotificationStats() *NotificationStats {
	return &NotificationStats{
		ByType:     make(map[string]int64),
		ByChannel:  make(map[string]int64),
		ByPriority: make(map[string]int64),
	}
}
