// services/stats_service.go
package services

import (
	"context"
	"time"

	"menthub/interfaces"
	"menthub/models"

	"github.com/sirupsen/logrus"
)

// StatsService aggregates read-only delivery and engagement counts.
// Stats are best effort: a failing aggregation yields zero counts rather
// than an error surfaced to the caller.
type StatsService struct {
	notificationRepo interfaces.NotificationRepository
}

func NewStatsService(notificationRepo interfaces.NotificationRepository) *StatsService {
	return &StatsService{notificationRepo: notificationRepo}
}

// GetStats computes counts scoped to a recipient (userID empty means
// global) over an optional [start, end) period.
func (ss *StatsService) GetStats(ctx context.Context, userID string, start, end *time.Time) *models.NotificationStats {
	stats := models.NewNotificationStats()
	if start != nil {
		stats.PeriodStart = *start
	}
	if end != nil {
		stats.PeriodEnd = *end
	}

	var err error
	if stats.Total, err = ss.notificationRepo.CountByFilter(ctx, userID, start, end, nil); err != nil {
		logrus.WithError(err).Warn("Stats total count failed")
		return models.NewNotificationStats()
	}
	if stats.Read, err = ss.notificationRepo.CountByFilter(ctx, userID, start, end, map[string]interface{}{"isRead": true}); err != nil {
		logrus.WithError(err).Warn("Stats read count failed")
		return models.NewNotificationStats()
	}
	if stats.Clicked, err = ss.notificationRepo.CountByFilter(ctx, userID, start, end, map[string]interface{}{"isClicked": true}); err != nil {
		logrus.WithError(err).Warn("Stats clicked count failed")
		return models.NewNotificationStats()
	}
	if stats.Dismissed, err = ss.notificationRepo.CountByFilter(ctx, userID, start, end, map[string]interface{}{"isDismissed": true}); err != nil {
		logrus.WithError(err).Warn("Stats dismissed count failed")
		return models.NewNotificationStats()
	}

	if stats.ByType, err = ss.notificationRepo.CountGroupedBy(ctx, "type", userID, start, end); err != nil {
		logrus.WithError(err).Warn("Stats type breakdown failed")
		return models.NewNotificationStats()
	}
	if stats.ByPriority, err = ss.notificationRepo.CountGroupedBy(ctx, "priority", userID, start, end); err != nil {
		logrus.WithError(err).Warn("Stats priority breakdown failed")
		return models.NewNotificationStats()
	}
	if stats.ByChannel, err = ss.notificationRepo.CountChannelStatuses(ctx, userID, start, end); err != nil {
		logrus.WithError(err).Warn("Stats channel breakdown failed")
		return models.NewNotificationStats()
	}

	return stats
}
