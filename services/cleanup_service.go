// services/cleanup_service.go
package services

import (
	"context"

	"menthub/interfaces"
	"menthub/utils"

	"github.com/sirupsen/logrus"
)

const defaultSweepLimit = 500

// CleanupService purges notifications whose expiresAt has passed.
type CleanupService struct {
	notificationRepo interfaces.NotificationRepository
	clock            utils.Clock
}

func NewCleanupService(notificationRepo interfaces.NotificationRepository, clock utils.Clock) *CleanupService {
	return &CleanupService{
		notificationRepo: notificationRepo,
		clock:            clock,
	}
}

// SweepExpired deletes up to limit expired notifications and returns how
// many went away. Notifications without expiresAt are never touched.
func (cs *CleanupService) SweepExpired(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		limit = defaultSweepLimit
	}

	ids, err := cs.notificationRepo.FindExpired(ctx, cs.clock.Now(), limit)
	if err != nil {
		return 0, utils.NewDatabaseError("find expired notifications", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := cs.notificationRepo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, utils.NewDatabaseError("delete expired notifications", err)
	}

	if deleted > 0 {
		logrus.WithField("deleted", deleted).Info("Expired notifications swept")
	}

	return deleted, nil
}
