package workers

import (
	"context"
	"sync"
	"time"

	"menthub/services"

	"github.com/sirupsen/logrus"
)

// CleanupWorker sweeps expired notifications on a fixed interval.
type CleanupWorker struct {
	cleanupService *services.CleanupService

	config CleanupWorkerConfig

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type CleanupWorkerConfig struct {
	SweepInterval  time.Duration `json:"sweepInterval"`
	SweepBatchSize int           `json:"sweepBatchSize"`
}

func DefaultCleanupWorkerConfig() CleanupWorkerConfig {
	return CleanupWorkerConfig{
		SweepInterval:  15 * time.Minute,
		SweepBatchSize: 500,
	}
}

func NewCleanupWorker(cleanupService *services.CleanupService, config CleanupWorkerConfig) *CleanupWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &CleanupWorker{
		cleanupService: cleanupService,
		config:         config,
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (cw *CleanupWorker) Start() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if cw.isRunning {
		return nil
	}
	cw.isRunning = true

	logrus.Info("Starting cleanup worker")

	cw.wg.Add(1)
	go cw.sweeper()

	return nil
}

func (cw *CleanupWorker) Stop() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if !cw.isRunning {
		return nil
	}

	logrus.Info("Stopping cleanup worker...")

	cw.cancel()
	cw.isRunning = false
	cw.wg.Wait()

	logrus.Info("Cleanup worker stopped")
	return nil
}

func (cw *CleanupWorker) sweeper() {
	defer cw.wg.Done()

	ticker := time.NewTicker(cw.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(cw.ctx, time.Minute)
			deleted, err := cw.cleanupService.SweepExpired(ctx, cw.config.SweepBatchSize)
			cancel()
			if err != nil {
				logrus.WithError(err).Error("Expiry sweep failed")
			} else if deleted > 0 {
				logrus.WithField("deleted", deleted).Info("Expiry sweep completed")
			}
		case <-cw.ctx.Done():
			return
		}
	}
}
