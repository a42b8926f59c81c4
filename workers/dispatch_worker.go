package workers

import (
	"context"
	"sync"
	"time"

	"menthub/models"
	"menthub/services"
	"menthub/utils"

	"github.com/sirupsen/logrus"
)

// DispatchWorker runs a pool draining queued dispatch jobs and a poller
// that re-dispatches notifications left pending by quiet hours or
// scheduling.
type DispatchWorker struct {
	dispatchService *services.DispatchService

	config DispatchWorkerConfig
	queue  chan DispatchJob

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type DispatchWorkerConfig struct {
	WorkerCount       int           `json:"workerCount"`
	QueueSize         int           `json:"queueSize"`
	ProcessingTimeout time.Duration `json:"processingTimeout"`
	PollInterval      time.Duration `json:"pollInterval"`
	PollBatchSize     int           `json:"pollBatchSize"`
}

type DispatchJob struct {
	Notification models.Notification
	Options      services.DispatchOptions
}

func DefaultDispatchWorkerConfig() DispatchWorkerConfig {
	return DispatchWorkerConfig{
		WorkerCount:       3,
		QueueSize:         500,
		ProcessingTimeout: 60 * time.Second,
		PollInterval:      time.Minute,
		PollBatchSize:     200,
	}
}

func NewDispatchWorker(dispatchService *services.DispatchService, config DispatchWorkerConfig) *DispatchWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &DispatchWorker{
		dispatchService: dispatchService,
		config:          config,
		queue:           make(chan DispatchJob, config.QueueSize),
		ctx:             ctx,
		cancel:          cancel,
	}
}

func (dw *DispatchWorker) Start() error {
	dw.mutex.Lock()
	defer dw.mutex.Unlock()

	if dw.isRunning {
		return nil
	}
	dw.isRunning = true

	logrus.Infof("Starting dispatch worker with %d workers", dw.config.WorkerCount)

	for i := 0; i < dw.config.WorkerCount; i++ {
		dw.wg.Add(1)
		go dw.worker(i)
	}

	dw.wg.Add(1)
	go dw.redispatchPoller()

	return nil
}

func (dw *DispatchWorker) Stop() error {
	dw.mutex.Lock()
	defer dw.mutex.Unlock()

	if !dw.isRunning {
		return nil
	}

	logrus.Info("Stopping dispatch worker...")

	dw.cancel()
	dw.isRunning = false

	close(dw.queue)
	dw.wg.Wait()

	logrus.Info("Dispatch worker stopped")
	return nil
}

// Submit enqueues a stored notification for dispatch. Returns an error
// when the worker is down or the queue is full; callers then fall back to
// the redispatch poller picking the notification up later.
func (dw *DispatchWorker) Submit(notification models.Notification, opts services.DispatchOptions) error {
	// The read lock is held across the send: Stop closes the queue under
	// the write lock, so a send can never hit a closed channel.
	dw.mutex.RLock()
	defer dw.mutex.RUnlock()

	if !dw.isRunning {
		return utils.NewInternalError("dispatch worker is not running")
	}

	select {
	case dw.queue <- DispatchJob{Notification: notification, Options: opts}:
		return nil
	default:
		return utils.NewInternalError("dispatch queue is full")
	}
}

func (dw *DispatchWorker) worker(workerID int) {
	defer dw.wg.Done()

	logrus.Debugf("Dispatch worker %d started", workerID)

	for {
		select {
		case job, ok := <-dw.queue:
			if !ok {
				return
			}
			dw.process(job)
		case <-dw.ctx.Done():
			return
		}
	}
}

func (dw *DispatchWorker) process(job DispatchJob) {
	ctx, cancel := context.WithTimeout(dw.ctx, dw.config.ProcessingTimeout)
	defer cancel()

	if err := dw.dispatchService.Dispatch(ctx, &job.Notification, job.Options); err != nil {
		logrus.WithFields(logrus.Fields{
			"notification_id": job.Notification.ID.Hex(),
		}).WithError(err).Error("Dispatch job failed")
	}
}

func (dw *DispatchWorker) redispatchPoller() {
	defer dw.wg.Done()

	ticker := time.NewTicker(dw.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(dw.ctx, dw.config.ProcessingTimeout)
			processed, err := dw.dispatchService.RedispatchDue(ctx, dw.config.PollBatchSize)
			cancel()
			if err != nil {
				logrus.WithError(err).Error("Redispatch poll failed")
				continue
			}
			if processed > 0 {
				logrus.WithField("count", processed).Debug("Redispatched due notifications")
			}
		case <-dw.ctx.Done():
			return
		}
	}
}
