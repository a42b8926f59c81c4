package workers

import (
	"context"
	"sync"
	"time"

	"menthub/interfaces"
	"menthub/services"
	"menthub/utils"

	"github.com/sirupsen/logrus"
)

// CampaignWorker promotes scheduled batches whose time has come and runs
// them. One run executes at a time per worker slot.
type CampaignWorker struct {
	batchRepo       interfaces.BatchRepository
	campaignService *services.CampaignService
	clock           utils.Clock

	config CampaignWorkerConfig

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type CampaignWorkerConfig struct {
	PollInterval  time.Duration `json:"pollInterval"`
	PollBatchSize int           `json:"pollBatchSize"`
	RunTimeout    time.Duration `json:"runTimeout"`
}

func DefaultCampaignWorkerConfig() CampaignWorkerConfig {
	return CampaignWorkerConfig{
		PollInterval:  30 * time.Second,
		PollBatchSize: 10,
		RunTimeout:    30 * time.Minute,
	}
}

func NewCampaignWorker(batchRepo interfaces.BatchRepository, campaignService *services.CampaignService, clock utils.Clock, config CampaignWorkerConfig) *CampaignWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &CampaignWorker{
		batchRepo:       batchRepo,
		campaignService: campaignService,
		clock:           clock,
		config:          config,
		ctx:             ctx,
		cancel:          cancel,
	}
}

func (cw *CampaignWorker) Start() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if cw.isRunning {
		return nil
	}
	cw.isRunning = true

	logrus.Info("Starting campaign worker")

	cw.wg.Add(1)
	go cw.scheduledPoller()

	return nil
}

func (cw *CampaignWorker) Stop() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if !cw.isRunning {
		return nil
	}

	logrus.Info("Stopping campaign worker...")

	cw.cancel()
	cw.isRunning = false
	cw.wg.Wait()

	logrus.Info("Campaign worker stopped")
	return nil
}

// RunAsync launches one batch run in the background, used for immediate
// (unscheduled) campaign sends triggered over the API.
func (cw *CampaignWorker) RunAsync(batchID string) {
	cw.wg.Add(1)
	go func() {
		defer cw.wg.Done()
		cw.runBatch(batchID)
	}()
}

func (cw *CampaignWorker) scheduledPoller() {
	defer cw.wg.Done()

	ticker := time.NewTicker(cw.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cw.promoteDue()
		case <-cw.ctx.Done():
			return
		}
	}
}

func (cw *CampaignWorker) promoteDue() {
	ctx, cancel := context.WithTimeout(cw.ctx, 10*time.Second)
	due, err := cw.batchRepo.FindScheduledDue(ctx, cw.clock.Now(), cw.config.PollBatchSize)
	cancel()
	if err != nil {
		logrus.WithError(err).Error("Scheduled batch poll failed")
		return
	}

	for _, batch := range due {
		cw.runBatch(batch.ID.Hex())
	}
}

func (cw *CampaignWorker) runBatch(batchID string) {
	ctx, cancel := context.WithTimeout(cw.ctx, cw.config.RunTimeout)
	defer cancel()

	if err := cw.campaignService.Run(ctx, batchID); err != nil {
		logrus.WithField("batch_id", batchID).WithError(err).Error("Campaign run failed")
	}
}
