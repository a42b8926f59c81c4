package workers

import (
	"sync"
	"testing"
	"time"

	"menthub/models"
	"menthub/services"
	"menthub/utils"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// futureNotification never reaches the dispatch pipeline's collaborators:
// a future scheduledFor makes Dispatch return before touching them.
func futureNotification() models.Notification {
	return models.Notification{
		ID:           primitive.NewObjectID(),
		UserID:       primitive.NewObjectID().Hex(),
		Type:         models.NotificationTypeMessage,
		ScheduledFor: time.Now().Add(time.Hour),
	}
}

func newTestDispatchWorker(workerCount int) *DispatchWorker {
	dispatchService := services.NewDispatchService(nil, nil, nil, nil, nil, utils.NewRealClock())
	config := DefaultDispatchWorkerConfig()
	config.WorkerCount = workerCount
	config.QueueSize = 4
	config.PollInterval = time.Hour
	return NewDispatchWorker(dispatchService, config)
}

func TestSubmitBeforeStartFails(t *testing.T) {
	worker := newTestDispatchWorker(1)

	err := worker.Submit(futureNotification(), services.DispatchOptions{})
	assert.Error(t, err)
}

func TestSubmitAfterStopFails(t *testing.T) {
	worker := newTestDispatchWorker(1)
	assert.NoError(t, worker.Start())
	assert.NoError(t, worker.Stop())

	err := worker.Submit(futureNotification(), services.DispatchOptions{})
	assert.Error(t, err)
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	// No workers draining, so the queue fills up.
	worker := newTestDispatchWorker(0)
	assert.NoError(t, worker.Start())
	t.Cleanup(func() { _ = worker.Stop() })

	var firstErr error
	for i := 0; i < 5; i++ {
		if err := worker.Submit(futureNotification(), services.DispatchOptions{}); err != nil {
			firstErr = err
			break
		}
	}
	assert.Error(t, firstErr)
}

func TestSubmitRacingStopDoesNotPanic(t *testing.T) {
	worker := newTestDispatchWorker(2)
	assert.NoError(t, worker.Start())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			// Errors after Stop are expected; a panic is not.
			_ = worker.Submit(futureNotification(), services.DispatchOptions{})
		}
	}()

	time.Sleep(time.Millisecond)
	assert.NoError(t, worker.Stop())
	wg.Wait()
}
