package webhook

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
)

const (
	// Redis keys for the delivery queue
	QueueKey      = "webhook_queue"
	ProcessingKey = "webhook_processing"

	// RetrySweepInterval is how often the sweeper re-queues due retries.
	RetrySweepInterval = 30 * time.Second

	retrySweepBatch = 100
)

// pushEvent hands a stored event ID to the delivery workers.
func pushEvent(eventID uint) error {
	ctx := context.Background()
	return cache.GetClient().LPush(ctx, QueueKey, strconv.FormatUint(uint64(eventID), 10)).Err()
}

// Worker drains the Redis delivery queue and periodically sweeps the store
// for events whose retry is due. Modeled as a fixed worker pool with a stop
// channel; Stop blocks until all workers have drained.
type Worker struct {
	dispatcher *Dispatcher
	events     repository.WebhookEventRepository
	client     *redis.Client
	workers    int
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewWorker creates a delivery worker pool.
func NewWorker(dispatcher *Dispatcher, events repository.WebhookEventRepository, workers int) *Worker {
	if workers <= 0 {
		workers = 3 // Default number of workers
	}
	return &Worker{
		dispatcher: dispatcher,
		events:     events,
		client:     cache.GetClient(),
		workers:    workers,
		stopCh:     make(chan struct{}),
	}
}

// Start starts the delivery workers and the retry sweeper.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	log.Infof("[Webhook] Starting %d delivery workers", w.workers)

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}

	w.wg.Add(1)
	go w.retrySweeper(RetrySweepInterval)
}

// Stop stops the workers and waits for them to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	log.Info("[Webhook] Stopping delivery workers...")
	close(w.stopCh)
	w.running = false
	w.wg.Wait()
	log.Info("[Webhook] All delivery workers stopped")
}

// worker processes queued events one at a time.
func (w *Worker) worker(id int) {
	defer w.wg.Done()
	log.Infof("[Webhook] Worker %d started", id)

	ctx := context.Background()

	for {
		select {
		case <-w.stopCh:
			log.Infof("[Webhook] Worker %d stopping", id)
			return
		default:
			eventID, err := w.dequeue(ctx)
			if err != nil {
				if err != redis.Nil {
					log.Errorf("[Webhook] Worker %d: error dequeuing event: %v", id, err)
					time.Sleep(time.Second)
				}
				continue
			}

			w.process(eventID)
			w.client.LRem(ctx, ProcessingKey, 1, strconv.FormatUint(uint64(eventID), 10))
		}
	}
}

// dequeue moves an event ID from the pending queue to the processing list.
func (w *Worker) dequeue(ctx context.Context) (uint, error) {
	raw, err := w.client.BRPopLPush(ctx, QueueKey, ProcessingKey, time.Second).Result()
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		w.client.LRem(ctx, ProcessingKey, 1, raw)
		return 0, redis.Nil
	}
	return uint(id), nil
}

func (w *Worker) process(eventID uint) {
	event, err := w.events.GetByID(eventID)
	if err != nil {
		log.Errorf("[Webhook] Worker: event %d not found: %v", eventID, err)
		return
	}
	if err := w.dispatcher.ProcessEvent(event); err != nil {
		log.Errorf("[Webhook] Worker: processing event %s failed: %v", event.PublicID, err)
	}
}

// retrySweeper periodically re-queues events whose next_retry_at has passed.
// next_retry_at is cleared on push so a slow delivery is not queued twice;
// the next failure schedules it again.
func (w *Worker) retrySweeper(interval time.Duration) {
	defer w.wg.Done()
	log.Infof("[Webhook] Retry sweeper running (interval=%s)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			log.Info("[Webhook] Retry sweeper stopping")
			return
		case <-ticker.C:
			w.sweepOnce()
		}
	}
}

func (w *Worker) sweepOnce() {
	due, err := w.events.ListDueRetries(time.Now(), retrySweepBatch)
	if err != nil {
		log.Errorf("[Webhook] Sweeper: listing due retries failed: %v", err)
		return
	}

	for i := range due {
		event := &due[i]
		event.NextRetryAt = nil
		if err := w.events.Update(event); err != nil {
			log.Errorf("[Webhook] Sweeper: updating event %s failed: %v", event.PublicID, err)
			continue
		}
		if err := pushEvent(event.ID); err != nil {
			log.Errorf("[Webhook] Sweeper: queueing event %s failed: %v", event.PublicID, err)
		}
	}
}
