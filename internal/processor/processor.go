package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/config"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/queue"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/logger"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/redis"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/worker"
)

const ProcessingTimeout = time.Second * 5
const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

// consumerInstances is how many stream consumers share the group.
// Webhook volume is low; what matters is surviving one consumer
// stalling on a slow database write.
const consumerInstances = 4
const workerPoolSize = 32
const workerQueueDepth = 4096

// ProcessorService drains the webhook event stream into a worker pool
// and hands each event to the registered Processor.
type ProcessorService struct {
	adapter redis.RedisAdapter
	queues  []*queue.Queue
	proc    Processor
	metrics *ServiceMetrics
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	worker  *worker.WorkerManager
}

type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

func NewProcessorService(redis redis.RedisAdapter) (*ProcessorService, error) {
	ctx, cancel := context.WithCancel(context.Background())
	service := &ProcessorService{
		adapter: redis,
		queues:  make([]*queue.Queue, 0, consumerInstances),
		metrics: NewServiceMetrics(),
		ctx:     ctx,
		cancel:  cancel,
		worker:  worker.NewWorkerManager(workerQueueDepth, workerPoolSize, nil),
	}
	return service, nil
}

func (s *ProcessorService) RegisterProcessor(processor Processor) {
	s.proc = processor
	logger.Info("Registered processor", "type", processor.GetType())
}

// Start spins up the worker pool, the consumer instances and the
// background reporters. Consumers block on the stream; workers do the
// reconciliation.
func (s *ProcessorService) Start() error {
	logger.Info("Starting webhook processor...")

	s.worker.SetWorker(s.runEvent)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Error("Worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < consumerInstances; i++ {
		queueConfig := queue.QueueConfig{
			Name:              config.Get().QueueName,
			ConsumerGroup:     config.Get().QueueConsumerGroup,
			ConsumerName:      fmt.Sprintf("%s-instance-%d", config.Get().QueueConsumerName, i),
			MaxRetries:        config.Get().QueueMaxRetries,
			VisibilityTimeout: config.Get().QueueVisibilityTimeout,
			PollInterval:      config.Get().QueuePollInterval,
			BatchSize:         config.Get().QueueBatchSize,
			MaxLen:            config.Get().QueueMaxLen,
			EnableDLQ:         config.Get().QueueEnableDLQ,
		}

		q, err := queue.NewQueue(s.adapter, queueConfig)
		if err != nil {
			return fmt.Errorf("failed to create queue %d: %w", i, err)
		}

		if err := q.Consume(s.enqueueEvent); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}

		s.queues = append(s.queues, q)
	}

	s.wg.Add(2)
	go s.metricsReporter()
	go s.healthChecker()

	logger.Info("Webhook processor started",
		"consumers", len(s.queues),
		"workers", workerPoolSize)
	return nil
}

func (s *ProcessorService) metricsReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) reportMetrics() {
	stats := s.metrics.GetStats()

	logger.Info("Processor metrics",
		"events_processed", stats["events_processed"],
		"events_failed", stats["events_failed"],
		"rate_per_second", stats["rate_per_second"],
		"avg_duration_ms", stats["avg_duration_ms"],
		"uptime_seconds", stats["uptime_seconds"])

	for i, q := range s.queues {
		if qStats, err := q.GetStats(); err == nil {
			logger.Info("Queue stats", "queue", i, "total", qStats.TotalMessages, "pending", qStats.PendingMessages)
		}
	}
}

func (s *ProcessorService) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthCheck()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) performHealthCheck() {
	if err := s.adapter.Client().Ping(context.Background()).Err(); err != nil {
		logger.Error("HEALTH CHECK FAILED: Redis connection error", "error", err)
		return
	}

	for i, q := range s.queues {
		stats, err := q.GetStats()
		if err != nil {
			logger.Warn("HEALTH CHECK WARNING: Queue stats unavailable", "queue", i, "error", err)
			continue
		}

		// A backlog here means paid customers waiting for credit.
		if stats.PendingMessages > 1000 {
			logger.Warn("HEALTH CHECK WARNING: Webhook backlog is high", "queue", i, "pending_events", stats.PendingMessages)
		}
	}
}

// Stop drains the consumers, then the worker pool, then reports the
// final counters.
func (s *ProcessorService) Stop() {
	logger.Info("Shutting down webhook processor...")

	s.cancel()

	timeout := ShutdownTimeout
	stopChan := make(chan bool, len(s.queues))

	for i, q := range s.queues {
		go func(index int, queue *queue.Queue) {
			if err := queue.Stop(timeout); err != nil {
				logger.Error("Error stopping queue", "queue", index, "error", err)
			}
			stopChan <- true
		}(i, q)
	}

	for range s.queues {
		select {
		case <-stopChan:
		case <-time.After(timeout + 5*time.Second):
			logger.Warn("Timeout waiting for queues to stop")
		}
	}

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()

	logger.Info("Webhook processor stopped")
}

type eventJob struct {
	msg        *queue.Message
	resultChan chan error
	ctx        context.Context
}

// enqueueEvent is the queue consume callback. It parks the event on the
// worker pool and blocks for the outcome so the queue can ack or nack.
func (s *ProcessorService) enqueueEvent(ctx context.Context, msg *queue.Message) error {
	resultChan := make(chan error, 1)

	// The event gets slightly longer than the processing timeout so a
	// worker that hits the deadline still has room to report back.
	evCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout+time.Second)
	defer cancel()

	s.worker.Enqueue(&eventJob{
		msg:        msg,
		resultChan: resultChan,
		ctx:        evCtx,
	})

	select {
	case err := <-resultChan:
		return err
	case <-evCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process event: %w", evCtx.Err())
	}
}

// runEvent executes inside the worker pool.
func (s *ProcessorService) runEvent(workerIndex int, job interface{}) {
	ev, ok := job.(*eventJob)
	if !ok {
		logger.Error("Invalid job type in worker", "worker", workerIndex)
		return
	}

	select {
	case <-ev.ctx.Done():
		logger.Warn("Event context cancelled before processing started", "worker", workerIndex)
		return
	default:
	}

	var resultErr error
	start := time.Now()

	if s.proc == nil {
		// Ack. An event with no processor will not succeed on retry.
		logger.Error("No processor registered", "worker", workerIndex)
		s.metrics.RecordFailure()
	} else if err := s.proc.Process(ev.ctx, ev.msg); err != nil {
		s.metrics.RecordFailure()
		logger.Error("Failed to process event", "worker", workerIndex, "error", err)
		resultErr = err
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}

	// enqueueEvent may have timed out and walked away; never block on
	// the result channel.
	select {
	case ev.resultChan <- resultErr:
	case <-ev.ctx.Done():
		logger.Warn("Consumer gave up before the worker finished", "worker", workerIndex)
	}
}
