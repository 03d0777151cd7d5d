package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/lichhen/internal/adapters/mq/queue"
	"github.com/okian/lichhen/internal/domain/dedupe"
	"github.com/okian/lichhen/internal/domain/reminder"
	"github.com/okian/lichhen/pkg/logger"
	"github.com/okian/lichhen/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Job is what workers read off the queue.
type Job = queue.Job

// Notifier delivers one reminder.
type Notifier interface {
	Notify(ctx context.Context, j Job) error
}

// Marker records that a reminder was delivered. It returns
// reminder.ErrStale when the event changed after j was queued.
type Marker interface {
	MarkReminderSent(ctx context.Context, j Job, at time.Time) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan Job
}

// Worker processes jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker delivers reminders at most once per job key.
type InMemoryWorker struct {
	queue    Queue
	notifier Notifier
	marker   Marker
	deduper  dedupe.Deduper
	name     string
	now      func() time.Time

	processed *atomic.Int64

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, n Notifier, m Marker, d dedupe.Deduper, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		notifier:  n,
		marker:    m,
		deduper:   d,
		name:      "worker",
		now:       time.Now,
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "reminder delivery failed",
					logger.String("event_id", j.EventID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process delivers j unless its key was already delivered. A failed send
// forgets the key so the next scan can retry, and so does a stale mark.
func (w *InMemoryWorker) process(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	key := j.Key()
	if w.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordReminderDuplicate()
		w.logger.Debug(ctx, "duplicate reminder skipped", logger.String("key", key))
		return nil
	}

	if err := w.notifier.Notify(ctx, j); err != nil {
		w.deduper.Unrecord(ctx, key)
		metrics.RecordReminderFailed()
		metrics.RecordErrorByComponent("worker", "notify_error")
		return fmt.Errorf("notify %s: %w", j.EventID, err)
	}

	sentAt := w.now()
	metrics.RecordReminderSent(sentAt.Sub(j.DueAt).Seconds())
	w.processed.Add(1)

	err := w.marker.MarkReminderSent(ctx, j, sentAt)
	if errors.Is(err, reminder.ErrStale) {
		// the event keeps its pending reminder; the next scan queues it
		// under the new schedule
		w.deduper.Unrecord(ctx, key)
		w.logger.Info(ctx, "event changed while its reminder was in flight",
			logger.String("event_id", j.EventID),
		)
		return nil
	}
	if err != nil {
		// the key stays recorded so the message is not sent twice
		metrics.RecordErrorByComponent("worker", "mark_sent_error")
		return fmt.Errorf("mark %s sent: %w", j.EventID, err)
	}
	w.logger.Info(ctx, "reminder sent",
		logger.String("event_id", j.EventID),
		logger.Int64("owner_id", j.OwnerID),
		logger.Int("minutes", j.Minutes),
	)
	return nil
}

// Pool manages multiple workers sharing one queue and one deduper.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed *atomic.Int64
	logger    logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses runtime.NumCPU.
func NewPool(workerCount int, q Queue, n Notifier, m Marker, d dedupe.Deduper, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     q,
		processed: new(atomic.Int64),
		logger:    logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, n, m, d, wopts...)
		w.processed = p.processed
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of reminders delivered so far.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers without draining the queue.
func (p *Pool) Stop(ctx context.Context) {
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker stop timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
