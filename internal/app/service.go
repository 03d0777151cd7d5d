// Package service wires extraction, storage and reminder delivery into the
// operations the HTTP API and the binaries use.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	eventqueue "github.com/okian/lichhen/internal/adapters/mq/queue"
	workerpool "github.com/okian/lichhen/internal/adapters/mq/worker"
	"github.com/okian/lichhen/internal/adapters/notify"
	repository "github.com/okian/lichhen/internal/adapters/repository"
	"github.com/okian/lichhen/internal/domain/dedupe"
	"github.com/okian/lichhen/internal/domain/model"
	"github.com/okian/lichhen/internal/domain/nlp"
	"github.com/okian/lichhen/internal/domain/reminder"
	"github.com/okian/lichhen/pkg/logger"
	"github.com/okian/lichhen/pkg/metrics"
)

// Service implements the API dependencies for the appointment system.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	ownsStore bool
	extractor *nlp.Extractor
	notifier  workerpool.Notifier
	deduper   dedupe.Deduper
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool
	scheduler *cron.Cron

	loc            *time.Location
	now            func() time.Time
	workerCount    int
	queueSize      int
	dedupeSize     int
	defaultMinutes int
	scanSchedule   string

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. The store is usable before Start; reminder
// delivery runs only between Start and Stop.
func New(opts ...Option) *Service {
	s := &Service{
		loc:            time.Local,
		now:            time.Now,
		workerCount:    runtime.NumCPU(),
		queueSize:      1_000,
		dedupeSize:     10_000,
		defaultMinutes: 15,
		scanSchedule:   "@every 1m",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.ownsStore = true
	}
	s.extractor = nlp.NewExtractor(nlp.WithLocation(s.loc))
	return s
}

// Start creates the queue, the worker pool and the reminder scanner.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting service...")

	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	// workers outlive the caller's context; Stop ends them
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	var scheduler *cron.Cron
	if s.scanSchedule != "" {
		scheduler = cron.New(
			cron.WithLocation(s.loc),
			cron.WithLogger(cronLogger{s.logger.Named("scheduler")}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger.Named("scheduler")})),
		)
		if _, err := scheduler.AddFunc(s.scanSchedule, func() { s.scan(runCtx) }); err != nil {
			cancel()
			return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, s.scanSchedule, err)
		}
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.notifier, s.store, s.deduper,
		workerpool.WithClock(s.now))
	s.cancel = cancel
	s.pool.Start(runCtx)

	if scheduler != nil {
		s.scheduler = scheduler
		s.scheduler.Start()
	}

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("defaultReminderMinutes", s.defaultMinutes),
		logger.String("scanSchedule", s.scanSchedule),
	)
	return nil
}

// Stop halts the scanner, drains queued reminders and closes the store if
// the service created it.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.logger.Info(ctx, "stopping service...")
	scheduler, pool, cancel := s.scheduler, s.pool, s.cancel
	s.scheduler = nil
	s.started = false
	s.mu.Unlock()

	// a running scan needs the read lock, so wait for it unlocked
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	err := pool.Shutdown(ctx)
	cancel()

	if s.ownsStore {
		if cerr := s.store.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	s.logger.Info(ctx, "service stopped")
	return err
}

func (s *Service) scan(ctx context.Context) {
	if _, err := s.ScanReminders(ctx); err != nil {
		s.logger.Error(ctx, "reminder scan failed", logger.Error(err))
	}
}

// ScanResult summarizes one reminder scan.
type ScanResult struct {
	Due      int `json:"due"`
	Enqueued int `json:"enqueued"`
	Dropped  int `json:"dropped"`
}

// ScanReminders enqueues a job for every due, unsent reminder.
func (s *Service) ScanReminders(ctx context.Context) (ScanResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordScanDuration(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return ScanResult{}, ErrNotStarted
	}

	due, err := s.store.DueReminders(ctx, s.now(), s.defaultMinutes)
	if err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{Due: len(due)}
	for _, e := range due {
		j, ok := reminder.NewJob(e, s.defaultMinutes)
		if !ok {
			continue
		}
		if err := q.Enqueue(ctx, j); err != nil {
			res.Dropped++
			s.logger.Warn(ctx, "reminder not enqueued",
				logger.String("event_id", e.ID),
				logger.Error(err),
			)
			continue
		}
		res.Enqueued++
		metrics.RecordReminderEnqueued()
	}
	if res.Due > 0 {
		s.logger.Debug(ctx, "reminder scan",
			logger.Int("due", res.Due),
			logger.Int("enqueued", res.Enqueued),
			logger.Int("dropped", res.Dropped),
		)
	}
	return res, nil
}

// Now returns the service clock reading in the configured zone.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Location returns the zone relative dates are interpreted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// DefaultReminderMinutes returns the offset applied to events without one.
func (s *Service) DefaultReminderMinutes() int {
	return s.defaultMinutes
}

// Parse extracts an appointment from text relative to the service clock.
func (s *Service) Parse(ctx context.Context, text string) nlp.EventCandidate {
	return s.ParseAt(ctx, text, s.Now())
}

// ParseAt extracts an appointment from text relative to now.
func (s *Service) ParseAt(ctx context.Context, text string, now time.Time) nlp.EventCandidate {
	start := time.Now()
	c := s.extractor.Extract(text, now)
	latency := float64(time.Since(start).Microseconds()) / 1000

	outcome := metrics.OutcomeSuccess
	switch {
	case c.Success:
	case errors.Is(c.Err, nlp.ErrEmptyInput):
		outcome = metrics.OutcomeEmptyInput
	case errors.Is(c.Err, nlp.ErrInvalidDate):
		outcome = metrics.OutcomeInvalidDate
	default:
		outcome = metrics.OutcomeError
		s.logger.Error(ctx, "extraction failed", logger.Error(c.Err))
	}
	metrics.RecordExtraction(outcome, latency)

	if c.Success {
		if c.EventName != nlp.DefaultEventName {
			metrics.RecordExtractedField("event_name")
		}
		if c.EndTime != nil {
			metrics.RecordExtractedField("end_time")
		}
		if c.Location != nil {
			metrics.RecordExtractedField("location")
		}
		if c.ReminderMinutes != nil {
			metrics.RecordExtractedField("reminder")
		}
	}
	return c
}

// ParseAndCreate extracts an appointment from text and stores it for owner.
func (s *Service) ParseAndCreate(ctx context.Context, owner int64, text string) (model.Event, nlp.EventCandidate, error) {
	c := s.Parse(ctx, text)
	if !c.Success {
		return model.Event{}, c, c.Err
	}
	e, err := model.FromCandidate(owner, c)
	if err != nil {
		return model.Event{}, c, err
	}
	created, err := s.CreateEvent(ctx, e)
	return created, c, err
}

// CreateEvent validates and stores e.
func (s *Service) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	created, err := s.store.Create(ctx, e)
	if err != nil {
		return model.Event{}, err
	}
	s.logger.Debug(ctx, "event created",
		logger.String("id", created.ID),
		logger.Int64("owner_id", created.OwnerID),
	)
	return created, nil
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, id string) (model.Event, error) {
	return s.store.Get(ctx, id)
}

// UpdateEvent applies p to the event with id.
func (s *Service) UpdateEvent(ctx context.Context, id string, p model.Patch) (model.Event, error) {
	return s.store.Update(ctx, id, p)
}

// DeleteEvent removes the event with id.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// ListEvents returns every event ordered by start time.
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.store.List(ctx)
}

// ListUserEvents returns the events of one user ordered by start time.
func (s *Service) ListUserEvents(ctx context.Context, owner int64) ([]model.Event, error) {
	return s.store.ListByOwner(ctx, owner)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":                s.started,
		"workerCount":            s.workerCount,
		"queueSize":              s.queueSize,
		"dedupeSize":             s.dedupeSize,
		"defaultReminderMinutes": s.defaultMinutes,
		"scanSchedule":           s.scanSchedule,
		"timezone":               s.loc.String(),
		"totalEvents":            s.store.Count(ctx),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["remindersSent"] = s.pool.Processed()
		stats["dedupeEntries"] = s.deduper.Size()
	}
	return stats
}

// cronLogger routes scheduler logs through the service logger.
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(context.Background(), msg, logger.Any("details", keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(context.Background(), msg, logger.Error(err), logger.Any("details", keysAndValues))
}
