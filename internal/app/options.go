package service

import (
	"time"

	workerpool "github.com/okian/lichhen/internal/adapters/mq/worker"
	repository "github.com/okian/lichhen/internal/adapters/repository"
	"github.com/okian/lichhen/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the event store. Without it the service keeps events in
// memory.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithNotifier sets how reminders are delivered.
func WithNotifier(n workerpool.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLocation sets the zone relative dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock sets the clock used for parsing and reminder scans.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the reminder queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many delivered reminder keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDefaultReminderMinutes sets the offset for events stored without
// one. Zero disables such reminders.
func WithDefaultReminderMinutes(minutes int) Option {
	return func(s *Service) {
		if minutes >= 0 {
			s.defaultMinutes = minutes
		}
	}
}

// WithScanSchedule sets the cron spec of the reminder scanner. An empty
// spec disables scheduled scans.
func WithScanSchedule(spec string) Option {
	return func(s *Service) {
		s.scanSchedule = spec
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
