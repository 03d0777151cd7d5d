package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lichhen/internal/domain/model"
	"github.com/okian/lichhen/internal/domain/reminder"
	"github.com/okian/lichhen/pkg/metrics"
)

// MemoryStore keeps events in a map guarded by a RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]model.Event
	cfg    settings
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		events: make(map[string]model.Event),
		cfg:    newSettings(opts),
	}
}

func (s *MemoryStore) Create(_ context.Context, e model.Event) (model.Event, error) {
	defer observe("create", time.Now())
	if err := e.Validate(); err != nil {
		return model.Event{}, err
	}
	now := s.cfg.now()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now

	s.mu.Lock()
	s.events[e.ID] = clone(e)
	n := len(s.events)
	s.mu.Unlock()

	metrics.RecordEventCreated()
	metrics.UpdateEventsStored(n)
	return e, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Event, error) {
	defer observe("get", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(e), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, p model.Patch) (model.Event, error) {
	defer observe("update", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := e.Apply(p)
	if err := out.Validate(); err != nil {
		return model.Event{}, err
	}
	out.UpdatedAt = s.cfg.now()
	s.events[id] = clone(out)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	defer observe("delete", time.Now())
	s.mu.Lock()
	if _, ok := s.events[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.events, id)
	n := len(s.events)
	s.mu.Unlock()

	metrics.RecordEventDeleted()
	metrics.UpdateEventsStored(n)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]model.Event, error) {
	defer observe("list", time.Now())
	return s.filter(func(model.Event) bool { return true }), nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID int64) ([]model.Event, error) {
	defer observe("list_by_owner", time.Now())
	return s.filter(func(e model.Event) bool { return e.OwnerID == ownerID }), nil
}

func (s *MemoryStore) DueReminders(_ context.Context, now time.Time, defaultMinutes int) ([]model.Event, error) {
	defer observe("due_reminders", time.Now())
	return s.filter(func(e model.Event) bool { return reminder.IsDue(e, defaultMinutes, now) }), nil
}

func (s *MemoryStore) MarkReminderSent(_ context.Context, j reminder.Job, at time.Time) error { //nolint:gocritic // hugeParam: jobs travel by value
	defer observe("mark_sent", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[j.EventID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, j.EventID)
	}
	if !j.Matches(e) {
		return fmt.Errorf("%w: %s", reminder.ErrStale, j.EventID)
	}
	e.ReminderSent = true
	e.ReminderSentAt = &at
	s.events[j.EventID] = e
	return nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) filter(keep func(model.Event) bool) []model.Event {
	s.mu.RLock()
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		if keep(e) {
			out = append(out, clone(e))
		}
	}
	s.mu.RUnlock()
	sortByStart(out)
	return out
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
