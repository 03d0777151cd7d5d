// Package repository defines the event store interface and its memory and
// SQL implementations.
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/okian/lichhen/internal/domain/model"
	"github.com/okian/lichhen/internal/domain/reminder"
)

// Store provides read/write access to saved events.
type Store interface {
	// Create assigns an ID and timestamps to e and saves it.
	Create(ctx context.Context, e model.Event) (model.Event, error)

	// Get returns the event with id. Returns ErrNotFound if it is unknown.
	Get(ctx context.Context, id string) (model.Event, error)

	// Update applies p to the event with id and returns the result.
	Update(ctx context.Context, id string, p model.Patch) (model.Event, error)

	// Delete removes the event with id. Returns ErrNotFound if it is unknown.
	Delete(ctx context.Context, id string) error

	// List returns every event ordered by start time.
	List(ctx context.Context) ([]model.Event, error)

	// ListByOwner returns the events of one user ordered by start time.
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Event, error)

	// DueReminders returns events whose reminder is unsent and due at now.
	DueReminders(ctx context.Context, now time.Time, defaultMinutes int) ([]model.Event, error)

	// MarkReminderSent records the delivery of j. It returns
	// reminder.ErrStale when the event no longer has the start or offset
	// j was built from, and leaves the event untouched.
	MarkReminderSent(ctx context.Context, j reminder.Job, at time.Time) error

	// Count returns the number of stored events.
	Count(ctx context.Context) int

	Close() error
}

func sortByStart(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
}

// clone copies e so callers cannot alias the stored pointer fields.
func clone(e model.Event) model.Event {
	out := e
	if e.End != nil {
		v := *e.End
		out.End = &v
	}
	if e.Location != nil {
		v := *e.Location
		out.Location = &v
	}
	if e.ReminderMinutes != nil {
		v := *e.ReminderMinutes
		out.ReminderMinutes = &v
	}
	if e.ReminderSentAt != nil {
		v := *e.ReminderSentAt
		out.ReminderSentAt = &v
	}
	return out
}
