// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/lichhen/internal/domain/nlp"
)

// Event is a stored appointment owned by a user.
type Event struct {
	ID              string
	OwnerID         int64
	Name            string
	Start           time.Time
	End             *time.Time
	Location        *string
	ReminderMinutes *int // nil means "use the configured default"
	ReminderSent    bool
	ReminderSentAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the invariants every stored event satisfies.
func (e Event) Validate() error {
	if e.OwnerID <= 0 {
		return fmt.Errorf("%w: owner id must be positive", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidEvent)
	}
	if e.Start.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidEvent)
	}
	if e.End != nil && !e.End.After(e.Start) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidEvent)
	}
	if e.ReminderMinutes != nil && *e.ReminderMinutes < 0 {
		return fmt.Errorf("%w: reminder minutes must not be negative", ErrInvalidEvent)
	}
	return nil
}

// FromCandidate maps a successful extraction onto a new, unsaved event.
func FromCandidate(owner int64, c nlp.EventCandidate) (Event, error) {
	if !c.Success {
		return Event{}, fmt.Errorf("%w: %s", ErrInvalidEvent, c.Error)
	}
	e := Event{
		OwnerID:         owner,
		Name:            c.EventName,
		Start:           c.StartTime,
		End:             c.EndTime,
		Location:        c.Location,
		ReminderMinutes: c.ReminderMinutes,
	}
	return e, e.Validate()
}

// Patch holds the fields of an update; nil fields are left unchanged.
type Patch struct {
	Name            *string
	Start           *time.Time
	End             *time.Time
	ClearEnd        bool
	Location        *string
	ReminderMinutes *int
}

// Apply returns e with p applied. Moving the start or changing the reminder
// offset re-arms the reminder.
func (e Event) Apply(p Patch) Event {
	out := e
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Start != nil && !p.Start.Equal(e.Start) {
		out.Start = *p.Start
		out.ReminderSent = false
		out.ReminderSentAt = nil
	}
	if p.ClearEnd {
		out.End = nil
	} else if p.End != nil {
		end := *p.End
		out.End = &end
	}
	if p.Location != nil {
		loc := *p.Location
		out.Location = &loc
	}
	if p.ReminderMinutes != nil && (e.ReminderMinutes == nil || *e.ReminderMinutes != *p.ReminderMinutes) {
		m := *p.ReminderMinutes
		out.ReminderMinutes = &m
		out.ReminderSent = false
		out.ReminderSentAt = nil
	}
	return out
}
