// Package reminder holds the rules that turn stored events into reminder
// deliveries.
package reminder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/lichhen/internal/domain/model"
	"github.com/okian/lichhen/internal/domain/nlp"
)

// ErrStale reports that an event changed after its reminder was queued.
var ErrStale = errors.New("reminder no longer matches its event")

// Job is one reminder ready for delivery.
type Job struct {
	EventID   string
	OwnerID   int64
	EventName string
	Start     time.Time
	End       *time.Time
	Location  *string
	Minutes   int
	DueAt     time.Time

	// Explicit is the offset stored on the event; nil when Minutes came
	// from the default.
	Explicit *int
}

// EffectiveMinutes returns the offset that applies to an event: the
// explicit one if set, else the default. ok is false when reminders are
// disabled for the event.
func EffectiveMinutes(explicit *int, defaultMinutes int) (int, bool) {
	m := defaultMinutes
	if explicit != nil {
		m = *explicit
	}
	return m, m > 0
}

// DueAt is the instant a reminder fires.
func DueAt(start time.Time, minutes int) time.Time {
	return start.Add(-time.Duration(minutes) * time.Minute)
}

// NewJob builds the job for e, or reports false when e has no reminder.
func NewJob(e model.Event, defaultMinutes int) (Job, bool) {
	m, ok := EffectiveMinutes(e.ReminderMinutes, defaultMinutes)
	if !ok {
		return Job{}, false
	}
	return Job{
		EventID:   e.ID,
		OwnerID:   e.OwnerID,
		EventName: e.Name,
		Start:     e.Start,
		End:       e.End,
		Location:  e.Location,
		Minutes:   m,
		DueAt:     DueAt(e.Start, m),
		Explicit:  copyInt(e.ReminderMinutes),
	}, true
}

// Matches reports whether e still has the start and offset j was built
// from. Times compare at second precision.
func (j Job) Matches(e model.Event) bool { //nolint:gocritic // hugeParam: jobs travel by value
	if e.ID != j.EventID || e.Start.Unix() != j.Start.Unix() {
		return false
	}
	switch {
	case j.Explicit == nil && e.ReminderMinutes == nil:
		return true
	case j.Explicit == nil || e.ReminderMinutes == nil:
		return false
	default:
		return *j.Explicit == *e.ReminderMinutes
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IsDue reports whether e has an unsent reminder whose due time is not after now.
func IsDue(e model.Event, defaultMinutes int, now time.Time) bool {
	if e.ReminderSent {
		return false
	}
	j, ok := NewJob(e, defaultMinutes)
	return ok && !j.DueAt.After(now)
}

// Key identifies one delivery. Moving the event or changing its offset
// yields a new key.
func (j Job) Key() string {
	return j.EventID + "|" + strconv.FormatInt(j.Start.Unix(), 10) + "|" + strconv.Itoa(j.Minutes)
}

// Subject renders the mail subject.
func (j Job) Subject() string {
	return fmt.Sprintf("Nhắc lịch: %s", j.EventName)
}

// Body renders the plain-text message.
func (j Job) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sự kiện \"%s\" sẽ bắt đầu lúc %s", j.EventName, j.Start.Format(nlp.TimeLayout))
	if j.End != nil {
		fmt.Fprintf(&b, " và kết thúc lúc %s", j.End.Format(nlp.TimeLayout))
	}
	b.WriteString(".\n")
	if j.Location != nil && *j.Location != "" {
		fmt.Fprintf(&b, "Địa điểm: %s\n", *j.Location)
	}
	fmt.Fprintf(&b, "Nhắc trước %s.\n", humanOffset(j.Minutes))
	return b.String()
}

func humanOffset(minutes int) string {
	switch {
	case minutes%60 == 0:
		return fmt.Sprintf("%d tiếng", minutes/60)
	case minutes > 60:
		return fmt.Sprintf("%d tiếng %d phút", minutes/60, minutes%60)
	default:
		return fmt.Sprintf("%d phút", minutes)
	}
}
