package api

import (
	"fmt"
	"net/http"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/okian/lichhen/internal/domain/model"
	"github.com/okian/lichhen/internal/domain/reminder"
)

const (
	productID       = "-//lichhen//appointments//VI"
	defaultDuration = time.Hour
)

// CalendarHandler exports a user's events as iCalendar.
type CalendarHandler struct {
	deps Dependencies
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(deps Dependencies) *CalendarHandler {
	return &CalendarHandler{deps: deps}
}

// HandleCalendar handles GET /events/user/{user_id}/calendar.ics requests.
func (h *CalendarHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "api.calendar"
	owner, err := userID(r)
	if err != nil {
		fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	events, err := h.deps.ListUserEvents(r.Context(), owner)
	if err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}

	body := renderCalendar(events, h.deps.DefaultReminderMinutes(), h.deps.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"user-%d.ics\"", owner))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// renderCalendar builds one VEVENT per event and a display VALARM for each
// event that has a reminder.
func renderCalendar(events []model.Event, defaultMinutes int, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range events {
		ve := cal.AddEvent(e.ID + "@lichhen")
		ve.SetDtStampTime(stamp)
		ve.SetCreatedTime(e.CreatedAt)
		ve.SetModifiedAt(e.UpdatedAt)
		ve.SetSummary(e.Name)
		ve.SetStartAt(e.Start)
		if e.End != nil {
			ve.SetEndAt(*e.End)
		} else {
			ve.SetEndAt(e.Start.Add(defaultDuration))
		}
		if e.Location != nil && *e.Location != "" {
			ve.SetLocation(*e.Location)
		}

		if m, ok := reminder.EffectiveMinutes(e.ReminderMinutes, defaultMinutes); ok {
			alarm := ve.AddAlarm()
			alarm.SetProperty(ics.ComponentPropertyAction, string(ics.ActionDisplay))
			alarm.SetProperty(ics.ComponentPropertyTrigger, fmt.Sprintf("-PT%dM", m))
			alarm.SetProperty(ics.ComponentPropertyDescription, e.Name)
		}
	}
	return cal.Serialize()
}
