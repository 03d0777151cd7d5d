package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/lichhen/internal/domain/model"
	"github.com/okian/lichhen/internal/domain/nlp"
)

// candidateResponse is the body of a successful POST /nlp/parse.
type candidateResponse struct {
	EventName    string  `json:"event_name"`
	StartTime    string  `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Location     *string `json:"location"`
	TimeReminder *int    `json:"time_reminder"`
}

func toCandidateResponse(c nlp.EventCandidate) candidateResponse {
	return candidateResponse{
		EventName:    c.EventName,
		StartTime:    c.StartTime.Format(nlp.TimeLayout),
		EndTime:      formatOptional(c.EndTime, nil),
		Location:     c.Location,
		TimeReminder: c.ReminderMinutes,
	}
}

type eventResponse struct {
	ID           string  `json:"id"`
	UserID       int64   `json:"user_id"`
	EventName    string  `json:"event_name"`
	StartTime    string  `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Location     *string `json:"location"`
	TimeReminder *int    `json:"time_reminder"`
	ReminderSent bool    `json:"reminder_sent"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toEventResponse(e model.Event, loc *time.Location) eventResponse {
	return eventResponse{
		ID:           e.ID,
		UserID:       e.OwnerID,
		EventName:    e.Name,
		StartTime:    e.Start.In(loc).Format(nlp.TimeLayout),
		EndTime:      formatOptional(e.End, loc),
		Location:     e.Location,
		TimeReminder: e.ReminderMinutes,
		ReminderSent: e.ReminderSent,
		CreatedAt:    e.CreatedAt.In(loc).Format(nlp.TimeLayout),
		UpdatedAt:    e.UpdatedAt.In(loc).Format(nlp.TimeLayout),
	}
}

type eventListResponse struct {
	Events []eventResponse `json:"events"`
	Count  int             `json:"count"`
}

func toEventList(events []model.Event, loc *time.Location) eventListResponse {
	out := eventListResponse{Events: make([]eventResponse, 0, len(events)), Count: len(events)}
	for _, e := range events {
		out.Events = append(out.Events, toEventResponse(e, loc))
	}
	return out
}

type parsedEventResponse struct {
	Event  eventResponse     `json:"event"`
	Parsed candidateResponse `json:"parsed"`
}

func formatOptional(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	v := *t
	if loc != nil {
		v = v.In(loc)
	}
	s := v.Format(nlp.TimeLayout)
	return &s
}

// parseTime accepts the response layout in loc or RFC3339.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(nlp.TimeLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q must be %q or RFC3339", s, nlp.TimeLayout)
	}
	return t, nil
}

type textRequest struct {
	Text string `json:"text"`
}

type parseEventRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

type createEventRequest struct {
	UserID       int64   `json:"user_id"`
	EventName    string  `json:"event_name"`
	StartTime    string  `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Location     *string `json:"location"`
	TimeReminder *int    `json:"time_reminder"`
}

func (r createEventRequest) toEvent(loc *time.Location) (model.Event, error) {
	if strings.TrimSpace(r.StartTime) == "" {
		return model.Event{}, errors.New("missing start_time")
	}
	start, err := parseTime(r.StartTime, loc)
	if err != nil {
		return model.Event{}, err
	}
	e := model.Event{
		OwnerID:         r.UserID,
		Name:            strings.TrimSpace(r.EventName),
		Start:           start,
		Location:        r.Location,
		ReminderMinutes: r.TimeReminder,
	}
	if r.EndTime != nil && strings.TrimSpace(*r.EndTime) != "" {
		end, err := parseTime(*r.EndTime, loc)
		if err != nil {
			return model.Event{}, err
		}
		e.End = &end
	}
	return e, nil
}

// optionalString tells an absent field from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// updateEventRequest carries a partial update; absent fields are kept and
// end_time: null removes the end time.
type updateEventRequest struct {
	EventName    *string        `json:"event_name"`
	StartTime    *string        `json:"start_time"`
	EndTime      optionalString `json:"end_time"`
	Location     *string        `json:"location"`
	TimeReminder *int           `json:"time_reminder"`
}

func (r updateEventRequest) toPatch(loc *time.Location) (model.Patch, error) {
	p := model.Patch{Location: r.Location, ReminderMinutes: r.TimeReminder}
	if r.EventName != nil {
		name := strings.TrimSpace(*r.EventName)
		p.Name = &name
	}
	if r.StartTime != nil {
		start, err := parseTime(*r.StartTime, loc)
		if err != nil {
			return model.Patch{}, err
		}
		p.Start = &start
	}
	if r.EndTime.Set {
		if r.EndTime.Value == nil || strings.TrimSpace(*r.EndTime.Value) == "" {
			p.ClearEnd = true
		} else {
			end, err := parseTime(*r.EndTime.Value, loc)
			if err != nil {
				return model.Patch{}, err
			}
			p.End = &end
		}
	}
	return p, nil
}
