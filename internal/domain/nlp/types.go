// Package nlp extracts a single appointment from an informal Vietnamese
// sentence: event name, start and end time, location and reminder offset.
//
// Every stage is a pure function of its input; the current instant is always
// passed in by the caller.
package nlp

import "time"

// TimeLayout is the wire format used for timestamps in API responses.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultEventName is returned when nothing is left of the sentence after
// temporal and locative phrases are removed.
const DefaultEventName = "Lịch trình mới"

// Period is a day-period word used to read a 12-hour clock as 24-hour.
type Period int

// Day periods.
const (
	PeriodNone Period = iota
	PeriodMorning
	PeriodNoon
	PeriodAfternoon
	PeriodEvening
	PeriodNight
)

func (p Period) String() string {
	switch p {
	case PeriodMorning:
		return "morning"
	case PeriodNoon:
		return "noon"
	case PeriodAfternoon:
		return "afternoon"
	case PeriodEvening:
		return "evening"
	case PeriodNight:
		return "night"
	default:
		return "none"
	}
}

// ReminderResult is the output of the reminder stage. Minutes is nil when
// no quantity was given.
type ReminderResult struct {
	Minutes   *int
	Remaining string
}

// LocationResult is the output of the location stage.
type LocationResult struct {
	Location  *string
	Remaining string
}

// TimeExpression holds the temporal phrases found in a sentence, unresolved.
// Every RawMatches entry is a literal substring of the scanned text.
type TimeExpression struct {
	DateText      string
	TimeStart     *string
	TimeEnd       *string
	RawMatches    []string
	HasTimePeriod bool
	TimePeriod    Period
	AllDay        bool
}

func (te *TimeExpression) addRaw(s string) {
	if s == "" {
		return
	}
	for _, existing := range te.RawMatches {
		if existing == s {
			return
		}
	}
	te.RawMatches = append(te.RawMatches, s)
}

// EventCandidate is the final extraction result. When Success is false only
// Error and Err are meaningful.
type EventCandidate struct {
	EventName       string
	StartTime       time.Time
	EndTime         *time.Time
	Location        *string
	ReminderMinutes *int
	Success         bool
	Error           string
	Err             error
}
