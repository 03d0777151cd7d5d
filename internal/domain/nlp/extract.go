package nlp

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Trace records the output of every pipeline stage for one input.
type Trace struct {
	Normalized NormalizedText
	Reminder   ReminderResult
	Location   LocationResult
	Time       TimeExpression
	EventName  string
	Candidate  EventCandidate
}

// Extractor runs the extraction pipeline. The zero value is ready to use.
type Extractor struct {
	loc     *time.Location
	resolve func(TimeExpression, time.Time) (time.Time, *time.Time, error)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLocation makes the extractor interpret dates in loc regardless of the
// location carried by now.
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) {
		e.loc = loc
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{resolve: Resolve}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = NewExtractor()

// Extract runs the default pipeline over text.
func Extract(text string, now time.Time) EventCandidate {
	return defaultExtractor.Extract(text, now)
}

// Extract turns text into an EventCandidate. It never panics; every failure
// is reported through Success, Error and Err.
func (e *Extractor) Extract(text string, now time.Time) EventCandidate {
	return e.Explain(text, now).Candidate
}

// Explain is Extract with the intermediate stage results.
func (e *Extractor) Explain(text string, now time.Time) (tr Trace) {
	defer func() {
		if r := recover(); r != nil {
			tr.Candidate = failed(fmt.Errorf("%w: %v", ErrExtraction, r))
		}
	}()

	if e.loc != nil {
		now = now.In(e.loc)
	}

	if strings.TrimSpace(text) == "" {
		tr.Candidate = failed(ErrEmptyInput)
		return tr
	}

	tr.Normalized = Normalize(text)
	tr.Reminder = ExtractReminder(tr.Normalized.Normalized)
	tr.Location = ExtractLocation(tr.Reminder.Remaining, tr.Normalized.Raw)
	tr.Time = ExtractTimeExpression(tr.Location.Remaining)
	tr.EventName = ExtractEventName(tr.Location.Remaining, tr.Time.RawMatches)

	resolve := e.resolve
	if resolve == nil {
		resolve = Resolve
	}
	start, end, err := resolve(tr.Time, now)
	if err != nil {
		if !errors.Is(err, ErrInvalidDate) {
			err = fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		tr.Candidate = failed(err)
		return tr
	}

	tr.Candidate = EventCandidate{
		EventName:       tr.EventName,
		StartTime:       start,
		EndTime:         end,
		Location:        tr.Location.Location,
		ReminderMinutes: tr.Reminder.Minutes,
		Success:         true,
	}
	return tr
}
