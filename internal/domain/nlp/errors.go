package nlp

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for extraction failures.
var (
	ErrEmptyInput  = errors.New("missing text")
	ErrInvalidDate = errors.New("invalid date")
	ErrExtraction  = errors.New("extraction failed")
)

// DateError reports a literal date that does not exist on the calendar.
type DateError struct {
	Literal string
	Reason  string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Literal, e.Reason)
}

func (e *DateError) Unwrap() error { return ErrInvalidDate }

func failed(err error) EventCandidate {
	return EventCandidate{Success: false, Error: err.Error(), Err: err}
}
