package api

import (
	"errors"
	"net/http"

	repository "github.com/okian/lichhen/internal/adapters/repository"
	"github.com/okian/lichhen/internal/domain/model"
	"github.com/okian/lichhen/internal/domain/nlp"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrTextTooLong  = errors.New("text too long")
	ErrRateLimited  = errors.New("rate limited")
	ErrBodyTooLarge = errors.New("request body too large")
)

// opError tags an error with the handler operation and a kind the status
// mapping understands.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	switch {
	case e.err == nil:
		return e.op + ": " + e.kind.Error()
	case e.kind == nil:
		return e.op + ": " + e.err.Error()
	default:
		return e.op + ": " + e.kind.Error() + ": " + e.err.Error()
	}
}

func (e *opError) Unwrap() []error {
	var errs []error
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.err != nil {
		errs = append(errs, e.err)
	}
	return errs
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// WrapKind annotates err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// classify maps an error onto an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, nlp.ErrEmptyInput):
		return http.StatusBadRequest, "missing_text"
	case errors.Is(err, ErrTextTooLong):
		return http.StatusBadRequest, "text_too_long"
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrInvalidEvent):
		return http.StatusBadRequest, "invalid_event"
	case errors.Is(err, nlp.ErrInvalidDate):
		return http.StatusUnprocessableEntity, "invalid_date"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
