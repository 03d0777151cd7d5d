package evalset

import "errors"

var (
	// ErrInvalidCorpus is returned when a corpus file cannot be used.
	ErrInvalidCorpus = errors.New("invalid corpus")
	// ErrFixedClock is returned by parsers that cannot evaluate at a
	// caller-chosen instant.
	ErrFixedClock = errors.New("parser cannot evaluate at a fixed time")
	// ErrUnexpectedResponse is returned when the service answers with
	// something other than a candidate or an error body.
	ErrUnexpectedResponse = errors.New("unexpected response")
)
