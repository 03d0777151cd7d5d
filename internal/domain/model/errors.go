package model

import "errors"

// ErrInvalidEvent marks an event that violates a model invariant.
var ErrInvalidEvent = errors.New("invalid event")
