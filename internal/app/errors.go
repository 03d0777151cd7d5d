package service

import "errors"

var (
	// ErrNotStarted is returned by operations that need the delivery pipeline.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidSchedule reports a scan schedule cron cannot parse.
	ErrInvalidSchedule = errors.New("invalid scan schedule")
)
