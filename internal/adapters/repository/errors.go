package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("event not found")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
	ErrMigrate           = errors.New("store migration failed")
)
