package repository

import "errors"

var (
	// ErrDuplicateKey is returned when a unique index rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStatusConflict is returned when a report left the expected status before the write.
	ErrStatusConflict = errors.New("report status changed concurrently")
)
