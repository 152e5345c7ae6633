package task

import (
	"errors"
	"fmt"
)

// Caller-visible error kinds. Cache and publish failures are defined next to
// their infrastructure and never reach callers.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("task not found")
	ErrPersistence = errors.New("persistence failure")
	// ErrConflict is the persistence failure raised by a constraint violation.
	ErrConflict    = fmt.Errorf("%w: data integrity violation", ErrPersistence)
)
