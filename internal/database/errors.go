package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrPositionConflict is returned when position allocation loses the
	// per-(queue, day) race and retries are exhausted. Retryable.
	ErrPositionConflict = errors.New("position allocation conflict, please retry")

	// ErrProviderLocked is returned when a conditional provider-lock update
	// matched no rows because the provider already holds an active task.
	ErrProviderLocked = errors.New("provider already has a task in progress")
)

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
