package domain

import "errors"

var (
	// ErrEmptyQuery rejects blank input before any resolution happens.
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrNoLocation means no place could be extracted or geocoded.
	ErrNoLocation = errors.New("no location resolved from query")
	// ErrNoResults means the pipeline completed with an empty candidate set.
	ErrNoResults = errors.New("no ski resorts found")
	// ErrUnavailable means the finder is missing required configuration.
	ErrUnavailable = errors.New("resort finder not configured")
)

// IsNotFound reports whether err is one of the expected "no resorts" outcomes.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoLocation) || errors.Is(err, ErrNoResults)
}
