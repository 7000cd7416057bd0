package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for an invalid category set or missing endpoint credentials
	ErrConfiguration = errors.New("configuration error")

	// ErrClassification is returned when a single row could not be classified
	ErrClassification = errors.New("classification error")

	// ErrIO is returned when a table could not be read or written
	ErrIO = errors.New("io error")
)

// RowError ties a failure to the 1-based index of the row that caused it.
type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
