package types

import "errors"

var (
	// ErrEmptyResponse is returned when the provider returns no choices
	ErrEmptyResponse = errors.New("empty response from provider")

	// ErrRefusal is returned when the model declines to answer
	ErrRefusal = errors.New("model refused the request")

	// ErrTruncatedResponse is returned when generation stopped before the
	// structured answer was complete
	ErrTruncatedResponse = errors.New("response truncated")
)
