package collector

import (
	"errors"
	"fmt"
)

// TransportError covers network failures, timeouts and non-2xx responses.
// It is the only error class worth retrying against the same source.
type TransportError struct {
	Source string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: http status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("%s: transport: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError means the payload is not recognizably this source's shape.
type FormatError struct {
	Source string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %s", e.Source, e.Reason)
}

// InsufficientDataError means the parsed series is too short to use.
type InsufficientDataError struct {
	Source string
	Ticker string
	Got    int
	Min    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: too few data points for %s (%d < %d)", e.Source, e.Ticker, e.Got, e.Min)
}

// IsTransient reports whether err, or any error joined into it, is a
// TransportError.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
