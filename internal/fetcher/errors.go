package fetcher

import "fmt"

// AllSourcesFailedError is returned when every configured source failed for
// a ticker. Last is the error of the final source tried.
type AllSourcesFailedError struct {
	Ticker string
	Last   error
}

func (e *AllSourcesFailedError) Error() string {
	return fmt.Sprintf("all sources failed for %s: %v", e.Ticker, e.Last)
}

func (e *AllSourcesFailedError) Unwrap() error { return e.Last }
