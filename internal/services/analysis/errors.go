package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable: breaker open or too many probes in half-open state.
	ErrUnavailable = errors.New("analysis source unavailable")

	// ErrEmptyResponse: the model answered without any candidate text.
	ErrEmptyResponse = errors.New("analysis source returned no content")

	ErrNoImage   = errors.New("no image supplied")
	ErrNoHistory = errors.New("no history to forecast from")
)

// StatusError is a non-2xx answer from the model endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("genai upstream status %d: %s", e.Code, e.Body)
}

// Retryable reports whether a later attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
