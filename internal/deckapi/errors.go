package deckapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUnsuccessful means the API answered but reported success=false, for
	// example when the shoe has run out of cards.
	ErrUnsuccessful = errors.New("deck api reported failure")

	// ErrMalformedResponse means the body could not be understood.
	ErrMalformedResponse = errors.New("malformed deck api response")
)

// StatusError is returned for any non-200 response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("deckapi %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("deckapi %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the same call may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsRetryable classifies an error from the client. Network failures, timeouts,
// 429 and 5xx responses are retryable; API-level failures and 4xx are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	if errors.Is(err, ErrUnsuccessful) || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
