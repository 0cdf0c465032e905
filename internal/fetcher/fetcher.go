// Package fetcher retrieves recent posts from the monitored account.
package fetcher

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DefaultMaxResults is the number of recent posts requested per poll.
const DefaultMaxResults = 10

// Upstream failures the poller backs off on.
var (
	ErrRateLimited = errors.New("rate limited")
	ErrServerError = errors.New("upstream server error")
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is a non-success response that is neither a rate limit nor a
// server error.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func classifyStatus(resp *http.Response, body string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		if reset := resetTime(resp.Header.Get("x-rate-limit-reset")); !reset.IsZero() {
			return fmt.Errorf("%w until %s", ErrRateLimited, reset.UTC().Format(time.RFC3339))
		}
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrServerError, resp.StatusCode)
	default:
		return &StatusError{Code: resp.StatusCode, Body: body}
	}
}

func resetTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
