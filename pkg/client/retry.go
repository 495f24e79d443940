package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// RetriesCount is the default maximum number of retries of one request.
	RetriesCount = 5
	// RequestTimeout is the default timeout of one request, including all retries.
	RequestTimeout = 30 * time.Second
	// RetryWaitTimeStart is the default delay before the first retry.
	RetryWaitTimeStart = 100 * time.Millisecond
	// RetryWaitTimeMax is the default maximum delay between retries.
	RetryWaitTimeMax = 3 * time.Second
)

// RetryConfig configures Client retries.
type RetryConfig struct {
	Condition           RetryCondition
	Count               int
	TotalRequestTimeout time.Duration
	WaitTimeStart       time.Duration
	WaitTimeMax         time.Duration
}

// RetryCondition defines which responses should retry.
type RetryCondition func(*http.Response, error) bool

// DefaultRetry returns a default RetryConfig.
func DefaultRetry() RetryConfig {
	return RetryConfig{
		TotalRequestTimeout: RequestTimeout,
		Count:               RetriesCount,
		WaitTimeStart:       RetryWaitTimeStart,
		WaitTimeMax:         RetryWaitTimeMax,
		Condition:           DefaultRetryCondition(),
	}
}

// TestingRetry is a fast retry for use in tests.
func TestingRetry() RetryConfig {
	v := DefaultRetry()
	v.WaitTimeStart = time.Millisecond
	v.WaitTimeMax = time.Millisecond
	return v
}

// NoRetry disables retries, the request is sent only once.
func NoRetry() RetryConfig {
	v := DefaultRetry()
	v.Count = 0
	v.Condition = nil
	return v
}

// DefaultRetryCondition retries on common network and HTTP errors.
func DefaultRetryCondition() RetryCondition {
	return func(res *http.Response, err error) bool {
		// On network errors, except canceled request and unknown hostname
		if res == nil || res.StatusCode == 0 {
			switch {
			case err == nil:
				return false
			case errors.Is(err, context.Canceled):
				return false
			case strings.Contains(err.Error(), "No address associated with hostname"):
				return false
			case strings.Contains(err.Error(), "no such host"):
				return false
			default:
				return true
			}
		}

		// On HTTP status codes
		switch res.StatusCode {
		case
			http.StatusRequestTimeout,
			http.StatusConflict,
			http.StatusLocked,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
}

// NewBackoff returns an exponential backoff for HTTP retries.
func (c RetryConfig) NewBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.WaitTimeStart
	b.MaxInterval = c.WaitTimeMax
	b.MaxElapsedTime = c.TotalRequestTimeout
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}
