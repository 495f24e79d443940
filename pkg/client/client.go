// Package client provides the default implementation of the request.Sender interface.
//
// Client is based on the standard net/http package and contains retry and tracing/telemetry support.
// Client.Send dispatches the request in a new goroutine and returns a request.Cancelable immediately.
// Client.Do sends the request synchronously.
//
// It is easy to use a custom HTTP client, by implementing the request.Sender interface.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/keboola/go-request-builder/pkg/client/decode"
	"github.com/keboola/go-request-builder/pkg/client/trace"
	"github.com/keboola/go-request-builder/pkg/request"
)

const UserAgent = "go-request-builder"

// Client is a default and configurable implementation of the request.Sender interface by Go native http.Client.
// It supports retry and tracing/telemetry.
type Client struct {
	transport      http.RoundTripper
	header         http.Header
	retry          RetryConfig
	traceFactories []trace.Factory
}

// New creates new HTTP Client.
func New() Client {
	c := Client{transport: DefaultTransport(), header: make(http.Header), retry: DefaultRetry()}
	c.header.Set("User-Agent", UserAgent)
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	return c.WithHeader("User-Agent", v)
}

// WithHeader returns a clone of the Client with common header set.
// The header is used only if the request doesn't define the same header.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil {
		panic(errors.New("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithRetry returns a clone of the Client with retry config set.
func (c Client) WithRetry(retry RetryConfig) Client {
	c.retry = retry
	return c
}

// AndTrace returns a clone of the Client with a trace factory added.
// Hooks of all factories are composed, the last added hooks are called first.
func (c Client) AndTrace(fn trace.Factory) Client {
	c.traceFactories = append(append([]trace.Factory(nil), c.traceFactories...), fn)
	return c
}

// Send implements the request.Sender interface.
// The request is sent in a new goroutine, the done callback is called when the request is completed,
// then the response body is closed.
func (c Client) Send(req *http.Request, done request.Completion) request.Cancelable {
	ctx, cancel := context.WithCancel(req.Context())
	go func() {
		defer cancel()
		res, err := c.Do(req.WithContext(ctx))
		if done != nil {
			done(res, err)
		}
		if res != nil && res.Body != nil {
			_ = res.Body.Close()
		}
	}()
	return request.CancelFunc(cancel)
}

// Do sends the HTTP request synchronously, with retries, and returns the HTTP response.
// Compressed response body is decoded. The caller must close the response body.
func (c Client) Do(req *http.Request) (res *http.Response, err error) {
	// Method cannot be called on an empty value
	if c.transport == nil {
		panic(errors.New("client value is not initialized"))
	}

	// Init trace
	ctx := req.Context()
	var tc *trace.ClientTrace
	for i := len(c.traceFactories) - 1; i >= 0; i-- {
		var t *trace.ClientTrace
		ctx, t = c.traceFactories[i](ctx, req)
		if t != nil {
			t.Compose(tc)
			tc = t
		}
	}
	if tc != nil {
		ctx = httptrace.WithClientTrace(ctx, &tc.ClientTrace)
	}
	req = req.Clone(ctx)

	// Global headers, request headers have precedence
	for k, values := range c.header {
		if _, found := req.Header[k]; !found {
			req.Header[k] = append([]string(nil), values...)
		}
	}

	// Setup native client
	nativeClient := http.Client{
		Timeout:   c.retry.TotalRequestTimeout,
		Transport: roundTripper{retry: c.retry, trace: tc, wrapped: c.transport}, // wrapped transport for trace/retry
	}

	// Trace request processed
	if tc != nil && tc.RequestProcessed != nil {
		defer func() {
			tc.RequestProcessed(res, err)
		}()
	}

	// Send request
	startedAt := time.Now()
	res, err = nativeClient.Do(req)
	if err != nil {
		return nil, handleSendError(startedAt, c.retry.TotalRequestTimeout, req, err)
	}

	// Decode body
	if contentEncoding := res.Header.Get("Content-Encoding"); contentEncoding != "" {
		body, decodeErr := decode.Decode(res.Body, contentEncoding)
		if decodeErr != nil {
			_ = res.Body.Close()
			return nil, fmt.Errorf(`cannot process request %s "%s": %w`, req.Method, req.URL.String(), decodeErr)
		}
		if body != res.Body {
			res.Body = body
			res.Header.Del("Content-Encoding")
			res.Header.Del("Content-Length")
			res.ContentLength = -1
			res.Uncompressed = true
		}
	}

	return res, nil
}

func handleSendError(startedAt time.Time, clientTimeout time.Duration, req *http.Request, err error) error {
	// Timeout
	var netErr net.Error
	if deadline, ok := req.Context().Deadline(); ok && errors.Is(err, context.DeadlineExceeded) {
		err = urlError(req, fmt.Errorf("timeout after %s", deadline.Sub(startedAt)))
	} else if errors.Is(err, context.Canceled) {
		err = urlError(req, fmt.Errorf("canceled after %s: %w", time.Since(startedAt), context.Canceled))
	} else if errors.As(err, &netErr) && netErr.Timeout() {
		if strings.Contains(err.Error(), "Client.Timeout exceeded") {
			err = urlError(req, fmt.Errorf("timeout after %s", clientTimeout))
		} else {
			err = urlError(req, fmt.Errorf("timeout after %s", time.Since(startedAt)))
		}
	}

	// Url error
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf(`request %s "%s" failed: %w`, strings.ToUpper(urlErr.Op), urlErr.URL, urlErr.Err)
	}

	return err
}

// roundTripper wraps a http.RoundTripper and adds trace and retry functionality.
type roundTripper struct {
	trace   *trace.ClientTrace
	retry   RetryConfig
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	state := rt.retry.NewBackoff()
	attempt := 0
	for {
		// Trace request start
		if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
			rt.trace.HTTPRequestStart(req)
		}

		// Send
		res, err := rt.wrapped.RoundTrip(req)

		// Trace request done
		if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
			rt.trace.HTTPRequestDone(res, err)
		}

		// Check if we should retry
		if rt.retry.Condition == nil || !rt.retry.Condition(res, err) || attempt >= rt.retry.Count {
			// No retry
			return res, err
		}

		// Get next delay
		delay := state.NextBackOff()
		if delay == backoff.Stop {
			// Stop
			return res, err
		}

		// Discard body of the failed attempt
		if res != nil && res.Body != nil {
			_ = res.Body.Close()
		}

		// Trace retry
		attempt++
		if rt.trace != nil && rt.trace.HTTPRequestRetry != nil {
			rt.trace.HTTPRequestRetry(attempt, delay)
		}

		// Rewind body before retry
		if req.GetBody != nil {
			req.Body, err = req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("cannot rewind body: %w", err)
			}
		}

		// Wait
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			// context is canceled
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
			// time elapsed, retry
		}
	}
}

func urlError(req *http.Request, err error) *url.Error {
	return &url.Error{Op: req.Method, URL: req.URL.String(), Err: err}
}
