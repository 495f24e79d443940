package request

import (
	"net/http"
)

// Sender performs the network transport of a resolved request, the client.Client is a default implementation.
//
// Send must return immediately and complete the request out of band.
// The done callback must be called exactly once, with the response or with an error.
// The response body is closed by the Sender after the done callback returns.
type Sender interface {
	Send(req *http.Request, done Completion) Cancelable
}

// Completion is called by the Sender when the request is completed.
type Completion func(res *http.Response, err error)

// Cancelable requests cancellation of an in-flight request.
type Cancelable interface {
	Cancel()
}

// CancelFunc adapts a function to the Cancelable interface.
type CancelFunc func()

func (f CancelFunc) Cancel() {
	if f != nil {
		f()
	}
}

type noop struct{}

func (noop) Cancel() {}

// Noop is a Cancelable that does nothing. It is returned if the request has not been sent.
var Noop Cancelable = noop{} //nolint:gochecknoglobals
