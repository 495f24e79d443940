// Package trace extends the httptrace.ClientTrace and adds additional hooks of the client.Client.
// A custom ClientTrace definition can be registered in the client.Client by the AndTrace method.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"
	"time"
)

// Factory creates ClientTrace hooks for a request.
// The returned context is used to send the request, the ClientTrace may be nil.
type Factory func(ctx context.Context, req *http.Request) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks to run at various stages of an outgoing request.
type ClientTrace struct {
	httptrace.ClientTrace // native, low level trace
	// HTTPRequestStart is called when the request begins. It includes redirects and retries.
	HTTPRequestStart func(req *http.Request)
	// HTTPRequestDone is called when the request completes. It includes redirects and retries.
	HTTPRequestDone func(res *http.Response, err error)
	// HTTPRequestRetry is called before retry delay.
	HTTPRequestRetry func(attempt int, delay time.Duration)
	// RequestProcessed is called when Client.Do method is done, the response body is not read yet.
	RequestProcessed func(res *http.Response, err error)
}

// Compose modifies t such that it respects the previously-registered hooks in old.
// Hooks from old are called first, including the native httptrace hooks.
func (t *ClientTrace) Compose(old *ClientTrace) {
	if old == nil {
		return
	}
	compose(reflect.ValueOf(t).Elem(), reflect.ValueOf(old).Elem())
}

func compose(tv, ov reflect.Value) {
	for i := 0; i < tv.NumField(); i++ {
		tf := tv.Field(i)
		of := ov.Field(i)

		// Embedded httptrace.ClientTrace
		if tf.Kind() == reflect.Struct {
			compose(tf, of)
			continue
		}

		hookType := tf.Type()
		if hookType.Kind() != reflect.Func || of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call. (Otherwise it
		// creates a recursive call cycle and stack overflows)
		tfCopy := reflect.ValueOf(tf.Interface())
		ofCopy := reflect.ValueOf(of.Interface())
		tf.Set(reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			ofCopy.Call(args)
			return tfCopy.Call(args)
		}))
	}
}
