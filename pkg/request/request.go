// Package request provides a declarative builder of HTTP requests against a configured API Provider.
//
// A Provider holds the base URL and defaults of one API.
// A Request is an immutable value, every With*/And* method returns a modified copy,
// see NewRequest function and Provider shortcuts, for example Provider.Get.
//
// The Request is resolved to the *http.Request by the HTTPRequest method
// and dispatched by a Sender, which performs the network I/O and returns a Cancelable.
// The client.Client is a default implementation of the Sender interface based on the net/http package.
//
// Sender is resolved in order: the argument of the Send method, Request.WithSender,
// Provider default sender and Environment.Sender.
// Parameter encoding is resolved in order: Request.WithParameterEncoding, Provider default and encoding.Default.
//
// Send method never fails, resolution errors are logged and the Noop handle is returned.
// Use SendE or HTTPRequest methods to handle errors.
//
// WaitGroup is a helper for concurrent requests.
package request
