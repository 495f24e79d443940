// Package encoding provides strategies for serializing request parameters.
//
// A ParameterEncoding writes a key/value mapping into the *http.Request,
// either to the URL query string or to the request body,
// and it may set related headers, for example Content-Type.
//
// Named strategies are Default, Query, Form and JSON, see also the ByName function.
package encoding

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

const (
	ContentTypeForm = "application/x-www-form-urlencoded; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// ParameterEncoding encodes parameters to the request.
// The request may be modified in place, the returned request is used by the caller.
type ParameterEncoding interface {
	Encode(req *http.Request, params map[string]any) (*http.Request, error)
}

// Named encoding strategies.
var (
	// Default encodes parameters to the query string for GET, HEAD and DELETE requests, otherwise to the form body.
	Default ParameterEncoding = URLEncoding{} //nolint:gochecknoglobals
	// Query always encodes parameters to the query string.
	Query ParameterEncoding = URLEncoding{Destination: QueryString} //nolint:gochecknoglobals
	// Form always encodes parameters to the form body.
	Form ParameterEncoding = URLEncoding{Destination: HTTPBody} //nolint:gochecknoglobals
	// JSON encodes parameters to the JSON body.
	JSON ParameterEncoding = JSONEncoding{} //nolint:gochecknoglobals
)

// ByName returns named encoding strategy: "default", "query", "form" or "json".
func ByName(name string) (ParameterEncoding, bool) {
	switch strings.ToLower(name) {
	case "default", "url":
		return Default, true
	case "query":
		return Query, true
	case "form":
		return Form, true
	case "json":
		return JSON, true
	default:
		return nil, false
	}
}

// SetBody sets the request body to the bytes.
// The body can be read more than once, for redirects and retries.
func SetBody(req *http.Request, body []byte) {
	if len(body) == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		req.ContentLength = 0
		return
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.Body, _ = req.GetBody()
	req.ContentLength = int64(len(body))
}

func setContentTypeIfEmpty(req *http.Request, contentType string) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
}
