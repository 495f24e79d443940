package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/keboola/go-request-builder/pkg/encoding"
)

// URL returns the final URL: the Provider base URL, the path and query items in their order.
func (r Request) URL() (*url.URL, error) {
	if r.provider == nil || r.provider.baseURL == nil {
		return nil, &InvalidURLError{URL: r.path, Err: errors.New("provider is not set")}
	}

	// The path is appended as it is, dot segments and empty segments are not cleaned
	out := r.provider.BaseURL()
	if r.path != "" {
		if _, err := url.PathUnescape(r.path); err != nil {
			return nil, &InvalidURLError{URL: strings.TrimRight(out.String(), "/") + "/" + strings.TrimLeft(r.path, "/"), Err: err}
		}
		rawPath := strings.TrimRight(out.EscapedPath(), "/") + "/" + strings.TrimLeft(r.path, "/")
		unescaped, err := url.PathUnescape(rawPath)
		if err != nil {
			return nil, &InvalidURLError{URL: rawPath, Err: err}
		}
		out.Path = unescaped
		out.RawPath = rawPath
	}

	if len(r.queryItems) > 0 {
		var b strings.Builder
		b.WriteString(out.RawQuery)
		for _, item := range r.queryItems {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(item.Name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(item.Value))
		}
		out.RawQuery = b.String()
	}

	// Round trip check, the result must be parsable
	if _, err := url.Parse(out.String()); err != nil {
		return nil, &InvalidURLError{URL: out.String(), Err: err}
	}

	return out, nil
}

// HTTPRequest resolves the Request to the *http.Request.
//
// Raw body takes precedence over parameters. Parameters are encoded by the first set encoding:
// Request, Provider, encoding.Default. Then the authentication and Transform hooks are applied.
//
// Returned error is one of *InvalidURLError, *EncodingError, *TransformError.
func (r Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	reqURL, err := r.URL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, r.Method(), reqURL.String(), nil)
	if err != nil {
		return nil, &InvalidURLError{URL: reqURL.String(), Err: err}
	}

	// Headers
	for k, values := range r.header {
		req.Header[k] = append([]string(nil), values...)
	}

	// Body
	if r.hasBody {
		encoding.SetBody(req, r.body)
	} else if len(r.parameters) > 0 {
		enc, _ := firstSet(r.parameterEncoding, r.provider.parameterEncoding, encoding.Default)
		if req, err = enc.Encode(req, cloneParams(r.parameters)); err != nil {
			return nil, &EncodingError{Err: err}
		}
	}

	// Authentication
	if err := r.authenticate(req); err != nil {
		return nil, &TransformError{Err: err}
	}

	// Hooks
	for _, fn := range append(cloneSlice(r.provider.transforms), r.transforms...) {
		out, err := fn(ctx, req)
		if err != nil {
			return nil, &TransformError{Err: err}
		}
		if out == nil {
			return nil, &TransformError{Err: errors.New("transform returned nil request")}
		}
		req = out
	}

	return req, nil
}

// SendE resolves the request and passes it to the Sender.
// The sender argument may be nil, then the Request, Provider and Environment senders are tried.
func (r Request) SendE(ctx context.Context, sender Sender) (Cancelable, error) {
	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return Noop, err
	}

	req, err := r.HTTPRequest(ctx)
	if err != nil {
		return Noop, err
	}

	sender, found := firstSet(sender, r.sender, r.provider.sender, r.provider.env.Sender)
	if !found {
		return Noop, ErrNoSender
	}

	return sender.Send(req, r.completion(ctx, req)), nil
}

// Send resolves the request and passes it to the Sender.
// It never fails: an error is logged and the Noop handle is returned.
func (r Request) Send(ctx context.Context, sender Sender) Cancelable {
	c, err := r.SendE(ctx, sender)
	if err != nil {
		logger := r.environment().Logger
		logger.Error().
			Err(err).
			Str("kind", errorKind(err)).
			Str("method", r.Method()).
			Str("path", r.path).
			Msg("request not sent")
		return Noop
	}
	return c
}

func (r Request) environment() Environment {
	if r.provider == nil || r.provider.baseURL == nil {
		return NewEnvironment(nil)
	}
	return r.provider.env
}

func (r Request) authenticate(req *http.Request) error {
	required := r.provider.requireAuthentication
	if r.requireAuthentication != nil {
		required = *r.requireAuthentication
	}

	// Request credentials are always used, Provider credentials only if the authentication is required.
	auth := r.authentication
	if auth == nil && required {
		auth = r.provider.authentication
	}

	if auth == nil {
		if required {
			return errors.New("authentication is required, but credentials are not set")
		}
		return nil
	}
	return auth.Authenticate(req)
}

func (r Request) completion(ctx context.Context, req *http.Request) Completion {
	return func(res *http.Response, err error) {
		// Generic HTTP error
		if err == nil && res != nil && res.StatusCode > 399 {
			err = fmt.Errorf(`request %s "%s" failed: %d %s`, req.Method, req.URL.String(), res.StatusCode, http.StatusText(res.StatusCode))
		}
		for _, fn := range r.listeners {
			err = fn(ctx, res, err)
		}
	}
}
