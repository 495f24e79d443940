package request_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/go-request-builder/pkg/auth"
	"github.com/keboola/go-request-builder/pkg/encoding"
	"github.com/keboola/go-request-builder/pkg/request"
)

func TestRequest_URL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		baseURL  string
		path     string
		query    []request.QueryItem
		expected string
	}{
		{"http://api.test.com", "/users", nil, "http://api.test.com/users"},
		{"http://api.test.com", "users", nil, "http://api.test.com/users"},
		{"http://api.test.com", "", nil, "http://api.test.com"},
		{"http://api.test.com/", "/users", nil, "http://api.test.com/users"},
		{"http://api.test.com/v1", "/users/", nil, "http://api.test.com/v1/users/"},
		{"http://api.test.com/v1/", "users/123", nil, "http://api.test.com/v1/users/123"},
		{"http://api.test.com", "/my file", nil, "http://api.test.com/my%20file"},
		{"http://api.test.com", "/users", []request.QueryItem{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}, "http://api.test.com/users?a=1&b=2"},
		{"http://api.test.com", "/users", []request.QueryItem{{Name: "b", Value: "2"}, {Name: "a", Value: "1"}}, "http://api.test.com/users?b=2&a=1"},
		{"http://api.test.com", "/search", []request.QueryItem{{Name: "q", Value: "a b&c"}}, "http://api.test.com/search?q=a+b%26c"},
		{"http://api.test.com?key=x", "/users", []request.QueryItem{{Name: "a", Value: "1"}}, "http://api.test.com/users?key=x&a=1"},
		{"http://api.test.com/v1", "../admin", nil, "http://api.test.com/v1/../admin"},
		{"http://api.test.com/v1", "/users//1", nil, "http://api.test.com/v1/users//1"},
		{"http://api.test.com/v1", "/a/./b", nil, "http://api.test.com/v1/a/./b"},
		{"http://api.test.com/v1", "/v2/..", nil, "http://api.test.com/v1/v2/.."},
		{"http://api.test.com/v1", "/files/a%2Fb", nil, "http://api.test.com/v1/files/a%2Fb"},
	}
	for _, tc := range cases {
		r := request.NewRequest(request.MustNewProvider(tc.baseURL), http.MethodGet, tc.path).WithQueryItems(tc.query...)
		u, err := r.URL()
		if assert.NoError(t, err, tc.expected) {
			assert.Equal(t, tc.expected, u.String())
		}
	}
}

func TestRequest_URL_Invalid(t *testing.T) {
	t.Parallel()

	_, err := request.NewRequest(testProvider(), http.MethodGet, "/users%zz").URL()
	require.Error(t, err)
	var urlErr *request.InvalidURLError
	require.ErrorAs(t, err, &urlErr)
	assert.Equal(t, "http://api.test.com/users%zz", urlErr.URL)
	assert.Equal(t, `invalid url "http://api.test.com/users%zz": invalid URL escape "%zz"`, err.Error())

	// Provider is not set
	_, err = request.Request{}.URL()
	require.ErrorAs(t, err, &urlErr)
	assert.Equal(t, `invalid url "": provider is not set`, err.Error())
}

func TestRequest_HTTPRequest_Encoding(t *testing.T) {
	t.Parallel()

	params := map[string]any{"name": "John Doe", "tags": []string{"a", "b"}}
	cases := []struct {
		name        string
		provider    *request.Provider
		method      string
		encoding    encoding.ParameterEncoding
		url         string
		body        string
		contentType string
	}{
		{
			name:     "default GET",
			provider: testProvider(),
			method:   http.MethodGet,
			url:      "http://api.test.com/users?name=John+Doe&tags%5B%5D=a&tags%5B%5D=b",
		},
		{
			name:        "default POST",
			provider:    testProvider(),
			method:      http.MethodPost,
			url:         "http://api.test.com/users",
			body:        "name=John+Doe&tags%5B%5D=a&tags%5B%5D=b",
			contentType: encoding.ContentTypeForm,
		},
		{
			name:        "provider default",
			provider:    testProvider(request.WithDefaultParameterEncoding(encoding.JSON)),
			method:      http.MethodGet,
			url:         "http://api.test.com/users",
			body:        `{"name":"John Doe","tags":["a","b"]}`,
			contentType: encoding.ContentTypeJSON,
		},
		{
			name:     "request overrides provider",
			provider: testProvider(request.WithDefaultParameterEncoding(encoding.JSON)),
			method:   http.MethodPost,
			encoding: encoding.Query,
			url:      "http://api.test.com/users?name=John+Doe&tags%5B%5D=a&tags%5B%5D=b",
		},
	}

	for _, tc := range cases {
		r := tc.provider.Request(tc.method, "/users").WithParameters(params)
		if tc.encoding != nil {
			r = r.WithParameterEncoding(tc.encoding)
		}
		req, err := r.HTTPRequest(context.Background())
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.url, req.URL.String(), tc.name)
		assert.Equal(t, tc.contentType, req.Header.Get("Content-Type"), tc.name)
		if tc.body == "" {
			assert.True(t, req.Body == nil || req.Body == http.NoBody, tc.name)
		} else {
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err, tc.name)
			assert.Equal(t, tc.body, string(body), tc.name)
		}
	}
}

func TestRequest_HTTPRequest_EncodingError(t *testing.T) {
	t.Parallel()

	_, err := request.NewRequest(testProvider(), http.MethodGet, "/").
		AndParameter("fn", func() {}).
		HTTPRequest(context.Background())
	require.Error(t, err)
	var encErr *request.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.True(t, strings.HasPrefix(err.Error(), `cannot encode parameters: cannot encode parameter "fn"`), err.Error())
}

func TestRequest_HTTPRequest_Headers(t *testing.T) {
	t.Parallel()

	r := request.NewRequest(testProvider(), http.MethodGet, "/").AndHeader("X-Foo", "bar")
	req, err := r.HTTPRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bar", req.Header.Get("X-Foo"))

	// Request headers are copied
	req.Header.Set("X-Foo", "modified")
	assert.Equal(t, "bar", r.Header().Get("X-Foo"))
}

func TestRequest_HTTPRequest_Context(t *testing.T) {
	t.Parallel()

	type ctxKey string
	ctx := context.WithValue(context.Background(), ctxKey("key"), "value")
	req, err := request.NewRequest(testProvider(), http.MethodGet, "/").HTTPRequest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "value", req.Context().Value(ctxKey("key")))
}

func TestRequest_Authentication(t *testing.T) {
	t.Parallel()

	bearer := auth.Bearer("provider-token")
	cases := []struct {
		name     string
		provider *request.Provider
		modify   func(r request.Request) request.Request
		expected string
		err      string
	}{
		{
			name:     "provider credentials, not required",
			provider: testProvider(request.WithDefaultAuthentication(bearer)),
			expected: "",
		},
		{
			name:     "provider credentials, required",
			provider: testProvider(request.WithDefaultAuthentication(bearer), request.WithAuthenticationRequired()),
			expected: "Bearer provider-token",
		},
		{
			name:     "provider credentials, required by request",
			provider: testProvider(request.WithDefaultAuthentication(bearer)),
			modify: func(r request.Request) request.Request {
				return r.WithRequireAuthentication(true)
			},
			expected: "Bearer provider-token",
		},
		{
			name:     "provider credentials, not required by request",
			provider: testProvider(request.WithDefaultAuthentication(bearer), request.WithAuthenticationRequired()),
			modify: func(r request.Request) request.Request {
				return r.WithRequireAuthentication(false)
			},
			expected: "",
		},
		{
			name:     "request credentials",
			provider: testProvider(request.WithDefaultAuthentication(bearer), request.WithAuthenticationRequired()),
			modify: func(r request.Request) request.Request {
				return r.WithAuthentication(auth.Bearer("request-token"))
			},
			expected: "Bearer request-token",
		},
		{
			name:     "request credentials, not required",
			provider: testProvider(),
			modify: func(r request.Request) request.Request {
				return r.WithAuthentication(auth.Bearer("request-token"))
			},
			expected: "Bearer request-token",
		},
		{
			name:     "required, missing credentials",
			provider: testProvider(request.WithAuthenticationRequired()),
			err:      "cannot transform request: authentication is required, but credentials are not set",
		},
		{
			name:     "invalid credentials",
			provider: testProvider(),
			modify: func(r request.Request) request.Request {
				return r.WithAuthentication(auth.Bearer(""))
			},
			err: "cannot transform request: bearer token is empty",
		},
	}

	for _, tc := range cases {
		r := tc.provider.Get("/users")
		if tc.modify != nil {
			r = tc.modify(r)
		}
		req, err := r.HTTPRequest(context.Background())
		if tc.err != "" {
			var transformErr *request.TransformError
			if assert.ErrorAs(t, err, &transformErr, tc.name) {
				assert.Equal(t, tc.err, err.Error(), tc.name)
			}
			continue
		}
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.expected, req.Header.Get("Authorization"), tc.name)
	}
}

func TestRequest_Transforms(t *testing.T) {
	t.Parallel()

	var calls []string
	transform := func(name string) request.Transform {
		return func(_ context.Context, req *http.Request) (*http.Request, error) {
			calls = append(calls, name)
			req.Header.Add("X-Transform", name)
			return req, nil
		}
	}

	p := testProvider(
		request.WithProviderTransform(transform("provider1")),
		request.WithProviderTransform(transform("provider2")),
	)
	req, err := p.Get("/").
		WithTransform(transform("request1")).
		WithTransform(transform("request2")).
		HTTPRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"provider1", "provider2", "request1", "request2"}, calls)
	assert.Equal(t, []string{"provider1", "provider2", "request1", "request2"}, req.Header.Values("X-Transform"))
}

func TestRequest_Transforms_Error(t *testing.T) {
	t.Parallel()

	p := testProvider()
	var transformErr *request.TransformError

	// Error
	_, err := p.Get("/").
		WithTransform(func(_ context.Context, _ *http.Request) (*http.Request, error) {
			return nil, errors.New("some error")
		}).
		HTTPRequest(context.Background())
	require.ErrorAs(t, err, &transformErr)
	assert.Equal(t, "cannot transform request: some error", err.Error())

	// Nil request
	_, err = p.Get("/").
		WithTransform(func(_ context.Context, _ *http.Request) (*http.Request, error) {
			return nil, nil
		}).
		HTTPRequest(context.Background())
	require.ErrorAs(t, err, &transformErr)
	assert.Equal(t, "cannot transform request: transform returned nil request", err.Error())
}

func TestRequest_SendE_SenderFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	envSender := newTestSender(http.StatusOK)
	providerSender := newTestSender(http.StatusOK)
	requestSender := newTestSender(http.StatusOK)
	argSender := newTestSender(http.StatusOK)

	env := request.NewEnvironment(envSender)
	p1 := testProvider(request.WithEnvironment(env))
	p2 := testProvider(request.WithEnvironment(env), request.WithDefaultSender(providerSender))

	// Environment
	_, err := p1.Get("/env").SendE(ctx, nil)
	require.NoError(t, err)

	// Provider
	_, err = p2.Get("/provider").SendE(ctx, nil)
	require.NoError(t, err)

	// Request
	_, err = p2.Get("/request").WithSender(requestSender).SendE(ctx, nil)
	require.NoError(t, err)

	// Argument
	_, err = p2.Get("/argument").WithSender(requestSender).SendE(ctx, argSender)
	require.NoError(t, err)

	assert.Equal(t, []string{"/env"}, requestPaths(envSender))
	assert.Equal(t, []string{"/provider"}, requestPaths(providerSender))
	assert.Equal(t, []string{"/request"}, requestPaths(requestSender))
	assert.Equal(t, []string{"/argument"}, requestPaths(argSender))
}

func TestRequest_SendE_TypedNilSender(t *testing.T) {
	t.Parallel()

	providerSender := newTestSender(http.StatusOK)
	var typedNil *testSender
	p := testProvider(request.WithDefaultSender(providerSender))

	// Typed nil is skipped, the Provider sender is used
	_, err := p.Get("/typed-nil").WithSender(typedNil).SendE(context.Background(), typedNil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/typed-nil"}, requestPaths(providerSender))

	// No other sender
	_, err = testProvider().Get("/").SendE(context.Background(), typedNil)
	assert.ErrorIs(t, err, request.ErrNoSender)
}

func TestRequest_Send_ZeroProvider(t *testing.T) {
	t.Parallel()

	sender := newTestSender(http.StatusOK)
	var c request.Cancelable
	assert.NotPanics(t, func() {
		c = request.NewRequest(&request.Provider{}, http.MethodGet, "/x").Send(context.Background(), sender)
	})
	assert.Equal(t, request.Noop, c)
	assert.Empty(t, sender.Requests())

	_, err := request.NewRequest(&request.Provider{}, http.MethodGet, "/x").SendE(context.Background(), sender)
	var urlErr *request.InvalidURLError
	require.ErrorAs(t, err, &urlErr)
	assert.Equal(t, `invalid url "/x": provider is not set`, err.Error())
}

func TestRequest_SendE_NoSender(t *testing.T) {
	t.Parallel()

	c, err := testProvider().Get("/").SendE(context.Background(), nil)
	assert.ErrorIs(t, err, request.ErrNoSender)
	assert.Equal(t, request.Noop, c)
}

func TestRequest_SendE_ContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := newTestSender(http.StatusOK)
	_, err := testProvider().Get("/").SendE(ctx, sender)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.Requests())
}

func TestRequest_Send_Failure(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	sender := newTestSender(http.StatusOK)
	env := request.NewEnvironment(sender).WithLogger(zerolog.New(&logs))
	p := testProvider(request.WithEnvironment(env))

	// Malformed path, request is not sent
	c := p.Get("/users%zz").Send(context.Background(), nil)
	assert.Equal(t, request.Noop, c)
	assert.NotPanics(t, c.Cancel)
	assert.Empty(t, sender.Requests())

	// Error is logged
	var record map[string]any
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(logs.Bytes(), &record))
	assert.Equal(t, map[string]any{
		"level":   "error",
		"error":   `invalid url "http://api.test.com/users%zz": invalid URL escape "%zz"`,
		"kind":    "invalid_url",
		"method":  "GET",
		"path":    "/users%zz",
		"message": "request not sent",
	}, record)
}

func TestRequest_Send_ErrorKinds(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	env := request.NewEnvironment(nil).WithLogger(zerolog.New(&logs))
	p := testProvider(request.WithEnvironment(env), request.WithAuthenticationRequired())

	p.Get("/").Send(context.Background(), nil)                                                                 // transform
	p.Get("/").WithRequireAuthentication(false).AndParameter("fn", func() {}).Send(context.Background(), nil) // encoding
	p.Get("/").WithRequireAuthentication(false).Send(context.Background(), nil)                                // no sender

	var kinds []string
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var record map[string]any
		require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(line, &record))
		kinds = append(kinds, record["kind"].(string))
	}
	assert.Equal(t, []string{"transform", "encoding", "no_sender"}, kinds)
}

func TestRequest_Send_Success(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	sender := newTestSender(http.StatusOK)
	env := request.NewEnvironment(nil).WithLogger(zerolog.New(&logs))
	p := testProvider(request.WithEnvironment(env), request.WithDefaultSender(sender))

	var completed bool
	c := p.Get("/users").
		WithOnSuccess(func(_ context.Context, res *http.Response) error {
			completed = true
			assert.Equal(t, http.StatusOK, res.StatusCode)
			return nil
		}).
		Send(context.Background(), nil)
	assert.IsType(t, request.CancelFunc(nil), c)
	assert.True(t, completed)
	assert.Empty(t, logs.String())
}

func TestRequest_Listeners(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var calls []string
	sender := newTestSender(http.StatusNotFound)
	p := testProvider(request.WithDefaultSender(sender))

	_, err := p.Get("/users").
		WithOnSuccess(func(_ context.Context, _ *http.Response) error {
			calls = append(calls, "success1")
			return nil
		}).
		WithOnError(func(_ context.Context, res *http.Response, err error) error {
			calls = append(calls, "error1: "+err.Error())
			assert.Equal(t, http.StatusNotFound, res.StatusCode)
			// Error is handled
			return nil
		}).
		WithOnSuccess(func(_ context.Context, _ *http.Response) error {
			calls = append(calls, "success2")
			return errors.New("invalid content")
		}).
		WithOnComplete(func(_ context.Context, _ *http.Response, err error) error {
			calls = append(calls, "complete: "+err.Error())
			return err
		}).
		SendE(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`error1: request GET "http://api.test.com/users" failed: 404 Not Found`,
		"success2",
		"complete: invalid content",
	}, calls)
}

func TestRequest_Listeners_SenderError(t *testing.T) {
	t.Parallel()

	sender := newTestSender(0)
	sender.err = errors.New("connection refused")

	var received error
	_, err := testProvider().Get("/").
		WithOnError(func(_ context.Context, res *http.Response, err error) error {
			assert.Nil(t, res)
			received = err
			return err
		}).
		SendE(context.Background(), sender)
	require.NoError(t, err)
	assert.EqualError(t, received, "connection refused")
}

func requestPaths(sender *testSender) (out []string) {
	for _, req := range sender.Requests() {
		out = append(out, req.URL.Path)
	}
	return out
}
