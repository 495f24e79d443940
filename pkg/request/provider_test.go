package request_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/go-request-builder/pkg/encoding"
	"github.com/keboola/go-request-builder/pkg/request"
)

func TestNewProvider(t *testing.T) {
	t.Parallel()

	p, err := request.NewProvider("https://api.test.com/v1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.test.com/v1", p.BaseURL().String())
	assert.Nil(t, p.DefaultSender())
	assert.Nil(t, p.DefaultParameterEncoding())
	assert.Nil(t, p.Environment().Sender)
}

func TestNewProvider_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct{ baseURL, err string }{
		{"", `base url "" is not valid: url must be absolute`},
		{"/v1/users", `base url "/v1/users" is not valid: url must be absolute`},
		{"https://", `base url "https://" is not valid: url must be absolute`},
		{"https://[::1", `base url "https://[::1" is not valid: parse "https://[::1": missing ']' in host`},
	}
	for _, tc := range cases {
		_, err := request.NewProvider(tc.baseURL)
		if assert.Error(t, err, tc.baseURL) {
			assert.Equal(t, tc.err, err.Error())
		}
	}

	assert.Panics(t, func() {
		request.MustNewProvider("/relative")
	})
}

func TestProvider_Options(t *testing.T) {
	t.Parallel()

	sender := newTestSender(http.StatusOK)
	var logs bytes.Buffer
	env := request.NewEnvironment(nil).WithLogger(zerolog.New(&logs))
	p := request.MustNewProvider(
		"https://api.test.com",
		request.WithDefaultSender(sender),
		request.WithDefaultParameterEncoding(encoding.JSON),
		request.WithEnvironment(env),
	)
	assert.Same(t, sender, p.DefaultSender())
	assert.Equal(t, encoding.JSON, p.DefaultParameterEncoding())

	// Environment is used for logging
	logger := p.Environment().Logger
	logger.Info().Msg("foo")
	assert.Equal(t, `{"level":"info","message":"foo"}`+"\n", logs.String())
}

func TestProvider_BaseURLIsCopy(t *testing.T) {
	t.Parallel()

	p := request.MustNewProvider("https://api.test.com/v1")
	u := p.BaseURL()
	u.Path = "/modified"
	assert.Equal(t, "https://api.test.com/v1", p.BaseURL().String())
}

func TestProvider_Shortcuts(t *testing.T) {
	t.Parallel()

	p := request.MustNewProvider("https://api.test.com")
	cases := []struct {
		request request.Request
		method  string
	}{
		{p.Get("/a"), http.MethodGet},
		{p.Post("/a"), http.MethodPost},
		{p.Put("/a"), http.MethodPut},
		{p.Patch("/a"), http.MethodPatch},
		{p.Delete("/a"), http.MethodDelete},
		{p.Request(http.MethodHead, "/a"), http.MethodHead},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.method, tc.request.Method())
		assert.Equal(t, "/a", tc.request.Path())
		assert.Same(t, p, tc.request.Provider())
	}
}

func TestEnvironment_Clone(t *testing.T) {
	t.Parallel()

	sender := newTestSender(http.StatusOK)
	env1 := request.NewEnvironment(nil)
	env2 := env1.WithSender(sender)
	assert.Nil(t, env1.Sender)
	assert.Same(t, sender, env2.Sender)

	var logs bytes.Buffer
	env3 := env2.WithLogOutput(&logs)
	env3.Logger.Warn().Msg("bar")
	assert.Contains(t, logs.String(), `"message":"bar"`)
	assert.Contains(t, logs.String(), `"time":`)
}
