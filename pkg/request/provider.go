package request

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/keboola/go-request-builder/pkg/encoding"
)

// Provider represents one API: the base URL and defaults for all its requests.
// Provider is not modified after creation, it can be shared by concurrently built requests.
type Provider struct {
	baseURL               *url.URL
	sender                Sender
	parameterEncoding     encoding.ParameterEncoding
	requireAuthentication bool
	authentication        Authentication
	transforms            []Transform
	env                   Environment
}

type ProviderOption func(p *Provider)

// WithDefaultSender sets the Sender used by requests without their own Sender.
// A typed nil pointer is treated as not set.
func WithDefaultSender(sender Sender) ProviderOption {
	return func(p *Provider) {
		p.sender = sender
	}
}

// WithDefaultParameterEncoding sets the encoding used by requests without their own encoding.
func WithDefaultParameterEncoding(enc encoding.ParameterEncoding) ProviderOption {
	return func(p *Provider) {
		p.parameterEncoding = enc
	}
}

// WithDefaultAuthentication sets the credentials used by requests without their own credentials.
func WithDefaultAuthentication(auth Authentication) ProviderOption {
	return func(p *Provider) {
		p.authentication = auth
	}
}

// WithAuthenticationRequired makes authentication required for requests
// that don't override it by Request.WithRequireAuthentication.
func WithAuthenticationRequired() ProviderOption {
	return func(p *Provider) {
		p.requireAuthentication = true
	}
}

// WithProviderTransform registers a hook applied to all requests, before the request level hooks.
func WithProviderTransform(fn Transform) ProviderOption {
	return func(p *Provider) {
		p.transforms = append(p.transforms, fn)
	}
}

// WithEnvironment sets the Environment, by default NewEnvironment(nil) is used.
func WithEnvironment(env Environment) ProviderOption {
	return func(p *Provider) {
		p.env = env
	}
}

// NewProvider creates a Provider. The base URL must be absolute.
func NewProvider(baseURL string, opts ...ProviderOption) (*Provider, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf(`base url "%s" is not valid: %w`, baseURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf(`base url "%s" is not valid: url must be absolute`, baseURL)
	}

	p := &Provider{baseURL: u, env: NewEnvironment(nil)}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// MustNewProvider is NewProvider, but it panics on an invalid base URL.
func MustNewProvider(baseURL string, opts ...ProviderOption) *Provider {
	p, err := NewProvider(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// BaseURL returns a copy of the base URL.
func (p *Provider) BaseURL() *url.URL {
	if p.baseURL == nil {
		return &url.URL{}
	}
	clone := *p.baseURL
	return &clone
}

func (p *Provider) DefaultSender() Sender {
	return p.sender
}

func (p *Provider) DefaultParameterEncoding() encoding.ParameterEncoding {
	return p.parameterEncoding
}

func (p *Provider) Environment() Environment {
	return p.env
}

// Request creates a Request to the path.
func (p *Provider) Request(method, path string) Request {
	return NewRequest(p, method, path)
}

func (p *Provider) Get(path string) Request {
	return p.Request(http.MethodGet, path)
}

func (p *Provider) Post(path string) Request {
	return p.Request(http.MethodPost, path)
}

func (p *Provider) Put(path string) Request {
	return p.Request(http.MethodPut, path)
}

func (p *Provider) Patch(path string) Request {
	return p.Request(http.MethodPatch, path)
}

func (p *Provider) Delete(path string) Request {
	return p.Request(http.MethodDelete, path)
}
