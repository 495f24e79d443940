package request

import (
	"context"
	"net/http"
	"sort"

	"github.com/keboola/go-request-builder/pkg/encoding"
	"github.com/keboola/go-request-builder/pkg/header"
)

// Authentication descriptor modifies the request before it is sent, see the auth package.
type Authentication interface {
	Authenticate(req *http.Request) error
}

// Transform is a post-processing hook applied to the resolved request.
// If an error is returned, the request is not sent.
type Transform func(ctx context.Context, req *http.Request) (*http.Request, error)

// Listener is called when the request is completed, it can replace the error.
type Listener func(ctx context.Context, res *http.Response, err error) error

// QueryItem is one name/value pair of the URL query, the order of items is preserved.
type QueryItem struct {
	Name  string
	Value string
}

// Request is an immutable definition of one API call, see NewRequest function.
// Each With*/And* method returns a modified copy, the original value is not changed.
type Request struct {
	provider              *Provider
	method                string
	path                  string
	requireAuthentication *bool
	authentication        Authentication
	sender                Sender
	queryItems            []QueryItem
	header                http.Header
	parameters            map[string]any
	parameterEncoding     encoding.ParameterEncoding
	body                  []byte
	hasBody               bool
	transforms            []Transform
	listeners             []Listener
}

// NewRequest creates a Request against the Provider.
func NewRequest(provider *Provider, method, path string) Request {
	return Request{provider: provider, method: method, path: path, header: make(http.Header)}
}

func (r Request) Provider() *Provider {
	return r.provider
}

// Method returns HTTP method, GET if it is not set.
func (r Request) Method() string {
	if r.method == "" {
		return http.MethodGet
	}
	return r.method
}

func (r Request) Path() string {
	return r.path
}

func (r Request) QueryItems() []QueryItem {
	return r.queryItems
}

func (r Request) Header() http.Header {
	return r.header
}

func (r Request) Parameters() map[string]any {
	return r.parameters
}

// Body returns the raw body and true, if it is set.
func (r Request) Body() ([]byte, bool) {
	return r.body, r.hasBody
}

func (r Request) WithMethod(method string) Request {
	r.method = method
	return r
}

func (r Request) WithPath(path string) Request {
	r.path = path
	return r
}

// WithGet is shortcut for WithMethod(http.MethodGet).WithPath(path).
func (r Request) WithGet(path string) Request {
	return r.WithMethod(http.MethodGet).WithPath(path)
}

// WithPost is shortcut for WithMethod(http.MethodPost).WithPath(path).
func (r Request) WithPost(path string) Request {
	return r.WithMethod(http.MethodPost).WithPath(path)
}

// WithPut is shortcut for WithMethod(http.MethodPut).WithPath(path).
func (r Request) WithPut(path string) Request {
	return r.WithMethod(http.MethodPut).WithPath(path)
}

// WithPatch is shortcut for WithMethod(http.MethodPatch).WithPath(path).
func (r Request) WithPatch(path string) Request {
	return r.WithMethod(http.MethodPatch).WithPath(path)
}

// WithDelete is shortcut for WithMethod(http.MethodDelete).WithPath(path).
func (r Request) WithDelete(path string) Request {
	return r.WithMethod(http.MethodDelete).WithPath(path)
}

// WithSender overrides the Provider default Sender.
// A nil Sender, including a typed nil pointer, is skipped by the fallback.
func (r Request) WithSender(sender Sender) Request {
	r.sender = sender
	return r
}

// WithRequireAuthentication overrides the Provider setting.
func (r Request) WithRequireAuthentication(required bool) Request {
	r.requireAuthentication = &required
	return r
}

// WithAuthentication overrides the Provider default credentials.
func (r Request) WithAuthentication(auth Authentication) Request {
	r.authentication = auth
	return r
}

// WithQueryItems replaces all query items.
func (r Request) WithQueryItems(items ...QueryItem) Request {
	r.queryItems = append([]QueryItem(nil), items...)
	return r
}

// WithQueryParams replaces all query items, the items are sorted by name.
func (r Request) WithQueryParams(params map[string]string) Request {
	items := make([]QueryItem, 0, len(params))
	for k, v := range params {
		items = append(items, QueryItem{Name: k, Value: v})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	r.queryItems = items
	return r
}

// AndQueryItem appends one query item.
func (r Request) AndQueryItem(item QueryItem) Request {
	r.queryItems = append(cloneSlice(r.queryItems), item)
	return r
}

// AndQueryParam appends one query item.
func (r Request) AndQueryParam(name, value string) Request {
	return r.AndQueryItem(QueryItem{Name: name, Value: value})
}

// WithHeaders replaces all headers.
func (r Request) WithHeaders(headers map[string]string) Request {
	r.header = make(http.Header, len(headers))
	for k, v := range headers {
		r.header.Set(k, v)
	}
	return r
}

// WithHeaderKeys replaces all headers, it is equivalent to WithHeaders.
func (r Request) WithHeaderKeys(headers map[header.Key]string) Request {
	r.header = header.ToHeader(headers)
	return r
}

// AndHeader sets a single header field and its value.
func (r Request) AndHeader(name, value string) Request {
	r.header = r.header.Clone()
	if r.header == nil {
		r.header = make(http.Header)
	}
	r.header.Set(name, value)
	return r
}

// AndHeaderKey sets a single header field and its value.
func (r Request) AndHeaderKey(key header.Key, value string) Request {
	return r.AndHeader(key.String(), value)
}

// WithParameters replaces all parameters.
// Parameters are ignored if the raw body is set by the WithBody method.
func (r Request) WithParameters(params map[string]any) Request {
	r.parameters = cloneParams(params)
	return r
}

// AndParameter sets a single parameter.
func (r Request) AndParameter(key string, value any) Request {
	r.parameters = cloneParams(r.parameters)
	r.parameters[key] = value
	return r
}

// WithParameterEncoding overrides the Provider default encoding.
func (r Request) WithParameterEncoding(enc encoding.ParameterEncoding) Request {
	r.parameterEncoding = enc
	return r
}

// WithBody sets the raw body. If it is set, parameters are ignored.
func (r Request) WithBody(body []byte) Request {
	r.body = append([]byte{}, body...)
	r.hasBody = true
	return r
}

// WithContentType is shortcut for AndHeaderKey(header.ContentType, contentType).
func (r Request) WithContentType(contentType string) Request {
	return r.AndHeaderKey(header.ContentType, contentType)
}

// WithTransform registers a post-processing hook, hooks are applied in the order of registration.
func (r Request) WithTransform(fn Transform) Request {
	r.transforms = append(cloneSlice(r.transforms), fn)
	return r
}

// WithOnComplete method registers callback to be executed when the request is completed.
func (r Request) WithOnComplete(fn Listener) Request {
	r.listeners = append(cloneSlice(r.listeners), fn)
	return r
}

// WithOnSuccess method registers callback to be executed when the request is completed and `code < 400`.
func (r Request) WithOnSuccess(fn func(ctx context.Context, res *http.Response) error) Request {
	return r.WithOnComplete(func(ctx context.Context, res *http.Response, err error) error {
		if err == nil {
			return fn(ctx, res)
		}
		return err
	})
}

// WithOnError method registers callback to be executed when the request failed or `code >= 400`.
func (r Request) WithOnError(fn func(ctx context.Context, res *http.Response, err error) error) Request {
	return r.WithOnComplete(func(ctx context.Context, res *http.Response, err error) error {
		if err != nil {
			return fn(ctx, res, err)
		}
		return err
	})
}
